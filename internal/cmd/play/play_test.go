package play

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/storyloom/internal/testkit/storyfixtures"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SavesDB != "data/saves.db" {
		t.Fatalf("saves db = %q", cfg.SavesDB)
	}
	if cfg.StepLimit != 100000 || cfg.Seed != -1 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("STORYLOOM_STORY_FILE", "env.json")
	t.Setenv("STORYLOOM_STEP_LIMIT", "50")
	fs := flag.NewFlagSet("play", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-saves", "", "-verbose"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.StoryFile != "env.json" || cfg.StepLimit != 50 || cfg.SavesDB != "" || !cfg.Verbose {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestRunRequiresStory(t *testing.T) {
	if err := Run(context.Background(), Config{}, nil, nil, nil); err == nil {
		t.Fatal("expected missing story error")
	}
}

func writeStory(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crossroads.json")
	if err := os.WriteFile(path, []byte(storyfixtures.Crossroads), 0o600); err != nil {
		t.Fatalf("write story: %v", err)
	}
	return path
}

func TestRunPlaysChoicesAndSaves(t *testing.T) {
	tests := []struct {
		name    string
		savesDB func(t *testing.T) string
	}{
		{name: "memory", savesDB: func(*testing.T) string { return "" }},
		{name: "sqlite", savesDB: func(t *testing.T) string { return filepath.Join(t.TempDir(), "db", "saves.db") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{StoryFile: writeStory(t), SavesDB: tt.savesDB(t), Seed: 1}
			input := strings.Join([]string{
				":save start",
				"2",
				":load start",
				"7",
				"1",
				":slots",
				":flows",
				":bogus",
				":quit",
			}, "\n")

			var out, errOut bytes.Buffer
			if err := Run(context.Background(), cfg, strings.NewReader(input), &out, &errOut); err != nil {
				t.Fatalf("run: %v", err)
			}
			for _, want := range []string{
				"Start\n  # chapter one\n1: Left\n2: Right way\n",
				"saved start (turn -1)",
				"You take the right way.\nDone.\n-- the end --",
				"loaded start",
				"You go left.\nDone.\n",
				"start\tturn -1\tDEFAULT_FLOW",
				"current: DEFAULT_FLOW",
			} {
				if !strings.Contains(out.String(), want) {
					t.Fatalf("output missing %q:\n%s", want, out.String())
				}
			}
			for _, want := range []string{"enter a choice between 1 and 2", `unknown command "bogus"`} {
				if !strings.Contains(errOut.String(), want) {
					t.Fatalf("error output missing %q:\n%s", want, errOut.String())
				}
			}
		})
	}
}

func TestRunSwitchesFlows(t *testing.T) {
	cfg := Config{StoryFile: writeStory(t), Seed: 1}
	input := ":flow side\n:flows\n:load missing\n"

	var out, errOut bytes.Buffer
	if err := Run(context.Background(), cfg, strings.NewReader(input), &out, &errOut); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Count(out.String(), "Start\n") != 2 {
		t.Fatalf("expected the side flow to start over:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "current: side\n  side\n") {
		t.Fatalf("flows output:\n%s", out.String())
	}
	if !strings.Contains(errOut.String(), `no save in slot "missing"`) {
		t.Fatalf("error output:\n%s", errOut.String())
	}
}
