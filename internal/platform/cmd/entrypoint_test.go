package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	StoryFile string `env:"CMD_TEST_STORY_FILE" envDefault:"story.json"`
	StepLimit int    `env:"CMD_TEST_STEP_LIMIT" envDefault:"1000"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("STORYLOOM_CMD_TEST_STORY_FILE", "env.json")
	t.Setenv("STORYLOOM_CMD_TEST_STEP_LIMIT", "50")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.StoryFile, "story", cfg.StoryFile, "story")
	fs.IntVar(&cfg.StepLimit, "step-limit", cfg.StepLimit, "step limit")

	if err := ParseArgs(fs, []string{"-story", "flag.json"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.StoryFile != "flag.json" {
		t.Fatalf("expected flag value for story, got %q", cfg.StoryFile)
	}
	if cfg.StepLimit != 50 {
		t.Fatalf("expected env step limit, got %d", cfg.StepLimit)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServicePlay, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("STORYLOOM_OTEL_ENDPOINT", "")

	want := errors.New("boom")
	err := RunWithTelemetry(context.Background(), ServiceScenario, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected run error, got %v", err)
	}
}
