// Package play parses player flags and runs an interactive story session
// on a terminal.
package play

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	entrypoint "github.com/louisbranch/storyloom/internal/platform/cmd"
	"github.com/louisbranch/storyloom/internal/platform/id"
	"github.com/louisbranch/storyloom/internal/saves"
	"github.com/louisbranch/storyloom/internal/saves/memory"
	savesqlite "github.com/louisbranch/storyloom/internal/saves/sqlite"
	"github.com/louisbranch/storyloom/internal/services/play/session"
	"github.com/louisbranch/storyloom/internal/story"
)

// Config holds play command configuration.
type Config struct {
	StoryFile string `env:"STORY_FILE"`
	// SavesDB is the SQLite file holding save slots. Empty keeps slots in
	// memory for the length of the run.
	SavesDB   string `env:"SAVES_DB"    envDefault:"data/saves.db"`
	StepLimit int    `env:"STEP_LIMIT"  envDefault:"100000"`
	Seed      int    `env:"PLAY_SEED"   envDefault:"-1"`
	Verbose   bool   `env:"PLAY_VERBOSE"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.StoryFile, "story", cfg.StoryFile, "path to the compiled story JSON")
	fs.StringVar(&cfg.SavesDB, "saves", cfg.SavesDB, "path to the save-slot database (empty keeps saves in memory)")
	fs.IntVar(&cfg.StepLimit, "step-limit", cfg.StepLimit, "maximum story steps per line (0 disables)")
	fs.IntVar(&cfg.Seed, "seed", cfg.Seed, "story random seed (negative picks one)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log story warnings and errors as they happen")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run plays the story, reading choices and meta commands from in.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, errOut io.Writer) error {
	if strings.TrimSpace(cfg.StoryFile) == "" {
		return errors.New("story file is required")
	}
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlay, func(ctx context.Context) error {
		store, closeStore, err := openSaves(ctx, cfg.SavesDB)
		if err != nil {
			return err
		}
		defer closeStore()

		sess, err := newSession(cfg, store, log.New(errOut, "", 0))
		if err != nil {
			return err
		}
		p := &player{session: sess, in: bufio.NewScanner(in), out: out, errOut: errOut}
		return p.run(ctx)
	})
}

func newSession(cfg Config, store saves.Store, logger *log.Logger) (*session.Session, error) {
	data, err := os.ReadFile(cfg.StoryFile)
	if err != nil {
		return nil, fmt.Errorf("read story: %w", err)
	}
	opts := []story.Option{story.WithStepLimit(cfg.StepLimit)}
	if cfg.Seed >= 0 {
		opts = append(opts, story.WithSeed(cfg.Seed))
	}
	if cfg.Verbose {
		opts = append(opts, story.WithLogger(logger))
	}
	st, err := story.New(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("load story: %w", err)
	}
	sessionID, err := id.NewID()
	if err != nil {
		return nil, err
	}
	storyID := strings.TrimSuffix(filepath.Base(cfg.StoryFile), filepath.Ext(cfg.StoryFile))
	return session.New(sessionID, storyID, st, store)
}

func openSaves(ctx context.Context, path string) (saves.Store, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return memory.New(), func() {}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := savesqlite.Open(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("open save store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("close save store: %v", err)
		}
	}, nil
}

type player struct {
	session *session.Session
	in      *bufio.Scanner
	out     io.Writer
	errOut  io.Writer
	turn    session.Turn
}

func (p *player) run(ctx context.Context) error {
	turn, err := p.session.Continue(ctx)
	p.show(turn, err)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(p.out, "> ")
		if !p.in.Scan() {
			fmt.Fprintln(p.out)
			return p.in.Err()
		}
		input := strings.TrimSpace(p.in.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, ":") {
			quit, err := p.meta(ctx, input)
			if err != nil {
				fmt.Fprintf(p.errOut, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}
		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(p.turn.Choices) {
			fmt.Fprintf(p.errOut, "enter a choice between 1 and %d, or :help\n", len(p.turn.Choices))
			continue
		}
		turn, err := p.session.Choose(ctx, p.turn.Choices[n-1].Index)
		p.show(turn, err)
	}
}

func (p *player) meta(ctx context.Context, input string) (bool, error) {
	command, arg, _ := strings.Cut(strings.TrimPrefix(input, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "quit", "q":
		return true, nil
	case "help":
		fmt.Fprintln(p.out, "commands: :save <slot>, :load <slot>, :slots, :flow <name>, :flows, :quit")
	case "save":
		if arg == "" {
			return false, errors.New("usage: :save <slot>")
		}
		save, err := p.session.Save(ctx, arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "saved %s (turn %d)\n", save.Slot, save.Turn)
	case "load":
		if arg == "" {
			return false, errors.New("usage: :load <slot>")
		}
		turn, err := p.session.Load(ctx, arg)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "loaded %s\n", arg)
		p.show(turn, nil)
	case "slots":
		list, err := p.session.Slots(ctx)
		if err != nil {
			return false, err
		}
		for _, save := range list {
			fmt.Fprintf(p.out, "%s\tturn %d\t%s\t%s\n", save.Slot, save.Turn, save.FlowName, save.UpdatedAt.Format("2006-01-02 15:04"))
		}
	case "flow":
		if arg == "" {
			return false, errors.New("usage: :flow <name>")
		}
		turn, err := p.session.SwitchFlow(ctx, arg)
		p.show(turn, err)
	case "flows":
		current, alive := p.session.Flows()
		fmt.Fprintf(p.out, "current: %s\n", current)
		for _, name := range alive {
			fmt.Fprintf(p.out, "  %s\n", name)
		}
	default:
		return false, fmt.Errorf("unknown command %q", command)
	}
	return false, nil
}

func (p *player) show(turn session.Turn, err error) {
	if err != nil && turn.Lines == nil && turn.Choices == nil && !turn.Ended {
		fmt.Fprintf(p.errOut, "error: %v\n", err)
		return
	}
	p.turn = turn
	for _, line := range turn.Lines {
		fmt.Fprint(p.out, line.Text)
		if len(line.Tags) > 0 {
			fmt.Fprintf(p.out, "  # %s\n", strings.Join(line.Tags, ", "))
		}
	}
	for _, warning := range turn.Warnings {
		fmt.Fprintf(p.errOut, "warning: %s\n", warning)
	}
	if err != nil {
		fmt.Fprintf(p.errOut, "error: %v\n", err)
	}
	for _, choice := range turn.Choices {
		fmt.Fprintf(p.out, "%d: %s\n", choice.Index+1, choice.Text)
	}
	if turn.Ended {
		fmt.Fprintln(p.out, "-- the end --")
	}
}
