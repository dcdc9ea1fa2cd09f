// Package scenario runs Lua playthrough scripts against the story engine.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/storyloom/internal/saves/memory"
	"github.com/louisbranch/storyloom/internal/services/play/session"
	"github.com/louisbranch/storyloom/internal/story"
)

// Config controls playthrough execution.
type Config struct {
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
	StepLimit  int
	Seed       int
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		Assertions: AssertionStrict,
		Verbose:    false,
		StepLimit:  100000,
	}
}

// Runner executes playthroughs in process, with in-memory save slots.
type Runner struct {
	assertions Assertions
	logger     *log.Logger
	verbose    bool
	timeout    time.Duration
	stepLimit  int
	seed       int
	readFile   func(string) ([]byte, error)
}

// NewRunner prepares a runner. Config defaults are applied here.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Runner{
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		timeout:    timeout,
		stepLimit:  cfg.StepLimit,
		seed:       cfg.Seed,
		readFile:   os.ReadFile,
	}
}

// RunFile loads and executes a playthrough script.
func RunFile(ctx context.Context, cfg Config, path string) error {
	playthrough, err := LoadPlaythroughFromFile(path)
	if err != nil {
		return err
	}
	return NewRunner(cfg).RunPlaythrough(ctx, playthrough)
}

// RunPlaythrough executes the playthrough steps in order.
func (r *Runner) RunPlaythrough(ctx context.Context, playthrough *Playthrough) error {
	if playthrough == nil {
		return errors.New("playthrough is required")
	}
	data, err := r.readFile(playthrough.StoryPath)
	if err != nil {
		return fmt.Errorf("read story: %w", err)
	}
	st, err := story.New(data,
		story.WithSeed(r.seed),
		story.WithStepLimit(r.stepLimit),
		story.WithLogger(r.storyLogger()),
	)
	if err != nil {
		return fmt.Errorf("load story %s: %w", playthrough.StoryPath, err)
	}
	storyID := strings.TrimSuffix(filepath.Base(playthrough.StoryPath), filepath.Ext(playthrough.StoryPath))
	sess, err := session.New(playthrough.Name, storyID, st, memory.New())
	if err != nil {
		return err
	}

	r.logf("playthrough start: %s (%d steps)", playthrough.Name, len(playthrough.Steps))
	state := &playthroughState{session: sess}
	for index, step := range playthrough.Steps {
		stepNumber := index + 1
		if step.Kind != "expect_error" && state.pendingErr != nil {
			return fmt.Errorf("step %d (%s): unexpected error from previous step: %w", stepNumber, step.Kind, state.pendingErr)
		}
		r.logf("step %d/%d start: %s", stepNumber, len(playthrough.Steps), step.Kind)
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, state, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(playthrough.Steps), step.Kind, time.Since(stepStart))
	}
	if state.pendingErr != nil {
		return fmt.Errorf("unexpected error at end of playthrough: %w", state.pendingErr)
	}
	r.logf("playthrough done: %s", playthrough.Name)
	return nil
}

func (r *Runner) storyLogger() *log.Logger {
	if !r.verbose {
		return nil
	}
	return r.logger
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}
