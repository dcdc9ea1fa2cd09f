// Package session drives one player's run through a story: continuing,
// choosing, switching flows and moving state in and out of save slots.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/saves"
	"github.com/louisbranch/storyloom/internal/story"
)

// Line is one line of story output with the tags attached to it.
type Line struct {
	Text string
	Tags []string
}

// Choice is one option offered to the player.
type Choice struct {
	Index int
	Text  string
	Tags  []string
}

// Turn is everything produced between two player decisions.
type Turn struct {
	Lines    []Line
	Choices  []Choice
	Ended    bool
	Errors   []string
	Warnings []string
}

// Text joins the lines of the turn.
func (t Turn) Text() string {
	var b strings.Builder
	for _, line := range t.Lines {
		b.WriteString(line.Text)
	}
	return b.String()
}

// Session owns one Story and serializes access to it.
type Session struct {
	ID      string
	StoryID string

	mu    sync.Mutex
	story *story.Story
	store saves.Store
}

// New creates a session around an existing story. A nil store disables
// Save and Load.
func New(sessionID, storyID string, st *story.Story, store saves.Store) (*Session, error) {
	if st == nil {
		return nil, errors.New("story is required")
	}
	if strings.TrimSpace(storyID) == "" {
		return nil, errors.New("story id is required")
	}
	return &Session{ID: sessionID, StoryID: storyID, story: st, store: store}, nil
}

// Story exposes the underlying story. Callers must not use it
// concurrently with the session methods.
func (s *Session) Story() *story.Story {
	return s.story
}

// Continue runs the story until it needs a decision or runs out of
// content. Runtime errors end the turn early; the partial turn is returned
// with the error.
func (s *Session) Continue(ctx context.Context) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.continueLocked(ctx)
}

func (s *Session) continueLocked(ctx context.Context) (Turn, error) {
	var turn Turn
	var runErr error
	for s.story.CanContinue() {
		text, err := s.story.Continue(ctx)
		if text != "" || err == nil {
			turn.Lines = append(turn.Lines, Line{Text: text, Tags: slices.Clone(s.story.CurrentTags())})
		}
		if err != nil {
			runErr = err
			break
		}
	}
	s.fillLocked(&turn)
	return turn, runErr
}

func (s *Session) fillLocked(turn *Turn) {
	for _, c := range s.story.CurrentChoices() {
		turn.Choices = append(turn.Choices, Choice{Index: c.Index, Text: c.Text, Tags: slices.Clone(c.Tags)})
	}
	turn.Ended = !s.story.CanContinue() && len(turn.Choices) == 0
	turn.Errors = slices.Clone(s.story.CurrentErrors())
	turn.Warnings = slices.Clone(s.story.CurrentWarnings())
	s.story.ResetErrors()
}

// Choose takes the choice at index and continues to the next decision.
func (s *Session) Choose(ctx context.Context, index int) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.story.ChooseChoiceIndex(ctx, index); err != nil {
		return Turn{}, err
	}
	return s.continueLocked(ctx)
}

// Pending reports the current choices without running the story.
func (s *Session) Pending() Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	var turn Turn
	s.fillLocked(&turn)
	return turn
}

// SwitchFlow makes the named flow current and continues it.
func (s *Session) SwitchFlow(ctx context.Context, name string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.story.SwitchFlow(name); err != nil {
		return Turn{}, err
	}
	return s.continueLocked(ctx)
}

// Flows returns the current flow name followed by the other live flows.
func (s *Session) Flows() (string, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story.CurrentFlowName(), s.story.AliveFlowNames()
}

// SetVariable assigns a global story variable.
func (s *Session) SetVariable(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story.SetVariable(name, v)
}

// Variable reads a global story variable.
func (s *Session) Variable(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.story.Variable(name)
}

// Save writes the story state into a slot.
func (s *Session) Save(ctx context.Context, slot string) (saves.Save, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return saves.Save{}, errors.New("save store is not configured")
	}
	data, err := s.story.SaveState(ctx)
	if err != nil {
		return saves.Save{}, fmt.Errorf("save state: %w", err)
	}
	return s.store.PutSave(ctx, saves.Save{
		StoryID:  s.StoryID,
		Slot:     slot,
		FlowName: s.story.CurrentFlowName(),
		Turn:     s.story.State().CurrentTurnIndex,
		Snapshot: data,
	})
}

// Load replaces the story state with the one in a slot and reports the
// choices pending at the time of the save.
func (s *Session) Load(ctx context.Context, slot string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return Turn{}, errors.New("save store is not configured")
	}
	save, err := s.store.GetSave(ctx, s.StoryID, slot)
	if err != nil {
		if errors.Is(err, saves.ErrNotFound) {
			return Turn{}, apperrors.WithMetadata(apperrors.CodeNotFound,
				fmt.Sprintf("no save in slot %q", slot), map[string]string{"slot": slot})
		}
		return Turn{}, err
	}
	if err := s.story.LoadState(ctx, save.Snapshot); err != nil {
		return Turn{}, err
	}
	var turn Turn
	s.fillLocked(&turn)
	return turn, nil
}

// Slots lists the save slots of the session's story.
func (s *Session) Slots(ctx context.Context) ([]saves.Save, error) {
	if s.store == nil {
		return nil, errors.New("save store is not configured")
	}
	return s.store.ListSaves(ctx, s.StoryID)
}
