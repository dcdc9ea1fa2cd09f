// Package memory provides an in-process save-slot store for scripted
// playthroughs and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/storyloom/internal/platform/id"
	"github.com/louisbranch/storyloom/internal/saves"
)

type key struct {
	storyID string
	slot    string
}

// Store keeps save slots in a map guarded by a mutex.
type Store struct {
	mu    sync.Mutex
	saves map[key]saves.Save
	clock func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{saves: make(map[key]saves.Save), clock: time.Now}
}

// PutSave creates or replaces one slot.
func (s *Store) PutSave(ctx context.Context, save saves.Save) (saves.Save, error) {
	if err := ctx.Err(); err != nil {
		return saves.Save{}, err
	}
	k, err := slotKey(save.StoryID, save.Slot)
	if err != nil {
		return saves.Save{}, err
	}
	if len(save.Snapshot) == 0 {
		return saves.Save{}, fmt.Errorf("snapshot is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	stored, ok := s.saves[k]
	if !ok {
		newID, err := id.NewID()
		if err != nil {
			return saves.Save{}, fmt.Errorf("generate save id: %w", err)
		}
		stored = saves.Save{ID: newID, StoryID: k.storyID, Slot: k.slot, CreatedAt: now}
	}
	stored.FlowName = strings.TrimSpace(save.FlowName)
	stored.Turn = save.Turn
	stored.Snapshot = slices.Clone(save.Snapshot)
	stored.UpdatedAt = now
	s.saves[k] = stored
	return clone(stored), nil
}

// GetSave returns one slot.
func (s *Store) GetSave(ctx context.Context, storyID, slot string) (saves.Save, error) {
	if err := ctx.Err(); err != nil {
		return saves.Save{}, err
	}
	k, err := slotKey(storyID, slot)
	if err != nil {
		return saves.Save{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.saves[k]
	if !ok {
		return saves.Save{}, saves.ErrNotFound
	}
	return clone(stored), nil
}

// ListSaves returns the slots of one story ordered by slot name.
func (s *Store) ListSaves(ctx context.Context, storyID string) ([]saves.Save, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return nil, fmt.Errorf("story id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []saves.Save
	for k, stored := range s.saves {
		if k.storyID == storyID {
			out = append(out, clone(stored))
		}
	}
	slices.SortFunc(out, func(a, b saves.Save) int {
		return strings.Compare(a.Slot, b.Slot)
	})
	return out, nil
}

// DeleteSave removes one slot.
func (s *Store) DeleteSave(ctx context.Context, storyID, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := slotKey(storyID, slot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.saves[k]; !ok {
		return saves.ErrNotFound
	}
	delete(s.saves, k)
	return nil
}

func slotKey(storyID, slot string) (key, error) {
	k := key{storyID: strings.TrimSpace(storyID), slot: strings.TrimSpace(slot)}
	if k.storyID == "" {
		return key{}, fmt.Errorf("story id is required")
	}
	if k.slot == "" {
		return key{}, fmt.Errorf("slot is required")
	}
	return k, nil
}

func clone(save saves.Save) saves.Save {
	save.Snapshot = slices.Clone(save.Snapshot)
	return save
}

var _ saves.Store = (*Store)(nil)
