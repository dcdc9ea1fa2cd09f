// Package saves defines persistence contracts for story save slots.
package saves

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested save slot is missing.
	ErrNotFound = errors.New("save not found")
)

// Save stores one serialized story state under a named slot.
//
// Snapshot holds the bytes produced by Story.SaveState, stored verbatim.
type Save struct {
	ID        string
	StoryID   string
	Slot      string
	FlowName  string
	Turn      int
	Snapshot  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists save slots keyed by story and slot name.
type Store interface {
	// PutSave creates or replaces the slot named by save.StoryID and
	// save.Slot and returns the stored record.
	PutSave(ctx context.Context, save Save) (Save, error)
	GetSave(ctx context.Context, storyID, slot string) (Save, error)
	// ListSaves returns the slots of one story ordered by slot name.
	ListSaves(ctx context.Context, storyID string) ([]Save, error)
	DeleteSave(ctx context.Context, storyID, slot string) error
}
