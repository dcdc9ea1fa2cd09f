package session

import (
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/platform/id"
	"github.com/louisbranch/storyloom/internal/saves"
	"github.com/louisbranch/storyloom/internal/story"
)

// DefaultCapacity bounds the sessions a Manager keeps in memory.
const DefaultCapacity = 128

// Manager starts sessions of one compiled story and looks them up by ID.
// The least recently used session is dropped once capacity is reached;
// its progress survives only in save slots.
type Manager struct {
	storyID  string
	data     []byte
	store    saves.Store
	opts     []story.Option
	sessions *lru.Cache[string, *Session]
}

// NewManager validates the compiled story once and returns a manager for
// it. Capacity defaults to DefaultCapacity when not positive.
func NewManager(storyID string, data []byte, store saves.Store, capacity int, opts ...story.Option) (*Manager, error) {
	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return nil, errors.New("story id is required")
	}
	if _, err := story.New(data, opts...); err != nil {
		return nil, fmt.Errorf("load story: %w", err)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Manager{
		storyID:  storyID,
		data:     data,
		store:    store,
		opts:     opts,
		sessions: cache,
	}, nil
}

// StoryID returns the story served by the manager.
func (m *Manager) StoryID() string {
	return m.storyID
}

// Start creates a fresh session at the beginning of the story.
func (m *Manager) Start() (*Session, error) {
	st, err := story.New(m.data, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("load story: %w", err)
	}
	sessionID, err := id.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	sess, err := New(sessionID, m.storyID, st, m.store)
	if err != nil {
		return nil, err
	}
	m.sessions.Add(sessionID, sess)
	return sess, nil
}

// Get returns a running session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	sess, ok := m.sessions.Get(strings.TrimSpace(sessionID))
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeSessionNotFound,
			"session not found", map[string]string{"session_id": sessionID})
	}
	return sess, nil
}

// End drops a session.
func (m *Manager) End(sessionID string) bool {
	return m.sessions.Remove(strings.TrimSpace(sessionID))
}

// Len reports the number of sessions held.
func (m *Manager) Len() int {
	return m.sessions.Len()
}
