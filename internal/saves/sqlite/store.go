// Package sqlite provides a SQLite-backed save-slot store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/storyloom/internal/platform/id"
	sqlitemigrate "github.com/louisbranch/storyloom/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/storyloom/internal/saves"
	"github.com/louisbranch/storyloom/internal/saves/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists save slots in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite save store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) now() time.Time {
	if s.clock != nil {
		return s.clock().UTC()
	}
	return time.Now().UTC()
}

// PutSave inserts a save slot or replaces the snapshot of an existing one.
// The slot keeps its ID and creation time across replacements.
func (s *Store) PutSave(ctx context.Context, save saves.Save) (saves.Save, error) {
	if err := ctx.Err(); err != nil {
		return saves.Save{}, err
	}
	if s == nil || s.sqlDB == nil {
		return saves.Save{}, fmt.Errorf("storage is not configured")
	}
	storyID := strings.TrimSpace(save.StoryID)
	slot := strings.TrimSpace(save.Slot)
	if storyID == "" {
		return saves.Save{}, fmt.Errorf("story id is required")
	}
	if slot == "" {
		return saves.Save{}, fmt.Errorf("slot is required")
	}
	if len(save.Snapshot) == 0 {
		return saves.Save{}, fmt.Errorf("snapshot is required")
	}
	saveID, err := id.NewID()
	if err != nil {
		return saves.Save{}, fmt.Errorf("generate save id: %w", err)
	}
	now := s.now()

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO saves (
		   id,
		   story_id,
		   slot,
		   flow_name,
		   turn,
		   snapshot,
		   created_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (story_id, slot) DO UPDATE SET
		   flow_name = excluded.flow_name,
		   turn = excluded.turn,
		   snapshot = excluded.snapshot,
		   updated_at = excluded.updated_at`,
		saveID,
		storyID,
		slot,
		strings.TrimSpace(save.FlowName),
		save.Turn,
		save.Snapshot,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		return saves.Save{}, fmt.Errorf("put save: %w", err)
	}
	return s.GetSave(ctx, storyID, slot)
}

// GetSave returns one save slot.
func (s *Store) GetSave(ctx context.Context, storyID, slot string) (saves.Save, error) {
	if err := ctx.Err(); err != nil {
		return saves.Save{}, err
	}
	if s == nil || s.sqlDB == nil {
		return saves.Save{}, fmt.Errorf("storage is not configured")
	}
	storyID = strings.TrimSpace(storyID)
	slot = strings.TrimSpace(slot)
	if storyID == "" {
		return saves.Save{}, fmt.Errorf("story id is required")
	}
	if slot == "" {
		return saves.Save{}, fmt.Errorf("slot is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, story_id, slot, flow_name, turn, snapshot, created_at, updated_at
		   FROM saves
		  WHERE story_id = ? AND slot = ?`,
		storyID,
		slot,
	)
	save, err := scanSave(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return saves.Save{}, saves.ErrNotFound
		}
		return saves.Save{}, fmt.Errorf("get save: %w", err)
	}
	return save, nil
}

// ListSaves returns every slot of one story ordered by slot name.
func (s *Store) ListSaves(ctx context.Context, storyID string) ([]saves.Save, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	storyID = strings.TrimSpace(storyID)
	if storyID == "" {
		return nil, fmt.Errorf("story id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, story_id, slot, flow_name, turn, snapshot, created_at, updated_at
		   FROM saves
		  WHERE story_id = ?
		  ORDER BY slot ASC`,
		storyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []saves.Save
	for rows.Next() {
		save, err := scanSave(rows)
		if err != nil {
			return nil, fmt.Errorf("list saves: %w", err)
		}
		out = append(out, save)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return out, nil
}

// DeleteSave removes one save slot.
func (s *Store) DeleteSave(ctx context.Context, storyID, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	storyID = strings.TrimSpace(storyID)
	slot = strings.TrimSpace(slot)
	if storyID == "" {
		return fmt.Errorf("story id is required")
	}
	if slot == "" {
		return fmt.Errorf("slot is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM saves WHERE story_id = ? AND slot = ?`, storyID, slot)
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete save: %w", err)
	}
	if affected == 0 {
		return saves.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSave(row rowScanner) (saves.Save, error) {
	var save saves.Save
	var createdAt int64
	var updatedAt int64
	if err := row.Scan(
		&save.ID,
		&save.StoryID,
		&save.Slot,
		&save.FlowName,
		&save.Turn,
		&save.Snapshot,
		&createdAt,
		&updatedAt,
	); err != nil {
		return saves.Save{}, err
	}
	save.CreatedAt = fromMillis(createdAt)
	save.UpdatedAt = fromMillis(updatedAt)
	return save, nil
}

var _ saves.Store = (*Store)(nil)
