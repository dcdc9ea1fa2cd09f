package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/storyloom/internal/saves"
)

func TestPutSaveKeepsIdentityAcrossReplacements(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	first, err := store.PutSave(ctx, saves.Save{StoryID: "s", Slot: "a", Snapshot: []byte("one")})
	if err != nil {
		t.Fatalf("put first: %v", err)
	}
	second, err := store.PutSave(ctx, saves.Save{StoryID: "s", Slot: "a", Snapshot: []byte("two")})
	if err != nil {
		t.Fatalf("put second: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("id = %q, want %q", second.ID, first.ID)
	}
	got, err := store.GetSave(ctx, "s", "a")
	if err != nil {
		t.Fatalf("get save: %v", err)
	}
	if string(got.Snapshot) != "two" {
		t.Fatalf("snapshot = %q, want two", got.Snapshot)
	}
}

func TestSnapshotsAreCopied(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	data := []byte("abc")
	if _, err := store.PutSave(ctx, saves.Save{StoryID: "s", Slot: "a", Snapshot: data}); err != nil {
		t.Fatalf("put save: %v", err)
	}
	data[0] = 'x'
	got, err := store.GetSave(ctx, "s", "a")
	if err != nil {
		t.Fatalf("get save: %v", err)
	}
	if string(got.Snapshot) != "abc" {
		t.Fatalf("snapshot = %q, want abc", got.Snapshot)
	}
}

func TestListAndDelete(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	for _, slot := range []string{"b", "a"} {
		if _, err := store.PutSave(ctx, saves.Save{StoryID: "s", Slot: slot, Snapshot: []byte(slot)}); err != nil {
			t.Fatalf("put %s: %v", slot, err)
		}
	}
	list, err := store.ListSaves(ctx, "s")
	if err != nil {
		t.Fatalf("list saves: %v", err)
	}
	if len(list) != 2 || list[0].Slot != "a" || list[1].Slot != "b" {
		t.Fatalf("list = %+v, want slots a, b", list)
	}
	if err := store.DeleteSave(ctx, "s", "a"); err != nil {
		t.Fatalf("delete save: %v", err)
	}
	if _, err := store.GetSave(ctx, "s", "a"); !errors.Is(err, saves.ErrNotFound) {
		t.Fatalf("get after delete error = %v, want %v", err, saves.ErrNotFound)
	}
}
