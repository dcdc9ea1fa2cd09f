package state

import (
	"testing"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

func declareGlobal(t *testing.T, s *State, name string, v *value.Value) {
	t.Helper()
	if err := s.Variables.Assign(&content.VariableAssignment{Name: name, IsNewDeclaration: true, IsGlobal: true}, v); err != nil {
		t.Fatalf("declare %s: %v", name, err)
	}
}

func TestGlobalsAndDefaults(t *testing.T) {
	t.Parallel()

	s := newTestState(t)
	declareGlobal(t, s, "gold", value.Int(10))
	s.Variables.SnapshotDefaultGlobals()

	if err := s.Variables.Set("gold", value.Int(3)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := s.Variables.Get("gold"); v.String() != "3" {
		t.Fatalf("gold = %v, want 3", v)
	}
	if err := s.Variables.Set("silver", value.Int(1)); !apperrors.IsCode(err, apperrors.CodeVariableNotFound) {
		t.Fatalf("Set(undeclared) error = %v", err)
	}
}

func TestAssignThroughPointer(t *testing.T) {
	t.Parallel()

	s := newTestState(t)
	declareGlobal(t, s, "gold", value.Int(10))
	s.Variables.SnapshotDefaultGlobals()

	// A function receiving gold by reference.
	s.CallStack().Push(content.PushPopFunction, 0, 0)
	ref := &content.VariableAssignment{Name: "amount", IsNewDeclaration: true}
	if err := s.Variables.Assign(ref, value.VariablePointer("gold", -1)); err != nil {
		t.Fatalf("declare ref: %v", err)
	}
	if err := s.Variables.Assign(&content.VariableAssignment{Name: "amount"}, value.Int(42)); err != nil {
		t.Fatalf("assign through ref: %v", err)
	}
	if v, _ := s.Variables.Get("gold"); v.String() != "42" {
		t.Fatalf("gold = %v, want 42", v)
	}
	if v, ok := s.Variables.Value("amount", -1); !ok || v.String() != "42" {
		t.Fatalf("amount = %v, want 42", v)
	}
}

func TestTemporaryPointerResolvesContext(t *testing.T) {
	t.Parallel()

	s := newTestState(t)
	if err := s.Variables.Assign(&content.VariableAssignment{Name: "x", IsNewDeclaration: true}, value.Int(1)); err != nil {
		t.Fatal(err)
	}
	ptr := s.Variables.ResolveVariablePointer(value.VariablePointer("x", -1))
	name, ctx, _ := ptr.AsVariablePointer()
	if name != "x" || ctx != 1 {
		t.Fatalf("pointer = %s@%d, want x@1", name, ctx)
	}
}

func TestChangeNotificationsBatch(t *testing.T) {
	t.Parallel()

	s := newTestState(t)
	declareGlobal(t, s, "hp", value.Int(5))
	s.Variables.SnapshotDefaultGlobals()

	var seen []string
	s.Variables.OnChange = func(name string, v *value.Value) { seen = append(seen, name+"="+v.String()) }
	s.Variables.StartBatch()
	_ = s.Variables.Set("hp", value.Int(4))
	_ = s.Variables.Set("hp", value.Int(3))
	_ = s.Variables.Set("hp", value.Int(3))
	if len(seen) != 0 {
		t.Fatalf("notified during batch: %v", seen)
	}
	s.Variables.EndBatch()
	if len(seen) != 1 || seen[0] != "hp=3" {
		t.Fatalf("notifications = %v, want [hp=3]", seen)
	}
}

func TestAssignVoidFails(t *testing.T) {
	t.Parallel()

	s := newTestState(t)
	err := s.Variables.Assign(&content.VariableAssignment{Name: "x", IsNewDeclaration: true}, nil)
	if !apperrors.IsCode(err, apperrors.CodeRuntime) {
		t.Fatalf("Assign(nil) error = %v", err)
	}
}

func TestSingleItemListLookup(t *testing.T) {
	t.Parallel()

	root := content.NewContainer("")
	defs := value.NewListDefinitions(value.NewListDefinition("Colors", map[string]int{"red": 1, "blue": 2}))
	s := New(root, defs, 0)
	v, ok := s.Variables.Value("blue", -1)
	if !ok {
		t.Fatal("list item not found")
	}
	l, err := v.AsList()
	if err != nil || !l.ContainsItemNamed("blue") {
		t.Fatalf("value = %v, err = %v", v, err)
	}
}
