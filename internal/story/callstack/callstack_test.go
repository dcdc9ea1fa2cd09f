package callstack

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
	"github.com/louisbranch/storyloom/internal/story/value"
)

func testRoot(t *testing.T) (*content.Container, *content.Container) {
	t.Helper()
	root := content.NewContainer("")
	root.AddContent(content.NewCommand(content.CommandNoOp), content.NewCommand(content.CommandDone))
	knot := content.NewContainer("knot")
	knot.AddContent(content.NewCommand(content.CommandEvalStart), content.NewCommand(content.CommandEvalEnd), content.NewCommand(content.CommandEnd))
	root.AddNamedOnly(knot)
	return root, knot
}

func TestNewStartsAtRoot(t *testing.T) {
	t.Parallel()

	root, _ := testRoot(t)
	cs := New(root)
	if cs.Depth() != 1 {
		t.Fatalf("depth = %d, want 1", cs.Depth())
	}
	if got := cs.CurrentElement().Pointer; got.Container != root || got.Index != 0 {
		t.Fatalf("pointer = %v, want start of root", got)
	}
	if cs.CurrentThread().Index != 0 {
		t.Fatalf("thread index = %d, want 0", cs.CurrentThread().Index)
	}
}

func TestPushPopBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		push    content.PushPopType
		pop     content.PushPopType
		wantErr bool
	}{
		{name: "tunnel then tunnel", push: content.PushPopTunnel, pop: content.PushPopTunnel},
		{name: "function then function", push: content.PushPopFunction, pop: content.PushPopFunction},
		{name: "tunnel then function", push: content.PushPopTunnel, pop: content.PushPopFunction, wantErr: true},
		{name: "function then tunnel", push: content.PushPopFunction, pop: content.PushPopTunnel, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root, _ := testRoot(t)
			cs := New(root)
			depth := cs.Depth()
			cs.Push(tt.push, 0, 0)
			err := cs.Pop(tt.pop)
			if tt.wantErr {
				if !apperrors.IsCode(err, apperrors.CodeUnbalancedPop) {
					t.Fatalf("Pop() error = %v, want %s", err, apperrors.CodeUnbalancedPop)
				}
				if cs.Depth() != depth+1 {
					t.Fatalf("depth after failed pop = %d, want %d", cs.Depth(), depth+1)
				}
				return
			}
			if err != nil {
				t.Fatalf("Pop() error = %v", err)
			}
			if cs.Depth() != depth {
				t.Fatalf("depth = %d, want %d", cs.Depth(), depth)
			}
		})
	}
}

func TestPopBaseFrameFails(t *testing.T) {
	t.Parallel()

	root, _ := testRoot(t)
	cs := New(root)
	err := cs.Pop(content.PushPopTunnel)
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Metadata["actual"] != "none" {
		t.Fatalf("Pop() error = %v, want unbalanced pop with no frame", err)
	}
}

func TestThreadCopyIndependence(t *testing.T) {
	t.Parallel()

	root, knot := testRoot(t)
	cs := New(root)
	if err := cs.SetTemporaryVariable("x", value.Int(1), true, -1); err != nil {
		t.Fatalf("SetTemporaryVariable() error = %v", err)
	}
	a := cs.CurrentThread()
	b := a.Copy()

	a.Elements[0].Pointer = content.StartOf(knot)
	a.Elements[0].Temps["x"] = value.Int(2)
	a.Elements = append(a.Elements, newElement(content.PushPopFunction, content.StartOf(knot), false))

	if len(b.Elements) != 1 {
		t.Fatalf("copy frames = %d, want 1", len(b.Elements))
	}
	if b.Elements[0].Pointer.Container != root {
		t.Fatalf("copy pointer moved to %v", b.Elements[0].Pointer)
	}
	if got, _ := b.Elements[0].Temps["x"].AsInt(); got != 1 {
		t.Fatalf("copy temp x = %d, want 1", got)
	}

	b.Elements[0].Temps["y"] = value.Int(3)
	if _, ok := a.Elements[0].Temps["y"]; ok {
		t.Fatal("original saw temp written to copy")
	}
	if b.Index != a.Index {
		t.Fatalf("copy index = %d, want %d", b.Index, a.Index)
	}
}

func TestThreads(t *testing.T) {
	t.Parallel()

	root, _ := testRoot(t)
	cs := New(root)
	if cs.CanPopThread() {
		t.Fatal("CanPopThread() = true on a single thread")
	}
	cs.PushThread()
	cs.PushThread()
	if got := cs.CurrentThread().Index; got != 2 {
		t.Fatalf("current thread index = %d, want 2", got)
	}
	forked := cs.ForkThread()
	if forked.Index != 3 || len(cs.Threads()) != 3 {
		t.Fatalf("fork index = %d threads = %d, want 3 and 3", forked.Index, len(cs.Threads()))
	}
	if _, ok := cs.ThreadWithIndex(3); ok {
		t.Fatal("forked thread should not be live")
	}
	if err := cs.PopThread(); err != nil {
		t.Fatalf("PopThread() error = %v", err)
	}
	if _, ok := cs.ThreadWithIndex(2); ok {
		t.Fatal("popped thread still live")
	}
	if _, ok := cs.ThreadWithIndex(1); !ok {
		t.Fatal("thread 1 missing")
	}
	if err := cs.PopThread(); err != nil {
		t.Fatalf("PopThread() error = %v", err)
	}
	if err := cs.PopThread(); !apperrors.IsCode(err, apperrors.CodeThreadUnavailable) {
		t.Fatalf("PopThread() on last thread error = %v", err)
	}
}

func TestTemporaryVariables(t *testing.T) {
	t.Parallel()

	root, _ := testRoot(t)
	cs := New(root)
	if err := cs.SetTemporaryVariable("x", value.Int(1), false, -1); !apperrors.IsCode(err, apperrors.CodeVariableNotFound) {
		t.Fatalf("assign undeclared error = %v", err)
	}
	if err := cs.SetTemporaryVariable("x", value.Int(1), true, -1); err != nil {
		t.Fatalf("declare error = %v", err)
	}
	if got := cs.ContextForVariableNamed("x"); got != 1 {
		t.Fatalf("context = %d, want 1", got)
	}
	cs.Push(content.PushPopFunction, 0, 0)
	if got := cs.ContextForVariableNamed("x"); got != 0 {
		t.Fatalf("context inside call = %d, want 0", got)
	}
	if v, ok := cs.TemporaryVariable("x", 1); !ok || v.String() != "1" {
		t.Fatalf("TemporaryVariable(x, 1) = %v, %v", v, ok)
	}
	if _, ok := cs.TemporaryVariable("x", -1); ok {
		t.Fatal("callee sees caller temp")
	}
}

func TestEmptyListKeepsOrigins(t *testing.T) {
	t.Parallel()

	root, _ := testRoot(t)
	cs := New(root)
	l := value.NewList()
	l.Add(value.ListItem{Origin: "Colors", Name: "red"}, 1)
	if err := cs.SetTemporaryVariable("c", value.ListValue(l), true, -1); err != nil {
		t.Fatalf("declare error = %v", err)
	}
	if err := cs.SetTemporaryVariable("c", value.ListValue(value.NewList()), false, -1); err != nil {
		t.Fatalf("assign error = %v", err)
	}
	v, _ := cs.TemporaryVariable("c", -1)
	got, err := v.AsList()
	if err != nil {
		t.Fatalf("AsList() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Colors"}, got.OriginNames()); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	root, knot := testRoot(t)
	cs := New(root)
	cs.CurrentElement().Pointer = content.Pointer{Container: knot, Index: 1}
	cs.CurrentThread().PreviousPointer = content.Pointer{Container: knot, Index: 0}
	if err := cs.SetTemporaryVariable("name", value.String("ada"), true, -1); err != nil {
		t.Fatal(err)
	}
	cs.PushThread()
	cs.Push(content.PushPopFunction, 0, 0)
	cs.CurrentElement().InExpressionEvaluation = true

	obj, err := cs.WriteJSON()
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	data, err := inkjson.Encode(obj)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	tok, err := inkjson.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	decoded, _ := inkjson.Object(tok)

	loaded := New(root)
	var warnings []string
	if err := loaded.Load(decoded, root, func(w string) { warnings = append(warnings, w) }); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if loaded.Trace() != cs.Trace() {
		t.Fatalf("trace mismatch:\n%s\nwant:\n%s", loaded.Trace(), cs.Trace())
	}
	if loaded.ThreadCounter() != 1 {
		t.Fatalf("thread counter = %d, want 1", loaded.ThreadCounter())
	}
	first, ok := loaded.ThreadWithIndex(0)
	if !ok {
		t.Fatal("thread 0 missing")
	}
	if first.PreviousPointer.Container != knot || first.PreviousPointer.Index != 0 {
		t.Fatalf("previous pointer = %v", first.PreviousPointer)
	}
	if v, ok := first.Elements[0].Temps["name"]; !ok || v.String() != "ada" {
		t.Fatalf("temp name = %v", v)
	}
	if !loaded.CurrentElement().InExpressionEvaluation {
		t.Fatal("expression flag lost")
	}

	again, err := loaded.WriteJSON()
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	againData, _ := inkjson.Encode(again)
	if diff := cmp.Diff(string(data), string(againData)); diff != "" {
		t.Fatalf("snapshot changed on reload (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	root, _ := testRoot(t)
	tests := []struct {
		name string
		json string
		code apperrors.Code
	}{
		{name: "missing threads", json: `{"threadCounter":0}`, code: apperrors.CodeSnapshotInvalid},
		{name: "no threads", json: `{"threads":[],"threadCounter":0}`, code: apperrors.CodeSnapshotInvalid},
		{name: "missing frame type", json: `{"threads":[{"callstack":[{"exp":false}],"threadIndex":0}],"threadCounter":0}`, code: apperrors.CodeSnapshotInvalid},
		{name: "path to leaf", json: `{"threads":[{"callstack":[{"cPath":"0","idx":0,"exp":false,"type":0}],"threadIndex":0}],"threadCounter":0}`, code: apperrors.CodePathNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tok, err := inkjson.Decode([]byte(tt.json))
			if err != nil {
				t.Fatal(err)
			}
			obj, _ := inkjson.Object(tok)
			err = New(root).Load(obj, root, func(string) {})
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("Load() error = %v, want %s", err, tt.code)
			}
		})
	}
}
