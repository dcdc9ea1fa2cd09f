package state

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/flow"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
	"github.com/louisbranch/storyloom/internal/story/value"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestState(t)
	knot := content.NewContainer("knot")
	knot.AddContent(value.String("in knot"), content.NewCommand(content.CommandEnd))
	knot.SetCountFlags(content.CountVisits | content.CountTurns)
	s.Root().AddNamedOnly(knot)

	declareGlobal(t, s, "gold", value.Int(10))
	declareGlobal(t, s, "name", value.String("ada"))
	s.Variables.SnapshotDefaultGlobals()
	if err := s.Variables.Set("gold", value.Int(3)); err != nil {
		t.Fatal(err)
	}
	s.CurrentTurnIndex = 4
	s.IncrementVisitCount(knot)
	s.RecordTurnIndexVisit(knot)
	s.PreviousRandom = 99
	s.PushEvaluationStack(value.Int(5))
	s.PushToOutputStream(value.String("Hello\n"))
	s.DivertedPointer = content.StartOf(knot)
	s.AddChoice(&flow.Choice{
		Text:               "Go",
		TargetPath:         knot.Path(),
		ThreadAtGeneration: s.CallStack().ForkThread(),
	})
	if err := s.SwitchFlow("side"); err != nil {
		t.Fatal(err)
	}

	data, err := s.WriteJSON()
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if strings.Contains(string(data), `"name"`) {
		t.Fatalf("default-valued global written: %s", data)
	}

	loaded := New(s.Root(), s.ListDefinitions(), 0)
	loaded.Variables.defaults = s.Variables.defaults
	if err := loaded.LoadJSON(data, func(w string) { t.Errorf("warning: %s", w) }); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if loaded.CurrentFlowName() != "side" {
		t.Fatalf("current flow = %q", loaded.CurrentFlowName())
	}
	if v, _ := loaded.Variables.Get("gold"); v.String() != "3" {
		t.Fatalf("gold = %v", v)
	}
	if v, _ := loaded.Variables.Get("name"); v.String() != "ada" {
		t.Fatalf("name = %v", v)
	}
	if loaded.DivertedPointer.Container != knot || loaded.StorySeed != 7 || loaded.PreviousRandom != 99 {
		t.Fatalf("divert = %v seed = %d prev = %d", loaded.DivertedPointer, loaded.StorySeed, loaded.PreviousRandom)
	}
	if got, _ := loaded.TurnsSince(knot); got != 0 {
		t.Fatalf("TurnsSince() = %d", got)
	}

	again, err := loaded.WriteJSON()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(data), string(again)); diff != "" {
		t.Fatalf("snapshot changed on reload (-want +got):\n%s", diff)
	}

	if err := loaded.SwitchToDefaultFlow(); err != nil {
		t.Fatal(err)
	}
	if loaded.CurrentText() != "Hello\n" || len(loaded.CurrentChoices()) != 1 {
		t.Fatalf("default flow text = %q choices = %d", loaded.CurrentText(), len(loaded.CurrentChoices()))
	}
}

func TestLoadJSONRejects(t *testing.T) {
	t.Parallel()

	base := newTestState(t)
	good, err := base.WriteJSON()
	if err != nil {
		t.Fatal(err)
	}
	tok, _ := inkjson.Decode(good)
	goodObj, _ := inkjson.Object(tok)

	mutate := func(f func(map[string]any)) []byte {
		obj := make(map[string]any, len(goodObj))
		for k, v := range goodObj {
			obj[k] = v
		}
		f(obj)
		data, _ := inkjson.Encode(obj)
		return data
	}

	tests := []struct {
		name string
		data []byte
		code apperrors.Code
	}{
		{name: "not json", data: []byte("{"), code: apperrors.CodeSnapshotInvalid},
		{name: "no version", data: mutate(func(m map[string]any) { delete(m, "inkSaveVersion") }), code: apperrors.CodeSnapshotInvalid},
		{name: "old version", data: mutate(func(m map[string]any) { m["inkSaveVersion"] = inkjson.IntToken(7) }), code: apperrors.CodeSnapshotVersionUnsupported},
		{name: "no flows", data: mutate(func(m map[string]any) { delete(m, "flows") }), code: apperrors.CodeSnapshotInvalid},
		{name: "no eval stack", data: mutate(func(m map[string]any) { delete(m, "evalStack") }), code: apperrors.CodeSnapshotInvalid},
		{name: "no turn index", data: mutate(func(m map[string]any) { delete(m, "turnIdx") }), code: apperrors.CodeSnapshotInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestState(t)
			s.PushEvaluationStack(value.Int(1))
			err := s.LoadJSON(tt.data, func(string) {})
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("LoadJSON() error = %v, want %s", err, tt.code)
			}
			if s.EvaluationStackHeight() != 1 {
				t.Fatal("failed load modified the state")
			}
		})
	}
}

func TestLoadWithoutPreviousRandom(t *testing.T) {
	t.Parallel()

	s := newTestState(t)
	s.PreviousRandom = 12
	data, err := s.WriteJSON()
	if err != nil {
		t.Fatal(err)
	}
	tok, _ := inkjson.Decode(data)
	obj, _ := inkjson.Object(tok)
	delete(obj, "previousRandom")
	data, _ = inkjson.Encode(obj)

	loaded := newTestState(t)
	if err := loaded.LoadJSON(data, func(string) {}); err != nil {
		t.Fatalf("LoadJSON() error = %v", err)
	}
	if loaded.PreviousRandom != 0 {
		t.Fatalf("PreviousRandom = %d, want 0", loaded.PreviousRandom)
	}
}
