package state

import (
	"fmt"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/flow"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
)

const (
	// SaveVersion is written to every snapshot.
	SaveVersion = 10
	// MinCompatibleSaveVersion is the oldest snapshot version LoadJSON
	// accepts.
	MinCompatibleSaveVersion = 8
)

// WriteJSON serializes the state. Keys are emitted in sorted order by the
// encoder, so equal states produce equal snapshots.
func (s *State) WriteJSON() ([]byte, error) {
	flows := make(map[string]any, len(s.flows))
	for name, f := range s.flows {
		obj, err := f.WriteJSON()
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", name, err)
		}
		flows[name] = obj
	}
	vars, err := s.Variables.WriteJSON()
	if err != nil {
		return nil, err
	}
	evalStack, err := inkjson.WriteObjects(s.evaluationStack)
	if err != nil {
		return nil, err
	}
	obj := map[string]any{
		"flows":            flows,
		"currentFlowName":  s.current.Name,
		"variablesState":   vars,
		"evalStack":        evalStack,
		"visitCounts":      inkjson.WriteIntMap(s.visitCounts),
		"turnIndices":      inkjson.WriteIntMap(s.turnIndices),
		"turnIdx":          inkjson.IntToken(s.CurrentTurnIndex),
		"storySeed":        inkjson.IntToken(s.StorySeed),
		"previousRandom":   inkjson.IntToken(s.PreviousRandom),
		"inkSaveVersion":   inkjson.IntToken(SaveVersion),
		"inkFormatVersion": inkjson.IntToken(inkjson.InkVersionCurrent),
	}
	if !s.DivertedPointer.IsNull() {
		obj["currentDivertTarget"] = s.DivertedPointer.Path().String()
	}
	return inkjson.Encode(obj)
}

// LoadJSON replaces the state with a snapshot. Problems resolving saved
// positions against the story are reported through warn. On error the
// state is left untouched.
func (s *State) LoadJSON(data []byte, warn func(string)) error {
	tok, err := inkjson.Decode(data)
	if err != nil {
		return snapshotError(err)
	}
	obj, err := inkjson.Object(tok)
	if err != nil {
		return snapshotError(err)
	}

	version, err := inkjson.IntField(obj, "inkSaveVersion")
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSnapshotInvalid, "ink save format incorrect, can't load", err)
	}
	if version < MinCompatibleSaveVersion {
		return apperrors.WithMetadata(apperrors.CodeSnapshotVersionUnsupported,
			fmt.Sprintf("Ink save format isn't compatible with the current version (saw '%d', but minimum is %d), so can't load.", version, MinCompatibleSaveVersion),
			map[string]string{"version": fmt.Sprint(version)})
	}

	next := New(s.root, s.listDefs, 0)
	next.Variables.defaults = s.Variables.defaults
	next.Variables.OnChange = s.Variables.OnChange

	flowsTok, err := inkjson.Field(obj, "flows")
	if err != nil {
		return snapshotError(err)
	}
	flowsObj, err := inkjson.Object(flowsTok)
	if err != nil {
		return snapshotError(err)
	}
	if len(flowsObj) == 0 {
		return apperrors.New(apperrors.CodeSnapshotInvalid, "snapshot has no flows")
	}
	next.flows = make(map[string]*flow.Flow, len(flowsObj))
	for name, ftok := range flowsObj {
		fobj, err := inkjson.Object(ftok)
		if err != nil {
			return snapshotError(err)
		}
		f, err := flow.FromJSON(name, s.root, fobj, warn)
		if err != nil {
			return fmt.Errorf("flow %s: %w", name, err)
		}
		next.flows[name] = f
	}
	currentName := ""
	if len(next.flows) == 1 {
		for name := range next.flows {
			currentName = name
		}
	} else {
		tok, err := inkjson.Field(obj, "currentFlowName")
		if err != nil {
			return snapshotError(err)
		}
		if currentName, err = inkjson.String(tok); err != nil {
			return snapshotError(err)
		}
	}
	current, ok := next.flows[currentName]
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeSnapshotInvalid,
			"current flow "+currentName+" missing from snapshot",
			map[string]string{"flow": currentName})
	}
	next.current = current
	next.Variables.callStack = current.CallStack

	varsTok, err := inkjson.Field(obj, "variablesState")
	if err != nil {
		return snapshotError(err)
	}
	varsObj, err := inkjson.Object(varsTok)
	if err != nil {
		return snapshotError(err)
	}
	if err := next.Variables.LoadJSON(varsObj); err != nil {
		return snapshotError(err)
	}

	evalTok, err := inkjson.Field(obj, "evalStack")
	if err != nil {
		return snapshotError(err)
	}
	evalArr, err := inkjson.Array(evalTok)
	if err != nil {
		return snapshotError(err)
	}
	if next.evaluationStack, err = inkjson.ReadObjects(evalArr, false); err != nil {
		return snapshotError(err)
	}

	if tok, ok := obj["currentDivertTarget"]; ok {
		target, err := inkjson.String(tok)
		if err != nil {
			return snapshotError(err)
		}
		ptr, res := s.root.PointerAtPath(content.ParsePath(target))
		switch {
		case res.Object == nil:
			warn(fmt.Sprintf("Failed to find content at path '%s' for the pending divert", target))
		case res.Approximate:
			warn(fmt.Sprintf("Failed to find content at path '%s', so it was approximated to: '%s'.", target, content.PathOf(res.Object)))
		}
		next.DivertedPointer = ptr
	}

	for key, dst := range map[string]*map[string]int{"visitCounts": &next.visitCounts, "turnIndices": &next.turnIndices} {
		tok, err := inkjson.Field(obj, key)
		if err != nil {
			return snapshotError(err)
		}
		m, err := inkjson.ReadIntMap(tok)
		if err != nil {
			return snapshotError(err)
		}
		*dst = m
	}
	if next.CurrentTurnIndex, err = inkjson.IntField(obj, "turnIdx"); err != nil {
		return snapshotError(err)
	}
	if next.StorySeed, err = inkjson.IntField(obj, "storySeed"); err != nil {
		return snapshotError(err)
	}
	if _, ok := obj["previousRandom"]; ok {
		if next.PreviousRandom, err = inkjson.IntField(obj, "previousRandom"); err != nil {
			return snapshotError(err)
		}
	}

	next.errors = s.errors
	next.warnings = s.warnings
	*s = *next
	return nil
}

func snapshotError(err error) error {
	if c := apperrors.GetCode(err); c == apperrors.CodeSnapshotInvalid || c == apperrors.CodeSnapshotChoiceThreadMissing {
		return err
	}
	return apperrors.Wrap(apperrors.CodeSnapshotInvalid, "invalid state snapshot: "+err.Error(), err)
}
