// Package flow bundles an independent narrative execution context: its call
// stack, output stream and pending choices.
package flow

import (
	"strconv"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/callstack"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
)

// DefaultName names the flow every story starts in.
const DefaultName = "DEFAULT_FLOW"

// Flow is one execution context over the shared story graph.
type Flow struct {
	Name           string
	CallStack      *callstack.CallStack
	OutputStream   []content.Object
	CurrentChoices []*Choice
}

// New creates a flow positioned at the start of root.
func New(name string, root *content.Container) *Flow {
	return &Flow{
		Name:      name,
		CallStack: callstack.New(root),
	}
}

// Copy returns a flow sharing no mutable state with f.
func (f *Flow) Copy() *Flow {
	out := &Flow{
		Name:           f.Name,
		CallStack:      f.CallStack.Copy(),
		OutputStream:   append([]content.Object(nil), f.OutputStream...),
		CurrentChoices: make([]*Choice, len(f.CurrentChoices)),
	}
	for i, c := range f.CurrentChoices {
		out.CurrentChoices[i] = c.Copy()
	}
	return out
}

// WriteJSON serializes the flow. Choices whose originating thread is no
// longer live get that thread written under choiceThreads, keyed by thread
// index; the map is omitted when empty.
func (f *Flow) WriteJSON() (map[string]any, error) {
	cs, err := f.CallStack.WriteJSON()
	if err != nil {
		return nil, err
	}
	output, err := inkjson.WriteObjects(f.OutputStream)
	if err != nil {
		return nil, err
	}
	obj := map[string]any{
		"callstack":    cs,
		"outputStream": output,
	}

	choiceThreads := make(map[string]any)
	for _, c := range f.CurrentChoices {
		if c.ThreadAtGeneration == nil {
			return nil, apperrors.WithMetadata(apperrors.CodeSnapshotChoiceThreadMissing,
				"choice has no thread at generation",
				map[string]string{"choice": c.Text})
		}
		c.OriginalThreadIndex = c.ThreadAtGeneration.Index
		if _, live := f.CallStack.ThreadWithIndex(c.OriginalThreadIndex); live {
			continue
		}
		t, err := c.ThreadAtGeneration.WriteJSON()
		if err != nil {
			return nil, err
		}
		choiceThreads[strconv.Itoa(c.OriginalThreadIndex)] = t
	}
	if len(choiceThreads) > 0 {
		obj["choiceThreads"] = choiceThreads
	}

	choices := make([]any, len(f.CurrentChoices))
	for i, c := range f.CurrentChoices {
		choices[i] = c.WriteJSON()
	}
	obj["currentChoices"] = choices
	return obj, nil
}

// FromJSON rebuilds a flow from its snapshot, resolving positions against
// root. Approximated positions are reported through warn.
func FromJSON(name string, root *content.Container, obj map[string]any, warn func(string)) (*Flow, error) {
	f := New(name, root)

	tok, err := inkjson.Field(obj, "outputStream")
	if err != nil {
		return nil, snapshotError(err)
	}
	arr, err := inkjson.Array(tok)
	if err != nil {
		return nil, snapshotError(err)
	}
	if f.OutputStream, err = inkjson.ReadObjects(arr, false); err != nil {
		return nil, snapshotError(err)
	}

	tok, err = inkjson.Field(obj, "currentChoices")
	if err != nil {
		return nil, snapshotError(err)
	}
	if arr, err = inkjson.Array(tok); err != nil {
		return nil, snapshotError(err)
	}
	for _, ctok := range arr {
		cobj, err := inkjson.Object(ctok)
		if err != nil {
			return nil, snapshotError(err)
		}
		c, err := ReadChoice(cobj)
		if err != nil {
			return nil, err
		}
		f.CurrentChoices = append(f.CurrentChoices, c)
	}

	tok, err = inkjson.Field(obj, "callstack")
	if err != nil {
		return nil, snapshotError(err)
	}
	csObj, err := inkjson.Object(tok)
	if err != nil {
		return nil, snapshotError(err)
	}
	if err := f.CallStack.Load(csObj, root, warn); err != nil {
		return nil, err
	}

	if err := f.LoadChoiceThreads(obj, root, warn); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadChoiceThreads attaches a thread to every current choice: a copy of
// the live thread with the choice's index when there is one, otherwise the
// thread saved under choiceThreads.
func (f *Flow) LoadChoiceThreads(obj map[string]any, root *content.Container, warn func(string)) error {
	var saved map[string]any
	if tok, ok := obj["choiceThreads"]; ok {
		m, err := inkjson.Object(tok)
		if err != nil {
			return snapshotError(err)
		}
		saved = m
	}
	for _, c := range f.CurrentChoices {
		if live, ok := f.CallStack.ThreadWithIndex(c.OriginalThreadIndex); ok {
			c.ThreadAtGeneration = live.Copy()
			continue
		}
		key := strconv.Itoa(c.OriginalThreadIndex)
		tok, ok := saved[key]
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeSnapshotChoiceThreadMissing,
				"no thread found for choice "+strconv.Quote(c.Text),
				map[string]string{"thread_index": key})
		}
		tobj, err := inkjson.Object(tok)
		if err != nil {
			return snapshotError(err)
		}
		t, err := callstack.ReadThread(tobj, root, warn)
		if err != nil {
			return err
		}
		c.ThreadAtGeneration = t
	}
	return nil
}

func snapshotError(err error) error {
	if apperrors.GetCode(err) == apperrors.CodeSnapshotInvalid {
		return err
	}
	return apperrors.Wrap(apperrors.CodeSnapshotInvalid, "invalid flow snapshot: "+err.Error(), err)
}
