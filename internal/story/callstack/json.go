package callstack

import (
	"fmt"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
)

// WriteJSON serializes the call stack.
func (cs *CallStack) WriteJSON() (map[string]any, error) {
	threads := make([]any, 0, len(cs.threads))
	for _, t := range cs.threads {
		obj, err := t.WriteJSON()
		if err != nil {
			return nil, err
		}
		threads = append(threads, obj)
	}
	return map[string]any{
		"threads":       threads,
		"threadCounter": inkjson.IntToken(cs.threadCounter),
	}, nil
}

// Load replaces the threads with the serialized ones, resolving frame
// positions against root. Approximate positions are reported through warn.
func (cs *CallStack) Load(obj map[string]any, root *content.Container, warn func(string)) error {
	raw, err := inkjson.Field(obj, "threads")
	if err != nil {
		return snapshotError(err)
	}
	arr, err := inkjson.Array(raw)
	if err != nil {
		return snapshotError(err)
	}
	threads := make([]*Thread, 0, len(arr))
	for _, tok := range arr {
		tobj, err := inkjson.Object(tok)
		if err != nil {
			return snapshotError(err)
		}
		t, err := ReadThread(tobj, root, warn)
		if err != nil {
			return err
		}
		threads = append(threads, t)
	}
	if len(threads) == 0 {
		return apperrors.New(apperrors.CodeSnapshotInvalid, "call stack has no threads")
	}
	counter, err := inkjson.IntField(obj, "threadCounter")
	if err != nil {
		return snapshotError(err)
	}
	cs.threads = threads
	cs.threadCounter = counter
	cs.startOfRoot = content.StartOf(root)
	return nil
}

// WriteJSON serializes the thread.
func (t *Thread) WriteJSON() (map[string]any, error) {
	frames := make([]any, 0, len(t.Elements))
	for _, el := range t.Elements {
		frame := map[string]any{
			"exp":  el.InExpressionEvaluation,
			"type": inkjson.IntToken(int(el.Type)),
		}
		if !el.Pointer.IsNull() {
			frame["cPath"] = el.Pointer.Container.Path().String()
			frame["idx"] = inkjson.IntToken(el.Pointer.Index)
		}
		if len(el.Temps) > 0 {
			temps, err := inkjson.WriteValueMap(el.Temps)
			if err != nil {
				return nil, err
			}
			frame["temp"] = temps
		}
		frames = append(frames, frame)
	}
	obj := map[string]any{
		"callstack":   frames,
		"threadIndex": inkjson.IntToken(t.Index),
	}
	if !t.PreviousPointer.IsNull() {
		obj["previousContentObject"] = t.PreviousPointer.Path().String()
	}
	return obj, nil
}

// ReadThread rebuilds a serialized thread against root.
func ReadThread(obj map[string]any, root *content.Container, warn func(string)) (*Thread, error) {
	index, err := inkjson.IntField(obj, "threadIndex")
	if err != nil {
		return nil, snapshotError(err)
	}
	raw, err := inkjson.Field(obj, "callstack")
	if err != nil {
		return nil, snapshotError(err)
	}
	arr, err := inkjson.Array(raw)
	if err != nil {
		return nil, snapshotError(err)
	}

	t := NewThread()
	t.Index = index
	for _, tok := range arr {
		frame, err := inkjson.Object(tok)
		if err != nil {
			return nil, snapshotError(err)
		}
		el, err := readElement(frame, root, warn)
		if err != nil {
			return nil, err
		}
		t.Elements = append(t.Elements, el)
	}

	if prev, ok := obj["previousContentObject"]; ok {
		s, err := inkjson.String(prev)
		if err != nil {
			return nil, snapshotError(err)
		}
		ptr, res := root.PointerAtPath(content.ParsePath(s))
		switch {
		case res.Object == nil:
			warn(fmt.Sprintf("Previous content object %q no longer exists in the story", s))
		case res.Approximate:
			warn(fmt.Sprintf("Previous content object %q was approximated", s))
			t.PreviousPointer = ptr
		default:
			t.PreviousPointer = ptr
		}
	}
	return t, nil
}

func readElement(frame map[string]any, root *content.Container, warn func(string)) (*Element, error) {
	typ, err := inkjson.IntField(frame, "type")
	if err != nil {
		return nil, snapshotError(err)
	}
	expTok, err := inkjson.Field(frame, "exp")
	if err != nil {
		return nil, snapshotError(err)
	}
	exp, err := inkjson.Bool(expTok)
	if err != nil {
		return nil, snapshotError(err)
	}

	ptr := content.NullPointer
	if cp, ok := frame["cPath"]; ok {
		s, err := inkjson.String(cp)
		if err != nil {
			return nil, snapshotError(err)
		}
		res := root.ContentAtPath(content.ParsePath(s), 0, -1)
		c, ok := res.Container()
		if !ok {
			return nil, apperrors.WithMetadata(apperrors.CodePathNotFound,
				fmt.Sprintf("When loading state, internal story location couldn't be found: %q. Has the story changed since this save data was created?", s),
				map[string]string{"path": s})
		}
		if res.Approximate {
			warn(fmt.Sprintf("When loading state, exact internal story location couldn't be found: %q, so it was approximated to %q to recover. Has the story changed since this save data was created?", s, c.Path()))
		}
		idx, err := inkjson.IntField(frame, "idx")
		if err != nil {
			return nil, snapshotError(err)
		}
		ptr = content.Pointer{Container: c, Index: idx}
	}

	el := newElement(content.PushPopType(typ), ptr, exp)
	if tok, ok := frame["temp"]; ok {
		temps, err := inkjson.ReadValueMap(tok)
		if err != nil {
			return nil, snapshotError(err)
		}
		el.Temps = temps
	}
	return el, nil
}

func snapshotError(err error) error {
	if apperrors.GetCode(err) == apperrors.CodeSnapshotInvalid {
		return err
	}
	return apperrors.Wrap(apperrors.CodeSnapshotInvalid, "invalid call stack snapshot: "+err.Error(), err)
}
