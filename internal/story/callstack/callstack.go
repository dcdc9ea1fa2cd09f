// Package callstack holds the nested execution frames of a flow, split
// across threads that can be forked and snapshotted independently.
package callstack

import (
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// Element is one activation frame.
type Element struct {
	Pointer                content.Pointer
	InExpressionEvaluation bool
	Temps                  map[string]*value.Value
	Type                   content.PushPopType

	// Evaluation stack height when a host function evaluation started, so
	// the returned value can be told apart from the caller's operands.
	EvaluationStackHeightWhenPushed int

	// Output stream length when a function was called; -1 once the function
	// has produced visible text and leading whitespace no longer needs
	// trimming.
	FunctionStartInOutputStream int
}

func newElement(t content.PushPopType, ptr content.Pointer, inExpression bool) *Element {
	return &Element{
		Pointer:                ptr,
		InExpressionEvaluation: inExpression,
		Temps:                  make(map[string]*value.Value),
		Type:                   t,
	}
}

// Copy duplicates the frame, including its temporaries map. Values are
// immutable and shared.
func (e *Element) Copy() *Element {
	out := *e
	out.Temps = make(map[string]*value.Value, len(e.Temps))
	for k, v := range e.Temps {
		out.Temps[k] = v
	}
	return &out
}

// CallStack is the set of threads of one flow. The current thread is the
// last one.
type CallStack struct {
	threads       []*Thread
	threadCounter int
	startOfRoot   content.Pointer
}

// New creates a call stack positioned at the start of root.
func New(root *content.Container) *CallStack {
	cs := &CallStack{startOfRoot: content.StartOf(root)}
	cs.Reset()
	return cs
}

// Copy returns a deep copy sharing no mutable state with cs.
func (cs *CallStack) Copy() *CallStack {
	out := &CallStack{
		threads:       make([]*Thread, len(cs.threads)),
		threadCounter: cs.threadCounter,
		startOfRoot:   cs.startOfRoot,
	}
	for i, t := range cs.threads {
		out.threads[i] = t.Copy()
	}
	return out
}

// Reset drops every thread and starts over with a single frame at the
// start of the root container.
func (cs *CallStack) Reset() {
	t := NewThread()
	t.Elements = append(t.Elements, newElement(content.PushPopTunnel, cs.startOfRoot, false))
	cs.threads = []*Thread{t}
}

// Threads returns the live threads, oldest first.
func (cs *CallStack) Threads() []*Thread {
	return cs.threads
}

// ThreadCounter returns the last thread index handed out.
func (cs *CallStack) ThreadCounter() int {
	return cs.threadCounter
}

// CurrentThread returns the thread being executed.
func (cs *CallStack) CurrentThread() *Thread {
	return cs.threads[len(cs.threads)-1]
}

// SetCurrentThread replaces every thread with t. Only valid when the stack
// is flat, as it is when a choice is taken.
func (cs *CallStack) SetCurrentThread(t *Thread) {
	cs.threads = []*Thread{t}
}

// Elements returns the frames of the current thread.
func (cs *CallStack) Elements() []*Element {
	return cs.CurrentThread().Elements
}

// Depth returns the number of frames in the current thread.
func (cs *CallStack) Depth() int {
	return len(cs.Elements())
}

// CurrentElement returns the innermost frame of the current thread.
func (cs *CallStack) CurrentElement() *Element {
	els := cs.Elements()
	return els[len(els)-1]
}

// CurrentElementIndex returns the position of the innermost frame.
func (cs *CallStack) CurrentElementIndex() int {
	return len(cs.Elements()) - 1
}

func (cs *CallStack) canPopAny() bool {
	return len(cs.Elements()) > 1
}

// CanPop reports whether the innermost frame sits above the base frame and
// was pushed with t.
func (cs *CallStack) CanPop(t content.PushPopType) bool {
	return cs.canPopAny() && cs.CurrentElement().Type == t
}

// Push adds a frame of type t at the current position, leaving expression
// evaluation.
func (cs *CallStack) Push(t content.PushPopType, evalStackHeight, outputStreamLength int) {
	el := newElement(t, cs.CurrentElement().Pointer, false)
	el.EvaluationStackHeightWhenPushed = evalStackHeight
	el.FunctionStartInOutputStream = outputStreamLength
	thread := cs.CurrentThread()
	thread.Elements = append(thread.Elements, el)
}

// Pop removes the innermost frame. It fails with CodeUnbalancedPop when the
// frame was not pushed with t or is the base frame.
func (cs *CallStack) Pop(t content.PushPopType) error {
	if !cs.CanPop(t) {
		actual := "none"
		if cs.canPopAny() {
			actual = cs.CurrentElement().Type.String()
		}
		return apperrors.WithMetadata(apperrors.CodeUnbalancedPop,
			"Mismatched push/pop in Callstack",
			map[string]string{"expected": t.String(), "actual": actual})
	}
	thread := cs.CurrentThread()
	thread.Elements = thread.Elements[:len(thread.Elements)-1]
	return nil
}

// ElementIsEvaluateFromGame reports whether the innermost frame is a host
// function evaluation.
func (cs *CallStack) ElementIsEvaluateFromGame() bool {
	return cs.CurrentElement().Type == content.PushPopFunctionEvaluationFromGame
}

// PushThread starts a new thread as a copy of the current one.
func (cs *CallStack) PushThread() {
	t := cs.CurrentThread().Copy()
	cs.threadCounter++
	t.Index = cs.threadCounter
	cs.threads = append(cs.threads, t)
}

// ForkThread returns a copy of the current thread with a fresh index,
// without adding it to the stack.
func (cs *CallStack) ForkThread() *Thread {
	t := cs.CurrentThread().Copy()
	cs.threadCounter++
	t.Index = cs.threadCounter
	return t
}

// CanPopThread reports whether the current thread can be discarded.
func (cs *CallStack) CanPopThread() bool {
	return len(cs.threads) > 1 && !cs.ElementIsEvaluateFromGame()
}

// PopThread discards the current thread.
func (cs *CallStack) PopThread() error {
	if !cs.CanPopThread() {
		return apperrors.New(apperrors.CodeThreadUnavailable, "Can't pop thread")
	}
	cs.threads = cs.threads[:len(cs.threads)-1]
	return nil
}

// ThreadWithIndex looks up a live thread by index.
func (cs *CallStack) ThreadWithIndex(index int) (*Thread, bool) {
	for _, t := range cs.threads {
		if t.Index == index {
			return t, true
		}
	}
	return nil, false
}

// ContextForVariableNamed returns the context index holding name: the
// current frame when it declares the temporary, otherwise global (0).
func (cs *CallStack) ContextForVariableNamed(name string) int {
	if _, ok := cs.CurrentElement().Temps[name]; ok {
		return cs.CurrentElementIndex() + 1
	}
	return 0
}

func (cs *CallStack) contextElement(contextIndex int) (*Element, error) {
	if contextIndex == -1 {
		contextIndex = cs.CurrentElementIndex() + 1
	}
	els := cs.Elements()
	if contextIndex < 1 || contextIndex > len(els) {
		return nil, apperrors.WithMetadata(apperrors.CodeRuntime,
			fmt.Sprintf("invalid variable context %d", contextIndex),
			map[string]string{"context": fmt.Sprint(contextIndex)})
	}
	return els[contextIndex-1], nil
}

// TemporaryVariable reads a temporary from the frame at contextIndex (-1
// for the current frame).
func (cs *CallStack) TemporaryVariable(name string, contextIndex int) (*value.Value, bool) {
	el, err := cs.contextElement(contextIndex)
	if err != nil {
		return nil, false
	}
	v, ok := el.Temps[name]
	return v, ok
}

// SetTemporaryVariable assigns a temporary in the frame at contextIndex (-1
// for the current frame). Assigning to an undeclared temporary fails unless
// declareNew is set.
func (cs *CallStack) SetTemporaryVariable(name string, v *value.Value, declareNew bool, contextIndex int) error {
	el, err := cs.contextElement(contextIndex)
	if err != nil {
		return err
	}
	old, exists := el.Temps[name]
	if !declareNew && !exists {
		return apperrors.WithMetadata(apperrors.CodeVariableNotFound,
			"Could not find temporary variable to set: "+name,
			map[string]string{"variable": name})
	}
	el.Temps[name] = value.RetainListOrigins(old, v)
	return nil
}

// Trace renders the threads and frames for diagnostics.
func (cs *CallStack) Trace() string {
	var b strings.Builder
	for i, t := range cs.threads {
		current := ""
		if i == len(cs.threads)-1 {
			current = " (current)"
		}
		fmt.Fprintf(&b, "=== THREAD %d/%d%s ===\n", i+1, len(cs.threads), current)
		for _, el := range t.Elements {
			kind := "TUNNEL"
			if el.Type == content.PushPopFunction {
				kind = "FUNCTION"
			}
			fmt.Fprintf(&b, "  [%s] %s\n", kind, el.Pointer)
		}
	}
	return b.String()
}
