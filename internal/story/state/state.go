// Package state holds everything that changes while a story runs: flows,
// variables, the evaluation stack, visit counts and the error logs. The
// story graph itself is shared and never modified.
package state

import (
	"fmt"
	"sort"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/callstack"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/flow"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// State is the mutable side of a running story.
type State struct {
	root     *content.Container
	listDefs *value.ListDefinitions

	flows   map[string]*flow.Flow
	current *flow.Flow

	Variables       *Variables
	evaluationStack []content.Object

	// DivertedPointer is where execution jumps after the current object.
	DivertedPointer content.Pointer

	visitCounts map[string]int
	turnIndices map[string]int

	CurrentTurnIndex int
	StorySeed        int
	PreviousRandom   int
	DidSafeExit      bool

	errors   []string
	warnings []string
}

// New creates the state of a story that has not started yet.
func New(root *content.Container, listDefs *value.ListDefinitions, seed int) *State {
	f := flow.New(flow.DefaultName, root)
	s := &State{
		root:             root,
		listDefs:         listDefs,
		flows:            map[string]*flow.Flow{f.Name: f},
		current:          f,
		DivertedPointer:  content.NullPointer,
		visitCounts:      make(map[string]int),
		turnIndices:      make(map[string]int),
		CurrentTurnIndex: -1,
		StorySeed:        seed,
	}
	s.Variables = newVariables(f.CallStack, listDefs)
	return s
}

// Copy returns an independent state for lookahead. Errors and warnings are
// copied too.
func (s *State) Copy() *State {
	out := &State{
		root:             s.root,
		listDefs:         s.listDefs,
		flows:            make(map[string]*flow.Flow, len(s.flows)),
		evaluationStack:  append([]content.Object(nil), s.evaluationStack...),
		DivertedPointer:  s.DivertedPointer,
		visitCounts:      copyCounts(s.visitCounts),
		turnIndices:      copyCounts(s.turnIndices),
		CurrentTurnIndex: s.CurrentTurnIndex,
		StorySeed:        s.StorySeed,
		PreviousRandom:   s.PreviousRandom,
		DidSafeExit:      s.DidSafeExit,
		errors:           append([]string(nil), s.errors...),
		warnings:         append([]string(nil), s.warnings...),
	}
	for name, f := range s.flows {
		out.flows[name] = f.Copy()
	}
	out.current = out.flows[s.current.Name]
	out.Variables = s.Variables.copyFor(out.current.CallStack)
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Root returns the story graph the state runs over.
func (s *State) Root() *content.Container {
	return s.root
}

// ListDefinitions returns the story's list definitions.
func (s *State) ListDefinitions() *value.ListDefinitions {
	return s.listDefs
}

// Flow returns the current flow.
func (s *State) Flow() *flow.Flow {
	return s.current
}

// CallStack returns the call stack of the current flow.
func (s *State) CallStack() *callstack.CallStack {
	return s.current.CallStack
}

// CurrentPointer returns the position of the innermost frame.
func (s *State) CurrentPointer() content.Pointer {
	return s.current.CallStack.CurrentElement().Pointer
}

// SetCurrentPointer moves the innermost frame.
func (s *State) SetCurrentPointer(p content.Pointer) {
	s.current.CallStack.CurrentElement().Pointer = p
}

// PreviousPointer returns the last position executed on the current thread.
func (s *State) PreviousPointer() content.Pointer {
	return s.current.CallStack.CurrentThread().PreviousPointer
}

// SetPreviousPointer records the last position executed.
func (s *State) SetPreviousPointer(p content.Pointer) {
	s.current.CallStack.CurrentThread().PreviousPointer = p
}

// InExpressionEvaluation reports whether content is being pushed to the
// evaluation stack rather than the output stream.
func (s *State) InExpressionEvaluation() bool {
	return s.current.CallStack.CurrentElement().InExpressionEvaluation
}

// SetInExpressionEvaluation switches between evaluation and output.
func (s *State) SetInExpressionEvaluation(v bool) {
	s.current.CallStack.CurrentElement().InExpressionEvaluation = v
}

// CanContinue reports whether there is content left to run and no error
// has halted the story.
func (s *State) CanContinue() bool {
	return !s.CurrentPointer().IsNull() && !s.HasError()
}

// CurrentChoices returns every generated choice, invisible defaults
// included.
func (s *State) CurrentChoices() []*flow.Choice {
	return s.current.CurrentChoices
}

// AddChoice appends a newly generated choice.
func (s *State) AddChoice(c *flow.Choice) {
	s.current.CurrentChoices = append(s.current.CurrentChoices, c)
}

// PushEvaluationStack pushes a value, void or tag.
func (s *State) PushEvaluationStack(obj content.Object) {
	s.evaluationStack = append(s.evaluationStack, obj)
}

// PopEvaluationStack pops the top of the evaluation stack.
func (s *State) PopEvaluationStack() (content.Object, error) {
	n := len(s.evaluationStack)
	if n == 0 {
		return nil, apperrors.New(apperrors.CodeRuntime, "trying to pop an empty evaluation stack")
	}
	obj := s.evaluationStack[n-1]
	s.evaluationStack = s.evaluationStack[:n-1]
	return obj, nil
}

// PopEvaluationStackN pops n objects, returned in push order.
func (s *State) PopEvaluationStackN(n int) ([]content.Object, error) {
	if n > len(s.evaluationStack) {
		return nil, apperrors.New(apperrors.CodeRuntime, "trying to pop too many objects")
	}
	start := len(s.evaluationStack) - n
	out := append([]content.Object(nil), s.evaluationStack[start:]...)
	s.evaluationStack = s.evaluationStack[:start]
	return out, nil
}

// PeekEvaluationStack returns the top of the evaluation stack.
func (s *State) PeekEvaluationStack() (content.Object, bool) {
	if len(s.evaluationStack) == 0 {
		return nil, false
	}
	return s.evaluationStack[len(s.evaluationStack)-1], true
}

// EvaluationStackHeight returns the number of objects on the stack.
func (s *State) EvaluationStackHeight() int {
	return len(s.evaluationStack)
}

// PopCallstack pops the innermost frame, trimming trailing whitespace
// produced by a function first.
func (s *State) PopCallstack(t content.PushPopType) error {
	if s.current.CallStack.CurrentElement().Type == content.PushPopFunction {
		s.trimWhitespaceFromFunctionEnd()
	}
	return s.current.CallStack.Pop(t)
}

// SetChosenPath clears the choices and moves execution to ptr. A pointer
// at a whole container starts at its first child.
func (s *State) SetChosenPath(ptr content.Pointer, incrementTurn bool) {
	s.current.CurrentChoices = nil
	if !ptr.IsNull() && ptr.Index == -1 {
		ptr.Index = 0
	}
	s.SetCurrentPointer(ptr)
	if incrementTurn {
		s.CurrentTurnIndex++
	}
}

// ForceEnd stops the current flow: the call stack is reset, the choices
// dropped and the position cleared.
func (s *State) ForceEnd() {
	s.current.CallStack.Reset()
	s.current.CurrentChoices = nil
	s.SetCurrentPointer(content.NullPointer)
	s.SetPreviousPointer(content.NullPointer)
	s.DidSafeExit = true
}

// TryExitFunctionEvaluationFromGame ends a host function evaluation when it
// is the innermost frame.
func (s *State) TryExitFunctionEvaluationFromGame() bool {
	if s.current.CallStack.CurrentElement().Type != content.PushPopFunctionEvaluationFromGame {
		return false
	}
	s.SetCurrentPointer(content.NullPointer)
	s.DidSafeExit = true
	return true
}

// StartFunctionEvaluationFromGame runs fn from host code with args already
// converted to values.
func (s *State) StartFunctionEvaluationFromGame(fn *content.Container, args []*value.Value) {
	s.current.CallStack.Push(content.PushPopFunctionEvaluationFromGame, len(s.evaluationStack), 0)
	s.SetCurrentPointer(content.StartOf(fn))
	for _, a := range args {
		s.PushEvaluationStack(a)
	}
}

// CompleteFunctionEvaluationFromGame pops the host evaluation frame and
// returns the function's result, or nil when it returned nothing.
func (s *State) CompleteFunctionEvaluationFromGame() (*value.Value, error) {
	el := s.current.CallStack.CurrentElement()
	if el.Type != content.PushPopFunctionEvaluationFromGame {
		return nil, apperrors.New(apperrors.CodeRuntime,
			"Expected external function evaluation to be complete. Stack trace: "+s.current.CallStack.Trace())
	}
	var returned content.Object
	for len(s.evaluationStack) > el.EvaluationStackHeightWhenPushed {
		obj, _ := s.PopEvaluationStack()
		if returned == nil {
			returned = obj
		}
	}
	if err := s.PopCallstack(content.PushPopFunctionEvaluationFromGame); err != nil {
		return nil, err
	}
	v, _ := returned.(*value.Value)
	return v, nil
}

// VisitCount returns how many times c has been entered.
func (s *State) VisitCount(c *content.Container) (int, error) {
	if !c.VisitsShouldBeCounted {
		return 0, apperrors.WithMetadata(apperrors.CodeRuntime,
			fmt.Sprintf("Read count for target (%s - on %s) unknown.", c.Name, c.Path()),
			map[string]string{"path": c.Path().String()})
	}
	return s.visitCounts[c.Path().String()], nil
}

// VisitCountAtPath returns the visit count recorded for a container path.
func (s *State) VisitCountAtPath(path string) int {
	return s.visitCounts[path]
}

// IncrementVisitCount records a visit to c.
func (s *State) IncrementVisitCount(c *content.Container) {
	s.visitCounts[c.Path().String()]++
}

// RecordTurnIndexVisit records that c was entered on the current turn.
func (s *State) RecordTurnIndexVisit(c *content.Container) {
	s.turnIndices[c.Path().String()] = s.CurrentTurnIndex
}

// TurnsSince returns how many turns ago c was last entered, or -1 if never.
func (s *State) TurnsSince(c *content.Container) (int, error) {
	if !c.TurnIndexShouldBeCounted {
		return 0, apperrors.WithMetadata(apperrors.CodeRuntime,
			fmt.Sprintf("TURNS_SINCE() for target (%s - on %s) unknown.", c.Name, c.Path()),
			map[string]string{"path": c.Path().String()})
	}
	idx, ok := s.turnIndices[c.Path().String()]
	if !ok {
		return -1, nil
	}
	return s.CurrentTurnIndex - idx, nil
}

// AddError records a runtime error or warning message.
func (s *State) AddError(msg string, warning bool) {
	if warning {
		s.warnings = append(s.warnings, msg)
		return
	}
	s.errors = append(s.errors, msg)
}

// Errors returns the recorded errors, oldest first.
func (s *State) Errors() []string { return s.errors }

// Warnings returns the recorded warnings, oldest first.
func (s *State) Warnings() []string { return s.warnings }

// HasError reports whether an error has been recorded.
func (s *State) HasError() bool { return len(s.errors) > 0 }

// HasWarning reports whether a warning has been recorded.
func (s *State) HasWarning() bool { return len(s.warnings) > 0 }

// ResetErrors clears both logs.
func (s *State) ResetErrors() {
	s.errors = nil
	s.warnings = nil
}

// CarryErrorsFrom replaces the logs with those of other.
func (s *State) CarryErrorsFrom(other *State) {
	s.errors = append([]string(nil), other.errors...)
	s.warnings = append([]string(nil), other.warnings...)
}

// CurrentFlowName returns the name of the current flow.
func (s *State) CurrentFlowName() string {
	return s.current.Name
}

// CurrentFlowIsDefault reports whether the default flow is current.
func (s *State) CurrentFlowIsDefault() bool {
	return s.current.Name == flow.DefaultName
}

// SwitchFlow makes name current, creating it at the start of the story if
// it does not exist.
func (s *State) SwitchFlow(name string) error {
	if name == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "flow name must not be empty")
	}
	if name == s.current.Name {
		return nil
	}
	f, ok := s.flows[name]
	if !ok {
		f = flow.New(name, s.root)
		s.flows[name] = f
	}
	s.current = f
	s.Variables.callStack = f.CallStack
	return nil
}

// SwitchToDefaultFlow makes the default flow current.
func (s *State) SwitchToDefaultFlow() error {
	return s.SwitchFlow(flow.DefaultName)
}

// RemoveFlow discards a flow, switching to the default one if it was
// current.
func (s *State) RemoveFlow(name string) error {
	if name == flow.DefaultName {
		return apperrors.New(apperrors.CodeFlowDefaultRemoval, "Cannot destroy default flow")
	}
	if _, ok := s.flows[name]; !ok {
		return apperrors.WithMetadata(apperrors.CodeFlowNotFound,
			"no flow named "+name, map[string]string{"flow": name})
	}
	if s.current.Name == name {
		if err := s.SwitchToDefaultFlow(); err != nil {
			return err
		}
	}
	delete(s.flows, name)
	return nil
}

// AliveFlowNames returns the names of every flow other than the default,
// sorted.
func (s *State) AliveFlowNames() []string {
	var names []string
	for name := range s.flows {
		if name != flow.DefaultName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
