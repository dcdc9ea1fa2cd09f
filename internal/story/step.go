package story

import (
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// step executes the object under the current pointer and moves on.
func (s *Story) step() error {
	ptr := s.state.CurrentPointer()
	if ptr.IsNull() {
		return nil
	}

	for c, ok := ptr.Resolve().(*content.Container); ok; c, ok = ptr.Resolve().(*content.Container) {
		s.visitContainer(c, true)
		if c.Len() == 0 {
			break
		}
		ptr = content.StartOf(c)
	}
	s.state.SetCurrentPointer(ptr)

	obj := ptr.Resolve()
	handled, err := s.performLogicAndFlowControl(obj)
	if err != nil {
		return err
	}
	if s.state.CurrentPointer().IsNull() {
		return nil
	}
	shouldAdd := !handled

	if cp, ok := obj.(*content.ChoicePoint); ok {
		choice, err := s.processChoice(cp)
		if err != nil {
			return err
		}
		if choice != nil {
			s.state.AddChoice(choice)
		}
		obj = nil
		shouldAdd = false
	}
	if _, ok := obj.(*content.Container); ok {
		shouldAdd = false
	}

	if shouldAdd && obj != nil {
		if v, ok := obj.(*value.Value); ok && v.Type() == value.TypeVariablePointer {
			name, ctx, _ := v.AsVariablePointer()
			if ctx == -1 {
				obj = value.VariablePointer(name, s.state.CallStack().ContextForVariableNamed(name))
			}
		}
		if s.state.InExpressionEvaluation() {
			s.state.PushEvaluationStack(obj)
		} else {
			s.state.PushToOutputStream(obj)
		}
	}

	if err := s.nextContent(); err != nil {
		return err
	}
	if cmd, ok := obj.(*content.ControlCommand); ok && cmd.Type == content.CommandStartThread {
		s.state.CallStack().PushThread()
	}
	return nil
}

// nextContent moves to the pending divert target, or to the next object,
// returning from functions and threads that ran out of content.
func (s *Story) nextContent() error {
	s.state.SetPreviousPointer(s.state.CurrentPointer())

	if !s.state.DivertedPointer.IsNull() {
		s.state.SetCurrentPointer(s.state.DivertedPointer)
		s.state.DivertedPointer = content.NullPointer
		s.visitChangedContainersDueToDivert()
		if !s.state.CurrentPointer().IsNull() {
			return nil
		}
	}

	if s.incrementContentPointer() {
		return nil
	}

	cs := s.state.CallStack()
	didPop := false
	switch {
	case cs.CanPop(content.PushPopFunction):
		if err := s.state.PopCallstack(content.PushPopFunction); err != nil {
			return err
		}
		// A function that falls off its end returns nothing.
		if s.state.InExpressionEvaluation() {
			s.state.PushEvaluationStack(&content.Void{})
		}
		didPop = true
	case cs.CanPopThread():
		if err := cs.PopThread(); err != nil {
			return err
		}
		didPop = true
	default:
		s.state.TryExitFunctionEvaluationFromGame()
	}

	if didPop && !s.state.CurrentPointer().IsNull() {
		return s.nextContent()
	}
	return nil
}

func (s *Story) incrementContentPointer() bool {
	ptr := s.state.CurrentPointer()
	if ptr.IsNull() {
		return false
	}
	ptr.Index++
	ok := true
	for ptr.Index >= ptr.Container.Len() {
		ok = false
		parent := ptr.Container.Parent()
		if parent == nil {
			break
		}
		idx := parent.IndexOf(ptr.Container)
		if idx == -1 {
			break
		}
		ptr = content.Pointer{Container: parent, Index: idx + 1}
		ok = true
	}
	if !ok {
		ptr = content.NullPointer
	}
	s.state.SetCurrentPointer(ptr)
	return ok
}

func (s *Story) visitContainer(c *content.Container, atStart bool) {
	if c.CountingAtStartOnly && !atStart {
		return
	}
	if c.VisitsShouldBeCounted {
		s.state.IncrementVisitCount(c)
	}
	if c.TurnIndexShouldBeCounted {
		s.state.RecordTurnIndexVisit(c)
	}
}

// visitChangedContainersDueToDivert counts a visit to every container
// entered by the last jump that was not already being executed.
func (s *Story) visitChangedContainersDueToDivert() {
	prev := s.state.PreviousPointer()
	ptr := s.state.CurrentPointer()
	if ptr.IsNull() || ptr.Index == -1 {
		return
	}

	prevContainers := make(map[*content.Container]bool)
	if !prev.IsNull() {
		anc, ok := prev.Resolve().(*content.Container)
		if !ok {
			anc = prev.Container
		}
		for ; anc != nil; anc = anc.Parent() {
			prevContainers[anc] = true
		}
	}

	child := ptr.Resolve()
	if child == nil {
		return
	}
	allAtStart := true
	for anc := child.Parent(); anc != nil && (!prevContainers[anc] || anc.CountingAtStartOnly); anc = anc.Parent() {
		atStart := anc.Len() > 0 && anc.Content()[0] == child && allAtStart
		if !atStart {
			allAtStart = false
		}
		s.visitContainer(anc, atStart)
		child = anc
	}
}
