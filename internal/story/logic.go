package story

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/flow"
	"github.com/louisbranch/storyloom/internal/story/state"
	"github.com/louisbranch/storyloom/internal/story/value"
)

const voidOperandMessage = "Attempting to perform operation on a void value. Did you forget to 'return' a value from a function you called here?"

func runtimeError(format string, args ...any) error {
	return apperrors.New(apperrors.CodeRuntime, fmt.Sprintf(format, args...))
}

func pathNotFound(msg string, p *content.Path) error {
	return apperrors.WithMetadata(apperrors.CodePathNotFound, msg, map[string]string{"path": p.String()})
}

func (s *Story) popValue() (*value.Value, error) {
	obj, err := s.state.PopEvaluationStack()
	if err != nil {
		return nil, err
	}
	v, ok := obj.(*value.Value)
	if !ok {
		return nil, runtimeError(voidOperandMessage)
	}
	return v, nil
}

// performLogicAndFlowControl runs obj when it is an instruction. It reports
// whether obj was consumed, in which case it is not pushed to any stream.
func (s *Story) performLogicAndFlowControl(obj content.Object) (bool, error) {
	switch o := obj.(type) {
	case nil:
		return false, nil
	case *content.Divert:
		return true, s.performDivert(o)
	case *content.ControlCommand:
		return true, s.performCommand(o)
	case *content.VariableAssignment:
		popped, err := s.state.PopEvaluationStack()
		if err != nil {
			return true, err
		}
		v, _ := popped.(*value.Value)
		return true, s.state.Variables.Assign(o, v)
	case *content.VariableReference:
		return true, s.performVariableReference(o)
	case *content.NativeCall:
		return true, s.performNativeCall(o)
	}
	return false, nil
}

func (s *Story) performDivert(d *content.Divert) error {
	if d.IsConditional {
		cond, err := s.popValue()
		if err != nil {
			return err
		}
		ok, err := cond.IsTruthy()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	switch {
	case d.HasVariableTarget():
		name := d.VariableDivertName
		v, ok := s.state.Variables.Value(name, -1)
		if !ok {
			return runtimeError("Tried to divert using a target from a variable that could not be found (%s)", name)
		}
		target, err := v.AsDivertTarget()
		if err != nil {
			if n, ierr := v.AsInt(); ierr == nil && n == 0 {
				return runtimeError("Tried to divert to a target from a variable, but the variable (%s) didn't contain a divert target, it was empty/null (the value 0).", name)
			}
			return runtimeError("Tried to divert to a target from a variable, but the variable (%s) didn't contain a divert target, it contained '%s'.", name, v)
		}
		ptr, err := s.pointerAtPath(target)
		if err != nil {
			return err
		}
		s.state.DivertedPointer = ptr
	case d.IsExternal:
		return s.callExternalFunction(d.TargetPath.String(), d.ExternalArgs)
	default:
		ptr := d.TargetPointer()
		if ptr.IsNull() && d.TargetPath != nil && d.TargetPath.Len() > 0 {
			return pathNotFound("Divert resolution failed: "+d.String(), d.TargetPath)
		}
		s.state.DivertedPointer = ptr
	}

	if d.PushesToStack {
		s.state.CallStack().Push(d.StackPushType, 0, len(s.state.OutputStream()))
	}

	if s.state.DivertedPointer.IsNull() && !d.IsExternal {
		if d.TargetPath != nil && d.TargetPath.Len() > 0 {
			return runtimeError("Divert resolution failed: %s", d)
		}
		return runtimeError("Divert target doesn't exist: %s", d)
	}
	return nil
}

func (s *Story) performVariableReference(ref *content.VariableReference) error {
	if ref.PathForCount != nil {
		c, ok := ref.ContainerForCount()
		if !ok {
			return pathNotFound("Failed to find container for read count: "+ref.PathForCount.String(), ref.PathForCount)
		}
		n, err := s.state.VisitCount(c)
		if err != nil {
			return err
		}
		s.state.PushEvaluationStack(value.Int(n))
		return nil
	}

	v, ok := s.state.Variables.Value(ref.Name, -1)
	if !ok {
		s.warning(fmt.Sprintf("Variable not found: '%s'. Using default value of 0 (false). This can happen with temporary variables if the declaration hasn't yet been hit. Globals are always given a default value on load if a value doesn't exist in the save state.", ref.Name))
		v = value.Int(0)
	}
	s.state.PushEvaluationStack(v)
	return nil
}

func (s *Story) performNativeCall(call *content.NativeCall) error {
	arity, ok := value.NativeArity(call.Name)
	if !ok {
		return runtimeError("Unknown native function: %s", call.Name)
	}
	objs, err := s.state.PopEvaluationStackN(arity)
	if err != nil {
		return err
	}
	args := make([]*value.Value, len(objs))
	for i, obj := range objs {
		v, ok := obj.(*value.Value)
		if !ok {
			return runtimeError(voidOperandMessage)
		}
		args[i] = v
	}
	result, err := value.CallNative(call.Name, args, s.listDefs)
	if err != nil {
		return err
	}
	s.state.PushEvaluationStack(result)
	return nil
}

func (s *Story) performCommand(cmd *content.ControlCommand) error {
	st := s.state
	switch cmd.Type {
	case content.CommandEvalStart:
		if st.InExpressionEvaluation() {
			return runtimeError("Already in expression evaluation?")
		}
		st.SetInExpressionEvaluation(true)

	case content.CommandEvalEnd:
		if !st.InExpressionEvaluation() {
			return runtimeError("Not in expression evaluation mode")
		}
		st.SetInExpressionEvaluation(false)

	case content.CommandEvalOutput:
		if st.EvaluationStackHeight() > 0 {
			obj, err := st.PopEvaluationStack()
			if err != nil {
				return err
			}
			if v, ok := obj.(*value.Value); ok {
				st.PushToOutputStream(value.String(v.String()))
			}
		}

	case content.CommandNoOp:

	case content.CommandDuplicate:
		obj, ok := st.PeekEvaluationStack()
		if !ok {
			return runtimeError("Cannot duplicate the top of an empty evaluation stack")
		}
		st.PushEvaluationStack(obj)

	case content.CommandPopEvaluatedValue:
		if _, err := st.PopEvaluationStack(); err != nil {
			return err
		}

	case content.CommandPopFunction, content.CommandPopTunnel:
		return s.performReturn(cmd.Type)

	case content.CommandBeginString:
		st.PushToOutputStream(cmd)
		if !st.InExpressionEvaluation() {
			return runtimeError("Expected to be in an expression when evaluating a string")
		}
		st.SetInExpressionEvaluation(false)

	case content.CommandBeginTag:
		st.PushToOutputStream(cmd)

	case content.CommandEndTag:
		if st.InStringEvaluation() {
			return s.endTagInString()
		}
		st.PushToOutputStream(cmd)

	case content.CommandEndString:
		s.endString()

	case content.CommandChoiceCount:
		st.PushEvaluationStack(value.Int(len(st.CurrentChoices())))

	case content.CommandTurns:
		st.PushEvaluationStack(value.Int(st.CurrentTurnIndex + 1))

	case content.CommandTurnsSince, content.CommandReadCount:
		return s.performCountLookup(cmd)

	case content.CommandRandom:
		return s.performRandom()

	case content.CommandSeedRandom:
		seed, err := s.popValue()
		if err != nil {
			return err
		}
		n, err := seed.AsInt()
		if err != nil {
			return runtimeError("Invalid value passed to SEED_RANDOM")
		}
		st.StorySeed = n
		st.PreviousRandom = 0
		st.PushEvaluationStack(&content.Void{})

	case content.CommandVisitIndex:
		n, err := st.VisitCount(st.CurrentPointer().Container)
		if err != nil {
			return err
		}
		st.PushEvaluationStack(value.Int(n - 1))

	case content.CommandSequenceShuffleIndex:
		idx, err := s.nextSequenceShuffleIndex()
		if err != nil {
			return err
		}
		st.PushEvaluationStack(value.Int(idx))

	case content.CommandStartThread:
		// The thread is forked once the pointer has moved past this command.

	case content.CommandDone:
		cs := st.CallStack()
		if cs.CanPopThread() {
			return cs.PopThread()
		}
		st.DidSafeExit = true
		st.SetCurrentPointer(content.NullPointer)

	case content.CommandEnd:
		st.ForceEnd()

	case content.CommandListFromInt:
		return s.performListFromInt()

	case content.CommandListRange:
		return s.performListRange()

	case content.CommandListRandom:
		return s.performListRandom()

	default:
		return runtimeError("unhandled control command: %s", cmd)
	}
	return nil
}

var returnNames = map[content.PushPopType]string{
	content.PushPopFunction: "function return statement (~ return)",
	content.PushPopTunnel:   "tunnel onwards statement (->->)",
}

func (s *Story) performReturn(t content.CommandType) error {
	popType := content.PushPopFunction
	var override *content.Path
	if t == content.CommandPopTunnel {
		popType = content.PushPopTunnel
		obj, err := s.state.PopEvaluationStack()
		if err != nil {
			return err
		}
		switch o := obj.(type) {
		case *content.Void:
		case *value.Value:
			p, err := o.AsDivertTarget()
			if err != nil {
				return runtimeError("Expected void if ->-> doesn't override target")
			}
			override = p
		default:
			return runtimeError("Expected void if ->-> doesn't override target")
		}
	}

	if s.state.TryExitFunctionEvaluationFromGame() {
		return nil
	}

	cs := s.state.CallStack()
	current := cs.CurrentElement().Type
	if current != popType || cs.Depth() <= 1 {
		expected := returnNames[current]
		if cs.Depth() <= 1 {
			expected = "end of flow (-> END or choice)"
		}
		return apperrors.WithMetadata(apperrors.CodeUnbalancedPop,
			fmt.Sprintf("Found %s, when expected %s", returnNames[popType], expected),
			map[string]string{"expected": current.String(), "actual": popType.String()})
	}

	if err := s.state.PopCallstack(popType); err != nil {
		return err
	}
	if override != nil {
		ptr, err := s.pointerAtPath(override)
		if err != nil {
			return err
		}
		s.state.DivertedPointer = ptr
	}
	return nil
}

func isBeginCommand(obj content.Object, t content.CommandType) bool {
	cmd, ok := obj.(*content.ControlCommand)
	return ok && cmd.Type == t
}

// endString collapses the output since the matching BeginString into a
// single string on the evaluation stack. Tags found inside are kept in the
// output stream.
func (s *Story) endString() {
	out := s.state.OutputStream()
	var parts []string
	var tags []content.Object
	consumed := 0
	for i := len(out) - 1; i >= 0; i-- {
		obj := out[i]
		consumed++
		if isBeginCommand(obj, content.CommandBeginString) {
			break
		}
		if tag, ok := obj.(*content.Tag); ok {
			tags = append(tags, tag)
			continue
		}
		if v, ok := obj.(*value.Value); ok && v.Type() == value.TypeString {
			str, _ := v.AsString()
			parts = append(parts, str)
		}
	}
	s.state.PopFromOutputStream(consumed)
	for i := len(tags) - 1; i >= 0; i-- {
		s.state.PushToOutputStream(tags[i])
	}

	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	s.state.SetInExpressionEvaluation(true)
	s.state.PushEvaluationStack(value.String(b.String()))
}

// endTagInString turns the text since BeginTag into a tag object on the
// evaluation stack, ready to be attached to a choice.
func (s *Story) endTagInString() error {
	out := s.state.OutputStream()
	var parts []string
	consumed := 0
	for i := len(out) - 1; i >= 0; i-- {
		obj := out[i]
		consumed++
		if cmd, ok := obj.(*content.ControlCommand); ok {
			if cmd.Type == content.CommandBeginTag {
				break
			}
			return runtimeError("Unexpected ControlCommand while extracting tag from choice")
		}
		if v, ok := obj.(*value.Value); ok && v.Type() == value.TypeString {
			str, _ := v.AsString()
			parts = append(parts, str)
		}
	}
	s.state.PopFromOutputStream(consumed)

	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	s.state.PushEvaluationStack(&content.Tag{Text: state.CleanOutputWhitespace(b.String())})
	return nil
}

func (s *Story) performCountLookup(cmd *content.ControlCommand) error {
	target, err := s.popValue()
	if err != nil {
		return err
	}
	p, err := target.AsDivertTarget()
	if err != nil {
		extra := ""
		if target.Type() == value.TypeInt {
			extra = ". Did you accidentally pass a read count ('knot_name') instead of a target ('-> knot_name')?"
		}
		return runtimeError("TURNS_SINCE / READ_COUNT expected a divert target (knot, stitch, label name), but saw %s%s", target, extra)
	}

	var c *content.Container
	if obj, ok := s.contentAtPath(p).CorrectObj(); ok {
		c, _ = content.AsContainer(obj)
	}
	if c == nil {
		n := 0
		if cmd.Type == content.CommandTurnsSince {
			n = -1
		}
		s.warning(fmt.Sprintf("Failed to find container for %s lookup at %s", cmd, p))
		s.state.PushEvaluationStack(value.Int(n))
		return nil
	}

	var n int
	if cmd.Type == content.CommandTurnsSince {
		n, err = s.state.TurnsSince(c)
	} else {
		n, err = s.state.VisitCount(c)
	}
	if err != nil {
		return err
	}
	s.state.PushEvaluationStack(value.Int(n))
	return nil
}

func (s *Story) performRandom() error {
	maxV, err := s.popValue()
	if err != nil {
		return err
	}
	minV, err := s.popValue()
	if err != nil {
		return err
	}
	hi, err := maxV.AsInt()
	if err != nil {
		return runtimeError("Invalid value for maximum parameter of RANDOM(min, max)")
	}
	lo, err := minV.AsInt()
	if err != nil {
		return runtimeError("Invalid value for minimum parameter of RANDOM(min, max)")
	}
	if int64(hi)-int64(lo) >= math.MaxInt32 {
		return runtimeError("RANDOM was called with a range that exceeds the size that ink numbers can use.")
	}
	size := hi - lo + 1
	if size <= 0 {
		return runtimeError("RANDOM was called with minimum as %d and maximum as %d. The maximum must be larger", lo, hi)
	}

	next := nextRandom(s.state.StorySeed + s.state.PreviousRandom)
	s.state.PushEvaluationStack(value.Int(next%size + lo))
	s.state.PreviousRandom = next
	return nil
}

func (s *Story) performListFromInt() error {
	intV, err := s.popValue()
	if err != nil {
		return err
	}
	nameV, err := s.popValue()
	if err != nil {
		return err
	}
	n, err := intV.AsInt()
	if err != nil {
		return runtimeError("Passed non-integer when creating a list element from a numerical value.")
	}
	name, err := nameV.AsString()
	if err != nil {
		return runtimeError("Expected a list name when creating a list element from a numerical value.")
	}
	def, ok := s.listDefs.Definition(name)
	if !ok {
		return runtimeError("Failed to find LIST called %s", name)
	}
	if item, ok := def.ItemWithValue(n); ok {
		s.state.PushEvaluationStack(value.ListValue(value.SingleItemList(item, n)))
	} else {
		s.state.PushEvaluationStack(value.ListValue(value.NewList()))
	}
	return nil
}

// listBound reads a LIST_RANGE bound: an int, or the min or max value of a
// non-empty list.
func listBound(v *value.Value, lower bool, fallback int) int {
	if n, err := v.AsInt(); err == nil {
		return n
	}
	l, err := v.AsList()
	if err != nil || l.Len() == 0 {
		return fallback
	}
	var e value.ListEntry
	if lower {
		e, _ = l.MinItem()
	} else {
		e, _ = l.MaxItem()
	}
	return e.Value
}

func (s *Story) performListRange() error {
	maxV, err := s.popValue()
	if err != nil {
		return err
	}
	minV, err := s.popValue()
	if err != nil {
		return err
	}
	target, err := s.popValue()
	if err != nil {
		return err
	}
	l, err := target.AsList()
	if err != nil {
		return runtimeError("Expected list, minimum and maximum for LIST_RANGE")
	}
	lo := listBound(minV, true, 0)
	hi := listBound(maxV, false, math.MaxInt)
	s.state.PushEvaluationStack(value.ListValue(l.SubRange(lo, hi)))
	return nil
}

func (s *Story) performListRandom() error {
	v, err := s.popValue()
	if err != nil {
		return err
	}
	l, err := v.AsList()
	if err != nil {
		return runtimeError("Expected list for LIST_RANDOM")
	}
	if l.Len() == 0 {
		s.state.PushEvaluationStack(value.ListValue(value.NewList()))
		return nil
	}

	next := nextRandom(s.state.StorySeed + s.state.PreviousRandom)
	e := l.Entries()[next%l.Len()]
	s.state.PushEvaluationStack(value.ListValue(value.SingleItemList(e.Item, e.Value)))
	s.state.PreviousRandom = next
	return nil
}

// processChoice evaluates a choice point into a choice, or nil when the
// choice is hidden by its condition or has already been taken.
func (s *Story) processChoice(cp *content.ChoicePoint) (*flow.Choice, error) {
	show := true
	if cp.HasCondition {
		cond, err := s.popValue()
		if err != nil {
			return nil, err
		}
		ok, err := cond.IsTruthy()
		if err != nil {
			return nil, err
		}
		show = ok
	}

	var startText, choiceOnlyText string
	var tags []string
	var err error
	if cp.HasChoiceOnlyContent {
		if choiceOnlyText, tags, err = s.popChoiceStringAndTags(tags); err != nil {
			return nil, err
		}
	}
	if cp.HasStartContent {
		if startText, tags, err = s.popChoiceStringAndTags(tags); err != nil {
			return nil, err
		}
	}

	if cp.OnceOnly {
		target, ok := cp.ChoiceTarget()
		if !ok {
			return nil, pathNotFound("Choice target not found: "+cp.PathOnChoice.String(), cp.PathOnChoice)
		}
		n, err := s.state.VisitCount(target)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			show = false
		}
	}
	if !show {
		return nil, nil
	}

	return &flow.Choice{
		Text:               strings.Trim(startText+choiceOnlyText, " \t"),
		SourcePath:         content.PathOf(cp).String(),
		TargetPath:         cp.TargetPath(),
		IsInvisibleDefault: cp.IsInvisibleDefault,
		Tags:               tags,
		ThreadAtGeneration: s.state.CallStack().ForkThread(),
	}, nil
}

// popChoiceStringAndTags pops a string and any tags evaluated before it.
// Tags are prepended to tags so that earlier content keeps its order.
func (s *Story) popChoiceStringAndTags(tags []string) (string, []string, error) {
	obj, err := s.state.PopEvaluationStack()
	if err != nil {
		return "", tags, err
	}
	var text string
	if v, ok := obj.(*value.Value); ok && v.Type() == value.TypeString {
		text, _ = v.AsString()
	}
	for s.state.EvaluationStackHeight() > 0 {
		top, _ := s.state.PeekEvaluationStack()
		tag, ok := top.(*content.Tag)
		if !ok {
			break
		}
		s.state.PopEvaluationStack()
		tags = append([]string{tag.Text}, tags...)
	}
	return text, tags, nil
}
