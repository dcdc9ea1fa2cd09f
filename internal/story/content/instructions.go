package content

import "fmt"

// PushPopType tags a call-stack frame with the construct that pushed it.
type PushPopType int

const (
	PushPopTunnel PushPopType = iota
	PushPopFunction
	PushPopFunctionEvaluationFromGame
)

func (t PushPopType) String() string {
	switch t {
	case PushPopTunnel:
		return "Tunnel"
	case PushPopFunction:
		return "Function"
	case PushPopFunctionEvaluationFromGame:
		return "FunctionEvaluationFromGame"
	default:
		return fmt.Sprintf("PushPopType(%d)", int(t))
	}
}

// CommandType enumerates the control commands.
type CommandType int

const (
	CommandEvalStart CommandType = iota
	CommandEvalOutput
	CommandEvalEnd
	CommandDuplicate
	CommandPopEvaluatedValue
	CommandPopFunction
	CommandPopTunnel
	CommandBeginString
	CommandEndString
	CommandNoOp
	CommandChoiceCount
	CommandTurns
	CommandTurnsSince
	CommandReadCount
	CommandRandom
	CommandSeedRandom
	CommandVisitIndex
	CommandSequenceShuffleIndex
	CommandStartThread
	CommandDone
	CommandEnd
	CommandListFromInt
	CommandListRange
	CommandListRandom
	CommandBeginTag
	CommandEndTag
	commandTypeCount
)

var commandNames = [commandTypeCount]string{
	CommandEvalStart:            "ev",
	CommandEvalOutput:           "out",
	CommandEvalEnd:              "/ev",
	CommandDuplicate:            "du",
	CommandPopEvaluatedValue:    "pop",
	CommandPopFunction:          "~ret",
	CommandPopTunnel:            "->->",
	CommandBeginString:          "str",
	CommandEndString:            "/str",
	CommandNoOp:                 "nop",
	CommandChoiceCount:          "choiceCnt",
	CommandTurns:                "turn",
	CommandTurnsSince:           "turns",
	CommandReadCount:            "readc",
	CommandRandom:               "rnd",
	CommandSeedRandom:           "srnd",
	CommandVisitIndex:           "visit",
	CommandSequenceShuffleIndex: "seq",
	CommandStartThread:          "thread",
	CommandDone:                 "done",
	CommandEnd:                  "end",
	CommandListFromInt:          "listInt",
	CommandListRange:            "range",
	CommandListRandom:           "lrnd",
	CommandBeginTag:             "#",
	CommandEndTag:               "/#",
}

// CommandByName looks up a control command by its compiled name.
func CommandByName(name string) (CommandType, bool) {
	for i, n := range commandNames {
		if n == name {
			return CommandType(i), true
		}
	}
	return 0, false
}

// Name returns the compiled name of the command.
func (t CommandType) Name() string {
	if t < 0 || t >= commandTypeCount {
		return ""
	}
	return commandNames[t]
}

// ControlCommand is a marker instruction for the evaluator.
type ControlCommand struct {
	Base
	Type CommandType
}

// NewCommand creates a control command.
func NewCommand(t CommandType) *ControlCommand {
	return &ControlCommand{Type: t}
}

func (c *ControlCommand) String() string {
	return c.Type.Name()
}

// Divert transfers execution to a target path, a target held in a
// variable, or an external function.
type Divert struct {
	Base
	TargetPath         *Path
	VariableDivertName string
	PushesToStack      bool
	StackPushType      PushPopType
	IsExternal         bool
	ExternalArgs       int
	IsConditional      bool
}

// HasVariableTarget reports whether the target is read from a variable.
func (d *Divert) HasVariableTarget() bool {
	return d.VariableDivertName != ""
}

// TargetPointer resolves the static target relative to the divert. A target
// that only resolves approximately yields NullPointer.
func (d *Divert) TargetPointer() Pointer {
	if d.TargetPath == nil || d.TargetPath.Len() == 0 && !d.TargetPath.IsRelative() {
		return NullPointer
	}
	last, ok := d.TargetPath.LastComponent()
	if ok && last.IsIndex() {
		prefix := &Path{relative: d.TargetPath.relative, components: d.TargetPath.components[:d.TargetPath.Len()-1]}
		container, ok := resolveContainer(d, prefix)
		if !ok {
			return NullPointer
		}
		return Pointer{Container: container, Index: last.Index}
	}
	container, ok := resolveContainer(d, d.TargetPath)
	if !ok {
		return NullPointer
	}
	return StartOf(container)
}

// AbsoluteTargetPath returns the target as an absolute path when it can be
// resolved, otherwise the path as written.
func (d *Divert) AbsoluteTargetPath() *Path {
	if d.TargetPath == nil || !d.TargetPath.IsRelative() {
		return d.TargetPath
	}
	ptr := d.TargetPointer()
	if ptr.IsNull() {
		return d.TargetPath
	}
	return ptr.Path()
}

func (d *Divert) String() string {
	if d.HasVariableTarget() {
		return "Divert(variable: " + d.VariableDivertName + ")"
	}
	if d.TargetPath == nil {
		return "Divert(null)"
	}
	prefix := "Divert"
	switch {
	case d.IsExternal:
		prefix = "Divert EXTERNAL"
	case d.PushesToStack && d.StackPushType == PushPopFunction:
		prefix = "Divert function"
	case d.PushesToStack:
		prefix = "Divert tunnel"
	}
	return prefix + " -> " + d.TargetPath.String()
}

// Choice point flags in their compiled form.
const (
	ChoiceHasCondition         = 1
	ChoiceHasStartContent      = 2
	ChoiceHasChoiceOnlyContent = 4
	ChoiceIsInvisibleDefault   = 8
	ChoiceOnceOnly             = 16
)

// ChoicePoint generates a player-facing choice when evaluated.
type ChoicePoint struct {
	Base
	PathOnChoice         *Path
	HasCondition         bool
	HasStartContent      bool
	HasChoiceOnlyContent bool
	IsInvisibleDefault   bool
	OnceOnly             bool
}

// NewChoicePoint creates a choice point with the once-only default.
func NewChoicePoint(target *Path) *ChoicePoint {
	return &ChoicePoint{PathOnChoice: target, OnceOnly: true}
}

// ChoiceTarget resolves the container entered when the choice is taken.
func (c *ChoicePoint) ChoiceTarget() (*Container, bool) {
	if c.PathOnChoice == nil {
		return nil, false
	}
	return resolveContainer(c, c.PathOnChoice)
}

// TargetPath returns the absolute path of the choice target, falling back
// to the path as written when it cannot be resolved.
func (c *ChoicePoint) TargetPath() *Path {
	if c.PathOnChoice != nil && c.PathOnChoice.IsRelative() {
		if target, ok := c.ChoiceTarget(); ok {
			return target.Path()
		}
	}
	return c.PathOnChoice
}

// Flags encodes the switches in their compiled form.
func (c *ChoicePoint) Flags() int {
	flags := 0
	if c.HasCondition {
		flags |= ChoiceHasCondition
	}
	if c.HasStartContent {
		flags |= ChoiceHasStartContent
	}
	if c.HasChoiceOnlyContent {
		flags |= ChoiceHasChoiceOnlyContent
	}
	if c.IsInvisibleDefault {
		flags |= ChoiceIsInvisibleDefault
	}
	if c.OnceOnly {
		flags |= ChoiceOnceOnly
	}
	return flags
}

// SetFlags decodes the compiled switches.
func (c *ChoicePoint) SetFlags(flags int) {
	c.HasCondition = flags&ChoiceHasCondition != 0
	c.HasStartContent = flags&ChoiceHasStartContent != 0
	c.HasChoiceOnlyContent = flags&ChoiceHasChoiceOnlyContent != 0
	c.IsInvisibleDefault = flags&ChoiceIsInvisibleDefault != 0
	c.OnceOnly = flags&ChoiceOnceOnly != 0
}

// VariableAssignment pops the evaluation stack into a variable.
type VariableAssignment struct {
	Base
	Name             string
	IsNewDeclaration bool
	IsGlobal         bool
}

// VariableReference pushes a variable's value, or a container's read count
// when PathForCount is set.
type VariableReference struct {
	Base
	Name         string
	PathForCount *Path
}

// ContainerForCount resolves the container whose read count is referenced.
func (v *VariableReference) ContainerForCount() (*Container, bool) {
	if v.PathForCount == nil {
		return nil, false
	}
	return resolveContainer(v, v.PathForCount)
}

// Tag is a plain-text tag. Compiled stories produce tags through BeginTag
// and EndTag commands; this form is used for choice tags and legacy data.
type Tag struct {
	Base
	Text string
}

// Glue suppresses the newlines around it in the output stream.
type Glue struct {
	Base
}

// Void is the result of a function that returns nothing.
type Void struct {
	Base
}

// NativeCall invokes a built-in operator or function by name.
type NativeCall struct {
	Base
	Name string
}

func (n *NativeCall) String() string {
	return "Native '" + n.Name + "'"
}
