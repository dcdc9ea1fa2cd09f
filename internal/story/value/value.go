// Package value implements the tagged runtime values of the story engine:
// scalars, divert targets, variable pointers and lists, together with the
// built-in native functions that operate on them.
package value

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
)

// Type tags the payload of a Value. The order is significant: binary
// operations coerce both operands to the higher of their two types.
type Type int

const (
	TypeBool Type = iota
	TypeInt
	TypeFloat
	TypeList
	TypeString
	TypeDivertTarget
	TypeVariablePointer
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeList:
		return "List"
	case TypeString:
		return "String"
	case TypeDivertTarget:
		return "DivertTarget"
	case TypeVariablePointer:
		return "VariablePointer"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ErrTypeMismatch is matched (by code) by every failed narrowing.
var ErrTypeMismatch = apperrors.New(apperrors.CodeTypeMismatch, "value type mismatch")

func typeMismatch(want, got Type) error {
	return apperrors.WithMetadata(apperrors.CodeTypeMismatch,
		fmt.Sprintf("expected %s value, got %s", want, got),
		map[string]string{"want": want.String(), "got": got.String()})
}

// Value is an immutable tagged runtime value. Values found in the story
// graph carry their position like any other content object.
type Value struct {
	content.Base

	typ          Type
	b            bool
	i            int
	f            float64
	s            string
	path         *content.Path
	contextIndex int
	list         *List
}

// Bool returns a boolean value.
func Bool(b bool) *Value { return &Value{typ: TypeBool, b: b} }

// Int returns an integer value.
func Int(i int) *Value { return &Value{typ: TypeInt, i: i} }

// Float returns a floating point value.
func Float(f float64) *Value { return &Value{typ: TypeFloat, f: f} }

// String returns a text value.
func String(s string) *Value { return &Value{typ: TypeString, s: s} }

// DivertTarget returns a value holding a divert target path.
func DivertTarget(p *content.Path) *Value { return &Value{typ: TypeDivertTarget, path: p} }

// VariablePointer returns a reference to a variable. A context index of -1
// means the context is not yet known, 0 is the global scope and n > 0 is
// the call-stack frame n-1.
func VariablePointer(name string, contextIndex int) *Value {
	return &Value{typ: TypeVariablePointer, s: name, contextIndex: contextIndex}
}

// ListValue returns a value holding l. The list must not be modified
// afterwards.
func ListValue(l *List) *Value {
	if l == nil {
		l = NewList()
	}
	return &Value{typ: TypeList, list: l}
}

// Type returns the tag of the value.
func (v *Value) Type() Type { return v.typ }

// AsBool narrows to a boolean.
func (v *Value) AsBool() (bool, error) {
	if v.typ != TypeBool {
		return false, typeMismatch(TypeBool, v.typ)
	}
	return v.b, nil
}

// AsInt narrows to an integer.
func (v *Value) AsInt() (int, error) {
	if v.typ != TypeInt {
		return 0, typeMismatch(TypeInt, v.typ)
	}
	return v.i, nil
}

// AsFloat narrows to a float.
func (v *Value) AsFloat() (float64, error) {
	if v.typ != TypeFloat {
		return 0, typeMismatch(TypeFloat, v.typ)
	}
	return v.f, nil
}

// AsString narrows to text.
func (v *Value) AsString() (string, error) {
	if v.typ != TypeString {
		return "", typeMismatch(TypeString, v.typ)
	}
	return v.s, nil
}

// AsDivertTarget narrows to a divert target path.
func (v *Value) AsDivertTarget() (*content.Path, error) {
	if v.typ != TypeDivertTarget {
		return nil, typeMismatch(TypeDivertTarget, v.typ)
	}
	return v.path, nil
}

// AsVariablePointer narrows to a variable name and context index.
func (v *Value) AsVariablePointer() (string, int, error) {
	if v.typ != TypeVariablePointer {
		return "", 0, typeMismatch(TypeVariablePointer, v.typ)
	}
	return v.s, v.contextIndex, nil
}

// AsList narrows to a list.
func (v *Value) AsList() (*List, error) {
	if v.typ != TypeList {
		return nil, typeMismatch(TypeList, v.typ)
	}
	return v.list, nil
}

// IsNewline reports whether v is the single newline string.
func (v *Value) IsNewline() bool {
	return v.typ == TypeString && v.s == "\n"
}

// IsInlineWhitespace reports whether v is a string of spaces and tabs only.
func (v *Value) IsInlineWhitespace() bool {
	if v.typ != TypeString {
		return false
	}
	for _, r := range v.s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

// IsNonWhitespace reports whether v is a string with visible content.
func (v *Value) IsNonWhitespace() bool {
	return v.typ == TypeString && !v.IsNewline() && !v.IsInlineWhitespace()
}

// IsTruthy evaluates the value as a condition.
func (v *Value) IsTruthy() (bool, error) {
	switch v.typ {
	case TypeBool:
		return v.b, nil
	case TypeInt:
		return v.i != 0, nil
	case TypeFloat:
		return v.f != 0, nil
	case TypeString:
		return len(v.s) > 0, nil
	case TypeList:
		return v.list.Len() > 0, nil
	case TypeDivertTarget:
		return false, apperrors.New(apperrors.CodeRuntime, "Shouldn't be checking the truthiness of a divert target")
	default:
		return false, apperrors.New(apperrors.CodeRuntime, "Shouldn't be checking the truthiness of a variable pointer")
	}
}

// Cast converts v to t following the runtime coercion rules. Casting to the
// current type returns v unchanged.
func (v *Value) Cast(t Type) (*Value, error) {
	if t == v.typ {
		return v, nil
	}
	switch v.typ {
	case TypeBool:
		switch t {
		case TypeInt:
			return Int(boolToInt(v.b)), nil
		case TypeFloat:
			return Float(float64(boolToInt(v.b))), nil
		case TypeString:
			return String(v.String()), nil
		}
	case TypeInt:
		switch t {
		case TypeBool:
			return Bool(v.i != 0), nil
		case TypeFloat:
			return Float(float64(v.i)), nil
		case TypeString:
			return String(v.String()), nil
		}
	case TypeFloat:
		switch t {
		case TypeBool:
			return Bool(v.f != 0), nil
		case TypeInt:
			return Int(int(v.f)), nil
		case TypeString:
			return String(v.String()), nil
		}
	case TypeString:
		switch t {
		case TypeInt:
			if i, err := strconv.Atoi(strings.TrimSpace(v.s)); err == nil {
				return Int(i), nil
			}
		case TypeFloat:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
				return Float(f), nil
			}
		}
	}
	return nil, apperrors.WithMetadata(apperrors.CodeRuntime,
		fmt.Sprintf("Can't cast %s from %s to %s", v.String(), v.typ, t),
		map[string]string{"from": v.typ.String(), "to": t.String()})
}

// String renders the value the way it appears in story output.
func (v *Value) String() string {
	switch v.typ {
	case TypeBool:
		if v.b {
			return "true"
		}
		return "false"
	case TypeInt:
		return strconv.Itoa(v.i)
	case TypeFloat:
		return FormatFloat(v.f)
	case TypeString:
		return v.s
	case TypeList:
		return v.list.String()
	case TypeDivertTarget:
		return "DivertTargetValue(" + v.path.String() + ")"
	default:
		return fmt.Sprintf("VariablePointerValue(%s)", v.s)
	}
}

// Equal compares tag and payload.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeBool:
		return v.b == other.b
	case TypeInt:
		return v.i == other.i
	case TypeFloat:
		return v.f == other.f
	case TypeString:
		return v.s == other.s
	case TypeList:
		return v.list.Equal(other.list)
	case TypeDivertTarget:
		return v.path.Equal(other.path)
	default:
		return v.s == other.s && v.contextIndex == other.contextIndex
	}
}

// FromHost wraps a host value. Supported inputs are bool, the integer and
// float kinds, string, *List and *content.Path.
func FromHost(x any) (*Value, error) {
	switch t := x.(type) {
	case *Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(t), nil
	case int32:
		return Int(int(t)), nil
	case int64:
		return Int(int(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case *List:
		return ListValue(t.Copy()), nil
	case *content.Path:
		return DivertTarget(t), nil
	default:
		return nil, apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unsupported host value of type %T", x),
			map[string]string{"type": fmt.Sprintf("%T", x)})
	}
}

// Host unwraps the value for host code. Divert targets and variable
// pointers are returned as their textual names.
func (v *Value) Host() any {
	switch v.typ {
	case TypeBool:
		return v.b
	case TypeInt:
		return v.i
	case TypeFloat:
		return v.f
	case TypeString:
		return v.s
	case TypeList:
		return v.list.Copy()
	case TypeDivertTarget:
		return v.path.String()
	default:
		return v.s
	}
}

// FormatFloat renders f in its shortest decimal form.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RetainListOrigins returns the value to store when assigned replaces old:
// an empty list assigned over a list keeps the old list's origins.
func RetainListOrigins(old, assigned *Value) *Value {
	if old == nil || assigned == nil || old.typ != TypeList || assigned.typ != TypeList || assigned.list.Len() != 0 {
		return assigned
	}
	l := assigned.list.Copy()
	l.SetOriginNames(old.list.OriginNames())
	return ListValue(l)
}
