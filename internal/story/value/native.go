package value

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
)

var nativeArity = map[string]int{
	"+": 2, "-": 2, "/": 2, "*": 2, "%": 2,
	"_":  1,
	"==": 2, ">": 2, "<": 2, ">=": 2, "<=": 2, "!=": 2,
	"!":  1,
	"&&": 2, "||": 2,
	"MIN": 2, "MAX": 2, "POW": 2,
	"FLOOR": 1, "CEILING": 1, "INT": 1, "FLOAT": 1,
	"?": 2, "!?": 2, "^": 2,
	"LIST_MIN": 1, "LIST_MAX": 1, "LIST_ALL": 1, "LIST_COUNT": 1,
	"LIST_VALUE": 1, "LIST_INVERT": 1,
}

// NativeArity returns the number of parameters a native function takes.
func NativeArity(name string) (int, bool) {
	n, ok := nativeArity[name]
	return n, ok
}

func runtimeError(format string, args ...any) error {
	return apperrors.New(apperrors.CodeRuntime, fmt.Sprintf(format, args...))
}

// CallNative applies the native function name to args. Operands are
// coerced to the highest type among them; lists combined with other types
// follow their own rules. defs resolves list origins for the list
// functions that need them.
func CallNative(name string, args []*Value, defs *ListDefinitions) (*Value, error) {
	arity, ok := nativeArity[name]
	if !ok {
		return nil, runtimeError("unknown native function '%s'", name)
	}
	if len(args) != arity {
		return nil, runtimeError("Unexpected number of parameters to '%s': got %d, want %d", name, len(args), arity)
	}

	hasList := false
	for _, a := range args {
		if a.typ == TypeList {
			hasList = true
		}
	}
	if arity == 2 && hasList {
		return callBinaryList(name, args[0], args[1], defs)
	}

	coerced, err := coerce(args)
	if err != nil {
		return nil, err
	}
	switch coerced[0].typ {
	case TypeInt:
		return callInt(name, coerced)
	case TypeFloat:
		return callFloat(name, coerced)
	case TypeString:
		return callString(name, coerced)
	case TypeDivertTarget:
		return callDivertTarget(name, coerced)
	case TypeList:
		return callListUnary(name, coerced[0].list, defs)
	default:
		return nil, runtimeError("Cannot perform operation '%s' on %s", name, coerced[0].typ)
	}
}

func coerce(args []*Value) ([]*Value, error) {
	target := TypeInt
	for _, a := range args {
		if a.typ > target {
			target = a.typ
		}
	}
	out := make([]*Value, len(args))
	for i, a := range args {
		c, err := a.Cast(target)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func callInt(name string, args []*Value) (*Value, error) {
	x := args[0].i
	if len(args) == 1 {
		switch name {
		case "_":
			return Int(-x), nil
		case "!":
			return Bool(x == 0), nil
		case "FLOOR", "CEILING", "INT":
			return Int(x), nil
		case "FLOAT":
			return Float(float64(x)), nil
		}
		return nil, runtimeError("Cannot perform operation '%s' on Int", name)
	}
	y := args[1].i
	switch name {
	case "+":
		return Int(x + y), nil
	case "-":
		return Int(x - y), nil
	case "*":
		return Int(x * y), nil
	case "/":
		if y == 0 {
			return nil, runtimeError("Divide by zero")
		}
		return Int(x / y), nil
	case "%":
		if y == 0 {
			return nil, runtimeError("Divide by zero")
		}
		return Int(x % y), nil
	case "==":
		return Bool(x == y), nil
	case "!=":
		return Bool(x != y), nil
	case ">":
		return Bool(x > y), nil
	case "<":
		return Bool(x < y), nil
	case ">=":
		return Bool(x >= y), nil
	case "<=":
		return Bool(x <= y), nil
	case "&&":
		return Bool(x != 0 && y != 0), nil
	case "||":
		return Bool(x != 0 || y != 0), nil
	case "MIN":
		return Int(min(x, y)), nil
	case "MAX":
		return Int(max(x, y)), nil
	case "POW":
		return Float(math.Pow(float64(x), float64(y))), nil
	}
	return nil, runtimeError("Cannot perform operation '%s' on Int", name)
}

func callFloat(name string, args []*Value) (*Value, error) {
	x := args[0].f
	if len(args) == 1 {
		switch name {
		case "_":
			return Float(-x), nil
		case "!":
			return Bool(x == 0), nil
		case "FLOOR":
			return Float(math.Floor(x)), nil
		case "CEILING":
			return Float(math.Ceil(x)), nil
		case "INT":
			return Int(int(x)), nil
		case "FLOAT":
			return Float(x), nil
		}
		return nil, runtimeError("Cannot perform operation '%s' on Float", name)
	}
	y := args[1].f
	switch name {
	case "+":
		return Float(x + y), nil
	case "-":
		return Float(x - y), nil
	case "*":
		return Float(x * y), nil
	case "/":
		return Float(x / y), nil
	case "%":
		return Float(math.Mod(x, y)), nil
	case "==":
		return Bool(x == y), nil
	case "!=":
		return Bool(x != y), nil
	case ">":
		return Bool(x > y), nil
	case "<":
		return Bool(x < y), nil
	case ">=":
		return Bool(x >= y), nil
	case "<=":
		return Bool(x <= y), nil
	case "&&":
		return Bool(x != 0 && y != 0), nil
	case "||":
		return Bool(x != 0 || y != 0), nil
	case "MIN":
		return Float(math.Min(x, y)), nil
	case "MAX":
		return Float(math.Max(x, y)), nil
	case "POW":
		return Float(math.Pow(x, y)), nil
	}
	return nil, runtimeError("Cannot perform operation '%s' on Float", name)
}

func callString(name string, args []*Value) (*Value, error) {
	if len(args) == 2 {
		x, y := args[0].s, args[1].s
		switch name {
		case "+":
			return String(x + y), nil
		case "==":
			return Bool(x == y), nil
		case "!=":
			return Bool(x != y), nil
		case "?":
			return Bool(strings.Contains(x, y)), nil
		case "!?":
			return Bool(!strings.Contains(x, y)), nil
		}
	}
	return nil, runtimeError("Cannot perform operation '%s' on String", name)
}

func callDivertTarget(name string, args []*Value) (*Value, error) {
	if len(args) == 2 {
		switch name {
		case "==":
			return Bool(args[0].path.Equal(args[1].path)), nil
		case "!=":
			return Bool(!args[0].path.Equal(args[1].path)), nil
		}
	}
	return nil, runtimeError("Cannot perform operation '%s' on DivertTarget", name)
}

func callBinaryList(name string, a, b *Value, defs *ListDefinitions) (*Value, error) {
	if (name == "+" || name == "-") && a.typ == TypeList && b.typ == TypeInt {
		return listIncrement(name, a.list, b.i, defs), nil
	}
	if (name == "&&" || name == "||") && (a.typ != TypeList || b.typ != TypeList) {
		at, err := a.IsTruthy()
		if err != nil {
			return nil, err
		}
		bt, err := b.IsTruthy()
		if err != nil {
			return nil, err
		}
		if name == "&&" {
			return Bool(at && bt), nil
		}
		return Bool(at || bt), nil
	}
	if a.typ != TypeList || b.typ != TypeList {
		return nil, runtimeError("Can not call use '%s' operation on %s and %s", name, a.typ, b.typ)
	}
	x, y := a.list, b.list
	switch name {
	case "+":
		return ListValue(x.Union(y)), nil
	case "-":
		return ListValue(x.Without(y)), nil
	case "^":
		return ListValue(x.Intersect(y)), nil
	case "?":
		return Bool(x.ContainsAll(y)), nil
	case "!?":
		return Bool(!x.ContainsAll(y)), nil
	case "==":
		return Bool(x.Equal(y)), nil
	case "!=":
		return Bool(!x.Equal(y)), nil
	case ">":
		return Bool(x.GreaterThan(y)), nil
	case "<":
		return Bool(x.LessThan(y)), nil
	case ">=":
		return Bool(x.GreaterThanOrEqual(y)), nil
	case "<=":
		return Bool(x.LessThanOrEqual(y)), nil
	case "&&":
		return Bool(x.Len() > 0 && y.Len() > 0), nil
	case "||":
		return Bool(x.Len() > 0 || y.Len() > 0), nil
	}
	return nil, runtimeError("Cannot perform operation '%s' on List", name)
}

// listIncrement shifts every item by n within its own definition, dropping
// items that fall off either end.
func listIncrement(name string, l *List, n int, defs *ListDefinitions) *Value {
	if name == "-" {
		n = -n
	}
	out := NewList()
	for _, e := range l.Entries() {
		def, ok := defs.Definition(e.Item.Origin)
		if !ok {
			continue
		}
		target := e.Value + n
		if item, found := def.ItemWithValue(target); found {
			out.Add(item, target)
		}
	}
	return ListValue(out)
}

func callListUnary(name string, l *List, defs *ListDefinitions) (*Value, error) {
	switch name {
	case "!":
		if l.Len() == 0 {
			return Int(1), nil
		}
		return Int(0), nil
	case "LIST_INVERT":
		return ListValue(l.Inverse(defs)), nil
	case "LIST_ALL":
		return ListValue(l.All(defs)), nil
	case "LIST_MIN":
		return ListValue(l.MinAsList()), nil
	case "LIST_MAX":
		return ListValue(l.MaxAsList()), nil
	case "LIST_COUNT":
		return Int(l.Len()), nil
	case "LIST_VALUE":
		top, _ := l.MaxItem()
		return Int(top.Value), nil
	}
	return nil, runtimeError("Cannot perform operation '%s' on List", name)
}
