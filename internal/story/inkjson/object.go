package inkjson

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// ReadObject converts a token into a content object. A nil token yields a
// nil object.
func ReadObject(token any) (content.Object, error) {
	switch t := token.(type) {
	case nil:
		return nil, nil
	case bool:
		return value.Bool(t), nil
	case json.Number:
		return numberValue(t)
	case int:
		return value.Int(t), nil
	case float64:
		return value.Float(t), nil
	case string:
		return readString(t)
	case map[string]any:
		return readDict(t)
	case []any:
		return ReadContainer(t)
	default:
		return nil, formatError("unsupported token %T", token)
	}
}

func readString(s string) (content.Object, error) {
	if s == "" {
		return nil, formatError("empty string token")
	}
	if s[0] == '^' {
		return value.String(s[1:]), nil
	}
	if s == "\n" {
		return value.String("\n"), nil
	}
	if s == "<>" {
		return &content.Glue{}, nil
	}
	if cmd, ok := content.CommandByName(s); ok {
		return content.NewCommand(cmd), nil
	}
	name := s
	if name == "L^" {
		name = "^"
	}
	if _, ok := value.NativeArity(name); ok {
		return &content.NativeCall{Name: name}, nil
	}
	if s == "void" {
		return &content.Void{}, nil
	}
	return nil, formatError("unknown content token %q", s)
}

func readDict(obj map[string]any) (content.Object, error) {
	if v, ok := obj["^->"]; ok {
		s, err := String(v)
		if err != nil {
			return nil, err
		}
		return value.DivertTarget(content.ParsePath(s)), nil
	}
	if v, ok := obj["^var"]; ok {
		name, err := String(v)
		if err != nil {
			return nil, err
		}
		ctx := -1
		if ci, ok := obj["ci"]; ok {
			if ctx, err = Int(ci); err != nil {
				return nil, err
			}
		}
		return value.VariablePointer(name, ctx), nil
	}

	if d, ok, err := readDivert(obj); ok || err != nil {
		return d, err
	}

	if v, ok := obj["*"]; ok {
		s, err := String(v)
		if err != nil {
			return nil, err
		}
		cp := content.NewChoicePoint(content.ParsePath(s))
		if f, ok := obj["flg"]; ok {
			flags, err := Int(f)
			if err != nil {
				return nil, err
			}
			cp.SetFlags(flags)
		}
		return cp, nil
	}

	if v, ok := obj["VAR?"]; ok {
		name, err := String(v)
		if err != nil {
			return nil, err
		}
		return &content.VariableReference{Name: name}, nil
	}
	if v, ok := obj["CNT?"]; ok {
		s, err := String(v)
		if err != nil {
			return nil, err
		}
		return &content.VariableReference{PathForCount: content.ParsePath(s)}, nil
	}

	for key, global := range map[string]bool{"VAR=": true, "temp=": false} {
		v, ok := obj[key]
		if !ok {
			continue
		}
		name, err := String(v)
		if err != nil {
			return nil, err
		}
		_, reassign := obj["re"]
		return &content.VariableAssignment{Name: name, IsNewDeclaration: !reassign, IsGlobal: global}, nil
	}

	if v, ok := obj["#"]; ok {
		text, err := String(v)
		if err != nil {
			return nil, err
		}
		return &content.Tag{Text: text}, nil
	}

	if v, ok := obj["list"]; ok {
		return readList(v, obj["origins"])
	}

	return nil, formatError("unknown content object with keys %v", keys(obj))
}

var divertKeys = []struct {
	key      string
	pushes   bool
	pushType content.PushPopType
	external bool
}{
	{key: "->"},
	{key: "f()", pushes: true, pushType: content.PushPopFunction},
	{key: "->t->", pushes: true, pushType: content.PushPopTunnel},
	{key: "x()", external: true, pushType: content.PushPopFunction},
}

func readDivert(obj map[string]any) (content.Object, bool, error) {
	for _, dk := range divertKeys {
		v, ok := obj[dk.key]
		if !ok {
			continue
		}
		target, err := String(v)
		if err != nil {
			return nil, true, err
		}
		d := &content.Divert{
			PushesToStack: dk.pushes,
			StackPushType: dk.pushType,
			IsExternal:    dk.external,
		}
		if _, ok := obj["var"]; ok {
			d.VariableDivertName = target
		} else {
			d.TargetPath = content.ParsePath(target)
		}
		_, d.IsConditional = obj["c"]
		if dk.external {
			if n, ok := obj["exArgs"]; ok {
				if d.ExternalArgs, err = Int(n); err != nil {
					return nil, true, err
				}
			}
		}
		return d, true, nil
	}
	return nil, false, nil
}

func readList(token, origins any) (content.Object, error) {
	items, err := Object(token)
	if err != nil {
		return nil, err
	}
	l := value.NewList()
	if origins != nil {
		names, err := Array(origins)
		if err != nil {
			return nil, err
		}
		var originNames []string
		for _, n := range names {
			s, err := String(n)
			if err != nil {
				return nil, err
			}
			originNames = append(originNames, s)
		}
		l.SetOriginNames(originNames)
	}
	for full, v := range items {
		i, err := Int(v)
		if err != nil {
			return nil, err
		}
		l.Add(value.ParseListItem(full), i)
	}
	return value.ListValue(l), nil
}

// ReadObjects converts an array of tokens. With skipLast the final element
// (a container terminator) is ignored.
func ReadObjects(arr []any, skipLast bool) ([]content.Object, error) {
	n := len(arr)
	if skipLast {
		n--
	}
	out := make([]content.Object, 0, max(n, 0))
	for i := 0; i < n; i++ {
		obj, err := ReadObject(arr[i])
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		if obj == nil {
			return nil, formatError("index %d: null content", i)
		}
		out = append(out, obj)
	}
	return out, nil
}

// ReadContainer builds a container from its array form. The last element
// holds the named-only content, count flags and name, or is null.
func ReadContainer(arr []any) (*content.Container, error) {
	if len(arr) == 0 {
		return nil, formatError("container array is empty")
	}
	children, err := ReadObjects(arr, true)
	if err != nil {
		return nil, err
	}
	c := content.NewContainer("")

	var namedOnly []*content.Container
	if term := arr[len(arr)-1]; term != nil {
		obj, err := Object(term)
		if err != nil {
			return nil, fmt.Errorf("container terminator: %w", err)
		}
		for key, v := range obj {
			switch key {
			case "#f":
				flags, err := Int(v)
				if err != nil {
					return nil, err
				}
				c.SetCountFlags(flags)
			case "#n":
				name, err := String(v)
				if err != nil {
					return nil, err
				}
				c.Name = name
			default:
				arr, err := Array(v)
				if err != nil {
					return nil, fmt.Errorf("named content %q: %w", key, err)
				}
				sub, err := ReadContainer(arr)
				if err != nil {
					return nil, fmt.Errorf("named content %q: %w", key, err)
				}
				sub.Name = key
				namedOnly = append(namedOnly, sub)
			}
		}
	}

	c.AddContent(children...)
	for _, sub := range namedOnly {
		c.AddNamedOnly(sub)
	}
	return c, nil
}

// ReadValue converts a token that must hold a runtime value.
func ReadValue(token any) (*value.Value, error) {
	obj, err := ReadObject(token)
	if err != nil {
		return nil, err
	}
	v, ok := obj.(*value.Value)
	if !ok {
		return nil, formatError("expected value, got %T", obj)
	}
	return v, nil
}

// ReadValueMap reads an object of runtime values, such as variables.
func ReadValueMap(token any) (map[string]*value.Value, error) {
	obj, err := Object(token)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*value.Value, len(obj))
	for k, tok := range obj {
		v, err := ReadValue(tok)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// WriteValueMap writes an object of runtime values.
func WriteValueMap(m map[string]*value.Value) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		tok, err := WriteObject(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = tok
	}
	return out, nil
}

// WriteObject converts a content object into its token form.
func WriteObject(obj content.Object) (any, error) {
	switch o := obj.(type) {
	case nil:
		return nil, nil
	case *content.Container:
		return WriteContainer(o, false)
	case *value.Value:
		return writeValue(o)
	case *content.Divert:
		return writeDivert(o), nil
	case *content.ChoicePoint:
		return map[string]any{"*": o.PathOnChoice.String(), "flg": IntToken(o.Flags())}, nil
	case *content.ControlCommand:
		return o.Type.Name(), nil
	case *content.NativeCall:
		if o.Name == "^" {
			return "L^", nil
		}
		return o.Name, nil
	case *content.VariableReference:
		if o.PathForCount != nil {
			return map[string]any{"CNT?": o.PathForCount.String()}, nil
		}
		return map[string]any{"VAR?": o.Name}, nil
	case *content.VariableAssignment:
		key := "temp="
		if o.IsGlobal {
			key = "VAR="
		}
		out := map[string]any{key: o.Name}
		if !o.IsNewDeclaration {
			out["re"] = true
		}
		return out, nil
	case *content.Tag:
		return map[string]any{"#": o.Text}, nil
	case *content.Glue:
		return "<>", nil
	case *content.Void:
		return "void", nil
	default:
		return nil, formatError("cannot write content object %T", obj)
	}
}

func writeValue(v *value.Value) (any, error) {
	switch v.Type() {
	case value.TypeBool:
		b, _ := v.AsBool()
		return b, nil
	case value.TypeInt:
		i, _ := v.AsInt()
		return IntToken(i), nil
	case value.TypeFloat:
		f, _ := v.AsFloat()
		return FloatToken(f), nil
	case value.TypeString:
		if v.IsNewline() {
			return "\n", nil
		}
		s, _ := v.AsString()
		return "^" + s, nil
	case value.TypeDivertTarget:
		p, _ := v.AsDivertTarget()
		return map[string]any{"^->": p.String()}, nil
	case value.TypeVariablePointer:
		name, ctx, _ := v.AsVariablePointer()
		return map[string]any{"^var": name, "ci": IntToken(ctx)}, nil
	case value.TypeList:
		l, _ := v.AsList()
		items := make(map[string]any, l.Len())
		for _, e := range l.Entries() {
			items[e.Item.FullName()] = IntToken(e.Value)
		}
		out := map[string]any{"list": items}
		if l.Len() == 0 {
			if names := l.OriginNames(); len(names) > 0 {
				origins := make([]any, len(names))
				for i, n := range names {
					origins[i] = n
				}
				out["origins"] = origins
			}
		}
		return out, nil
	default:
		return nil, formatError("cannot write value of type %s", v.Type())
	}
}

func writeDivert(d *content.Divert) map[string]any {
	key := "->"
	switch {
	case d.IsExternal:
		key = "x()"
	case d.PushesToStack && d.StackPushType == content.PushPopFunction:
		key = "f()"
	case d.PushesToStack:
		key = "->t->"
	}
	out := map[string]any{}
	if d.HasVariableTarget() {
		out[key] = d.VariableDivertName
		out["var"] = true
	} else {
		out[key] = d.TargetPath.String()
	}
	if d.IsConditional {
		out["c"] = true
	}
	if d.IsExternal && d.ExternalArgs > 0 {
		out["exArgs"] = IntToken(d.ExternalArgs)
	}
	return out
}

// WriteObjects converts a sequence of objects.
func WriteObjects(objs []content.Object) ([]any, error) {
	out := make([]any, len(objs))
	for i, obj := range objs {
		tok, err := WriteObject(obj)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = tok
	}
	return out, nil
}

// WriteContainer converts a container into its array form. Named-only
// sub-containers are keyed by name, so their own name is omitted.
func WriteContainer(c *content.Container, withoutName bool) ([]any, error) {
	out, err := WriteObjects(c.Content())
	if err != nil {
		return nil, err
	}
	term := map[string]any{}
	for _, sub := range c.NamedOnly() {
		tok, err := WriteContainer(sub, true)
		if err != nil {
			return nil, fmt.Errorf("named content %q: %w", sub.Name, err)
		}
		term[sub.Name] = tok
	}
	if flags := c.CountFlags(); flags > 0 {
		term["#f"] = IntToken(flags)
	}
	if c.Name != "" && !withoutName {
		term["#n"] = c.Name
	}
	if len(term) == 0 {
		return append(out, nil), nil
	}
	return append(out, term), nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
