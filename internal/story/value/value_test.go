package value

import (
	"errors"
	"testing"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
)

func TestNarrowingRoundTrip(t *testing.T) {
	t.Parallel()

	path := content.ParsePath("knot.stitch")
	list := SingleItemList(ListItem{Origin: "Colors", Name: "red"}, 1)

	values := []*Value{
		Bool(true),
		Int(42),
		Float(1.5),
		String("hello"),
		DivertTarget(path),
		VariablePointer("x", 0),
		ListValue(list),
	}

	for _, v := range values {
		t.Run(v.Type().String(), func(t *testing.T) {
			t.Parallel()
			checks := map[Type]func() error{
				TypeBool:            func() error { _, err := v.AsBool(); return err },
				TypeInt:             func() error { _, err := v.AsInt(); return err },
				TypeFloat:           func() error { _, err := v.AsFloat(); return err },
				TypeString:          func() error { _, err := v.AsString(); return err },
				TypeDivertTarget:    func() error { _, err := v.AsDivertTarget(); return err },
				TypeVariablePointer: func() error { _, _, err := v.AsVariablePointer(); return err },
				TypeList:            func() error { _, err := v.AsList(); return err },
			}
			for typ, check := range checks {
				err := check()
				if typ == v.Type() {
					if err != nil {
						t.Fatalf("narrowing to own type %s failed: %v", typ, err)
					}
					continue
				}
				if !errors.Is(err, ErrTypeMismatch) {
					t.Fatalf("narrowing %s to %s: expected type mismatch, got %v", v.Type(), typ, err)
				}
				if !apperrors.IsCode(err, apperrors.CodeTypeMismatch) {
					t.Fatalf("expected code %s, got %s", apperrors.CodeTypeMismatch, apperrors.GetCode(err))
				}
			}
		})
	}
}

func TestNarrowingPreservesPayload(t *testing.T) {
	t.Parallel()

	if b, _ := Bool(true).AsBool(); !b {
		t.Fatal("bool payload lost")
	}
	if i, _ := Int(-7).AsInt(); i != -7 {
		t.Fatalf("int payload = %d", i)
	}
	if f, _ := Float(2.25).AsFloat(); f != 2.25 {
		t.Fatalf("float payload = %v", f)
	}
	if s, _ := String("abc").AsString(); s != "abc" {
		t.Fatalf("string payload = %q", s)
	}
	p := content.ParsePath("a.b")
	if got, _ := DivertTarget(p).AsDivertTarget(); got != p {
		t.Fatal("divert target payload lost")
	}
	if name, ctx, _ := VariablePointer("score", 2).AsVariablePointer(); name != "score" || ctx != 2 {
		t.Fatalf("pointer payload = %q %d", name, ctx)
	}
}

func TestNarrowingNeverCoerces(t *testing.T) {
	t.Parallel()

	if _, err := Int(1).AsFloat(); err == nil {
		t.Fatal("int must not narrow to float")
	}
	if _, err := Bool(true).AsInt(); err == nil {
		t.Fatal("bool must not narrow to int")
	}
}

func TestCast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   *Value
		to   Type
		want string
	}{
		{name: "bool to int", in: Bool(true), to: TypeInt, want: "1"},
		{name: "int to float", in: Int(3), to: TypeFloat, want: "3"},
		{name: "float to int truncates", in: Float(3.9), to: TypeInt, want: "3"},
		{name: "float to string", in: Float(1.5), to: TypeString, want: "1.5"},
		{name: "string to int", in: String("12"), to: TypeInt, want: "12"},
		{name: "bool to string", in: Bool(false), to: TypeString, want: "false"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.in.Cast(tt.to)
			if err != nil {
				t.Fatalf("cast: %v", err)
			}
			if got.Type() != tt.to || got.String() != tt.want {
				t.Fatalf("cast = %s %q, want %s %q", got.Type(), got.String(), tt.to, tt.want)
			}
		})
	}

	if _, err := String("nope").Cast(TypeInt); err == nil {
		t.Fatal("expected bad cast")
	}
}

func TestIsTruthy(t *testing.T) {
	t.Parallel()

	truthy := []*Value{Bool(true), Int(1), Float(0.5), String("x"), ListValue(SingleItemList(ListItem{Origin: "L", Name: "a"}, 1))}
	for _, v := range truthy {
		if ok, err := v.IsTruthy(); err != nil || !ok {
			t.Fatalf("%s should be truthy (err %v)", v, err)
		}
	}
	falsy := []*Value{Bool(false), Int(0), Float(0), String(""), ListValue(NewList())}
	for _, v := range falsy {
		if ok, err := v.IsTruthy(); err != nil || ok {
			t.Fatalf("%s should be falsy (err %v)", v, err)
		}
	}
	if _, err := DivertTarget(content.ParsePath("x")).IsTruthy(); err == nil {
		t.Fatal("divert targets have no truthiness")
	}
}

func TestFromHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want Type
	}{
		{in: true, want: TypeBool},
		{in: 3, want: TypeInt},
		{in: int64(3), want: TypeInt},
		{in: 2.5, want: TypeFloat},
		{in: "s", want: TypeString},
		{in: NewList(), want: TypeList},
	}
	for _, tt := range tests {
		v, err := FromHost(tt.in)
		if err != nil {
			t.Fatalf("FromHost(%v): %v", tt.in, err)
		}
		if v.Type() != tt.want {
			t.Fatalf("FromHost(%v) = %s, want %s", tt.in, v.Type(), tt.want)
		}
	}
	if _, err := FromHost(struct{}{}); !apperrors.IsCode(err, apperrors.CodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestValueIsContentObject(t *testing.T) {
	t.Parallel()

	root := content.NewContainer("")
	v := Int(5)
	root.AddContent(v)
	if v.Parent() != root {
		t.Fatal("value did not record its parent")
	}
	if got := content.PathOf(v).String(); got != "0" {
		t.Fatalf("path = %q", got)
	}
}
