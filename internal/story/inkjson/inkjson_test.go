package inkjson

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

const sampleStory = `{"inkVersion":21,"root":[["^Hello ","ev",{"VAR?":"name"},"out","/ev","\n","ev","str","^Go left","/str","/ev",{"*":".^.c-0","flg":20},"ev",{"^->":"knot.0"},"/ev","pop",{"->":"knot"},"<>",{"#":"legacy"},"void",{"c-0":["\n",{"->t->":"knot"},{"#f":5}]}],"done",{"knot":[["ev",1,2.5,"+","L^","/ev",{"temp=":"x"},{"temp=":"x","re":true},{"CNT?":".^"},{"x()":"ext","exArgs":2},{"->":"gate","var":true,"c":true},"~ret",{"#f":3}],{"#f":1}],"global decl":["ev",{"list":{"Colors.red":1}},{"VAR=":"name"},{"^var":"name","ci":0},"/ev","end",null]}],"listDefs":{"Colors":{"red":1,"green":2}}}`

func TestReadStory(t *testing.T) {
	t.Parallel()

	s, err := ReadStory([]byte(sampleStory))
	if err != nil {
		t.Fatalf("read story: %v", err)
	}
	if s.InkVersion != 21 {
		t.Fatalf("version = %d", s.InkVersion)
	}
	if _, ok := s.ListDefs.Definition("Colors"); !ok {
		t.Fatal("missing list definition")
	}

	res := s.Root.ContentAtPath(content.ParsePath("0.c-0"), 0, -1)
	c, ok := res.Container()
	if !ok || res.Approximate {
		t.Fatalf("expected choice target container, got %v", res.Object)
	}
	if !c.VisitsShouldBeCounted || !c.CountingAtStartOnly {
		t.Fatalf("count flags not applied: %+v", c)
	}

	knotRes := s.Root.ContentAtPath(content.ParsePath("knot.0.4"), 0, -1)
	obj, ok := knotRes.CorrectObj()
	if !ok {
		t.Fatal("expected native call")
	}
	if n, ok := obj.(*content.NativeCall); !ok || n.Name != "^" {
		t.Fatalf("expected intersect native, got %#v", obj)
	}
}

func TestStoryRoundTrip(t *testing.T) {
	t.Parallel()

	s, err := ReadStory([]byte(sampleStory))
	if err != nil {
		t.Fatalf("read story: %v", err)
	}
	out, err := WriteStory(s)
	if err != nil {
		t.Fatalf("write story: %v", err)
	}

	want, err := Decode([]byte(sampleStory))
	if err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	got, err := Decode(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadStoryVersionChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		code apperrors.Code
	}{
		{name: "too new", data: `{"inkVersion":99,"root":[null]}`, code: apperrors.CodeStoryVersionUnsupported},
		{name: "too old", data: `{"inkVersion":10,"root":[null]}`, code: apperrors.CodeStoryVersionUnsupported},
		{name: "missing version", data: `{"root":[null]}`, code: apperrors.CodeStoryFormatInvalid},
		{name: "missing root", data: `{"inkVersion":21}`, code: apperrors.CodeStoryFormatInvalid},
		{name: "bad token", data: `{"inkVersion":21,"root":["bogus",null]}`, code: apperrors.CodeStoryFormatInvalid},
		{name: "not json", data: `{`, code: apperrors.CodeStoryFormatInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadStory([]byte(tt.data))
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestValueTokens(t *testing.T) {
	t.Parallel()

	l := value.NewList()
	l.SetOriginNames([]string{"Colors"})

	tests := []struct {
		name string
		in   *value.Value
		want string
	}{
		{name: "int", in: value.Int(3), want: `3`},
		{name: "whole float keeps point", in: value.Float(2), want: `2.0`},
		{name: "float", in: value.Float(0.25), want: `0.25`},
		{name: "string", in: value.String("hi"), want: `"^hi"`},
		{name: "newline", in: value.String("\n"), want: `"\n"`},
		{name: "divert target", in: value.DivertTarget(content.ParsePath("a.b")), want: `{"^->":"a.b"}`},
		{name: "pointer", in: value.VariablePointer("x", 2), want: `{"^var":"x","ci":2}`},
		{name: "empty list keeps origins", in: value.ListValue(l), want: `{"list":{},"origins":["Colors"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tok, err := WriteObject(tt.in)
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			data, err := Encode(tok)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if string(data) != tt.want {
				t.Fatalf("encoded = %s, want %s", data, tt.want)
			}

			back, err := Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			got, err := ReadValue(back)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if !got.Equal(tt.in) {
				t.Fatalf("read back %s(%s), want %s(%s)", got.Type(), got, tt.in.Type(), tt.in)
			}
		})
	}
}

func TestReadIntMap(t *testing.T) {
	t.Parallel()

	tok, err := Decode([]byte(`{"knot":2,"knot.stitch":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := ReadIntMap(tok)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"knot": 2, "knot.stitch": 1}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if _, err := ReadIntMap(map[string]any{"x": "nope"}); err == nil {
		t.Fatal("expected error for non-integer")
	}
}
