package content

import "testing"

// buildGraph returns:
//
//	root: [ "ev", knotless[ "nop", "done" ] ] { knot: [ "/ev", stitch: ["end"] ] }
func buildGraph(t *testing.T) (*Container, *Container, *Container) {
	t.Helper()

	root := NewContainer("")
	inner := NewContainer("")
	inner.AddContent(NewCommand(CommandNoOp), NewCommand(CommandDone))
	root.AddContent(NewCommand(CommandEvalStart), inner)

	knot := NewContainer("knot")
	stitch := NewContainer("stitch")
	stitch.AddContent(NewCommand(CommandEnd))
	knot.AddContent(NewCommand(CommandEvalEnd))
	knot.AddNamedOnly(stitch)
	root.AddNamedOnly(knot)
	return root, knot, stitch
}

func TestParsePathRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		relative bool
		length   int
	}{
		{in: "knot.stitch.0", relative: false, length: 3},
		{in: ".^.c-0", relative: true, length: 2},
		{in: "0.1.2", relative: false, length: 3},
		{in: ".", relative: true, length: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			p := ParsePath(tt.in)
			if p.IsRelative() != tt.relative {
				t.Fatalf("relative = %v, want %v", p.IsRelative(), tt.relative)
			}
			if p.Len() != tt.length {
				t.Fatalf("len = %d, want %d", p.Len(), tt.length)
			}
			if got := p.String(); got != tt.in {
				t.Fatalf("String() = %q, want %q", got, tt.in)
			}
		})
	}
}

func TestPathAppendConsumesParents(t *testing.T) {
	t.Parallel()

	base := ParsePath("knot.stitch.3")
	got := base.Append(ParsePath("^.^.other.0"))
	if got.String() != "knot.other.0" {
		t.Fatalf("append = %q, want %q", got.String(), "knot.other.0")
	}
}

func TestContentAtPathExact(t *testing.T) {
	t.Parallel()
	root, _, stitch := buildGraph(t)

	res := root.ContentAtPath(ParsePath("knot.stitch.0"), 0, -1)
	if res.Approximate {
		t.Fatal("expected exact match")
	}
	obj, ok := res.CorrectObj()
	if !ok {
		t.Fatal("expected correct object")
	}
	if obj != stitch.Content()[0] {
		t.Fatalf("unexpected object %v", obj)
	}
	if _, ok := res.Container(); ok {
		t.Fatal("expected leaf, not container")
	}
}

func TestContentAtPathApproximate(t *testing.T) {
	t.Parallel()
	root, knot, _ := buildGraph(t)

	res := root.ContentAtPath(ParsePath("knot.missing.0"), 0, -1)
	if !res.Approximate {
		t.Fatal("expected approximate match")
	}
	if _, ok := res.CorrectObj(); ok {
		t.Fatal("approximate match must not yield a correct object")
	}
	c, ok := res.Container()
	if !ok || c != knot {
		t.Fatalf("expected deepest container knot, got %v", res.Object)
	}
}

func TestContentAtPathThroughLeafIsApproximate(t *testing.T) {
	t.Parallel()
	root, _, _ := buildGraph(t)

	res := root.ContentAtPath(ParsePath("0.1"), 0, -1)
	if !res.Approximate {
		t.Fatal("expected approximate match when walking through a leaf")
	}
	if res.Object != root {
		t.Fatalf("expected root as deepest container, got %v", res.Object)
	}
}

func TestPathOf(t *testing.T) {
	t.Parallel()
	root, knot, stitch := buildGraph(t)

	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{name: "root", obj: root, want: ""},
		{name: "indexed leaf", obj: root.Content()[1].(*Container).Content()[1], want: "1.1"},
		{name: "named only", obj: knot, want: "knot"},
		{name: "nested leaf", obj: stitch.Content()[0], want: "knot.stitch.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PathOf(tt.obj).String(); got != tt.want {
				t.Fatalf("PathOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveRelativePath(t *testing.T) {
	t.Parallel()
	_, knot, stitch := buildGraph(t)

	end := stitch.Content()[0]
	res := ResolvePath(end, ParsePath(".^.^.0"))
	obj, ok := res.CorrectObj()
	if !ok {
		t.Fatalf("expected exact match, got approximate %v", res.Object)
	}
	if obj != knot.Content()[0] {
		t.Fatalf("unexpected object %v", obj)
	}
}

func TestPointerResolve(t *testing.T) {
	t.Parallel()
	root, knot, _ := buildGraph(t)

	if !NullPointer.IsNull() || NullPointer.Resolve() != nil {
		t.Fatal("null pointer must resolve to nothing")
	}
	if got := StartOf(knot).Resolve(); got != knot.Content()[0] {
		t.Fatalf("StartOf(knot) = %v", got)
	}
	if got := (Pointer{Container: knot, Index: -1}).Resolve(); got != knot {
		t.Fatalf("container pointer = %v", got)
	}
	if got := (Pointer{Container: root, Index: 5}).Resolve(); got != nil {
		t.Fatalf("past-the-end pointer = %v", got)
	}
	if got := StartOf(knot).Path().String(); got != "knot.0" {
		t.Fatalf("path = %q", got)
	}
}

func TestPointerAtPath(t *testing.T) {
	t.Parallel()
	root, knot, stitch := buildGraph(t)

	ptr, res := root.PointerAtPath(ParsePath("knot.stitch"))
	if res.Approximate || ptr.Container != stitch || ptr.Index != -1 {
		t.Fatalf("pointer = %v, approximate = %v", ptr, res.Approximate)
	}

	ptr, res = root.PointerAtPath(ParsePath("knot.0"))
	if res.Approximate || ptr.Container != knot || ptr.Index != 0 {
		t.Fatalf("pointer = %v, approximate = %v", ptr, res.Approximate)
	}
}

func TestDivertTargetPointer(t *testing.T) {
	t.Parallel()
	_, knot, stitch := buildGraph(t)

	d := &Divert{TargetPath: ParsePath(".^.stitch")}
	knot.AddContent(d)
	if got := d.TargetPointer(); got.Container != stitch || got.Index != 0 {
		t.Fatalf("target pointer = %v", got)
	}
	if got := d.AbsoluteTargetPath().String(); got != "knot.stitch.0" {
		t.Fatalf("absolute target = %q", got)
	}
}

func TestTargetsRequireExactMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{name: "missing knot", path: "nowhere"},
		{name: "missing stitch", path: "knot.nope"},
		{name: "missing stitch with index", path: "knot.nope.0"},
		{name: "index past a command", path: "knot.0.stitch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root, _, _ := buildGraph(t)

			d := &Divert{TargetPath: ParsePath(tt.path)}
			cp := NewChoicePoint(ParsePath(tt.path))
			ref := &VariableReference{PathForCount: ParsePath(tt.path)}
			root.AddContent(d, cp, ref)

			if got := d.TargetPointer(); !got.IsNull() {
				t.Fatalf("TargetPointer() = %v, want null", got)
			}
			if got, ok := cp.ChoiceTarget(); ok {
				t.Fatalf("ChoiceTarget() = %v, want not found", got)
			}
			if got, ok := ref.ContainerForCount(); ok {
				t.Fatalf("ContainerForCount() = %v, want not found", got)
			}
		})
	}
}

func TestCountFlags(t *testing.T) {
	t.Parallel()

	c := NewContainer("c")
	c.SetCountFlags(CountVisits | CountStartOnly)
	if !c.VisitsShouldBeCounted || !c.CountingAtStartOnly || c.TurnIndexShouldBeCounted {
		t.Fatalf("unexpected flags %+v", c)
	}
	if c.CountFlags() != CountVisits|CountStartOnly {
		t.Fatalf("CountFlags = %d", c.CountFlags())
	}
	c.SetCountFlags(CountStartOnly)
	if c.CountFlags() != 0 {
		t.Fatalf("start-only flag alone should encode as 0, got %d", c.CountFlags())
	}
}

func TestCommandByName(t *testing.T) {
	t.Parallel()

	for i := CommandType(0); i < commandTypeCount; i++ {
		got, ok := CommandByName(i.Name())
		if !ok || got != i {
			t.Fatalf("CommandByName(%q) = %v, %v", i.Name(), got, ok)
		}
	}
	if _, ok := CommandByName("bogus"); ok {
		t.Fatal("expected unknown command")
	}
}
