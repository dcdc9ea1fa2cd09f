package content

// Pointer is an execution cursor: a container and an index into it. An
// index of -1 addresses the container itself.
type Pointer struct {
	Container *Container
	Index     int
}

// NullPointer is the cursor with no position.
var NullPointer = Pointer{Index: -1}

// StartOf points at the first child of c.
func StartOf(c *Container) Pointer {
	return Pointer{Container: c, Index: 0}
}

// IsNull reports whether the pointer has no position.
func (p Pointer) IsNull() bool {
	return p.Container == nil
}

// Resolve returns the object under the cursor, or nil when it points past
// the end of its container.
func (p Pointer) Resolve() Object {
	if p.Container == nil {
		return nil
	}
	if p.Index < 0 || len(p.Container.content) == 0 {
		return p.Container
	}
	if p.Index >= len(p.Container.content) {
		return nil
	}
	return p.Container.content[p.Index]
}

// Path returns the absolute path of the cursor, or nil when null.
func (p Pointer) Path() *Path {
	if p.IsNull() {
		return nil
	}
	if p.Index >= 0 {
		return p.Container.Path().AppendComponent(IndexComponent(p.Index))
	}
	return p.Container.Path()
}

func (p Pointer) String() string {
	if p.IsNull() {
		return "Ptr(null)"
	}
	return "Ptr(" + p.Container.Path().String() + ", " + IndexComponent(max(p.Index, 0)).String() + ")"
}
