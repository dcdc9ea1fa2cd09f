// Package content models the immutable story graph: containers, the
// instructions they hold, and the paths and pointers that address them.
//
// A graph is built once by the loader and never mutated afterwards, so any
// number of flows and threads may share it without synchronization.
package content

// Object is any node of the story graph.
//
// The set of implementations is closed: only types embedding Base satisfy it.
type Object interface {
	Parent() *Container
	base() *Base
}

// Base carries the position of an object inside its parent container.
// Every graph node embeds it.
type Base struct {
	parent *Container
	index  int
	named  bool
}

// Parent returns the container holding the object, or nil for the root and
// for objects created at runtime.
func (b *Base) Parent() *Container {
	return b.parent
}

func (b *Base) base() *Base {
	return b
}

// Root walks up the parents of obj and returns the outermost container.
func Root(obj Object) *Container {
	var root *Container
	if c, ok := obj.(*Container); ok {
		root = c
	}
	for p := obj.Parent(); p != nil; p = p.Parent() {
		root = p
	}
	return root
}

// PathOf returns the absolute path of obj within its graph. Named containers
// contribute their name, everything else its index in the parent.
func PathOf(obj Object) *Path {
	if obj == nil || obj.Parent() == nil {
		return &Path{}
	}
	var comps []Component
	child := obj
	for parent := child.Parent(); parent != nil; parent = parent.Parent() {
		if c, ok := child.(*Container); ok && c.Name != "" {
			comps = append(comps, NameComponent(c.Name))
		} else {
			comps = append(comps, IndexComponent(child.base().index))
		}
		child = parent
	}
	for i, j := 0, len(comps)-1; i < j; i, j = i+1, j-1 {
		comps[i], comps[j] = comps[j], comps[i]
	}
	return &Path{components: comps}
}

// ResolvePath resolves p from the position of obj. Relative paths start at
// obj when it is a container, otherwise at its parent; absolute paths start
// at the root of the graph.
func ResolvePath(obj Object, p *Path) SearchResult {
	if !p.IsRelative() {
		return Root(obj).ContentAtPath(p, 0, -1)
	}
	nearest, ok := obj.(*Container)
	if !ok {
		nearest = obj.Parent()
		if nearest == nil {
			return SearchResult{Approximate: true}
		}
		p = p.Tail()
	}
	return nearest.ContentAtPath(p, 0, -1)
}

// resolveContainer resolves p from obj and narrows the result to a container,
// accepting exact matches only.
func resolveContainer(obj Object, p *Path) (*Container, bool) {
	found, ok := ResolvePath(obj, p).CorrectObj()
	if !ok {
		return nil, false
	}
	return AsContainer(found)
}

// AsContainer narrows obj to a container.
func AsContainer(obj Object) (*Container, bool) {
	c, ok := obj.(*Container)
	return c, ok && c != nil
}
