package content

import "sort"

// Count flags stored in the compiled form of a container.
const (
	CountVisits        = 1
	CountTurns         = 2
	CountStartOnly     = 4
	countFlagsAllKnown = CountVisits | CountTurns | CountStartOnly
)

// Container is an ordered, optionally named node holding child objects.
// Children are addressable by index; named children and named-only
// sub-containers are also addressable by name.
type Container struct {
	Base
	Name string

	VisitsShouldBeCounted    bool
	TurnIndexShouldBeCounted bool
	CountingAtStartOnly      bool

	content []Object
	named   map[string]Object
}

// NewContainer creates an empty container.
func NewContainer(name string) *Container {
	return &Container{Name: name}
}

// AddContent appends children. Named containers also become reachable by
// name.
func (c *Container) AddContent(objs ...Object) {
	for _, obj := range objs {
		b := obj.base()
		b.parent = c
		b.index = len(c.content)
		c.content = append(c.content, obj)
		if sub, ok := obj.(*Container); ok && sub.Name != "" {
			c.addNamed(sub.Name, sub)
		}
	}
}

// AddNamedOnly adds a sub-container that is reachable by name but not part
// of the indexed content.
func (c *Container) AddNamedOnly(sub *Container) {
	b := sub.base()
	b.parent = c
	b.index = -1
	b.named = true
	c.addNamed(sub.Name, sub)
}

func (c *Container) addNamed(name string, obj Object) {
	if c.named == nil {
		c.named = make(map[string]Object)
	}
	c.named[name] = obj
}

// Content returns the indexed children. The slice must not be modified.
func (c *Container) Content() []Object {
	return c.content
}

// Len returns the number of indexed children.
func (c *Container) Len() int {
	return len(c.content)
}

// Named returns the child registered under name, indexed or not.
func (c *Container) Named(name string) (Object, bool) {
	obj, ok := c.named[name]
	return obj, ok
}

// NamedOnly returns the sub-containers that are reachable by name only,
// sorted by name.
func (c *Container) NamedOnly() []*Container {
	var out []*Container
	for _, obj := range c.named {
		if obj.base().named {
			if sub, ok := obj.(*Container); ok {
				out = append(out, sub)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CountFlags encodes the counting switches in their compiled form.
func (c *Container) CountFlags() int {
	flags := 0
	if c.VisitsShouldBeCounted {
		flags |= CountVisits
	}
	if c.TurnIndexShouldBeCounted {
		flags |= CountTurns
	}
	if c.CountingAtStartOnly {
		flags |= CountStartOnly
	}
	// Start-only counting is meaningless without a count to apply it to.
	if flags == CountStartOnly {
		flags = 0
	}
	return flags
}

// SetCountFlags decodes the compiled counting switches.
func (c *Container) SetCountFlags(flags int) {
	flags &= countFlagsAllKnown
	c.VisitsShouldBeCounted = flags&CountVisits != 0
	c.TurnIndexShouldBeCounted = flags&CountTurns != 0
	c.CountingAtStartOnly = flags&CountStartOnly != 0
}

// Path returns the absolute path of the container.
func (c *Container) Path() *Path {
	return PathOf(c)
}

// IndexOf returns the position of obj among the indexed children, or -1.
func (c *Container) IndexOf(obj Object) int {
	b := obj.base()
	if b.parent != c || b.index < 0 || b.index >= len(c.content) {
		return -1
	}
	return b.index
}

func (c *Container) childFor(comp Component) Object {
	switch {
	case comp.IsIndex():
		if comp.Index < len(c.content) {
			return c.content[comp.Index]
		}
		return nil
	case comp.IsParent():
		if c.parent == nil {
			return nil
		}
		return c.parent
	default:
		obj, ok := c.named[comp.Name]
		if !ok {
			return nil
		}
		return obj
	}
}

// ContentAtPath walks components [start, start+length) of p from c. A
// negative length means the rest of the path. When the walk cannot finish,
// the deepest object reached is returned with Approximate set.
func (c *Container) ContentAtPath(p *Path, start, length int) SearchResult {
	end := p.Len()
	if length >= 0 {
		end = start + length
	}
	result := SearchResult{}
	current := c
	var currentObj Object = c
	for i := start; i < end; i++ {
		if current == nil {
			result.Approximate = true
			break
		}
		found := current.childFor(p.Component(i))
		if found == nil {
			result.Approximate = true
			break
		}
		next, isContainer := found.(*Container)
		if i < end-1 && !isContainer {
			result.Approximate = true
			break
		}
		currentObj = found
		if isContainer {
			current = next
		} else {
			current = nil
		}
	}
	result.Object = currentObj
	return result
}

// PointerAtPath resolves an absolute path into an execution pointer. A path
// ending in an index points into its container at that index; any other
// path points at the container as a whole. The search result is returned
// so callers can report missing or approximated targets.
func (c *Container) PointerAtPath(p *Path) (Pointer, SearchResult) {
	if p.Len() == 0 {
		return NullPointer, SearchResult{}
	}
	last, _ := p.LastComponent()
	if last.IsIndex() {
		res := c.ContentAtPath(p, 0, p.Len()-1)
		container, _ := res.Container()
		if container == nil {
			return NullPointer, res
		}
		return Pointer{Container: container, Index: last.Index}, res
	}
	res := c.ContentAtPath(p, 0, -1)
	container, _ := res.Container()
	if container == nil {
		return NullPointer, res
	}
	return Pointer{Container: container, Index: -1}, res
}

// FirstLeafPath returns the path to the first non-container descendant.
func (c *Container) FirstLeafPath() *Path {
	p := c.Path()
	current := c
	for current != nil && len(current.content) > 0 {
		p = p.AppendComponent(IndexComponent(0))
		next, ok := current.content[0].(*Container)
		if !ok {
			break
		}
		current = next
	}
	return p
}
