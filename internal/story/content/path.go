package content

import (
	"strconv"
	"strings"
)

const parentID = "^"

// Component is one step of a Path: either a child index or a name.
type Component struct {
	Index int
	Name  string
}

// IndexComponent returns a positional component.
func IndexComponent(i int) Component {
	return Component{Index: i}
}

// NameComponent returns a named component.
func NameComponent(name string) Component {
	return Component{Index: -1, Name: name}
}

// ParentComponent returns the component that moves to the enclosing container.
func ParentComponent() Component {
	return NameComponent(parentID)
}

// IsIndex reports whether the component addresses a child by position.
func (c Component) IsIndex() bool {
	return c.Index >= 0
}

// IsParent reports whether the component moves up one container.
func (c Component) IsParent() bool {
	return c.Name == parentID
}

func (c Component) String() string {
	if c.IsIndex() {
		return strconv.Itoa(c.Index)
	}
	return c.Name
}

// Path addresses an object in the container tree. Relative paths are
// written with a leading dot and resolve from a base object.
type Path struct {
	components []Component
	relative   bool
}

// NewPath builds an absolute path from components.
func NewPath(comps ...Component) *Path {
	return &Path{components: append([]Component(nil), comps...)}
}

// ParsePath parses the dotted text form of a path, e.g. "knot.stitch.0" or
// ".^.c-0".
func ParsePath(s string) *Path {
	p := &Path{}
	if strings.HasPrefix(s, ".") {
		p.relative = true
		s = s[1:]
	}
	if s == "" {
		return p
	}
	for _, part := range strings.Split(s, ".") {
		if i, err := strconv.Atoi(part); err == nil && i >= 0 {
			p.components = append(p.components, IndexComponent(i))
		} else {
			p.components = append(p.components, NameComponent(part))
		}
	}
	return p
}

// SelfPath returns the relative path that points at its own base.
func SelfPath() *Path {
	return &Path{relative: true}
}

// IsRelative reports whether the path resolves from a base object.
func (p *Path) IsRelative() bool {
	return p.relative
}

// Len returns the number of components.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.components)
}

// Component returns the component at i.
func (p *Path) Component(i int) Component {
	return p.components[i]
}

// Components returns a copy of the components.
func (p *Path) Components() []Component {
	return append([]Component(nil), p.components...)
}

// Head returns the first component, or false for an empty path.
func (p *Path) Head() (Component, bool) {
	if p.Len() == 0 {
		return Component{}, false
	}
	return p.components[0], true
}

// LastComponent returns the final component, or false for an empty path.
func (p *Path) LastComponent() (Component, bool) {
	if p.Len() == 0 {
		return Component{}, false
	}
	return p.components[len(p.components)-1], true
}

// Tail drops the first component. The result is relative only when it is
// empty, matching a self reference.
func (p *Path) Tail() *Path {
	if p.Len() >= 2 {
		return &Path{components: append([]Component(nil), p.components[1:]...)}
	}
	return SelfPath()
}

// ContainsNamedComponent reports whether any component is a name.
func (p *Path) ContainsNamedComponent() bool {
	for _, c := range p.components {
		if !c.IsIndex() {
			return true
		}
	}
	return false
}

// Append joins other onto p, consuming leading parent components of other
// by dropping trailing components of p.
func (p *Path) Append(other *Path) *Path {
	upward := 0
	for _, c := range other.components {
		if !c.IsParent() {
			break
		}
		upward++
	}
	out := &Path{relative: p.relative}
	keep := len(p.components) - upward
	if keep > 0 {
		out.components = append(out.components, p.components[:keep]...)
	}
	out.components = append(out.components, other.components[upward:]...)
	return out
}

// AppendComponent returns p extended by c.
func (p *Path) AppendComponent(c Component) *Path {
	out := &Path{relative: p.relative, components: make([]Component, 0, len(p.components)+1)}
	out.components = append(out.components, p.components...)
	out.components = append(out.components, c)
	return out
}

// Equal compares paths component by component.
func (p *Path) Equal(other *Path) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.relative != other.relative || len(p.components) != len(other.components) {
		return false
	}
	for i := range p.components {
		if p.components[i] != other.components[i] {
			return false
		}
	}
	return true
}

// String returns the dotted form accepted by ParsePath.
func (p *Path) String() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if p.relative {
		b.WriteByte('.')
	}
	for i, c := range p.components {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(c.String())
	}
	return b.String()
}
