package value

import (
	"sort"
	"strings"
)

// ListItem names one item of a list definition.
type ListItem struct {
	Origin string
	Name   string
}

// ParseListItem splits "Origin.item". A name without an origin yields an
// item with an empty origin.
func ParseListItem(full string) ListItem {
	origin, name, ok := strings.Cut(full, ".")
	if !ok {
		return ListItem{Name: full}
	}
	return ListItem{Origin: origin, Name: name}
}

// FullName returns "Origin.item", using "?" for an unknown origin.
func (i ListItem) FullName() string {
	origin := i.Origin
	if origin == "" {
		origin = "?"
	}
	return origin + "." + i.Name
}

// ListEntry is an item together with its numeric value.
type ListEntry struct {
	Item  ListItem
	Value int
}

// List is a set of list items, each carrying the value it has in its origin
// definition. Empty lists remember the names of the definitions they were
// drawn from so that LIST_ALL and LIST_INVERT keep working on them.
//
// Lists are built with Add and treated as immutable once wrapped in a
// Value; every operation returns a new list.
type List struct {
	items       map[ListItem]int
	originNames []string
}

// NewList returns an empty list.
func NewList() *List {
	return &List{items: make(map[ListItem]int)}
}

// SingleItemList returns a list holding one item.
func SingleItemList(item ListItem, v int) *List {
	l := NewList()
	l.Add(item, v)
	return l
}

// Copy returns an independent copy.
func (l *List) Copy() *List {
	out := NewList()
	for item, v := range l.items {
		out.items[item] = v
	}
	out.originNames = append([]string(nil), l.originNames...)
	return out
}

// Add inserts or updates an item.
func (l *List) Add(item ListItem, v int) {
	l.items[item] = v
}

// Len returns the number of items.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Contains reports whether item is present.
func (l *List) Contains(item ListItem) bool {
	_, ok := l.items[item]
	return ok
}

// ContainsItemNamed reports whether an item with the given name is present,
// from any origin.
func (l *List) ContainsItemNamed(name string) bool {
	for item := range l.items {
		if item.Name == name {
			return true
		}
	}
	return false
}

// Entries returns the items ordered by value, then by origin name.
func (l *List) Entries() []ListEntry {
	out := make([]ListEntry, 0, len(l.items))
	for item, v := range l.items {
		out = append(out, ListEntry{Item: item, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		if out[i].Item.Origin != out[j].Item.Origin {
			return out[i].Item.Origin < out[j].Item.Origin
		}
		return out[i].Item.Name < out[j].Item.Name
	})
	return out
}

// OriginNames returns the definitions the list draws from: the origins of
// its items, or the remembered names when it is empty.
func (l *List) OriginNames() []string {
	if len(l.items) == 0 {
		return append([]string(nil), l.originNames...)
	}
	seen := make(map[string]bool)
	var names []string
	for item := range l.items {
		if item.Origin != "" && !seen[item.Origin] {
			seen[item.Origin] = true
			names = append(names, item.Origin)
		}
	}
	sort.Strings(names)
	return names
}

// SetOriginNames records the definitions an empty list belongs to.
func (l *List) SetOriginNames(names []string) {
	l.originNames = append([]string(nil), names...)
}

// MaxItem returns the item with the highest value.
func (l *List) MaxItem() (ListEntry, bool) {
	entries := l.Entries()
	if len(entries) == 0 {
		return ListEntry{}, false
	}
	best := entries[len(entries)-1]
	for _, e := range entries {
		if e.Value == best.Value {
			return e, true
		}
	}
	return best, true
}

// MinItem returns the item with the lowest value.
func (l *List) MinItem() (ListEntry, bool) {
	entries := l.Entries()
	if len(entries) == 0 {
		return ListEntry{}, false
	}
	return entries[0], true
}

// MaxAsList returns a list holding only the highest item.
func (l *List) MaxAsList() *List {
	if e, ok := l.MaxItem(); ok {
		return SingleItemList(e.Item, e.Value)
	}
	return NewList()
}

// MinAsList returns a list holding only the lowest item.
func (l *List) MinAsList() *List {
	if e, ok := l.MinItem(); ok {
		return SingleItemList(e.Item, e.Value)
	}
	return NewList()
}

// Union returns the items of both lists.
func (l *List) Union(other *List) *List {
	out := l.Copy()
	for item, v := range other.items {
		out.items[item] = v
	}
	return out
}

// Intersect returns the items present in both lists.
func (l *List) Intersect(other *List) *List {
	out := NewList()
	for item, v := range l.items {
		if other.Contains(item) {
			out.items[item] = v
		}
	}
	return out
}

// Without returns l minus the items of other.
func (l *List) Without(other *List) *List {
	out := l.Copy()
	for item := range other.items {
		delete(out.items, item)
	}
	return out
}

// ContainsAll reports whether every item of other is in l. Empty lists
// never contain or are contained.
func (l *List) ContainsAll(other *List) bool {
	if other.Len() == 0 || l.Len() == 0 {
		return false
	}
	for item := range other.items {
		if !l.Contains(item) {
			return false
		}
	}
	return true
}

// GreaterThan reports whether every item of l is above every item of other.
func (l *List) GreaterThan(other *List) bool {
	if l.Len() == 0 {
		return false
	}
	if other.Len() == 0 {
		return true
	}
	lmin, _ := l.MinItem()
	omax, _ := other.MaxItem()
	return lmin.Value > omax.Value
}

// GreaterThanOrEqual compares the bounds of both lists.
func (l *List) GreaterThanOrEqual(other *List) bool {
	if l.Len() == 0 {
		return false
	}
	if other.Len() == 0 {
		return true
	}
	lmin, _ := l.MinItem()
	lmax, _ := l.MaxItem()
	omin, _ := other.MinItem()
	omax, _ := other.MaxItem()
	return lmin.Value >= omin.Value && lmax.Value >= omax.Value
}

// LessThan reports whether every item of l is below every item of other.
func (l *List) LessThan(other *List) bool {
	if other.Len() == 0 {
		return false
	}
	if l.Len() == 0 {
		return true
	}
	lmax, _ := l.MaxItem()
	omin, _ := other.MinItem()
	return lmax.Value < omin.Value
}

// LessThanOrEqual compares the bounds of both lists.
func (l *List) LessThanOrEqual(other *List) bool {
	if other.Len() == 0 {
		return false
	}
	if l.Len() == 0 {
		return true
	}
	lmin, _ := l.MinItem()
	lmax, _ := l.MaxItem()
	omin, _ := other.MinItem()
	omax, _ := other.MaxItem()
	return lmax.Value <= omax.Value && lmin.Value <= omin.Value
}

// Equal reports whether both lists hold the same items.
func (l *List) Equal(other *List) bool {
	if l.Len() != other.Len() {
		return false
	}
	for item := range l.items {
		if !other.Contains(item) {
			return false
		}
	}
	return true
}

// SubRange returns the items whose values fall within [lo, hi].
func (l *List) SubRange(lo, hi int) *List {
	if l.Len() == 0 {
		return NewList()
	}
	out := NewList()
	out.SetOriginNames(l.OriginNames())
	for item, v := range l.items {
		if v >= lo && v <= hi {
			out.items[item] = v
		}
	}
	return out
}

// Inverse returns the items of l's origin definitions that l does not hold.
func (l *List) Inverse(defs *ListDefinitions) *List {
	out := NewList()
	for _, def := range defs.forNames(l.OriginNames()) {
		for _, e := range def.Entries() {
			if !l.Contains(e.Item) {
				out.items[e.Item] = e.Value
			}
		}
	}
	out.SetOriginNames(l.OriginNames())
	return out
}

// All returns every item of l's origin definitions.
func (l *List) All(defs *ListDefinitions) *List {
	out := NewList()
	for _, def := range defs.forNames(l.OriginNames()) {
		for _, e := range def.Entries() {
			out.items[e.Item] = e.Value
		}
	}
	out.SetOriginNames(l.OriginNames())
	return out
}

// OriginOfMaxItem returns the definition of the highest item.
func (l *List) OriginOfMaxItem(defs *ListDefinitions) (*ListDefinition, bool) {
	top, ok := l.MaxItem()
	if !ok {
		return nil, false
	}
	return defs.Definition(top.Item.Origin)
}

// String lists the item names in value order.
func (l *List) String() string {
	var b strings.Builder
	for i, e := range l.Entries() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.Item.Name)
	}
	return b.String()
}

// ListDefinition is a named, ordered set of list items.
type ListDefinition struct {
	name  string
	items map[string]int
}

// NewListDefinition creates a definition from item names and values.
func NewListDefinition(name string, items map[string]int) *ListDefinition {
	def := &ListDefinition{name: name, items: make(map[string]int, len(items))}
	for k, v := range items {
		def.items[k] = v
	}
	return def
}

// Name returns the definition name.
func (d *ListDefinition) Name() string {
	return d.name
}

// Entries returns the items of the definition ordered by value.
func (d *ListDefinition) Entries() []ListEntry {
	out := make([]ListEntry, 0, len(d.items))
	for name, v := range d.items {
		out = append(out, ListEntry{Item: ListItem{Origin: d.name, Name: name}, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value < out[j].Value
		}
		return out[i].Item.Name < out[j].Item.Name
	})
	return out
}

// ValueForItem returns the value of item in this definition.
func (d *ListDefinition) ValueForItem(item ListItem) (int, bool) {
	if item.Origin != "" && item.Origin != d.name {
		return 0, false
	}
	v, ok := d.items[item.Name]
	return v, ok
}

// ItemWithValue returns the item holding v.
func (d *ListDefinition) ItemWithValue(v int) (ListItem, bool) {
	for _, e := range d.Entries() {
		if e.Value == v {
			return e.Item, true
		}
	}
	return ListItem{}, false
}

// ListDefinitions is the set of list definitions declared by a story.
type ListDefinitions struct {
	lists map[string]*ListDefinition
}

// NewListDefinitions indexes defs by name.
func NewListDefinitions(defs ...*ListDefinition) *ListDefinitions {
	out := &ListDefinitions{lists: make(map[string]*ListDefinition, len(defs))}
	for _, d := range defs {
		out.lists[d.name] = d
	}
	return out
}

// Definition looks up a definition by name.
func (d *ListDefinitions) Definition(name string) (*ListDefinition, bool) {
	if d == nil {
		return nil, false
	}
	def, ok := d.lists[name]
	return def, ok
}

// Definitions returns every definition sorted by name.
func (d *ListDefinitions) Definitions() []*ListDefinition {
	if d == nil {
		return nil
	}
	out := make([]*ListDefinition, 0, len(d.lists))
	for _, def := range d.lists {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// FindSingleItemList resolves "item" or "Origin.item" to a one-item list.
func (d *ListDefinitions) FindSingleItemList(name string) (*Value, bool) {
	if d == nil {
		return nil, false
	}
	if origin, itemName, ok := strings.Cut(name, "."); ok {
		def, found := d.lists[origin]
		if !found {
			return nil, false
		}
		item := ListItem{Origin: origin, Name: itemName}
		v, found := def.ValueForItem(item)
		if !found {
			return nil, false
		}
		return ListValue(SingleItemList(item, v)), true
	}
	for _, def := range d.Definitions() {
		item := ListItem{Origin: def.name, Name: name}
		if v, found := def.ValueForItem(item); found {
			return ListValue(SingleItemList(item, v)), true
		}
	}
	return nil, false
}

func (d *ListDefinitions) forNames(names []string) []*ListDefinition {
	var out []*ListDefinition
	for _, n := range names {
		if def, ok := d.Definition(n); ok {
			out = append(out, def)
		}
	}
	return out
}
