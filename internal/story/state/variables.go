package state

import (
	"sort"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/callstack"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// Variables resolves global and temporary variables. Temporaries live in
// the frames of the current flow's call stack.
type Variables struct {
	globals   map[string]*value.Value
	defaults  map[string]*value.Value
	callStack *callstack.CallStack
	listDefs  *value.ListDefinitions

	// OnChange is called with the new value of a global that changed. While
	// a batch is open, notifications are held until it closes.
	OnChange func(name string, v *value.Value)

	batching bool
	changed  []string
}

func newVariables(cs *callstack.CallStack, listDefs *value.ListDefinitions) *Variables {
	return &Variables{
		globals:   make(map[string]*value.Value),
		defaults:  make(map[string]*value.Value),
		callStack: cs,
		listDefs:  listDefs,
	}
}

func (vs *Variables) copyFor(cs *callstack.CallStack) *Variables {
	out := &Variables{
		globals:   make(map[string]*value.Value, len(vs.globals)),
		defaults:  vs.defaults,
		callStack: cs,
		listDefs:  vs.listDefs,
		OnChange:  vs.OnChange,
		batching:  vs.batching,
		changed:   append([]string(nil), vs.changed...),
	}
	for k, v := range vs.globals {
		out.globals[k] = v
	}
	return out
}

// SnapshotDefaultGlobals records the current globals as the declared
// defaults. Globals equal to their default are left out of saves.
func (vs *Variables) SnapshotDefaultGlobals() {
	vs.defaults = make(map[string]*value.Value, len(vs.globals))
	for k, v := range vs.globals {
		vs.defaults[k] = v
	}
}

// Get returns the value of a global variable.
func (vs *Variables) Get(name string) (*value.Value, bool) {
	if v, ok := vs.globals[name]; ok {
		return v, true
	}
	v, ok := vs.defaults[name]
	return v, ok
}

// Set assigns a declared global variable from host code.
func (vs *Variables) Set(name string, v *value.Value) error {
	if _, ok := vs.defaults[name]; !ok {
		return apperrors.WithMetadata(apperrors.CodeVariableNotFound,
			"Cannot assign to a variable ("+name+") that hasn't been declared in the story",
			map[string]string{"variable": name})
	}
	vs.setGlobal(name, v)
	return nil
}

// GlobalNames returns the declared global variable names, sorted.
func (vs *Variables) GlobalNames() []string {
	names := make([]string, 0, len(vs.defaults))
	for k := range vs.defaults {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// StartBatch holds change notifications until EndBatch.
func (vs *Variables) StartBatch() {
	vs.batching = true
	vs.changed = nil
}

// EndBatch sends one notification per global changed during the batch,
// with its final value.
func (vs *Variables) EndBatch() {
	vs.batching = false
	changed := vs.changed
	vs.changed = nil
	if vs.OnChange == nil {
		return
	}
	for _, name := range changed {
		if v, ok := vs.globals[name]; ok {
			vs.OnChange(name, v)
		}
	}
}

func (vs *Variables) globalExists(name string) bool {
	if _, ok := vs.globals[name]; ok {
		return true
	}
	_, ok := vs.defaults[name]
	return ok
}

// Assign stores v as instructed by an assignment in the story. Assigning
// through a variable pointer writes to the variable it points at.
func (vs *Variables) Assign(a *content.VariableAssignment, v *value.Value) error {
	if v == nil {
		return apperrors.New(apperrors.CodeRuntime, "Can't assign a void value to variable "+a.Name)
	}
	name := a.Name
	contextIndex := -1
	setGlobal := a.IsGlobal
	if !a.IsNewDeclaration {
		setGlobal = vs.globalExists(name)
	}

	if a.IsNewDeclaration {
		if v.Type() == value.TypeVariablePointer {
			v = vs.ResolveVariablePointer(v)
		}
	} else {
		for {
			existing, ok := vs.rawValue(name, contextIndex)
			if !ok || existing.Type() != value.TypeVariablePointer {
				break
			}
			name, contextIndex, _ = existing.AsVariablePointer()
			setGlobal = contextIndex == 0
		}
	}

	if setGlobal {
		vs.setGlobal(name, v)
		return nil
	}
	return vs.callStack.SetTemporaryVariable(name, v, a.IsNewDeclaration, contextIndex)
}

func (vs *Variables) setGlobal(name string, v *value.Value) {
	old := vs.globals[name]
	v = value.RetainListOrigins(old, v)
	vs.globals[name] = v
	if v.Equal(old) {
		return
	}
	if vs.batching {
		for _, n := range vs.changed {
			if n == name {
				return
			}
		}
		vs.changed = append(vs.changed, name)
		return
	}
	if vs.OnChange != nil {
		vs.OnChange(name, v)
	}
}

// Value returns the value of a variable as seen from contextIndex (-1 for
// the current frame), following variable pointers.
func (vs *Variables) Value(name string, contextIndex int) (*value.Value, bool) {
	v, ok := vs.rawValue(name, contextIndex)
	if !ok {
		return nil, false
	}
	if v.Type() == value.TypeVariablePointer {
		target, ctx, _ := v.AsVariablePointer()
		return vs.Value(target, ctx)
	}
	return v, true
}

func (vs *Variables) rawValue(name string, contextIndex int) (*value.Value, bool) {
	if contextIndex == 0 || contextIndex == -1 {
		if v, ok := vs.globals[name]; ok {
			return v, true
		}
		if v, ok := vs.defaults[name]; ok {
			return v, true
		}
		if vs.listDefs != nil {
			if v, ok := vs.listDefs.FindSingleItemList(name); ok {
				return v, true
			}
		}
	}
	return vs.callStack.TemporaryVariable(name, contextIndex)
}

// ResolveVariablePointer pins ptr to a concrete context. A pointer to a
// variable that is itself a pointer resolves to that pointer, so
// references passed through several calls keep their original target.
func (vs *Variables) ResolveVariablePointer(ptr *value.Value) *value.Value {
	name, contextIndex, _ := ptr.AsVariablePointer()
	if contextIndex == -1 {
		contextIndex = vs.contextIndexOf(name)
	}
	if v, ok := vs.rawValue(name, contextIndex); ok && v.Type() == value.TypeVariablePointer {
		return v
	}
	return value.VariablePointer(name, contextIndex)
}

func (vs *Variables) contextIndexOf(name string) int {
	if vs.globalExists(name) {
		return 0
	}
	return vs.callStack.ContextForVariableNamed(name)
}

// WriteJSON serializes the globals that differ from their defaults.
func (vs *Variables) WriteJSON() (map[string]any, error) {
	changed := make(map[string]*value.Value)
	for name, v := range vs.globals {
		if def, ok := vs.defaults[name]; ok && def.Equal(v) {
			continue
		}
		changed[name] = v
	}
	return inkjson.WriteValueMap(changed)
}

// LoadJSON restores the globals: every declared global takes its saved
// value, or its default when the save does not mention it.
func (vs *Variables) LoadJSON(obj map[string]any) error {
	saved, err := inkjson.ReadValueMap(obj)
	if err != nil {
		return err
	}
	vs.globals = make(map[string]*value.Value, len(vs.defaults))
	for name, def := range vs.defaults {
		if v, ok := saved[name]; ok {
			vs.globals[name] = v
			continue
		}
		vs.globals[name] = def
	}
	return nil
}
