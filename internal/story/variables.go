package story

import (
	"fmt"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// VariableObserver is notified when a global variable changes. Changes made
// during a Continue are delivered once it returns, with the final value.
type VariableObserver func(name string, v any)

// Variable returns the host value of a global variable.
func (s *Story) Variable(name string) (any, bool) {
	v, ok := s.state.Variables.Get(name)
	if !ok {
		return nil, false
	}
	return v.Host(), true
}

// SetVariable assigns a declared global variable from a host value.
func (s *Story) SetVariable(name string, x any) error {
	v, err := value.FromHost(x)
	if err != nil {
		return err
	}
	return s.state.Variables.Set(name, v)
}

// VariableNames lists the declared global variables.
func (s *Story) VariableNames() []string {
	return s.state.Variables.GlobalNames()
}

// ObserveVariable registers fn for changes to a declared global variable.
func (s *Story) ObserveVariable(name string, fn VariableObserver) error {
	if fn == nil {
		return apperrors.New(apperrors.CodeInvalidArgument, "variable observer must not be nil")
	}
	if _, ok := s.state.Variables.Get(name); !ok {
		return apperrors.WithMetadata(apperrors.CodeVariableNotFound,
			fmt.Sprintf("Cannot observe variable '%s' because it wasn't declared in the ink story.", name),
			map[string]string{"variable": name})
	}
	s.observers[name] = append(s.observers[name], fn)
	return nil
}

// RemoveVariableObservers drops every observer of name.
func (s *Story) RemoveVariableObservers(name string) {
	delete(s.observers, name)
}

func (s *Story) notifyObservers(name string, v *value.Value) {
	fns := s.observers[name]
	if len(fns) == 0 {
		return
	}
	host := v.Host()
	for _, fn := range fns {
		fn(name, host)
	}
}
