package story

import (
	"fmt"
)

// reportProblem records a runtime error or warning against the current
// position and logs it.
func (s *Story) reportProblem(msg string, warning bool) {
	kind := "ERROR"
	if warning {
		kind = "WARNING"
	}
	if ptr := s.state.CurrentPointer(); !ptr.IsNull() {
		msg = fmt.Sprintf("RUNTIME %s: (%s): %s", kind, ptr.Path(), msg)
	} else {
		msg = fmt.Sprintf("RUNTIME %s: %s", kind, msg)
	}
	s.state.AddError(msg, warning)
	s.opts.logger.Print(msg)
}

func (s *Story) warning(msg string) {
	s.reportProblem(msg, true)
}

// fail records err and halts the story.
func (s *Story) fail(err error) {
	s.reportProblem(err.Error(), false)
	s.state.ForceEnd()
}
