package scenario

import (
	"github.com/louisbranch/storyloom/internal/services/play/session"
)

// Playthrough is a scripted run through one story.
type Playthrough struct {
	Name      string
	StoryPath string
	Steps     []Step
}

// Step is one scripted action or expectation.
type Step struct {
	Kind string
	Args map[string]any
}

type playthroughState struct {
	session  *session.Session
	lastTurn session.Turn
	// pendingErr is the error of the last action, kept until an
	// expect_error step consumes it.
	pendingErr error
}
