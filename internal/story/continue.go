package story

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CanContinue reports whether Continue can produce more content.
func (s *Story) CanContinue() bool {
	return s.state.CanContinue()
}

// Continue runs the story until a complete line of text is available and
// returns it. When the story records a runtime error the text produced
// before the error is returned together with that error.
func (s *Story) Continue(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "story.Continue",
		trace.WithAttributes(attribute.String("storyloom.flow", s.state.CurrentFlowName())))
	defer span.End()

	if !s.CanContinue() {
		err := apperrors.New(apperrors.CodeCannotContinue, "Can't continue - should check CanContinue before calling Continue")
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if err := s.continueInternal(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	text := s.state.CurrentText()
	span.SetAttributes(
		attribute.Int("storyloom.text.length", len(text)),
		attribute.Int("storyloom.choices", len(s.CurrentChoices())),
	)
	if s.state.HasError() {
		errs := s.state.Errors()
		err := apperrors.WithMetadata(apperrors.CodeRuntime, errs[len(errs)-1],
			map[string]string{"errors": fmt.Sprint(len(errs))})
		span.SetStatus(codes.Error, err.Error())
		return text, err
	}
	return text, nil
}

// ContinueMaximally continues until the story runs out of content or
// reaches a choice, returning all the text produced.
func (s *Story) ContinueMaximally(ctx context.Context) (string, error) {
	var b strings.Builder
	for s.CanContinue() {
		text, err := s.Continue(ctx)
		b.WriteString(text)
		if err != nil {
			return b.String(), err
		}
	}
	return b.String(), nil
}

// continueInternal steps until a line is complete. Runtime errors are
// recorded in the state rather than returned; only cancellation is.
func (s *Story) continueInternal(ctx context.Context) error {
	s.continueDepth++
	defer func() { s.continueDepth-- }()

	s.state.DidSafeExit = false
	s.state.ResetOutput(nil)
	if s.continueDepth == 1 {
		s.state.Variables.StartBatch()
	}

	endsInNewline := false
	s.sawLookaheadUnsafeFunctionAfterNewline = false
	steps := 0
	for s.CanContinue() {
		if err := ctx.Err(); err != nil {
			if s.snapshot != nil {
				s.restoreSnapshot()
			}
			if s.continueDepth == 1 {
				s.state.Variables.EndBatch()
			}
			return err
		}
		if s.opts.stepLimit > 0 && steps >= s.opts.stepLimit {
			s.fail(apperrors.WithMetadata(apperrors.CodeStepLimitExceeded,
				fmt.Sprintf("step limit of %d exceeded while continuing", s.opts.stepLimit),
				map[string]string{"limit": fmt.Sprint(s.opts.stepLimit)}))
			break
		}
		steps++

		var err error
		endsInNewline, err = s.continueSingleStep()
		if err != nil {
			s.fail(err)
			break
		}
		if endsInNewline {
			break
		}
	}

	if endsInNewline || !s.CanContinue() {
		if s.snapshot != nil {
			s.restoreSnapshot()
			if s.state.HasError() {
				s.state.ForceEnd()
			}
		}
		if !s.CanContinue() {
			for _, msg := range s.endOfContentProblems() {
				s.fail(apperrors.New(apperrors.CodeRuntime, msg))
			}
		}
		s.state.DidSafeExit = false
		s.sawLookaheadUnsafeFunctionAfterNewline = false
		if s.continueDepth == 1 {
			s.state.Variables.EndBatch()
		}
	}
	return nil
}

// endOfContentProblems explains why the story stopped when it did not
// stop on purpose.
func (s *Story) endOfContentProblems() []string {
	cs := s.state.CallStack()
	var problems []string
	if cs.CanPopThread() {
		problems = append(problems, "Thread available to pop, threads should always be flat by the end of evaluation?")
	}
	if len(s.state.CurrentChoices()) > 0 || s.state.DidSafeExit {
		return problems
	}
	switch {
	case cs.CanPop(content.PushPopTunnel):
		problems = append(problems, "unexpectedly reached end of content. Do you need a '->->' to return from a tunnel?")
	case cs.CanPop(content.PushPopFunction):
		problems = append(problems, "unexpectedly reached end of content. Do you need a '~ return'?")
	case cs.Depth() == 1:
		problems = append(problems, "ran out of content. Do you need a '-> DONE' or '-> END'?")
	default:
		problems = append(problems, "unexpectedly reached end of content for unknown reason. Please debug compiler!")
	}
	return problems
}

func (s *Story) continueSingleStep() (bool, error) {
	if err := s.step(); err != nil {
		return false, err
	}
	if !s.CanContinue() && !s.state.CallStack().ElementIsEvaluateFromGame() {
		if err := s.tryFollowDefaultInvisibleChoice(); err != nil {
			return false, err
		}
	}

	if s.state.InStringEvaluation() {
		return false, nil
	}
	if s.snapshot != nil {
		change := newlineOutputStateChange(
			s.snapshot.CurrentText(), s.state.CurrentText(),
			len(s.snapshot.CurrentTags()), len(s.state.CurrentTags()))
		if change == extendedBeyondNewline || s.sawLookaheadUnsafeFunctionAfterNewline {
			s.restoreSnapshot()
			return true, nil
		}
		if change == newlineRemoved {
			s.snapshot = nil
		}
	}
	if s.state.OutputStreamEndsInNewline() {
		if s.CanContinue() {
			if s.snapshot == nil {
				s.takeSnapshot()
			}
		} else {
			s.snapshot = nil
		}
	}
	return false, nil
}

func (s *Story) takeSnapshot() {
	s.snapshot = s.state
	s.state = s.state.Copy()
}

// restoreSnapshot rewinds to the last newline. Problems recorded while
// looking ahead are kept.
func (s *Story) restoreSnapshot() {
	s.snapshot.CarryErrorsFrom(s.state)
	s.state = s.snapshot
	s.snapshot = nil
}

type outputStateChange int

const (
	noChange outputStateChange = iota
	extendedBeyondNewline
	newlineRemoved
)

// newlineOutputStateChange compares the text at the last newline with the
// text now, to decide whether the line ended for good.
func newlineOutputStateChange(prevText, currText string, prevTags, currTags int) outputStateChange {
	newlineStillExists := len(currText) >= len(prevText) && len(prevText) > 0 && currText[len(prevText)-1] == '\n'
	if prevTags == currTags && len(prevText) == len(currText) && newlineStillExists {
		return noChange
	}
	if !newlineStillExists {
		return newlineRemoved
	}
	if currTags > prevTags {
		return extendedBeyondNewline
	}
	for i := len(prevText); i < len(currText); i++ {
		if c := currText[i]; c != ' ' && c != '\t' {
			return extendedBeyondNewline
		}
	}
	return noChange
}

// StepResult describes the effect of a single Step.
type StepResult struct {
	// Output holds the objects appended to the output stream.
	Output []content.Object
	// NewChoices is set when the step generated at least one choice.
	NewChoices bool
	// Ended is set when the story can no longer continue.
	Ended bool
}

// Step executes exactly one content object. Unlike Continue it does not
// clear the output stream first and never looks ahead past a newline.
func (s *Story) Step() (StepResult, error) {
	if !s.CanContinue() {
		return StepResult{Ended: true}, apperrors.New(apperrors.CodeCannotContinue, "Can't continue - should check CanContinue before calling Step")
	}
	outBefore := len(s.state.OutputStream())
	choicesBefore := len(s.state.CurrentChoices())

	err := s.step()
	if err == nil && !s.CanContinue() && !s.state.CallStack().ElementIsEvaluateFromGame() {
		err = s.tryFollowDefaultInvisibleChoice()
	}
	if err != nil {
		s.fail(err)
	}

	var res StepResult
	if out := s.state.OutputStream(); len(out) > outBefore {
		res.Output = append([]content.Object(nil), out[outBefore:]...)
	}
	res.NewChoices = len(s.state.CurrentChoices()) > choicesBefore
	res.Ended = !s.CanContinue()
	return res, err
}
