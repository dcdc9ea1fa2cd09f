package story

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/flow"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// CurrentChoices returns the choices the player can pick, numbered in
// order. Invisible default choices are never offered.
func (s *Story) CurrentChoices() []*flow.Choice {
	var out []*flow.Choice
	for _, c := range s.state.CurrentChoices() {
		if c.IsInvisibleDefault {
			continue
		}
		c.Index = len(out)
		out = append(out, c)
	}
	return out
}

// ChooseChoiceIndex picks one of CurrentChoices. Execution resumes in the
// thread the choice was generated on.
func (s *Story) ChooseChoiceIndex(ctx context.Context, i int) error {
	_, span := s.tracer.Start(ctx, "story.ChooseChoiceIndex",
		trace.WithAttributes(attribute.Int("story.choice_index", i)))
	defer span.End()

	choices := s.CurrentChoices()
	if i < 0 || i >= len(choices) {
		err := apperrors.WithMetadata(apperrors.CodeChoiceOutOfRange,
			fmt.Sprintf("choice out of range: %d of %d", i, len(choices)),
			map[string]string{"index": strconv.Itoa(i), "count": strconv.Itoa(len(choices))})
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c := choices[i]
	span.SetAttributes(attribute.String("story.choice_target", c.TargetPath.String()))
	s.state.CallStack().SetCurrentThread(c.ThreadAtGeneration.Copy())
	if err := s.choosePath(c.TargetPath, true); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ChoosePathString jumps to a knot, stitch or other named path. args are
// pushed for a knot that takes parameters. With resetCallstack the current
// call stack is abandoned first.
func (s *Story) ChoosePathString(path string, resetCallstack bool, args ...any) error {
	if resetCallstack {
		s.state.ForceEnd()
	} else if cs := s.state.CallStack(); cs.CurrentElement().Type == content.PushPopFunction {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf(
			"Story was running a function (%s) when you called ChoosePathString(%s) - this is almost certainly not what you want! Full stack trace: \n%s",
			cs.CurrentElement().Pointer.Container.Path(), path, cs.Trace()))
	}

	vals, err := hostArgs(args)
	if err != nil {
		return err
	}
	for _, v := range vals {
		s.state.PushEvaluationStack(v)
	}
	return s.choosePath(content.ParsePath(path), true)
}

func (s *Story) choosePath(p *content.Path, incrementTurn bool) error {
	ptr, err := s.pointerAtPath(p)
	if err != nil {
		return err
	}
	s.state.SetChosenPath(ptr, incrementTurn)
	s.visitChangedContainersDueToDivert()
	return nil
}

// tryFollowDefaultInvisibleChoice takes the invisible default choice when it
// is the only kind of choice left.
func (s *Story) tryFollowDefaultInvisibleChoice() error {
	all := s.state.CurrentChoices()
	var invisible []*flow.Choice
	for _, c := range all {
		if c.IsInvisibleDefault {
			invisible = append(invisible, c)
		}
	}
	if len(invisible) == 0 || len(all) > len(invisible) {
		return nil
	}

	c := invisible[0]
	s.state.CallStack().SetCurrentThread(c.ThreadAtGeneration.Copy())
	return s.choosePath(c.TargetPath, false)
}

func hostArgs(args []any) ([]*value.Value, error) {
	vals := make([]*value.Value, len(args))
	for i, a := range args {
		v, err := value.FromHost(a)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInvalidArgument,
				"ink arguments must be int, float, string, bool or list", err)
		}
		vals[i] = v
	}
	return vals, nil
}
