package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/louisbranch/storyloom/internal/services/play/session"
)

func (r *Runner) runStep(ctx context.Context, state *playthroughState, step Step) error {
	switch step.Kind {
	case "continue":
		turn, err := state.session.Continue(ctx)
		r.recordTurn(state, turn, err)
		return nil
	case "choose":
		n, ok := step.Args["choice"].(int)
		if !ok {
			return fmt.Errorf("choice must be an integer, got %v", step.Args["choice"])
		}
		turn, err := state.session.Choose(ctx, n-1)
		r.recordTurn(state, turn, err)
		return nil
	case "expect_text":
		return r.runExpectTextStep(state, step)
	case "expect_choices":
		return r.runExpectChoicesStep(state, step)
	case "expect_tags":
		return r.runExpectTagsStep(state, step)
	case "save":
		slot := argString(step, "slot")
		save, err := state.session.Save(ctx, slot)
		if err != nil {
			return fmt.Errorf("save %q: %w", slot, err)
		}
		r.logf("saved slot %s (turn %d, %d bytes)", save.Slot, save.Turn, len(save.Snapshot))
		return nil
	case "load":
		turn, err := state.session.Load(ctx, argString(step, "slot"))
		r.recordTurn(state, turn, err)
		return nil
	case "switch_flow":
		turn, err := state.session.SwitchFlow(ctx, argString(step, "flow"))
		r.recordTurn(state, turn, err)
		return nil
	case "set_var":
		name := argString(step, "name")
		if err := state.session.SetVariable(name, step.Args["value"]); err != nil {
			state.pendingErr = err
		}
		return nil
	case "expect_var":
		return r.runExpectVarStep(state, step)
	case "expect_error":
		return r.runExpectErrorStep(state, step)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) recordTurn(state *playthroughState, turn session.Turn, err error) {
	state.lastTurn = turn
	state.pendingErr = err
	if err != nil {
		r.logf("step error: %v", err)
	}
	for _, line := range turn.Lines {
		r.logf("> %s", strings.TrimSuffix(line.Text, "\n"))
	}
}

func (r *Runner) runExpectTextStep(state *playthroughState, step Step) error {
	want := strings.TrimSpace(argString(step, "text"))
	got := strings.TrimSpace(state.lastTurn.Text())
	if got != want {
		return r.assertions.Failf("text = %q, want %q", got, want)
	}
	return nil
}

func (r *Runner) runExpectChoicesStep(state *playthroughState, step Step) error {
	want, _ := step.Args["choices"].([]string)
	var got []string
	for _, choice := range state.lastTurn.Choices {
		got = append(got, choice.Text)
	}
	if !slices.Equal(got, want) {
		return r.assertions.Failf("choices = %q, want %q", got, want)
	}
	return nil
}

func (r *Runner) runExpectTagsStep(state *playthroughState, step Step) error {
	want, _ := step.Args["tags"].([]string)
	var got []string
	for _, line := range state.lastTurn.Lines {
		got = append(got, line.Tags...)
	}
	if !slices.Equal(got, want) {
		return r.assertions.Failf("tags = %q, want %q", got, want)
	}
	return nil
}

func (r *Runner) runExpectVarStep(state *playthroughState, step Step) error {
	name := argString(step, "name")
	got, ok := state.session.Variable(name)
	if !ok {
		return r.assertions.Failf("variable %s is not declared", name)
	}
	want := step.Args["value"]
	if fmt.Sprint(got) != fmt.Sprint(want) {
		return r.assertions.Failf("variable %s = %v, want %v", name, got, want)
	}
	return nil
}

func (r *Runner) runExpectErrorStep(state *playthroughState, step Step) error {
	err := state.pendingErr
	state.pendingErr = nil
	if err == nil {
		return r.assertions.Failf("expected an error, got none")
	}
	contains := argString(step, "contains")
	if contains != "" && !strings.Contains(err.Error(), contains) {
		return r.assertions.Failf("error = %q, want it to contain %q", err.Error(), contains)
	}
	return nil
}

func argString(step Step, key string) string {
	value, _ := step.Args[key].(string)
	return value
}
