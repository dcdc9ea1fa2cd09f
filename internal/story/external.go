package story

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/value"
)

// ExternalFunction is host code called from the story. Arguments arrive as
// host values (bool, int, float64, string or *value.List). A nil result
// means the function returns nothing.
type ExternalFunction func(args []any) (any, error)

type externalFunction struct {
	fn            ExternalFunction
	lookaheadSafe bool
}

// BindExternalFunction makes fn callable from the story as name. A function
// that is not lookaheadSafe is never run speculatively while the engine is
// checking whether a line has ended.
func (s *Story) BindExternalFunction(name string, fn ExternalFunction, lookaheadSafe bool) error {
	if fn == nil {
		return apperrors.New(apperrors.CodeInvalidArgument, "external function must not be nil")
	}
	if _, ok := s.externals[name]; ok {
		return apperrors.New(apperrors.CodeInvalidArgument, "Function '"+name+"' has already been bound.")
	}
	s.externals[name] = externalFunction{fn: fn, lookaheadSafe: lookaheadSafe}
	return nil
}

// UnbindExternalFunction removes a binding.
func (s *Story) UnbindExternalFunction(name string) error {
	if _, ok := s.externals[name]; !ok {
		return apperrors.New(apperrors.CodeExternalFunctionUnbound, "Function '"+name+"' has not been bound.")
	}
	delete(s.externals, name)
	return nil
}

// ValidateExternalBindings checks that every external function the story
// calls is either bound or, with fallbacks enabled, has a story function of
// the same name.
func (s *Story) ValidateExternalBindings() error {
	missing := make(map[string]bool)
	s.collectMissingExternals(s.root, missing)
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	suffix := "(ink fallbacks disabled)"
	if s.opts.allowExternalFunctionFallbacks {
		suffix = "and no fallback ink function found."
	}
	return apperrors.WithMetadata(apperrors.CodeExternalFunctionUnbound,
		fmt.Sprintf("Missing function binding for external %s: '%s' %s",
			plural(len(names), "function", "functions"), strings.Join(names, "', '"), suffix),
		map[string]string{"functions": strings.Join(names, ",")})
}

func (s *Story) collectMissingExternals(c *content.Container, missing map[string]bool) {
	visit := func(obj content.Object) {
		switch o := obj.(type) {
		case *content.Container:
			s.collectMissingExternals(o, missing)
		case *content.Divert:
			if !o.IsExternal || o.TargetPath == nil {
				return
			}
			name := o.TargetPath.String()
			if _, ok := s.externals[name]; ok {
				return
			}
			if s.opts.allowExternalFunctionFallbacks {
				if _, ok := s.knotContainerWithName(name); ok {
					return
				}
			}
			missing[name] = true
		}
	}
	for _, obj := range c.Content() {
		visit(obj)
	}
	for _, sub := range c.NamedOnly() {
		visit(sub)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// callExternalFunction runs a bound function with arguments popped from the
// evaluation stack, or diverts to the fallback story function.
func (s *Story) callExternalFunction(name string, numArgs int) error {
	ext, found := s.externals[name]
	if found && !ext.lookaheadSafe && s.snapshot != nil {
		s.sawLookaheadUnsafeFunctionAfterNewline = true
		return nil
	}

	if !found {
		if !s.opts.allowExternalFunctionFallbacks {
			return apperrors.WithMetadata(apperrors.CodeExternalFunctionUnbound,
				"Trying to call EXTERNAL function '"+name+"' which has not been bound (and ink fallbacks disabled).",
				map[string]string{"function": name})
		}
		fallback, ok := s.knotContainerWithName(name)
		if !ok {
			return apperrors.WithMetadata(apperrors.CodeExternalFunctionUnbound,
				"Trying to call EXTERNAL function '"+name+"' which has not been bound, and fallback ink function could not be found.",
				map[string]string{"function": name})
		}
		s.state.CallStack().Push(content.PushPopFunction, 0, len(s.state.OutputStream()))
		s.state.DivertedPointer = content.StartOf(fallback)
		return nil
	}

	objs, err := s.state.PopEvaluationStackN(numArgs)
	if err != nil {
		return err
	}
	args := make([]any, len(objs))
	for i, obj := range objs {
		v, ok := obj.(*value.Value)
		if !ok {
			return runtimeError(voidOperandMessage)
		}
		args[i] = v.Host()
	}

	result, err := ext.fn(args)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRuntime, "external function '"+name+"' failed: "+err.Error(), err)
	}
	if result == nil {
		s.state.PushEvaluationStack(&content.Void{})
		return nil
	}
	v, err := value.FromHost(result)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRuntime, "external function '"+name+"' returned an unsupported value", err)
	}
	s.state.PushEvaluationStack(v)
	return nil
}

// EvaluateFunction runs the story function name with args and returns its
// result and the text it printed. The story position and output are left as
// they were.
func (s *Story) EvaluateFunction(ctx context.Context, name string, args ...any) (any, string, error) {
	ctx, span := s.tracer.Start(ctx, "story.EvaluateFunction",
		trace.WithAttributes(attribute.String("story.function", name)))
	defer span.End()

	result, text, err := s.evaluateFunction(ctx, name, args)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return result, text, err
}

func (s *Story) evaluateFunction(ctx context.Context, name string, args []any) (any, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", apperrors.New(apperrors.CodeInvalidArgument, "Function is empty or white space.")
	}
	fn, ok := s.knotContainerWithName(name)
	if !ok {
		return nil, "", apperrors.WithMetadata(apperrors.CodeFunctionNotFound,
			"Function doesn't exist: '"+name+"'", map[string]string{"function": name})
	}
	vals, err := hostArgs(args)
	if err != nil {
		return nil, "", err
	}

	saved := append([]content.Object(nil), s.state.OutputStream()...)
	s.state.ResetOutput(nil)
	s.state.StartFunctionEvaluationFromGame(fn, vals)

	var b strings.Builder
	for s.CanContinue() {
		text, err := s.Continue(ctx)
		b.WriteString(text)
		if err != nil {
			s.state.ResetOutput(saved)
			return nil, b.String(), err
		}
	}
	s.state.ResetOutput(saved)

	result, err := s.state.CompleteFunctionEvaluationFromGame()
	if err != nil {
		return nil, b.String(), err
	}
	if result == nil {
		return nil, b.String(), nil
	}
	return result.Host(), b.String(), nil
}
