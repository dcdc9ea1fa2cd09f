// Package story runs compiled interactive stories: it steps through the
// content graph, produces lines of text and choices, and saves and restores
// the runtime state.
//
// A Story is not safe for concurrent use.
package story

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/random"
	"github.com/louisbranch/storyloom/internal/story/content"
	"github.com/louisbranch/storyloom/internal/story/inkjson"
	"github.com/louisbranch/storyloom/internal/story/state"
	"github.com/louisbranch/storyloom/internal/story/value"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/storyloom/internal/story"

// Story is a running instance of a compiled story.
type Story struct {
	root     *content.Container
	listDefs *value.ListDefinitions
	opts     options
	tracer   trace.Tracer
	paths    *lru.Cache[string, content.SearchResult]

	state *state.State

	// snapshot is the state as it was after the last newline, kept while
	// looking ahead for glue.
	snapshot *state.State

	sawLookaheadUnsafeFunctionAfterNewline bool
	continueDepth                          int

	externals map[string]externalFunction
	observers map[string][]VariableObserver
}

// New loads a compiled story and runs its global declarations.
func New(data []byte, opts ...Option) (*Story, error) {
	compiled, err := inkjson.ReadStory(data)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	paths, err := lru.New[string, content.SearchResult](o.pathCacheSize)
	if err != nil {
		return nil, fmt.Errorf("path cache: %w", err)
	}
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	s := &Story{
		root:      compiled.Root,
		listDefs:  compiled.ListDefs,
		opts:      o,
		tracer:    tracer,
		paths:     paths,
		externals: make(map[string]externalFunction),
		observers: make(map[string][]VariableObserver),
	}
	if err := s.ResetState(); err != nil {
		return nil, err
	}
	return s, nil
}

// ResetState discards all progress and starts the story over, rerunning
// the global declarations.
func (s *Story) ResetState() error {
	var seed int
	if s.opts.seed != nil {
		seed = *s.opts.seed
	} else {
		var err error
		if seed, err = random.NewStorySeed(); err != nil {
			return err
		}
	}
	s.state = state.New(s.root, s.listDefs, seed)
	s.state.SetCurrentPointer(content.StartOf(s.root))
	s.state.Variables.OnChange = s.notifyObservers
	s.snapshot = nil
	return s.resetGlobals()
}

func (s *Story) resetGlobals() error {
	if _, ok := s.root.Named("global decl"); ok {
		original := s.state.CurrentPointer()
		if err := s.choosePath(content.ParsePath("global decl"), false); err != nil {
			return err
		}
		s.continueInternal(context.Background())
		if s.state.HasError() {
			return apperrors.New(apperrors.CodeRuntime, s.state.Errors()[0])
		}
		s.state.SetCurrentPointer(original)
	}
	s.state.Variables.SnapshotDefaultGlobals()
	return nil
}

// Root returns the compiled story graph.
func (s *Story) Root() *content.Container {
	return s.root
}

// ListDefinitions returns the lists declared by the story.
func (s *Story) ListDefinitions() *value.ListDefinitions {
	return s.listDefs
}

// State exposes the runtime state for inspection.
func (s *Story) State() *state.State {
	return s.state
}

// CurrentText returns the text produced by the last Continue.
func (s *Story) CurrentText() string {
	return s.state.CurrentText()
}

// CurrentTags returns the tags produced by the last Continue.
func (s *Story) CurrentTags() []string {
	return s.state.CurrentTags()
}

// CurrentErrors returns the runtime errors recorded so far.
func (s *Story) CurrentErrors() []string {
	return s.state.Errors()
}

// CurrentWarnings returns the runtime warnings recorded so far.
func (s *Story) CurrentWarnings() []string {
	return s.state.Warnings()
}

// HasError reports whether a runtime error halted the story.
func (s *Story) HasError() bool {
	return s.state.HasError()
}

// HasWarning reports whether a runtime warning was recorded.
func (s *Story) HasWarning() bool {
	return s.state.HasWarning()
}

// ResetErrors clears the error and warning logs.
func (s *Story) ResetErrors() {
	s.state.ResetErrors()
}

// VisitCountAtPath returns how many times the container at path has been
// visited.
func (s *Story) VisitCountAtPath(path string) (int, error) {
	res := s.contentAtPath(content.ParsePath(path))
	c, ok := res.Container()
	if !ok || res.Approximate {
		return 0, apperrors.WithMetadata(apperrors.CodePathNotFound,
			"Content at path not found: "+path, map[string]string{"path": path})
	}
	return s.state.VisitCount(c)
}

// SaveState serializes the runtime state.
func (s *Story) SaveState(ctx context.Context) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "story.SaveState")
	defer span.End()

	data, err := s.state.WriteJSON()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("storyloom.snapshot.bytes", len(data)))
	return data, nil
}

// LoadState replaces the runtime state with a saved one. Positions that
// no longer match the story exactly are recorded as warnings.
func (s *Story) LoadState(ctx context.Context, data []byte) error {
	_, span := s.tracer.Start(ctx, "story.LoadState")
	defer span.End()

	if err := s.state.LoadJSON(data, s.warning); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	s.snapshot = nil
	return nil
}

// SwitchFlow makes the named flow current, creating it at the start of
// the story if needed.
func (s *Story) SwitchFlow(name string) error {
	return s.state.SwitchFlow(name)
}

// SwitchToDefaultFlow returns to the flow the story started in.
func (s *Story) SwitchToDefaultFlow() error {
	return s.state.SwitchToDefaultFlow()
}

// RemoveFlow discards a flow. The default flow cannot be removed.
func (s *Story) RemoveFlow(name string) error {
	return s.state.RemoveFlow(name)
}

// CurrentFlowName returns the name of the current flow.
func (s *Story) CurrentFlowName() string {
	return s.state.CurrentFlowName()
}

// CurrentFlowIsDefault reports whether the default flow is current.
func (s *Story) CurrentFlowIsDefault() bool {
	return s.state.CurrentFlowIsDefault()
}

// AliveFlowNames returns the names of the flows other than the default.
func (s *Story) AliveFlowNames() []string {
	return s.state.AliveFlowNames()
}
