// Package play exposes story sessions over gRPC.
package play

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/louisbranch/storyloom/internal/errors"
	"github.com/louisbranch/storyloom/internal/services/play/session"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service implements PlayServiceServer on top of a session manager.
type Service struct {
	sessions *session.Manager
}

// NewService creates a play service backed by sessions.
func NewService(sessions *session.Manager) *Service {
	return &Service{sessions: sessions}
}

// Start begins a new session and plays it to the first decision.
func (s *Service) Start(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Start()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "start session: %v", err)
	}
	turn, err := sess.Continue(ctx)
	if err := turnError(err); err != nil {
		return nil, err
	}
	return turnResponse(turn, map[string]any{
		"session_id": sess.ID,
		"story_id":   sess.StoryID,
	})
}

// Continue plays the session to its next decision.
func (s *Service) Continue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	turn, err := sess.Continue(ctx)
	if err := turnError(err); err != nil {
		return nil, err
	}
	return turnResponse(turn, nil)
}

// Choose takes a choice by index and plays to the next decision.
func (s *Service) Choose(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	index, ok := in.GetFields()["index"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "index is required")
	}
	n := index.GetNumberValue()
	if n != float64(int(n)) {
		return nil, status.Error(codes.InvalidArgument, "index must be an integer")
	}
	turn, err := sess.Choose(ctx, int(n))
	if err := turnError(err); err != nil {
		return nil, err
	}
	return turnResponse(turn, nil)
}

// Save writes the session state into a slot.
func (s *Service) Save(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	slot, err := requiredString(in, "slot")
	if err != nil {
		return nil, err
	}
	save, err := sess.Save(ctx, slot)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return structpb.NewStruct(map[string]any{
		"save": map[string]any{
			"id":         save.ID,
			"slot":       save.Slot,
			"flow":       save.FlowName,
			"turn":       save.Turn,
			"updated_at": save.UpdatedAt.Format(time.RFC3339Nano),
		},
	})
}

// Load restores the session from a slot and reports the pending choices.
func (s *Service) Load(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	slot, err := requiredString(in, "slot")
	if err != nil {
		return nil, err
	}
	turn, err := sess.Load(ctx, slot)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return turnResponse(turn, nil)
}

// SwitchFlow makes a flow current and plays it to its next decision.
func (s *Service) SwitchFlow(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	name, err := requiredString(in, "flow")
	if err != nil {
		return nil, err
	}
	turn, err := sess.SwitchFlow(ctx, name)
	if err := turnError(err); err != nil {
		return nil, err
	}
	current, alive := sess.Flows()
	return turnResponse(turn, map[string]any{
		"current_flow": current,
		"flows":        stringValues(alive),
	})
}

func (s *Service) check(in *structpb.Struct) error {
	if in == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	if s == nil || s.sessions == nil {
		return status.Error(codes.Internal, "session manager is not configured")
	}
	return nil
}

func (s *Service) session(in *structpb.Struct) (*session.Session, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	sessionID, err := requiredString(in, "session_id")
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, apperrors.HandleError(err)
	}
	return sess, nil
}

func requiredString(in *structpb.Struct, field string) (string, error) {
	value := strings.TrimSpace(in.GetFields()[field].GetStringValue())
	if value == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return value, nil
}

// turnError drops story runtime errors, which travel in the turn's errors
// field, and converts the rest.
func turnError(err error) error {
	if err == nil || apperrors.IsCode(err, apperrors.CodeRuntime) {
		return nil
	}
	return apperrors.HandleError(err)
}

func turnResponse(turn session.Turn, extra map[string]any) (*structpb.Struct, error) {
	lines := make([]any, 0, len(turn.Lines))
	for _, line := range turn.Lines {
		lines = append(lines, map[string]any{
			"text": line.Text,
			"tags": stringValues(line.Tags),
		})
	}
	choices := make([]any, 0, len(turn.Choices))
	for _, choice := range turn.Choices {
		choices = append(choices, map[string]any{
			"index": choice.Index,
			"text":  choice.Text,
			"tags":  stringValues(choice.Tags),
		})
	}
	fields := map[string]any{
		"text":     turn.Text(),
		"lines":    lines,
		"choices":  choices,
		"ended":    turn.Ended,
		"errors":   stringValues(turn.Errors),
		"warnings": stringValues(turn.Warnings),
	}
	for k, v := range extra {
		fields[k] = v
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode turn: %v", err)
	}
	return out, nil
}

func stringValues(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

var _ PlayServiceServer = (*Service)(nil)
