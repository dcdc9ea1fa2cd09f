// Package errors provides structured error handling for the narrative runtime.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Value errors
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// Content addressing errors
	CodePathNotFound    Code = "PATH_NOT_FOUND"
	CodePathApproximate Code = "PATH_APPROXIMATE"

	// Call stack errors
	CodeUnbalancedPop     Code = "UNBALANCED_POP"
	CodeThreadUnavailable Code = "THREAD_UNAVAILABLE"

	// Snapshot errors
	CodeSnapshotInvalid             Code = "SNAPSHOT_INVALID"
	CodeSnapshotChoiceThreadMissing Code = "SNAPSHOT_CHOICE_THREAD_MISSING"
	CodeSnapshotVersionUnsupported  Code = "SNAPSHOT_VERSION_UNSUPPORTED"

	// Compiled story errors
	CodeStoryFormatInvalid      Code = "STORY_FORMAT_INVALID"
	CodeStoryVersionUnsupported Code = "STORY_VERSION_UNSUPPORTED"

	// Execution errors
	CodeRuntime                 Code = "RUNTIME"
	CodeCannotContinue          Code = "CANNOT_CONTINUE"
	CodeChoiceOutOfRange        Code = "CHOICE_OUT_OF_RANGE"
	CodeStepLimitExceeded       Code = "STEP_LIMIT_EXCEEDED"
	CodeExternalFunctionUnbound Code = "EXTERNAL_FUNCTION_UNBOUND"
	CodeFunctionNotFound        Code = "FUNCTION_NOT_FOUND"
	CodeInvalidArgument         Code = "INVALID_ARGUMENT"
	CodeVariableNotFound        Code = "VARIABLE_NOT_FOUND"

	// Flow errors
	CodeFlowNotFound       Code = "FLOW_NOT_FOUND"
	CodeFlowDefaultRemoval Code = "FLOW_DEFAULT_REMOVAL"

	// Storage errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeTypeMismatch,
		CodePathNotFound,
		CodePathApproximate,
		CodeSnapshotInvalid,
		CodeSnapshotChoiceThreadMissing,
		CodeStoryFormatInvalid,
		CodeChoiceOutOfRange,
		CodeInvalidArgument,
		CodeFlowDefaultRemoval:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeUnbalancedPop,
		CodeThreadUnavailable,
		CodeRuntime,
		CodeCannotContinue,
		CodeExternalFunctionUnbound,
		CodeStepLimitExceeded:
		return codes.FailedPrecondition

	// Unimplemented - data produced by an unsupported format version
	case CodeSnapshotVersionUnsupported,
		CodeStoryVersionUnsupported:
		return codes.Unimplemented

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeSessionNotFound,
		CodeFlowNotFound,
		CodeFunctionNotFound,
		CodeVariableNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
