package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a spec error code.
type ErrorCode string

const (
	ErrGenerationExhausted ErrorCode = "GENERATION_EXHAUSTED" // exit 4
	ErrTransportFailure    ErrorCode = "TRANSPORT_FAILURE"    // exit 4
	ErrUniquenessExhausted ErrorCode = "UNIQUENESS_EXHAUSTED" // exit 4
	ErrCredentialMissing   ErrorCode = "CREDENTIAL_MISSING"   // exit 4
	ErrPrecondition        ErrorCode = "PRECONDITION_FAILED"  // exit 3
	ErrConfig              ErrorCode = "CONFIG_ERROR"         // exit 2
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // exit 2
	ErrNotFound            ErrorCode = "NOT_FOUND"            // exit 2
	ErrGitFailed           ErrorCode = "GIT_FAILED"           // exit 5
	ErrInternal            ErrorCode = "INTERNAL"             // exit 1
)

// Process exit codes.
const (
	ExitSuccess        = 0
	ExitUnknown        = 1
	ExitConfigError    = 2
	ExitPrecheckFailed = 3
	ExitLLMError       = 4
	ExitGitError       = 5
)

// SpecError represents a structured error with code, message, and an optional hint.
type SpecError struct {
	Code    ErrorCode
	Message string
	Hint    string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *SpecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SpecError) Unwrap() error {
	return e.Cause
}

// ExitCode maps the error code to a process exit code.
func (e *SpecError) ExitCode() int {
	switch e.Code {
	case ErrGenerationExhausted, ErrTransportFailure, ErrUniquenessExhausted, ErrCredentialMissing:
		return ExitLLMError
	case ErrPrecondition:
		return ExitPrecheckFailed
	case ErrConfig, ErrInvalidRequest, ErrNotFound:
		return ExitConfigError
	case ErrGitFailed:
		return ExitGitError
	default:
		return ExitUnknown
	}
}

// NewGenerationExhausted creates an error for an inner retry budget consumed by
// invalid or duplicate model output. An empty reason omits the suffix.
func NewGenerationExhausted(attempts int, reason string) *SpecError {
	msg := fmt.Sprintf("failed to generate valid slug after %d attempts", attempts)
	if reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, reason)
	}
	return &SpecError{
		Code:    ErrGenerationExhausted,
		Message: msg,
		Details: map[string]any{"attempts": attempts, "reason": reason},
	}
}

// NewTransportFailure creates an error for a backend call that failed on the
// final permitted attempt.
func NewTransportFailure(attempts int, cause error) *SpecError {
	return &SpecError{
		Code:    ErrTransportFailure,
		Message: fmt.Sprintf("failed to generate slug after %d attempts: %v", attempts, cause),
		Details: map[string]any{"attempts": attempts},
		Cause:   cause,
	}
}

// NewUniquenessExhausted creates an error for an outer retry budget consumed by collisions.
func NewUniquenessExhausted(attempts int, rejected []string) *SpecError {
	return &SpecError{
		Code:    ErrUniquenessExhausted,
		Message: fmt.Sprintf("failed to generate unique slug after %d attempts", attempts),
		Hint:    "Try a more specific feature description.",
		Details: map[string]any{"attempts": attempts, "rejected": rejected},
	}
}

// NewCredentialMissing creates an error for a missing API credential.
func NewCredentialMissing(envVar string) *SpecError {
	return &SpecError{
		Code:    ErrCredentialMissing,
		Message: fmt.Sprintf("%s environment variable is required. Please set it before running this command.", envVar),
		Details: map[string]any{"env": envVar},
	}
}

// NewPrecondition creates an error for unmet repository preconditions.
func NewPrecondition(msg string) *SpecError {
	return &SpecError{
		Code:    ErrPrecondition,
		Message: msg,
	}
}

// NewConfig creates an error for a missing or invalid configuration.
func NewConfig(msg string) *SpecError {
	return &SpecError{
		Code:    ErrConfig,
		Message: msg,
	}
}

// NewInvalidRequest creates an error for invalid command input.
func NewInvalidRequest(msg string) *SpecError {
	return &SpecError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewNotFound creates an error for a feature or document that does not exist.
func NewNotFound(msg string) *SpecError {
	return &SpecError{
		Code:    ErrNotFound,
		Message: msg,
	}
}

// HTTPStatus maps the error code to an HTTP status for the web UI.
func (e *SpecError) HTTPStatus() int {
	switch e.Code {
	case ErrInvalidRequest:
		return 400
	case ErrNotFound:
		return 404
	case ErrPrecondition, ErrConfig:
		return 409
	default:
		return 500
	}
}

// NewGitFailed creates an error for a failed git operation.
// operation is a stable identifier such as "MERGE_FAILED".
func NewGitFailed(operation string, cause error, hint string) *SpecError {
	msg := "git operation failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &SpecError{
		Code:    ErrGitFailed,
		Message: msg,
		Hint:    hint,
		Details: map[string]any{"operation": operation},
		Cause:   cause,
	}
}

// NewInternal creates an error for unexpected internal errors.
func NewInternal(err error) *SpecError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SpecError{
		Code:    ErrInternal,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a SpecError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := As(err); ok {
		return sErr.Code == code
	}
	return false
}

// As returns the first SpecError in err's chain.
func As(err error) (*SpecError, bool) {
	var sErr *SpecError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// Operation returns the git operation recorded on a GIT_FAILED error, or "".
func Operation(err error) string {
	sErr, ok := As(err)
	if !ok || sErr.Details == nil {
		return ""
	}
	op, _ := sErr.Details["operation"].(string)
	return op
}

// ExitCodeOf maps any error to a process exit code.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if sErr, ok := As(err); ok {
		return sErr.ExitCode()
	}
	return ExitUnknown
}
