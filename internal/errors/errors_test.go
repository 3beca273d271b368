package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestSpecError_Error(t *testing.T) {
	err := &SpecError{
		Code:    ErrConfig,
		Message: "Configuration file not found",
	}

	expected := "CONFIG_ERROR: Configuration file not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewGenerationExhausted(t *testing.T) {
	err := NewGenerationExhausted(3, "Slug 'auth' already exists")

	if err.Code != ErrGenerationExhausted {
		t.Errorf("Code = %q, want %q", err.Code, ErrGenerationExhausted)
	}
	want := "failed to generate valid slug after 3 attempts: Slug 'auth' already exists"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
	if err.ExitCode() != ExitLLMError {
		t.Errorf("ExitCode() = %d, want %d", err.ExitCode(), ExitLLMError)
	}
}

func TestNewGenerationExhausted_NoReason(t *testing.T) {
	err := NewGenerationExhausted(0, "")

	want := "failed to generate valid slug after 0 attempts"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
	if strings.HasSuffix(err.Message, ":") {
		t.Errorf("Message has dangling suffix: %q", err.Message)
	}
}

func TestNewTransportFailure(t *testing.T) {
	cause := fmt.Errorf("context deadline exceeded")
	err := NewTransportFailure(2, cause)

	if err.Code != ErrTransportFailure {
		t.Errorf("Code = %q, want %q", err.Code, ErrTransportFailure)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected transport failure to wrap its cause")
	}
	if !strings.Contains(err.Message, "after 2 attempts: context deadline exceeded") {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewUniquenessExhausted(t *testing.T) {
	err := NewUniquenessExhausted(5, []string{"a", "b"})

	if err.Code != ErrUniquenessExhausted {
		t.Errorf("Code = %q, want %q", err.Code, ErrUniquenessExhausted)
	}
	if err.Message != "failed to generate unique slug after 5 attempts" {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Details["attempts"] != 5 {
		t.Errorf("Details[attempts] = %v, want 5", err.Details["attempts"])
	}
}

func TestNewGitFailed(t *testing.T) {
	err := NewGitFailed("MERGE_FAILED", fmt.Errorf("conflict"), "resolve manually")

	if err.Code != ErrGitFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrGitFailed)
	}
	if Operation(err) != "MERGE_FAILED" {
		t.Errorf("Operation() = %q, want MERGE_FAILED", Operation(err))
	}
	if err.Hint != "resolve manually" {
		t.Errorf("Hint = %q", err.Hint)
	}
}

func TestNewInternal_NilError(t *testing.T) {
	err := NewInternal(nil)

	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{"matching code", NewConfig("bad"), ErrConfig, true},
		{"different code", NewConfig("bad"), ErrInternal, false},
		{"wrapped", fmt.Errorf("create: %w", NewPrecondition("dirty")), ErrPrecondition, true},
		{"plain error", fmt.Errorf("plain"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExitCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generation", NewGenerationExhausted(3, "x"), ExitLLMError},
		{"transport", NewTransportFailure(3, fmt.Errorf("x")), ExitLLMError},
		{"uniqueness", NewUniquenessExhausted(5, nil), ExitLLMError},
		{"credential", NewCredentialMissing("OPENAI_API_KEY"), ExitLLMError},
		{"precondition", NewPrecondition("dirty"), ExitPrecheckFailed},
		{"config", NewConfig("missing"), ExitConfigError},
		{"invalid request", NewInvalidRequest("bad slug"), ExitConfigError},
		{"not found", NewNotFound("no such feature"), ExitConfigError},
		{"git", NewGitFailed("PUSH_FAILED", nil, ""), ExitGitError},
		{"internal", NewInternal(fmt.Errorf("boom")), ExitUnknown},
		{"plain", fmt.Errorf("boom"), ExitUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeOf(tt.err); got != tt.want {
				t.Errorf("ExitCodeOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *SpecError
		want int
	}{
		{NewInvalidRequest("bad"), 400},
		{NewNotFound("gone"), 404},
		{NewConfig("missing"), 409},
		{NewPrecondition("dirty"), 409},
		{NewInternal(nil), 500},
		{NewGitFailed("MERGE_FAILED", nil, ""), 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
