package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFocusError_ErrorIncludesCodeAndMessage(t *testing.T) {
	err := &FocusError{Code: ErrNotFound, Status: 404, Message: "project not found"}
	assert.Equal(t, "NOT_FOUND: project not found", err.Error())
}

func TestFocusError_ErrorIncludesWrappedCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := &FocusError{Code: ErrUnavailable, Status: 503, Message: "db unreachable", Err: cause}
	assert.Contains(t, err.Error(), "db unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFocusError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := &FocusError{Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("query is required")
	assert.Equal(t, ErrInvalidRequest, err.Code)
	assert.Equal(t, 400, err.Status)
	assert.Equal(t, "query is required", err.Message)
	assert.False(t, err.Retryable)
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("project", "focusd")
	assert.Equal(t, ErrNotFound, err.Code)
	assert.Equal(t, 404, err.Status)
	assert.Equal(t, "focusd", err.Details["identifier"])
	assert.Contains(t, err.Message, "project")
	assert.Contains(t, err.Message, "focusd")
}

func TestNewConflict(t *testing.T) {
	err := NewConflict("job already claimed")
	assert.Equal(t, ErrConflict, err.Code)
	assert.Equal(t, 409, err.Status)
}

func TestNewUnavailable_IsRetryable(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := NewUnavailable("model call failed", cause)
	assert.Equal(t, ErrUnavailable, err.Code)
	assert.Equal(t, 503, err.Status)
	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
}

func TestNewInternal_GenericMessageNeverLeaksCause(t *testing.T) {
	cause := fmt.Errorf("database connection string contains a secret")
	err := NewInternal(cause)
	assert.Equal(t, ErrInternal, err.Code)
	assert.Equal(t, 500, err.Status)
	assert.Equal(t, "internal error", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestNewInternal_NilCause(t *testing.T) {
	err := NewInternal(nil)
	assert.Equal(t, "internal error", err.Message)
	assert.Nil(t, err.Err)
}

func TestIs_MatchesCodeDirectlyAndWhenWrapped(t *testing.T) {
	err := NewNotFound("skill", "deploy")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))

	wrapped := fmt.Errorf("loading skill: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))

	assert.False(t, Is(fmt.Errorf("plain error"), ErrNotFound))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewUnavailable("down", nil)))
	assert.False(t, IsRetryable(NewInvalidRequest("bad")))
	assert.True(t, IsRetryable(ErrModelDisabled))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}
