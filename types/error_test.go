package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("formats code and message", func(t *testing.T) {
		err := NewError(ErrContentNotFound, "content abc not found")
		assert.Equal(t, "[CONTENT_NOT_FOUND] content abc not found", err.Error())
	})

	t.Run("formats cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewError(ErrUpstreamError, "provider call failed").WithCause(cause)
		assert.Contains(t, err.Error(), "connection reset")
		assert.Equal(t, cause, errors.Unwrap(err))
	})

	t.Run("builder methods", func(t *testing.T) {
		err := NewError(ErrRateLimited, "slow down").
			WithHTTPStatus(429).
			WithRetryable(true)
		assert.Equal(t, 429, err.HTTPStatus)
		assert.True(t, IsRetryable(err))
	})

	t.Run("NewErrorf formats message", func(t *testing.T) {
		err := NewErrorf(ErrCycleNotFound, "cycle %d not found for content %s", 3, "c-1")
		assert.Equal(t, "cycle 3 not found for content c-1", err.Message)
	})

	t.Run("code extraction", func(t *testing.T) {
		assert.Equal(t, ErrMissingAggregate, GetErrorCode(NewError(ErrMissingAggregate, "x")))
		assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
		assert.True(t, IsCode(NewError(ErrNoFeedbackCollected, "x"), ErrNoFeedbackCollected))
		assert.False(t, IsCode(fmt.Errorf("wrapped: %w", errors.New("plain")), ErrNoFeedbackCollected))
	})
}

func TestCycleStatus(t *testing.T) {
	terminal := []CycleStatus{StatusApproved, StatusRejected, StatusError}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), string(s))
	}

	active := []CycleStatus{
		StatusDraft, StatusFocusGroupRunning, StatusFocusGroupComplete,
		StatusEditorRunning, StatusEditorComplete,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), string(s))
		assert.True(t, s.Valid(), string(s))
	}

	assert.False(t, CycleStatus("bogus").Valid())
}
