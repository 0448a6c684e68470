package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictErr(t *testing.T) {
	assert.NoError(t, Allow().Err())

	err := Reject(RejectPromptInjection, 0.95).Err()
	require.Error(t, err)
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, RejectPromptInjection, ae.Verdict.Reason)
	assert.Contains(t, err.Error(), "prompt-injection")
}

func TestCollaboratorError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("generate turn: %w", &CollaboratorError{Op: "generate", Err: cause})

	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "generate", ce.Op)
	assert.ErrorIs(t, err, cause)
}

func TestIsCollaboratorTimeout(t *testing.T) {
	timeout := &CollaboratorError{Op: "classify_intent", Timeout: true, Err: errors.New("deadline")}
	failure := &CollaboratorError{Op: "classify_intent", Err: errors.New("boom")}

	assert.True(t, IsCollaboratorTimeout(timeout))
	assert.False(t, IsCollaboratorTimeout(failure))
	assert.False(t, IsCollaboratorTimeout(errors.New("plain")))
	assert.Contains(t, timeout.Error(), "timeout")
	assert.Contains(t, failure.Error(), "error")
}

func TestVersionConflictSentinel(t *testing.T) {
	wrapped := fmt.Errorf("conversation c1 at v3, expected v2: %w", ErrVersionConflict)

	assert.ErrorIs(t, wrapped, ErrVersionConflict)
}
