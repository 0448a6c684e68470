package fallback

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angiesanchezm/genai-music/core"
)

func noSleep(o *Options) {
	o.Sleep = func(context.Context, time.Duration) error { return nil }
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	c := New(noSleep)

	attempts := 0
	err := c.Do(context.Background(), "generate", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustionWrapsCollaboratorError(t *testing.T) {
	c := New(noSleep)

	attempts := 0
	err := c.Do(context.Background(), "classify_intent", func(context.Context) error {
		attempts++
		return errors.New("provider down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	var ce *core.CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "classify_intent", ce.Op)
	assert.False(t, ce.Timeout)
}

func TestDo_TimeoutClassGetsTimeoutFlag(t *testing.T) {
	c := New(noSleep)

	err := c.Do(context.Background(), "generate", func(context.Context) error {
		return context.DeadlineExceeded
	})

	require.Error(t, err)
	var ce *core.CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Timeout)
	assert.True(t, core.IsCollaboratorTimeout(err))
}

func TestDo_ConflictReturnsImmediately(t *testing.T) {
	c := New(noSleep)

	attempts := 0
	err := c.Do(context.Background(), "commit", func(context.Context) error {
		attempts++
		return fmt.Errorf("conv at v3: %w", core.ErrVersionConflict)
	})

	require.ErrorIs(t, err, core.ErrVersionConflict)
	assert.Equal(t, 1, attempts, "conflicts need a fresh snapshot, not a blind retry")
}

func TestDo_CancellationIsNotMasked(t *testing.T) {
	c := New(noSleep)
	ctx, cancel := context.WithCancel(context.Background())

	err := c.Do(ctx, "generate", func(context.Context) error {
		cancel()
		return errors.New("failed because caller went away")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_BackoffDoublesUpToCap(t *testing.T) {
	var slept []time.Duration
	c := New(func(o *Options) {
		o.Policies = map[Class]Policy{
			ClassError: {MaxAttempts: 5, BaseBackoff: 100 * time.Millisecond, MaxBackoff: 400 * time.Millisecond},
		}
		o.Sleep = func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}
	})

	_ = c.Do(context.Background(), "op", func(context.Context) error {
		return errors.New("always fails")
	})

	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		400 * time.Millisecond,
	}, slept)
}

func TestCall_ReturnsValue(t *testing.T) {
	c := New(noSleep)

	v, err := Call(context.Background(), c, "op", func(context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassConflict, Classify(fmt.Errorf("wrap: %w", core.ErrVersionConflict)))
	assert.Equal(t, ClassTimeout, Classify(context.DeadlineExceeded))
	assert.Equal(t, ClassTimeout, Classify(&core.CollaboratorError{Op: "x", Timeout: true, Err: errors.New("slow")}))
	assert.Equal(t, ClassError, Classify(errors.New("anything else")))
}

func TestStaticReply_PerAgentAndClass(t *testing.T) {
	assert.Contains(t, StaticReply(core.AgentSales, ClassTimeout), "asesor comercial")
	assert.Contains(t, StaticReply(core.AgentSupport, ClassError), "especialista")
	assert.Contains(t, StaticReply(core.AgentRoyalties, ClassTimeout), "regalías")

	// Unknown agent and HUMAN fall back to the generic apology.
	assert.Equal(t, defaultStaticReply, StaticReply(core.AgentHuman, ClassError))

	// Conflict class for a known agent falls back to its error reply.
	assert.Equal(t, staticReplies[core.AgentSales][ClassError], StaticReply(core.AgentSales, ClassConflict))
}
