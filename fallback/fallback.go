// Package fallback consolidates retry, backoff and degradation behavior for
// external collaborator calls into one policy object keyed by failure class,
// instead of scattering per-call-site retry loops. It also owns the static
// responses used when a collaborator is exhausted, so the user is never left
// without any reply.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/logging"
)

// Class is the failure taxonomy the retry policy is keyed by.
type Class string

const (
	// ClassTimeout covers collaborator deadline expiry.
	ClassTimeout Class = "timeout"
	// ClassError covers all other collaborator failures.
	ClassError Class = "error"
	// ClassConflict covers optimistic-concurrency commit conflicts. The
	// pipeline consults this policy for its replay bound; the controller
	// itself never retries conflicts since replay needs a fresh snapshot.
	ClassConflict Class = "conflict"
)

// Policy bounds retries for one failure class.
type Policy struct {
	// MaxAttempts including the first call; 1 disables retries.
	MaxAttempts int
	// BaseBackoff doubles per retry up to MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Options configure a Controller.
type Options struct {
	// CallTimeout applies to every individual attempt.
	CallTimeout time.Duration
	// Policies per failure class; missing classes get the default policy.
	Policies map[Class]Policy
	Logger   logging.Logger
	// Sleep is replaceable in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller wraps collaborator calls with timeouts, bounded exponential
// backoff and failure classification. Safe for concurrent use.
type Controller struct {
	timeout  time.Duration
	policies map[Class]Policy
	logger   logging.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New constructs a Controller.
func New(optFns ...func(o *Options)) *Controller {
	opts := Options{
		CallTimeout: 10 * time.Second,
		Policies: map[Class]Policy{
			ClassTimeout:  {MaxAttempts: 3, BaseBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second},
			ClassError:    {MaxAttempts: 3, BaseBackoff: 200 * time.Millisecond, MaxBackoff: 2 * time.Second},
			ClassConflict: {MaxAttempts: 3},
		},
		Logger: logging.NoOpLogger{},
		Sleep:  sleepCtx,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Controller{
		timeout:  opts.CallTimeout,
		policies: opts.Policies,
		logger:   opts.Logger,
		sleep:    opts.Sleep,
	}
}

// Policy returns the policy for a failure class (default policy when unset).
func (c *Controller) Policy(class Class) Policy {
	if p, ok := c.policies[class]; ok {
		return p
	}
	return Policy{MaxAttempts: 1}
}

// Classify maps an error onto the failure taxonomy.
func Classify(err error) Class {
	switch {
	case errors.Is(err, core.ErrVersionConflict):
		return ClassConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case core.IsCollaboratorTimeout(err):
		return ClassTimeout
	default:
		return ClassError
	}
}

// Do runs fn with a per-attempt timeout and bounded exponential backoff.
// Exhaustion returns a *core.CollaboratorError wrapping the last failure.
// Conflicts are returned immediately: they need a fresh snapshot, not a
// blind retry.
func (c *Controller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// The turn itself was cancelled; do not mask it as a
			// collaborator failure.
			return ctx.Err()
		}

		class := Classify(err)
		lastErr = err
		if class == ClassConflict {
			return err
		}

		policy := c.Policy(class)
		c.logger.Warn("fallback.attempt_failed", "op", op, "attempt", attempt, "class", string(class), "error", err.Error())
		if attempt >= policy.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, backoff(policy, attempt)); err != nil {
			return err
		}
	}

	return &core.CollaboratorError{
		Op:      op,
		Timeout: Classify(lastErr) == ClassTimeout,
		Err:     lastErr,
	}
}

// Call is the generic result-bearing variant of Do.
func Call[T any](ctx context.Context, c *Controller, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func backoff(p Policy, attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
