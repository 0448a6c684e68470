package core

import (
	"errors"
	"fmt"
)

// ErrVersionConflict is returned by ConversationStore.Commit when the
// expected version no longer matches; the caller must reload and re-derive
// its decision against the new snapshot.
var ErrVersionConflict = errors.New("conversation version conflict")

// ErrHumanHandled is returned when an automated action is attempted on a
// conversation owned by the HUMAN pseudo-agent without an explicit resume.
var ErrHumanHandled = errors.New("conversation is human handled")

// AdmissionError reports a security gate rejection. It short-circuits the
// turn before any agent logic and is never retried.
type AdmissionError struct {
	Verdict Verdict
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected: %s", e.Verdict.Reason)
}

// CollaboratorError wraps a failure or timeout of an external collaborator
// call. Timeouts and failures are treated identically for retry purposes.
type CollaboratorError struct {
	Op      string // logical operation, e.g. "classify_intent"
	Timeout bool
	Err     error
}

func (e *CollaboratorError) Error() string {
	kind := "error"
	if e.Timeout {
		kind = "timeout"
	}
	return fmt.Sprintf("collaborator %s %s: %v", e.Op, kind, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// IsCollaboratorTimeout reports whether err is a collaborator timeout.
func IsCollaboratorTimeout(err error) bool {
	var ce *CollaboratorError
	return errors.As(err, &ce) && ce.Timeout
}
