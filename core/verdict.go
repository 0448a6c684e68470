package core

// RejectReason is the closed taxonomy of security gate rejections.
type RejectReason string

const (
	RejectOutOfDomain     RejectReason = "out-of-domain"
	RejectPromptInjection RejectReason = "prompt-injection"
	RejectRateLimited     RejectReason = "rate-limited"
	RejectMaliciousIntent RejectReason = "malicious-intent"
)

// Verdict is the result of the security gate for one inbound message. It is
// ephemeral: logged for audit but never persisted with the conversation.
type Verdict struct {
	Allowed    bool
	Reason     RejectReason
	Confidence float64
}

// Allow returns an admitting verdict.
func Allow() Verdict { return Verdict{Allowed: true, Confidence: 1} }

// Reject returns a refusing verdict with the given reason and confidence.
func Reject(reason RejectReason, confidence float64) Verdict {
	return Verdict{Allowed: false, Reason: reason, Confidence: confidence}
}

// Err converts a refusing verdict into an *AdmissionError; nil when allowed.
func (v Verdict) Err() error {
	if v.Allowed {
		return nil
	}
	return &AdmissionError{Verdict: v}
}
