package core

// Outcome is the closed set of results an agent turn can produce. The
// pipeline dispatches on the concrete type; adding a variant requires
// touching every switch, which is intentional.
type Outcome interface{ isOutcome() }

// Reply is a plain user-facing answer.
type Reply struct {
	Text       string
	StateDelta map[string]any
}

func (Reply) isOutcome() {}

// ReplyWithTools is an answer produced after one or more tool executions.
// Traces are kept for audit and for referencing tool results (e.g. ticket
// ids) in the committed turn.
type ReplyWithTools struct {
	Text       string
	Tools      []ToolTrace
	StateDelta map[string]any
}

func (ReplyWithTools) isOutcome() {}

// HandoffRequest asks the router to transfer the conversation to another
// agent. Text, when non-empty, is sent to the user as acknowledgement.
type HandoffRequest struct {
	Target     AgentID
	Reason     string
	Text       string
	StateDelta map[string]any
}

func (HandoffRequest) isOutcome() {}

// EscalationRequest routes the conversation to human handling. Text may be
// empty, in which case the turn commits a ticket without a user reply.
type EscalationRequest struct {
	Reason     string
	Text       string
	StateDelta map[string]any
}

func (EscalationRequest) isOutcome() {}

// ToolTrace records one executed tool call inside a turn.
type ToolTrace struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    any            `json:"result,omitempty"`
	Err       string         `json:"error,omitempty"`
}

// OutcomeText extracts the user-facing text of an outcome ("" when none).
func OutcomeText(o Outcome) string {
	switch v := o.(type) {
	case Reply:
		return v.Text
	case ReplyWithTools:
		return v.Text
	case HandoffRequest:
		return v.Text
	case EscalationRequest:
		return v.Text
	}
	return ""
}

// OutcomeDelta extracts the proposed state delta of an outcome (may be nil).
func OutcomeDelta(o Outcome) map[string]any {
	switch v := o.(type) {
	case Reply:
		return v.StateDelta
	case ReplyWithTools:
		return v.StateDelta
	case HandoffRequest:
		return v.StateDelta
	case EscalationRequest:
		return v.StateDelta
	}
	return nil
}
