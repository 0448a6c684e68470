package core

import "context"

// AgentID identifies one of the closed set of conversation agents.
type AgentID string

const (
	// AgentSales handles pricing, quoting and onboarding conversations.
	AgentSales AgentID = "SALES"
	// AgentSupport handles technical issues, release status and metadata.
	AgentSupport AgentID = "SUPPORT"
	// AgentRoyalties handles royalty statements and payout questions.
	AgentRoyalties AgentID = "ROYALTIES"
	// AgentHuman is the terminal pseudo-agent: once a conversation is routed
	// to a human, automated agents never re-enter without an explicit resume.
	AgentHuman AgentID = "HUMAN"
)

// DefaultAgent is assigned to conversations created lazily on first contact.
const DefaultAgent = AgentSales

// Valid reports whether the identifier belongs to the closed agent set.
func (a AgentID) Valid() bool {
	switch a {
	case AgentSales, AgentSupport, AgentRoyalties, AgentHuman:
		return true
	}
	return false
}

// Automated reports whether the agent is machine-driven (everything except HUMAN).
func (a AgentID) Automated() bool { return a.Valid() && a != AgentHuman }

// TurnInput is the immutable per-turn view handed to an agent: the
// conversation snapshot, the inbound text and any retrieved knowledge
// passages. Agents must not mutate it; all proposed changes travel back
// inside the returned Outcome.
type TurnInput struct {
	Snapshot Snapshot
	Text     string
	Passages []Passage
	// Limiter bounds collaborator calls for this turn; may be nil.
	Limiter *CallLimiter
}

// Agent executes one conversation turn and returns a proposed Outcome.
// Implementations are stateless with respect to the conversation; any
// scratch data they want persisted goes into the outcome's state delta.
type Agent interface {
	ID() AgentID
	Description() string
	Execute(ctx context.Context, in TurnInput) (Outcome, error)
}
