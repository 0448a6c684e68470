package core

import (
	"context"
	"time"
)

// ConversationStore owns mutable conversations and serializes writes through
// optimistic compare-and-swap commits on Version.
type ConversationStore interface {
	// Load returns a clone of the conversation, creating it lazily at
	// version 0 with the default agent on first contact.
	Load(key string) (*Conversation, error)

	// Commit applies mutate atomically when the stored version still equals
	// expectedVersion, bumps Version by one and returns the committed clone.
	// Returns ErrVersionConflict when a concurrent commit already advanced
	// the conversation.
	Commit(key string, expectedVersion int64, mutate func(*Conversation) error) (*Conversation, error)
}

// Passage is one retrieved knowledge fragment with its relevance score.
type Passage struct {
	Text      string  `json:"text"`
	Source    string  `json:"source,omitempty"`
	Relevance float64 `json:"relevance"`
}

// Retriever is the read-only knowledge retrieval collaborator. Best effort:
// an empty result is valid, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Passage, error)
}

// Inbound is one received customer message.
type Inbound struct {
	ConversationKey string
	SenderIdentity  string
	Text            string
}

// Gateway is the messaging-channel collaborator.
type Gateway interface {
	// Receive blocks until the next inbound message or context cancellation.
	Receive(ctx context.Context) (Inbound, error)
	// Send delivers an outbound reply to the conversation's remote party.
	Send(ctx context.Context, conversationKey, text string) error
}

// TicketStatus is the lifecycle state of an escalation ticket. The
// orchestration core only ever creates tickets as TicketOpen; the rest of
// the lifecycle belongs to the ticket collaborator.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
)

// Ticket is an escalation record handed to the durable store.
type Ticket struct {
	ID              string         `json:"id"`
	ConversationKey string         `json:"conversation_key"`
	Reason          string         `json:"reason"`
	Summary         string         `json:"summary"`
	Score           PriorityScore  `json:"score"`
	State           map[string]any `json:"state,omitempty"`
	Status          TicketStatus   `json:"status"`
	Created         time.Time      `json:"created"`
}

// TicketCreator is the narrow write interface exposed to agent tools.
type TicketCreator interface {
	CreateTicket(ctx context.Context, t Ticket) (string, error)
}

// DurableStore persists committed turns: append-only messages, one snapshot
// per committed version, and escalation tickets.
type DurableStore interface {
	TicketCreator
	AppendMessage(ctx context.Context, conversationKey string, msg Message) error
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}
