package core

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies who authored a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is a single conversation entry. Messages are immutable once
// appended to a conversation.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	AgentAtTime AgentID   `json:"agent_at_time"`
}

// NewMessage creates a message stamped with the current UTC time.
func NewMessage(role Role, text string, agent AgentID) Message {
	return Message{
		ID:          NewID(),
		Role:        role,
		Text:        text,
		Timestamp:   time.Now().UTC(),
		AgentAtTime: agent,
	}
}

// AgentChange records one handoff in a conversation's append-only agent history.
type AgentChange struct {
	From   AgentID   `json:"from"`
	To     AgentID   `json:"to"`
	Reason string    `json:"reason,omitempty"`
	Turn   int64     `json:"turn"`
	At     time.Time `json:"at"`
}

// Conversation is the mutable per-customer state owned exclusively by a
// ConversationStore. All writes go through Commit mutators; everything else
// works on Snapshot copies.
//
// Invariants:
//   - Messages are append-only and immutable once appended
//   - AgentHistory is append-only; CurrentAgent always matches its last entry
//   - Version increases by exactly one per committed turn
type Conversation struct {
	Key          string         `json:"key"`
	Messages     []Message      `json:"messages"`
	CurrentAgent AgentID        `json:"current_agent"`
	AgentHistory []AgentChange  `json:"agent_history"`
	State        map[string]any `json:"state"`
	Version      int64          `json:"version"`
	Created      time.Time      `json:"created"`
	Updated      time.Time      `json:"updated"`
}

// NewConversation creates a fresh conversation at version 0 assigned to the
// default agent. Conversations are created lazily on first inbound message.
func NewConversation(key string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		Key:          key,
		Messages:     []Message{},
		CurrentAgent: DefaultAgent,
		AgentHistory: []AgentChange{},
		State:        map[string]any{},
		Version:      0,
		Created:      now,
		Updated:      now,
	}
}

// Append adds a message. Callers only reach this inside a commit mutator.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.Updated = time.Now().UTC()
}

// SetAgent records a handoff in the append-only history and updates the
// active agent. A no-op when the target equals the current agent.
func (c *Conversation) SetAgent(target AgentID, reason string) {
	if target == c.CurrentAgent {
		return
	}
	c.AgentHistory = append(c.AgentHistory, AgentChange{
		From:   c.CurrentAgent,
		To:     target,
		Reason: reason,
		Turn:   c.Version,
		At:     time.Now().UTC(),
	})
	c.CurrentAgent = target
	c.Updated = time.Now().UTC()
}

// MergeState merges a key/value delta into the opaque state blob.
func (c *Conversation) MergeState(delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	if c.State == nil {
		c.State = map[string]any{}
	}
	for k, v := range delta {
		c.State[k] = v
	}
	c.Updated = time.Now().UTC()
}

// Snapshot returns an immutable deep copy of the conversation at its current
// version, safe to hand to stateless components.
func (c *Conversation) Snapshot() Snapshot {
	snap := Snapshot{
		Key:          c.Key,
		Messages:     make([]Message, len(c.Messages)),
		CurrentAgent: c.CurrentAgent,
		AgentHistory: make([]AgentChange, len(c.AgentHistory)),
		State:        make(map[string]any, len(c.State)),
		Version:      c.Version,
	}
	copy(snap.Messages, c.Messages)
	copy(snap.AgentHistory, c.AgentHistory)
	for k, v := range c.State {
		snap.State[k] = v
	}
	return snap
}

// Clone returns an independent deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		Key:          c.Key,
		Messages:     make([]Message, len(c.Messages)),
		CurrentAgent: c.CurrentAgent,
		AgentHistory: make([]AgentChange, len(c.AgentHistory)),
		State:        make(map[string]any, len(c.State)),
		Version:      c.Version,
		Created:      c.Created,
		Updated:      c.Updated,
	}
	copy(clone.Messages, c.Messages)
	copy(clone.AgentHistory, c.AgentHistory)
	for k, v := range c.State {
		clone.State[k] = v
	}
	return clone
}

// Snapshot is a read-only view of a Conversation at a given version.
// Receivers must treat all fields, including the State map, as frozen.
type Snapshot struct {
	Key          string         `json:"key"`
	Messages     []Message      `json:"messages"`
	CurrentAgent AgentID        `json:"current_agent"`
	AgentHistory []AgentChange  `json:"agent_history"`
	State        map[string]any `json:"state"`
	Version      int64          `json:"version"`
}

// LastUserText returns the text of the most recent user message, or "".
func (s Snapshot) LastUserText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return s.Messages[i].Text
		}
	}
	return ""
}

// History returns up to n trailing messages for model context windows.
func (s Snapshot) History(n int) []Message {
	if n <= 0 || n >= len(s.Messages) {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// NewID generates a UUID string for messages, turns and tickets.
func NewID() string { return uuid.NewString() }
