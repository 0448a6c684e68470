// Package store provides the in-memory conversation state store. It owns the
// mutable Conversation objects and serializes all writes through optimistic
// compare-and-swap commits on the conversation version; everything handed
// out is a clone, so callers can never mutate internal state.
package store

import (
	"fmt"
	"sync"

	"github.com/angiesanchezm/genai-music/core"
)

// InMemoryStore is a volatile ConversationStore keeping conversations in a
// process-local map. Safe for concurrent access. Durable persistence of
// committed turns is the durable-store collaborator's job, not this one's.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: map[string]*core.Conversation{}}
}

// Load returns a clone of the conversation, creating it lazily at version 0
// with the default agent on first contact.
func (s *InMemoryStore) Load(key string) (*core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[key]
	if !ok {
		conv = core.NewConversation(key)
		s.conversations[key] = conv
	}
	return conv.Clone(), nil
}

// Commit applies mutate atomically when the stored version still equals
// expectedVersion, then bumps the version by exactly one. A concurrent
// commit that already advanced the conversation yields ErrVersionConflict;
// the caller must reload and re-derive its decision.
func (s *InMemoryStore) Commit(key string, expectedVersion int64, mutate func(*core.Conversation) error) (*core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[key]
	if !ok {
		if expectedVersion != 0 {
			return nil, fmt.Errorf("conversation %s: %w", key, core.ErrVersionConflict)
		}
		conv = core.NewConversation(key)
		s.conversations[key] = conv
	}
	if conv.Version != expectedVersion {
		return nil, fmt.Errorf("conversation %s at v%d, expected v%d: %w",
			key, conv.Version, expectedVersion, core.ErrVersionConflict)
	}

	// Mutate a scratch clone so a failing mutator leaves no partial write.
	scratch := conv.Clone()
	if err := mutate(scratch); err != nil {
		return nil, fmt.Errorf("commit mutator: %w", err)
	}
	scratch.Version = expectedVersion + 1
	s.conversations[key] = scratch

	return scratch.Clone(), nil
}

var _ core.ConversationStore = (*InMemoryStore)(nil)
