package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angiesanchezm/genai-music/core"
)

func TestLoad_LazyCreatesAtVersionZero(t *testing.T) {
	s := NewInMemoryStore()

	conv, err := s.Load("new-conv")

	require.NoError(t, err)
	assert.Equal(t, int64(0), conv.Version)
	assert.Equal(t, core.DefaultAgent, conv.CurrentAgent)
	assert.Empty(t, conv.Messages)
}

func TestLoad_ReturnsIsolatedClone(t *testing.T) {
	s := NewInMemoryStore()

	first, err := s.Load("conv-1")
	require.NoError(t, err)
	first.Append(core.NewMessage(core.RoleUser, "mutated outside commit", core.AgentSales))
	first.State["leak"] = true

	second, err := s.Load("conv-1")
	require.NoError(t, err)
	assert.Empty(t, second.Messages, "mutating a loaded clone must not touch the store")
	assert.NotContains(t, second.State, "leak")
}

func TestCommit_VersionIncreasesByOnePerTurn(t *testing.T) {
	s := NewInMemoryStore()

	for i := int64(0); i < 5; i++ {
		committed, err := s.Commit("conv-1", i, func(c *core.Conversation) error {
			c.Append(core.NewMessage(core.RoleUser, fmt.Sprintf("turno %d", i), c.CurrentAgent))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, i+1, committed.Version)
	}

	conv, err := s.Load("conv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), conv.Version)
	assert.Len(t, conv.Messages, 5)
}

func TestCommit_StaleVersionConflicts(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Commit("conv-1", 0, func(c *core.Conversation) error {
		c.Append(core.NewMessage(core.RoleUser, "primero", c.CurrentAgent))
		return nil
	})
	require.NoError(t, err)

	_, err = s.Commit("conv-1", 0, func(c *core.Conversation) error {
		c.Append(core.NewMessage(core.RoleUser, "concurrente", c.CurrentAgent))
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrVersionConflict)

	conv, err := s.Load("conv-1")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1, "the conflicting commit must not apply")
}

func TestCommit_UnknownKeyWithNonZeroVersionConflicts(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Commit("ghost", 3, func(*core.Conversation) error { return nil })

	assert.ErrorIs(t, err, core.ErrVersionConflict)
}

func TestCommit_FailingMutatorLeavesNoPartialWrite(t *testing.T) {
	s := NewInMemoryStore()
	boom := errors.New("mutator failure")

	_, err := s.Commit("conv-1", 0, func(c *core.Conversation) error {
		c.Append(core.NewMessage(core.RoleUser, "parcial", c.CurrentAgent))
		return boom
	})
	require.ErrorIs(t, err, boom)

	conv, err := s.Load("conv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), conv.Version)
	assert.Empty(t, conv.Messages)
}

func TestCommit_AgentHistoryFollowsHandoffs(t *testing.T) {
	s := NewInMemoryStore()

	committed, err := s.Commit("conv-1", 0, func(c *core.Conversation) error {
		c.SetAgent(core.AgentSupport, "consulta técnica")
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, core.AgentSupport, committed.CurrentAgent)
	require.Len(t, committed.AgentHistory, 1)
	assert.Equal(t, core.AgentSales, committed.AgentHistory[0].From)
	assert.Equal(t, core.AgentSupport, committed.AgentHistory[0].To)
}
