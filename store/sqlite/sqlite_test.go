package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angiesanchezm/genai-music/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateTicket_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := core.Ticket{
		ConversationKey: "conv-1",
		Reason:          "amenaza legal detectada",
		Summary:         "mi abogado va a presentar una demanda",
		Score: core.PriorityScore{
			Total:    8.2,
			Escalate: true,
			Severe:   true,
			Action:   core.ActionImmediateEscalation,
			Reason:   "legal risk at ceiling",
		},
		State: map[string]any{"plan_interest": "professional"},
	}
	id, err := s.CreateTicket(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, id, "missing ids are generated")

	got, err := s.GetTicket(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "conv-1", got.ConversationKey)
	assert.Equal(t, in.Reason, got.Reason)
	assert.Equal(t, in.Summary, got.Summary)
	assert.Equal(t, in.Score, got.Score)
	assert.Equal(t, "professional", got.State["plan_interest"])
	assert.Equal(t, core.TicketOpen, got.Status)
	assert.False(t, got.Created.IsZero())
}

func TestCreateTicket_EmptyStateIsNull(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateTicket(ctx, core.Ticket{ConversationKey: "conv-1", Reason: "r", Summary: "s"})
	require.NoError(t, err)

	got, err := s.GetTicket(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.State)
}

func TestGetTicket_UnknownIDFails(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetTicket(context.Background(), "no-such-id")

	assert.Error(t, err)
}

func TestListTickets_CreationOrderPerConversation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, reason := range []string{"primero", "segundo", "tercero"} {
		_, err := s.CreateTicket(ctx, core.Ticket{
			ConversationKey: "conv-1",
			Reason:          reason,
			Summary:         reason,
			Created:         base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.CreateTicket(ctx, core.Ticket{ConversationKey: "conv-other", Reason: "ajeno", Summary: "ajeno"})
	require.NoError(t, err)

	tickets, err := s.ListTickets(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, "primero", tickets[0].Reason)
	assert.Equal(t, "segundo", tickets[1].Reason)
	assert.Equal(t, "tercero", tickets[2].Reason)
}

func TestAppendMessage_IdempotentOnID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	msg := core.NewMessage(core.RoleUser, "hola", core.AgentSales)
	require.NoError(t, s.AppendMessage(ctx, "conv-1", msg))
	// A replayed commit persists the same message again; no duplicate row.
	require.NoError(t, s.AppendMessage(ctx, "conv-1", msg))

	msgs, err := s.Messages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.Equal(t, "hola", msgs[0].Text)
	assert.Equal(t, core.AgentSales, msgs[0].AgentAtTime)
}

func TestMessages_AppendOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	texts := []string{"uno", "dos", "tres"}
	for i, text := range texts {
		msg := core.Message{
			ID:          core.NewID(),
			Role:        core.RoleUser,
			Text:        text,
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			AgentAtTime: core.AgentSales,
		}
		require.NoError(t, s.AppendMessage(ctx, "conv-1", msg))
	}

	msgs, err := s.Messages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, text := range texts {
		assert.Equal(t, text, msgs[i].Text)
	}
}

func TestSaveSnapshot_ReplaceSameVersionAndLatestWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v1 := core.Snapshot{Key: "conv-1", Version: 1, CurrentAgent: core.AgentSales,
		State: map[string]any{"plan_interest": "basic"}}
	require.NoError(t, s.SaveSnapshot(ctx, v1))

	// Re-persisting the same version replaces, never duplicates.
	v1.State["plan_interest"] = "professional"
	require.NoError(t, s.SaveSnapshot(ctx, v1))

	v2 := core.Snapshot{Key: "conv-1", Version: 2, CurrentAgent: core.AgentSupport}
	require.NoError(t, s.SaveSnapshot(ctx, v2))

	latest, err := s.LatestSnapshot(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Version)
	assert.Equal(t, core.AgentSupport, latest.CurrentAgent)
}

func TestLatestSnapshot_UnknownConversationFails(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LatestSnapshot(context.Background(), "conv-unknown")

	assert.Error(t, err)
}
