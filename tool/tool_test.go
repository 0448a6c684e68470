package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/logging"
)

// fakeTicketCreator records tickets handed to it.
type fakeTicketCreator struct {
	tickets []core.Ticket
	fail    error
}

func (f *fakeTicketCreator) CreateTicket(_ context.Context, t core.Ticket) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.tickets = append(f.tickets, t)
	return t.ID, nil
}

func newTestContext(tc core.TicketCreator) *Context {
	return NewContext(context.Background(),
		core.Snapshot{Key: "conv-1", CurrentAgent: core.AgentSales},
		core.AgentSales, tc, logging.NoOpLogger{})
}

func TestFunctionTool_ValidatesRequiredFields(t *testing.T) {
	pricing := NewGetPricingTool()

	_, err := pricing.Call(newTestContext(nil), map[string]any{})

	require.Error(t, err)
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "VALIDATION_ERROR", te.Code)
}

func TestFunctionTool_ValidatesEnum(t *testing.T) {
	pricing := NewGetPricingTool()

	_, err := pricing.Call(newTestContext(nil), map[string]any{"service_type": "platinum"})

	require.Error(t, err)
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "VALIDATION_ERROR", te.Code)
}

func TestFunctionTool_WrapsExecutionErrors(t *testing.T) {
	failing := NewFunctionTool("boom", "always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(*Context, map[string]any) (any, error) {
			return nil, errors.New("backend unavailable")
		})

	_, err := failing.Call(newTestContext(nil), map[string]any{})

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "EXECUTION_ERROR", te.Code)
	assert.Equal(t, "boom", te.Tool)
}

func TestGetPricing_KnownPlan(t *testing.T) {
	tc := newTestContext(nil)

	out, err := NewGetPricingTool().Call(tc, map[string]any{"service_type": "professional"})

	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, 49.99, result["monthly"])
	assert.Equal(t, 499.99, result["yearly"])
	assert.Equal(t, "professional", tc.StateDelta()["plan_interest"])
}

func TestGetPricing_EnterpriseIsCustom(t *testing.T) {
	out, err := NewGetPricingTool().Call(newTestContext(nil), map[string]any{"service_type": "enterprise"})

	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, "custom", result["pricing"])
	assert.Equal(t, true, result["contact_sales"])
}

func TestGenerateQuote_VolumeDiscounts(t *testing.T) {
	tests := []struct {
		name         string
		releases     float64 // JSON numbers arrive as float64
		wantDiscount float64
		wantMonthly  float64
	}{
		{"no discount", 5, 0.0, 49.99},
		{"ten percent above 10", 15, 0.10, 44.99},
		{"fifteen percent above 20", 25, 0.15, 42.49},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestContext(nil)
			out, err := NewGenerateQuoteTool().Call(tc, map[string]any{
				"service_type": "professional",
				"num_releases": tt.releases,
			})
			require.NoError(t, err)
			quote := out.(map[string]any)
			assert.Equal(t, tt.wantDiscount, quote["discount_applied"])
			assert.Equal(t, tt.wantMonthly, quote["monthly_price"])
			// Yearly billing takes a further 10% off twelve monthly payments.
			assert.Equal(t, round2(tt.wantMonthly*12*0.9), quote["yearly_price"])
			assert.Equal(t, quote, tc.StateDelta()["last_quote"])
		})
	}
}

func TestGenerateQuote_RejectsNegativeReleases(t *testing.T) {
	_, err := NewGenerateQuoteTool().Call(newTestContext(nil), map[string]any{
		"service_type": "basic",
		"num_releases": float64(-3),
	})

	assert.Error(t, err)
}

func TestCheckReleaseStatus_StagesState(t *testing.T) {
	tc := newTestContext(nil)

	out, err := NewCheckReleaseStatusTool().Call(tc, map[string]any{"release_id": "rel-777"})

	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, "live", result["status"])
	assert.Equal(t, "rel-777", tc.StateDelta()["last_release_checked"])
}

func TestCreateSupportTicket_PersistsThroughCollaborator(t *testing.T) {
	creator := &fakeTicketCreator{}
	tc := newTestContext(creator)

	out, err := NewCreateSupportTicketTool().Call(tc, map[string]any{
		"issue_type":  "metadata",
		"description": "el título del lanzamiento está mal escrito",
	})

	require.NoError(t, err)
	require.Len(t, creator.tickets, 1)
	ticket := creator.tickets[0]
	assert.Equal(t, "conv-1", ticket.ConversationKey)
	assert.Equal(t, core.TicketOpen, ticket.Status)

	result := out.(map[string]any)
	assert.Equal(t, ticket.ID, result["ticket_id"], "the reply must reference the persisted ticket id")
	assert.Equal(t, ticket.ID, tc.StateDelta()["open_ticket"])
	assert.Equal(t, ticket.ID, tc.CreatedTicketID())
}

func TestCreateSupportTicket_NoCollaboratorFails(t *testing.T) {
	_, err := NewCreateSupportTicketTool().Call(newTestContext(nil), map[string]any{
		"issue_type":  "metadata",
		"description": "algo",
	})

	assert.Error(t, err)
}

func TestEscalateToHuman_StagesEscalation(t *testing.T) {
	tc := newTestContext(nil)

	_, err := NewEscalateToHumanTool().Call(tc, map[string]any{"reason": "cliente enterprise"})

	require.NoError(t, err)
	reason, ok := tc.EscalationRequest()
	require.True(t, ok)
	assert.Equal(t, "cliente enterprise", reason)
}

func TestTransferToAgent_StagesHandoff(t *testing.T) {
	tc := newTestContext(nil)

	_, err := NewTransferToAgentTool().Call(tc, map[string]any{"agent": "ROYALTIES", "reason": "consulta de pagos"})

	require.NoError(t, err)
	target, reason, ok := tc.TransferRequest()
	require.True(t, ok)
	assert.Equal(t, core.AgentRoyalties, target)
	assert.Equal(t, "consulta de pagos", reason)
}

func TestTransferToAgent_RejectsHumanTarget(t *testing.T) {
	tc := newTestContext(nil)

	_, err := NewTransferToAgentTool().Call(tc, map[string]any{"agent": "HUMAN"})

	require.Error(t, err)
	_, _, ok := tc.TransferRequest()
	assert.False(t, ok)
}

func TestContext_StateDeltaAccumulates(t *testing.T) {
	tc := newTestContext(nil)
	tc.SetState("a", 1)
	tc.SetState("b", "x")
	tc.SetState("a", 2)

	assert.Equal(t, map[string]any{"a": 2, "b": "x"}, tc.StateDelta())
}
