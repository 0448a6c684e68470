package tool

import (
	"fmt"

	"github.com/angiesanchezm/genai-music/core"
)

// escalateToHumanTool stages a handoff to human handling. It never acts
// directly: the agent converts the staged request into an EscalationRequest
// outcome that the pipeline dispatches.
type escalateToHumanTool struct{}

// NewEscalateToHumanTool constructs the escalation tool instance.
func NewEscalateToHumanTool() Tool { return &escalateToHumanTool{} }

func (t *escalateToHumanTool) Name() string { return "escalate_to_human" }

func (t *escalateToHumanTool) Description() string {
	return "Transferir la conversación a un agente humano. Usar para negociaciones especiales, clientes enterprise, disputas o cuando el cliente lo pide."
}

func (t *escalateToHumanTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reason": map[string]any{"type": "string", "description": "Razón de la transferencia"},
		},
		"required": []string{"reason"},
	}
}

func (t *escalateToHumanTool) Call(tc *Context, args map[string]any) (any, error) {
	reason, ok := args["reason"].(string)
	if !ok || reason == "" {
		return nil, fmt.Errorf("missing required field 'reason'")
	}
	tc.RequestEscalation(reason)
	return map[string]any{"escalated": true, "reason": reason}, nil
}

// transferToAgentTool stages a handoff to a named automated agent.
type transferToAgentTool struct{}

// NewTransferToAgentTool constructs the transfer tool instance.
func NewTransferToAgentTool() Tool { return &transferToAgentTool{} }

func (t *transferToAgentTool) Name() string { return "transfer_to_agent" }

func (t *transferToAgentTool) Description() string {
	return "Transferir la conversación a otro agente especializado (SALES, SUPPORT, ROYALTIES) cuando la consulta pertenece a su área."
}

func (t *transferToAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{"type": "string", "description": "Agente destino", "enum": []string{"SALES", "SUPPORT", "ROYALTIES"}},
			"reason": map[string]any{
				"type": "string", "description": "Razón de la transferencia",
			},
		},
		"required": []string{"agent"},
	}
}

func (t *transferToAgentTool) Call(tc *Context, args map[string]any) (any, error) {
	raw, ok := args["agent"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("field 'agent' must be non-empty string")
	}
	target := core.AgentID(raw)
	if !target.Automated() {
		return nil, fmt.Errorf("cannot transfer to %q; use escalate_to_human for human handling", raw)
	}
	reason, _ := args["reason"].(string)
	tc.RequestTransfer(target, reason)
	return map[string]any{"transferred": true, "agent": raw}, nil
}
