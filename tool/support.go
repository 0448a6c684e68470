package tool

import (
	"fmt"
	"time"

	"github.com/angiesanchezm/genai-music/core"
)

// NewCheckReleaseStatusTool looks up the distribution status of a release.
// Static catalogue data standing in for the distribution backend.
func NewCheckReleaseStatusTool() Tool {
	return NewFunctionTool(
		"check_release_status",
		"Verificar estado de un lanzamiento en las plataformas",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"release_id": map[string]any{"type": "string", "description": "Identificador del lanzamiento"},
			},
			"required": []string{"release_id"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			releaseID, _ := args["release_id"].(string)
			tc.SetState("last_release_checked", releaseID)
			return map[string]any{
				"release_id": releaseID,
				"status":     "live",
				"platforms": map[string]any{
					"spotify":       "active",
					"apple_music":   "active",
					"youtube_music": "active",
					"deezer":        "active",
				},
				"distribution_date": "2024-11-15",
				"streams_total":     15420,
			}, nil
		},
	)
}

// NewQueryRoyaltiesTool returns the royalty statement for a period.
func NewQueryRoyaltiesTool() Tool {
	return NewFunctionTool(
		"query_royalties",
		"Consultar información de regalías por período",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"period": map[string]any{"type": "string", "description": "Período a consultar, p.ej. 2024-Q4"},
			},
			"required": []string{"period"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			period, _ := args["period"].(string)
			return map[string]any{
				"period":            period,
				"total_earned":      1245.50,
				"total_streams":     45230,
				"payment_status":    "pending",
				"next_payment_date": "2025-01-15",
				"breakdown": map[string]any{
					"spotify":       850.30,
					"apple_music":   295.20,
					"youtube_music": 100.00,
				},
			}, nil
		},
	)
}

// NewCreateSupportTicketTool persists a support ticket through the durable
// collaborator so the reply can reference the real ticket id.
func NewCreateSupportTicketTool() Tool {
	return NewFunctionTool(
		"create_support_ticket",
		"Crear ticket de soporte para seguimiento del caso",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"issue_type": map[string]any{
					"type":        "string",
					"description": "Tipo de problema",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Descripción del problema",
				},
				"priority": map[string]any{
					"type": "string",
					"enum": []string{"low", "medium", "high", "critical"},
				},
			},
			"required": []string{"issue_type", "description"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			issueType, _ := args["issue_type"].(string)
			description, _ := args["description"].(string)
			if description == "" {
				return nil, fmt.Errorf("description must be non-empty")
			}

			ticketID, err := tc.CreateTicket(core.Ticket{
				ID:              core.NewID(),
				ConversationKey: tc.Snapshot().Key,
				Reason:          issueType,
				Summary:         description,
				Status:          core.TicketOpen,
				Created:         time.Now().UTC(),
			})
			if err != nil {
				return nil, fmt.Errorf("create ticket: %w", err)
			}

			tc.SetState("open_ticket", ticketID)
			return map[string]any{
				"ticket_id":            ticketID,
				"status":               "created",
				"issue_type":           issueType,
				"priority":             stringOr(args["priority"], "medium"),
				"estimated_resolution": "24-48 hours",
			}, nil
		},
	)
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}
