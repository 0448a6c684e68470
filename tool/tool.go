// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (pricing lookups, ticket creation,
// escalation) with schema validated arguments and consistent error handling.
// Control-flow tools (escalation, transfer) never act directly; they stage
// requests on the Context that the agent turns into an Outcome variant.
package tool

import (
	"context"
	"fmt"

	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/logging"
)

// Tool is a callable capability exposed to an agent's model.
//
// Implementations should provide clear snake_case names, a proper JSON
// schema for parameters, and be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description is provided to the model to decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with validated arguments and the turn Context.
	Call(tc *Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Context carries the per-turn scope tools run in: the immutable snapshot,
// a staging buffer for state deltas, the ticket collaborator, and the
// control-flow requests (transfer, escalation) the pipeline applies after
// the turn.
type Context struct {
	ctx      context.Context
	snapshot core.Snapshot
	agent    core.AgentID
	callID   string
	tickets  core.TicketCreator
	logger   logging.Logger

	stateDelta      map[string]any
	transferTarget  *core.AgentID
	transferReason  string
	escalate        bool
	escalateReason  string
	createdTicketID string
}

// NewContext constructs a tool Context for one agent turn.
func NewContext(
	ctx context.Context,
	snapshot core.Snapshot,
	agent core.AgentID,
	tickets core.TicketCreator,
	logger logging.Logger,
) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{
		ctx:        ctx,
		snapshot:   snapshot,
		agent:      agent,
		tickets:    tickets,
		logger:     logger,
		stateDelta: map[string]any{},
	}
}

// Context returns the ambient cancellation context.
func (c *Context) Context() context.Context { return c.ctx }

// Snapshot returns the immutable conversation view for this turn.
func (c *Context) Snapshot() core.Snapshot { return c.snapshot }

// Agent returns the agent executing this turn.
func (c *Context) Agent() core.AgentID { return c.agent }

// Logger returns the turn logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// FunctionCallID returns the provider call id of the current invocation.
func (c *Context) FunctionCallID() string { return c.callID }

// BeginCall marks the start of one function call invocation. Tool calls
// within a turn execute sequentially, so the id is simply swapped in place.
func (c *Context) BeginCall(id string) { c.callID = id }

// SetState stages a state mutation; the pipeline applies the accumulated
// delta atomically at commit.
func (c *Context) SetState(key string, value any) { c.stateDelta[key] = value }

// StateDelta returns the staged state mutations.
func (c *Context) StateDelta() map[string]any { return c.stateDelta }

// RequestTransfer stages a handoff to another agent.
func (c *Context) RequestTransfer(target core.AgentID, reason string) {
	c.transferTarget = &target
	c.transferReason = reason
}

// TransferRequest returns the staged handoff, if any.
func (c *Context) TransferRequest() (core.AgentID, string, bool) {
	if c.transferTarget == nil {
		return "", "", false
	}
	return *c.transferTarget, c.transferReason, true
}

// RequestEscalation stages a handoff to human handling.
func (c *Context) RequestEscalation(reason string) {
	c.escalate = true
	c.escalateReason = reason
}

// EscalationRequest returns the staged escalation, if any.
func (c *Context) EscalationRequest() (string, bool) {
	return c.escalateReason, c.escalate
}

// CreateTicket persists a support ticket through the durable collaborator
// and remembers the id so the reply can reference it.
func (c *Context) CreateTicket(t core.Ticket) (string, error) {
	if c.tickets == nil {
		return "", fmt.Errorf("ticket collaborator not configured")
	}
	id, err := c.tickets.CreateTicket(c.ctx, t)
	if err != nil {
		return "", err
	}
	c.createdTicketID = id
	return id, nil
}

// CreatedTicketID returns the id of a ticket created during this turn ("").
func (c *Context) CreatedTicketID() string { return c.createdTicketID }
