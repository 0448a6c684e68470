// Package agent implements the specialized conversation agents. All of them
// share one execution engine, ModelAgent, which drives the language service
// with a toolset and converts the turn into one of the closed Outcome
// variants. Constructors for the SALES, SUPPORT and ROYALTIES agents bundle
// the instructions and tools each specialty uses.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/fallback"
	"github.com/angiesanchezm/genai-music/logging"
	"github.com/angiesanchezm/genai-music/model"
	"github.com/angiesanchezm/genai-music/tool"
)

// Options configure a ModelAgent.
type Options struct {
	// Instructions is the agent's system prompt.
	Instructions string
	// Tools available to this agent.
	Tools []tool.Tool
	// Fallback wraps every generation call; defaults to a fresh controller.
	Fallback *fallback.Controller
	// Tickets lets tools create support tickets; may be nil for agents
	// without ticket tools.
	Tickets core.TicketCreator
	// HistoryWindow is how many trailing messages the model sees.
	HistoryWindow int
	// MaxToolRounds bounds generate/execute iterations per turn.
	MaxToolRounds int
	// EmptyReply is used when the model yields neither text nor tools.
	EmptyReply string
	Logger     logging.Logger
}

// ModelAgent executes turns by driving a language service with tools.
// Stateless with respect to the conversation; safe for concurrent use.
type ModelAgent struct {
	id          core.AgentID
	description string
	svc         model.Service
	tools       map[string]tool.Tool
	toolDefs    []model.ToolDefinition
	opts        Options
}

// New constructs a ModelAgent for the given identity.
func New(id core.AgentID, description string, svc model.Service, optFns ...func(o *Options)) *ModelAgent {
	opts := Options{
		HistoryWindow: 5,
		MaxToolRounds: 4,
		EmptyReply:    "Gracias por tu consulta. ¿En qué más puedo ayudarte con tu música?",
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Fallback == nil {
		opts.Fallback = fallback.New()
	}

	a := &ModelAgent{
		id:          id,
		description: description,
		svc:         svc,
		tools:       map[string]tool.Tool{},
		opts:        opts,
	}
	for _, t := range opts.Tools {
		a.tools[t.Name()] = t
		a.toolDefs = append(a.toolDefs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return a
}

// ID returns the agent identity.
func (a *ModelAgent) ID() core.AgentID { return a.id }

// Description returns what this agent specializes in.
func (a *ModelAgent) Description() string { return a.description }

// Execute runs one turn: generate, dispatch requested tools, feed results
// back, and fold the staged control-flow requests into an Outcome.
func (a *ModelAgent) Execute(ctx context.Context, in core.TurnInput) (core.Outcome, error) {
	if in.Snapshot.CurrentAgent == core.AgentHuman {
		return nil, core.ErrHumanHandled
	}
	tc := tool.NewContext(ctx, in.Snapshot, a.id, a.opts.Tickets, a.opts.Logger)
	turns := a.buildTurns(in)

	var (
		text   string
		traces []core.ToolTrace
	)
	for round := 0; ; round++ {
		if in.Limiter != nil {
			if err := in.Limiter.Increment(); err != nil {
				return nil, fmt.Errorf("agent %s: %w", a.id, err)
			}
		}

		resp, err := fallback.Call(ctx, a.opts.Fallback, "generate", func(ctx context.Context) (model.Response, error) {
			return a.svc.Generate(ctx, model.Request{
				Instructions: a.opts.Instructions,
				Turns:        turns,
				Tools:        a.toolDefs,
			})
		})
		if err != nil {
			return nil, err
		}

		text = resp.Text
		if len(resp.ToolCalls) == 0 {
			break
		}

		turns = append(turns, model.Turn{Role: "assistant", Text: resp.Text, ToolCalls: resp.ToolCalls})
		results := make([]model.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			trace, result := a.dispatch(tc, call)
			traces = append(traces, trace)
			results = append(results, result)
		}
		turns = append(turns, model.Turn{Role: "tool", ToolResults: results})

		if round+1 >= a.opts.MaxToolRounds {
			a.opts.Logger.Warn("agent.tool_rounds_exhausted", "agent", string(a.id))
			break
		}
	}

	if text == "" && len(traces) == 0 {
		text = a.opts.EmptyReply
	}
	return a.outcome(tc, text, traces), nil
}

func (a *ModelAgent) buildTurns(in core.TurnInput) []model.Turn {
	var turns []model.Turn
	if ctxBlock := passageBlock(in.Passages); ctxBlock != "" {
		turns = append(turns, model.Turn{Role: "system", Text: ctxBlock})
	}
	for _, msg := range in.Snapshot.History(a.opts.HistoryWindow) {
		role := "user"
		if msg.Role != core.RoleUser {
			role = "assistant"
		}
		turns = append(turns, model.Turn{Role: role, Text: msg.Text})
	}
	return append(turns, model.Turn{Role: "user", Text: in.Text})
}

// dispatch runs one tool call, normalizing unknown tools and failures into
// result payloads the model can react to instead of aborting the turn.
func (a *ModelAgent) dispatch(tc *tool.Context, call model.ToolCall) (core.ToolTrace, model.ToolResult) {
	trace := core.ToolTrace{Name: call.Name}
	result := model.ToolResult{ID: call.ID, Name: call.Name}

	t, ok := a.tools[call.Name]
	if !ok {
		trace.Err = "unknown tool"
		result.Content = fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Name)
		return trace, result
	}

	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			trace.Err = "invalid arguments: " + err.Error()
			result.Content = `{"error":"invalid tool arguments"}`
			return trace, result
		}
	}
	trace.Arguments = args

	tc.BeginCall(call.ID)
	out, err := t.Call(tc, args)
	if err != nil {
		trace.Err = err.Error()
		result.Content = fmt.Sprintf(`{"error":%q}`, err.Error())
		return trace, result
	}

	trace.Result = out
	if encoded, err := json.Marshal(out); err == nil {
		result.Content = string(encoded)
	} else {
		result.Content = fmt.Sprintf("%v", out)
	}
	return trace, result
}

// outcome folds staged control-flow requests into the closed Outcome set.
// Escalation wins over transfer when a turn staged both.
func (a *ModelAgent) outcome(tc *tool.Context, text string, traces []core.ToolTrace) core.Outcome {
	delta := tc.StateDelta()

	if reason, ok := tc.EscalationRequest(); ok {
		return core.EscalationRequest{Reason: reason, Text: text, StateDelta: delta}
	}
	if target, reason, ok := tc.TransferRequest(); ok {
		return core.HandoffRequest{Target: target, Reason: reason, Text: text, StateDelta: delta}
	}
	if len(traces) > 0 {
		if text == "" {
			text = a.opts.EmptyReply
		}
		return core.ReplyWithTools{Text: text, Tools: traces, StateDelta: delta}
	}
	return core.Reply{Text: text, StateDelta: delta}
}

func passageBlock(passages []core.Passage) string {
	if len(passages) == 0 {
		return ""
	}
	block := "**CONTEXTO DE KNOWLEDGE BASE:**"
	for _, p := range passages {
		block += fmt.Sprintf("\n[relevancia %.2f] %s", p.Relevance, p.Text)
	}
	return block
}

var _ core.Agent = (*ModelAgent)(nil)
