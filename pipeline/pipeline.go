// Package pipeline drives one inbound message through the full turn
// lifecycle: admission, intent classification, knowledge retrieval, agent
// execution, priority scoring and an optimistic-concurrency commit. Every
// stage transition is explicit and auditable; a turn either commits exactly
// once or leaves no conversation side effects at all.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angiesanchezm/genai-music/agent"
	"github.com/angiesanchezm/genai-music/audit"
	"github.com/angiesanchezm/genai-music/config"
	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/fallback"
	"github.com/angiesanchezm/genai-music/gate"
	"github.com/angiesanchezm/genai-music/logging"
	"github.com/angiesanchezm/genai-music/model"
	"github.com/angiesanchezm/genai-music/priority"
	"github.com/angiesanchezm/genai-music/router"
)

// State is the lifecycle stage a turn reached.
type State string

const (
	StateAdmitted         State = "ADMITTED"
	StateClassified       State = "CLASSIFIED"
	StateContextRetrieved State = "CONTEXT_RETRIEVED"
	StateAgentExecuted    State = "AGENT_EXECUTED"
	StateScored           State = "SCORED"
	StateCommitted        State = "COMMITTED"
	StateRejected         State = "REJECTED"
	StateFailed           State = "FAILED"
)

// Options configure a Pipeline. Store, Service and Agents are required;
// everything else degrades gracefully when absent.
type Options struct {
	Gate      *gate.Gate
	Router    *router.Router
	Priority  *priority.Engine
	Fallback  *fallback.Controller
	Retriever core.Retriever
	Durable   core.DurableStore
	Gateway   core.Gateway
	Audit     audit.Sink
	Logger    logging.Logger

	// Pipeline and Retry knobs; zero values fall back to config.Default().
	Pipeline config.Pipeline
	Retry    config.Retry
}

// Result reports what one processed turn did.
type Result struct {
	State     State
	Verdict   core.Verdict
	Intent    model.Intent
	Decision  router.Decision
	Outcome   core.Outcome
	Score     core.PriorityScore
	ReplyText string
	TicketID  string
	// Degraded marks turns answered with a static reply after generation
	// was exhausted.
	Degraded bool
	// Snapshot of the conversation after commit; zero for rejected turns.
	Snapshot core.Snapshot
}

// Pipeline orchestrates turn processing. Safe for concurrent use across
// conversations; turns of one conversation must be serialized by the caller
// (see Sequencer).
type Pipeline struct {
	store    core.ConversationStore
	service  model.Service
	agents   *agent.Registry
	gate     *gate.Gate
	router   *router.Router
	priority *priority.Engine
	fb       *fallback.Controller
	ret      core.Retriever
	durable  core.DurableStore
	gw       core.Gateway
	sink     audit.Sink
	logger   logging.Logger
	cfg      config.Pipeline
	retry    config.Retry
}

// New constructs a Pipeline.
func New(store core.ConversationStore, service model.Service, agents *agent.Registry, optFns ...func(o *Options)) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("pipeline: conversation store is required")
	}
	if service == nil {
		return nil, fmt.Errorf("pipeline: model service is required")
	}
	if agents == nil {
		return nil, fmt.Errorf("pipeline: agent registry is required")
	}

	def := config.Default()
	opts := Options{
		Router:   router.New(),
		Priority: priority.New(),
		Fallback: fallback.New(),
		Audit:    audit.NoOpSink{},
		Logger:   logging.NoOpLogger{},
		Pipeline: def.Pipeline,
		Retry:    def.Retry,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Pipeline{
		store:    store,
		service:  service,
		agents:   agents,
		gate:     opts.Gate,
		router:   opts.Router,
		priority: opts.Priority,
		fb:       opts.Fallback,
		ret:      opts.Retriever,
		durable:  opts.Durable,
		gw:       opts.Gateway,
		sink:     opts.Audit,
		logger:   opts.Logger,
		cfg:      opts.Pipeline,
		retry:    opts.Retry,
	}, nil
}

// turn is the mutable working set of one processed message. Classification
// observations are sampled once and cached here, so conflict replays score
// against identical inputs.
type turn struct {
	id       string
	in       core.Inbound
	intent   model.Intent
	passages []core.Passage

	sentimentSampled bool
	sentiment        model.Sentiment
	implications     model.Implications

	cachedOutcome core.Outcome
	cachedAgent   core.AgentID
}

// Process drives one inbound message to a terminal state. The returned error
// is non-nil only for infrastructure failures (store unavailable, context
// cancelled); rejections, degradations and conflict exhaustion are normal
// Results.
func (p *Pipeline) Process(ctx context.Context, in core.Inbound) (Result, error) {
	t := &turn{id: core.NewID(), in: in}
	logger := p.logger

	conv, err := p.store.Load(in.ConversationKey)
	if err != nil {
		return Result{State: StateFailed}, fmt.Errorf("load conversation: %w", err)
	}
	snap := conv.Snapshot()

	// Admission control before any expensive work.
	verdict := core.Allow()
	if p.gate != nil {
		verdict = p.gate.Evaluate(ctx, snap, in.Text, in.SenderIdentity)
	}
	p.record(audit.KindGateVerdict, t, map[string]any{
		"allowed": verdict.Allowed, "reason": string(verdict.Reason), "confidence": verdict.Confidence,
	})
	if !verdict.Allowed {
		logger.Warn("pipeline.rejected", "turn_id", t.id, "error", verdict.Err().Error())
		refusal := gate.RejectionMessage(verdict.Reason)
		p.send(ctx, in.ConversationKey, refusal)
		return Result{State: StateRejected, Verdict: verdict, ReplyText: refusal}, nil
	}

	// Human-handled conversations only accumulate the customer's messages;
	// no automated agent re-enters without an explicit resume.
	if snap.CurrentAgent == core.AgentHuman {
		committed, err := p.store.Commit(in.ConversationKey, snap.Version, func(c *core.Conversation) error {
			c.Append(core.NewMessage(core.RoleUser, in.Text, core.AgentHuman))
			return nil
		})
		if err != nil {
			return Result{State: StateFailed, Verdict: verdict}, fmt.Errorf("commit human-handled turn: %w", err)
		}
		snap = committed.Snapshot()
		p.persistTurn(ctx, snap, snap.Messages[len(snap.Messages)-1:])
		return Result{State: StateCommitted, Verdict: verdict, Snapshot: snap}, nil
	}

	// Intent is a function of the inbound text alone; classified once and
	// reused across conflict replays.
	t.intent = p.classifyIntent(ctx, in.Text)
	logger.Debug("pipeline.classified", "turn_id", t.id, "category", string(t.intent.Category), "confidence", t.intent.Confidence)

	// Retrieval is best effort; a failing retriever never fails the turn.
	t.passages = p.retrieve(ctx, in.Text)

	maxReplays := p.retry.MaxConflictRetries
	if maxReplays < 0 {
		maxReplays = 0
	}
	for replay := 0; ; replay++ {
		res, err := p.executeAndCommit(ctx, t, snap, verdict)
		if err == nil || !errors.Is(err, core.ErrVersionConflict) {
			return res, err
		}
		if replay >= maxReplays {
			return p.conflictExhausted(ctx, t, verdict)
		}

		p.record(audit.KindFallback, t, map[string]any{"op": "commit", "class": string(fallback.ClassConflict), "replay": replay + 1})
		conv, err := p.store.Load(in.ConversationKey)
		if err != nil {
			return Result{State: StateFailed, Verdict: verdict}, fmt.Errorf("reload after conflict: %w", err)
		}
		snap = conv.Snapshot()
		if snap.CurrentAgent == core.AgentHuman {
			// The conflicting commit handed the conversation to a human;
			// replaying an automated turn would violate terminality.
			return p.conflictExhausted(ctx, t, verdict)
		}
	}
}

// executeAndCommit runs routing, agent execution, scoring and the CAS commit
// against one snapshot. A version conflict is returned to the caller for
// replay against a fresh snapshot.
func (p *Pipeline) executeAndCommit(ctx context.Context, t *turn, snap core.Snapshot, verdict core.Verdict) (Result, error) {
	decision := p.router.Route(snap, t.intent, nil)
	executing := decision.Target

	outcome, degraded, err := p.execute(ctx, t, snap, executing)
	if err != nil {
		return Result{State: StateFailed, Verdict: verdict}, err
	}

	// An explicit handoff from the executing agent re-routes with absolute
	// precedence over the classified intent.
	finalTarget := executing
	var escalationReason string
	switch o := outcome.(type) {
	case core.HandoffRequest:
		d := p.router.Route(snap, t.intent, &o)
		finalTarget = d.Target
		decision = d
	case core.EscalationRequest:
		finalTarget = core.AgentHuman
		escalationReason = o.Reason
	}
	p.record(audit.KindRoute, t, map[string]any{
		"from": string(snap.CurrentAgent), "to": string(finalTarget), "switched": finalTarget != snap.CurrentAgent, "reason": decision.Reason,
	})

	// One sampled observation per turn; replays reuse it so scoring stays
	// idempotent.
	if !t.sentimentSampled {
		t.sentiment, t.implications = p.observe(ctx, t.in.Text, snap)
		t.sentimentSampled = true
	}
	score := p.priority.Score(snap, t.in.Text, t.sentiment, t.implications)

	// Crossing the turn threshold forces one review ticket per conversation;
	// the state marker keeps later turns from re-opening it.
	forced := false
	if p.cfg.MaxTurnsBeforeEscalation > 0 && !score.Escalate &&
		len(snap.Messages)+2 >= p.cfg.MaxTurnsBeforeEscalation {
		_, already := snap.State["forced_escalation"]
		forced = !already
	}

	needTicket := degraded || forced || score.Escalate || escalationReason != ""
	if score.Escalate && score.Severe {
		// A ceiling hit or critical urgency takes the conversation away from
		// automated handling immediately.
		finalTarget = core.AgentHuman
	}

	replyText := core.OutcomeText(outcome)
	routeReason := decision.Reason
	if escalationReason != "" {
		routeReason = "escalación: " + escalationReason
	} else if finalTarget == core.AgentHuman {
		routeReason = "escalación por prioridad: " + score.Reason
	}

	committed, err := p.store.Commit(t.in.ConversationKey, snap.Version, func(c *core.Conversation) error {
		c.Append(core.NewMessage(core.RoleUser, t.in.Text, snap.CurrentAgent))
		if replyText != "" {
			c.Append(core.NewMessage(core.RoleAgent, replyText, executing))
		}
		c.SetAgent(finalTarget, routeReason)
		c.MergeState(core.OutcomeDelta(outcome))
		if forced {
			c.MergeState(map[string]any{"forced_escalation": t.id})
		}
		c.MergeState(map[string]any{
			"last_sentiment":      t.sentiment,
			"last_priority_score": score,
			"last_turn_id":        t.id,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrVersionConflict) {
			return Result{}, err
		}
		return Result{State: StateFailed, Verdict: verdict}, fmt.Errorf("commit turn: %w", err)
	}
	committedSnap := committed.Snapshot()
	p.record(audit.KindCommit, t, map[string]any{"version": committedSnap.Version, "agent": string(finalTarget)})

	// Post-commit side effects: durable persistence, escalation ticket,
	// outbound delivery. None of these can un-commit the turn.
	appended := 1
	if replyText != "" {
		appended = 2
	}
	p.persistTurn(ctx, committedSnap, committedSnap.Messages[len(committedSnap.Messages)-appended:])

	ticketID := ""
	if needTicket {
		reason := escalationReason
		switch {
		case reason != "":
		case degraded:
			reason = "respuesta degradada por falla de generación"
		case forced:
			reason = "conversación extensa sin resolución"
		default:
			reason = score.Reason
		}
		ticketID = p.createTicket(ctx, t, committedSnap, reason, score)
	}

	if replyText != "" {
		p.send(ctx, t.in.ConversationKey, replyText)
	}

	return Result{
		State:     StateCommitted,
		Verdict:   verdict,
		Intent:    t.intent,
		Decision:  decision,
		Outcome:   outcome,
		Score:     score,
		ReplyText: replyText,
		TicketID:  ticketID,
		Degraded:  degraded,
		Snapshot:  committedSnap,
	}, nil
}

// execute runs the target agent, degrading to a static reply when generation
// is exhausted. Cancellation is returned as-is, never degraded.
func (p *Pipeline) execute(ctx context.Context, t *turn, snap core.Snapshot, target core.AgentID) (core.Outcome, bool, error) {
	if p.retry.ReuseGenerationOnConflict && t.cachedOutcome != nil && t.cachedAgent == target {
		return t.cachedOutcome, false, nil
	}

	ag, err := p.agents.Get(target)
	if err != nil {
		return nil, false, err
	}

	outcome, err := ag.Execute(ctx, core.TurnInput{
		Snapshot: snap,
		Text:     t.in.Text,
		Passages: t.passages,
		Limiter:  core.NewCallLimiter(p.cfg.MaxCallsPerTurn),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		class := fallback.Classify(err)
		p.logger.Error("pipeline.agent_failed", "turn_id", t.id, "agent", string(target), "class", string(class), "error", err.Error())
		p.record(audit.KindFallback, t, map[string]any{"op": "execute", "class": string(class), "agent": string(target)})
		return core.Reply{Text: fallback.StaticReply(target, class)}, true, nil
	}

	t.cachedOutcome = outcome
	t.cachedAgent = target
	return outcome, false, nil
}

// conflictExhausted ends a turn whose replay budget ran out: the customer
// gets an apology and the conversation is flagged for human review.
func (p *Pipeline) conflictExhausted(ctx context.Context, t *turn, verdict core.Verdict) (Result, error) {
	p.logger.Error("pipeline.conflict_exhausted", "turn_id", t.id, "conversation_key", t.in.ConversationKey)
	p.record(audit.KindError, t, map[string]any{"op": "commit", "error": "conflict replay budget exhausted"})

	ticketID := ""
	if p.durable != nil {
		id, err := p.durable.CreateTicket(ctx, core.Ticket{
			ID:              core.NewID(),
			ConversationKey: t.in.ConversationKey,
			Reason:          "contención de escritura no resuelta",
			Summary:         t.in.Text,
			Status:          core.TicketOpen,
			Created:         time.Now().UTC(),
		})
		if err != nil {
			p.logger.Error("pipeline.ticket_failed", "turn_id", t.id, "error", err.Error())
		} else {
			ticketID = id
		}
	}
	p.send(ctx, t.in.ConversationKey, fallback.ConflictApology)
	return Result{
		State:     StateFailed,
		Verdict:   verdict,
		Intent:    t.intent,
		ReplyText: fallback.ConflictApology,
		TicketID:  ticketID,
	}, nil
}

// classifyIntent samples the intent once, degrading to the residual unclear
// category when classification is exhausted (stickiness handles the rest).
func (p *Pipeline) classifyIntent(ctx context.Context, text string) model.Intent {
	intent, err := fallback.Call(ctx, p.fb, "classify_intent", func(ctx context.Context) (model.Intent, error) {
		return p.service.ClassifyIntent(ctx, text)
	})
	if err != nil {
		p.logger.Warn("pipeline.intent_fallback", "error", err.Error())
		return model.Intent{Category: model.IntentUnclear, Confidence: 0}
	}
	return intent
}

// observe samples sentiment and implications, each degrading independently
// to conservative defaults.
func (p *Pipeline) observe(ctx context.Context, text string, snap core.Snapshot) (model.Sentiment, model.Implications) {
	sent, err := fallback.Call(ctx, p.fb, "classify_sentiment", func(ctx context.Context) (model.Sentiment, error) {
		return p.service.ClassifySentiment(ctx, text, snap.History(p.cfg.HistoryWindow))
	})
	if err != nil {
		p.logger.Warn("pipeline.sentiment_fallback", "error", err.Error())
		sent = model.NeutralSentiment()
	}

	imp, err := fallback.Call(ctx, p.fb, "classify_implications", func(ctx context.Context) (model.Implications, error) {
		return p.service.ClassifyImplications(ctx, text)
	})
	if err != nil {
		p.logger.Warn("pipeline.implications_fallback", "error", err.Error())
		imp = model.Implications{}
	}
	return sent, imp
}

func (p *Pipeline) retrieve(ctx context.Context, text string) []core.Passage {
	if p.ret == nil || p.cfg.RetrievalTopK <= 0 {
		return nil
	}
	passages, err := p.ret.Retrieve(ctx, text, p.cfg.RetrievalTopK)
	if err != nil {
		p.logger.Warn("pipeline.retrieval_failed", "error", err.Error())
		return nil
	}
	return passages
}

func (p *Pipeline) createTicket(ctx context.Context, t *turn, snap core.Snapshot, reason string, score core.PriorityScore) string {
	if p.durable == nil {
		p.logger.Warn("pipeline.ticket_skipped", "turn_id", t.id, "reason", reason)
		return ""
	}
	id, err := p.durable.CreateTicket(ctx, core.Ticket{
		ID:              core.NewID(),
		ConversationKey: snap.Key,
		Reason:          reason,
		Summary:         t.in.Text,
		Score:           score,
		State:           snap.State,
		Status:          core.TicketOpen,
		Created:         time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("pipeline.ticket_failed", "turn_id", t.id, "error", err.Error())
		return ""
	}
	p.record(audit.KindEscalation, t, map[string]any{"ticket_id": id, "reason": reason, "total": score.Total})
	return id
}

// persistTurn writes committed messages and the snapshot to the durable
// store. Failures are logged, not returned: the commit already happened.
func (p *Pipeline) persistTurn(ctx context.Context, snap core.Snapshot, msgs []core.Message) {
	if p.durable == nil {
		return
	}
	for _, msg := range msgs {
		if err := p.durable.AppendMessage(ctx, snap.Key, msg); err != nil {
			p.logger.Error("pipeline.persist_message_failed", "conversation_key", snap.Key, "error", err.Error())
		}
	}
	if err := p.durable.SaveSnapshot(ctx, snap); err != nil {
		p.logger.Error("pipeline.persist_snapshot_failed", "conversation_key", snap.Key, "error", err.Error())
	}
}

func (p *Pipeline) send(ctx context.Context, conversationKey, text string) {
	if p.gw == nil || text == "" {
		return
	}
	if err := p.gw.Send(ctx, conversationKey, text); err != nil {
		p.logger.Error("pipeline.send_failed", "conversation_key", conversationKey, "error", err.Error())
	}
}

func (p *Pipeline) record(kind audit.Kind, t *turn, fields map[string]any) {
	p.sink.Record(audit.Event{
		Kind:            kind,
		ConversationKey: t.in.ConversationKey,
		TurnID:          t.id,
		At:              time.Now().UTC(),
		Fields:          fields,
	})
}

// Resume hands a human-handled conversation back to an automated agent. It
// is the only path out of HUMAN.
func (p *Pipeline) Resume(ctx context.Context, conversationKey string, target core.AgentID) error {
	if !target.Automated() {
		return fmt.Errorf("resume target must be an automated agent, got %q", target)
	}
	if _, err := p.agents.Get(target); err != nil {
		return err
	}
	conv, err := p.store.Load(conversationKey)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if conv.CurrentAgent != core.AgentHuman {
		return fmt.Errorf("conversation %s is not human handled", conversationKey)
	}
	committed, err := p.store.Commit(conversationKey, conv.Version, func(c *core.Conversation) error {
		c.SetAgent(target, "reanudación explícita de atención automatizada")
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit resume: %w", err)
	}
	p.persistTurn(ctx, committed.Snapshot(), nil)
	p.logger.Info("pipeline.resumed", "conversation_key", conversationKey, "agent", string(target))
	return nil
}
