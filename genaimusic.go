// Package genaimusic provides a high-level façade over the conversation
// orchestration engine for a digital music distributor's customer service.
// Most applications interact with this package by:
//  1. Creating an Orchestrator via New() with a model service and optional
//     overrides (stores, gateway, retriever, config)
//  2. Processing messages synchronously (ProcessMessage) or pumping a
//     messaging gateway (Serve)
//
// The façade wires the security gate, intent routing, specialized agents,
// priority scoring and the commit pipeline together. All defaults are safe
// for local development; production deployments supply a durable store, a
// real channel gateway and a structured logger.
package genaimusic

import (
	"context"
	"fmt"

	"github.com/angiesanchezm/genai-music/agent"
	"github.com/angiesanchezm/genai-music/audit"
	"github.com/angiesanchezm/genai-music/config"
	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/fallback"
	"github.com/angiesanchezm/genai-music/gate"
	"github.com/angiesanchezm/genai-music/logging"
	"github.com/angiesanchezm/genai-music/model"
	"github.com/angiesanchezm/genai-music/pipeline"
	"github.com/angiesanchezm/genai-music/priority"
	"github.com/angiesanchezm/genai-music/retrieval"
	"github.com/angiesanchezm/genai-music/router"
	"github.com/angiesanchezm/genai-music/store"
)

// Options configure an Orchestrator.
type Options struct {
	// Config holds every tunable knob; defaults from config.Default().
	Config config.Config

	// Store owns conversation state (defaults to in-memory).
	Store core.ConversationStore
	// Durable persists committed turns and tickets; nil disables persistence
	// and escalation tickets are logged instead.
	Durable core.DurableStore
	// Gateway is the messaging channel; nil means replies are only returned,
	// never delivered.
	Gateway core.Gateway
	// Retriever supplies knowledge passages (defaults to the built-in corpus).
	Retriever core.Retriever
	// Audit receives the decision trail (defaults to log-backed sink).
	Audit audit.Sink
	// Agents overrides the default SALES/SUPPORT/ROYALTIES set.
	Agents []core.Agent

	Logger logging.Logger
}

// Orchestrator is the high-level entry point aggregating the engine wiring.
type Orchestrator struct {
	opts     Options
	pipeline *pipeline.Pipeline
	gateway  core.Gateway
}

// New creates an Orchestrator around the given model service. Any unset
// collaborator is initialized with a safe local default.
func New(service model.Service, optFns ...func(o *Options)) (*Orchestrator, error) {
	if service == nil {
		return nil, fmt.Errorf("genaimusic: model service is required")
	}

	opts := Options{
		Config: config.Default(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("genaimusic: invalid config: %w", err)
	}
	if opts.Store == nil {
		opts.Store = store.NewInMemoryStore()
	}
	if opts.Retriever == nil {
		opts.Retriever = retrieval.NewInMemoryIndex(retrieval.MusicDistributionCorpus()...)
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewLogSink(opts.Logger)
	}

	cfg := opts.Config
	fb := fallback.New(func(o *fallback.Options) {
		o.CallTimeout = cfg.Retry.CallTimeout.Std()
		o.Policies = map[fallback.Class]fallback.Policy{
			fallback.ClassTimeout: {
				MaxAttempts: cfg.Retry.MaxCallAttempts,
				BaseBackoff: cfg.Retry.BaseBackoff.Std(),
				MaxBackoff:  cfg.Retry.MaxBackoff.Std(),
			},
			fallback.ClassError: {
				MaxAttempts: cfg.Retry.MaxCallAttempts,
				BaseBackoff: cfg.Retry.BaseBackoff.Std(),
				MaxBackoff:  cfg.Retry.MaxBackoff.Std(),
			},
			fallback.ClassConflict: {MaxAttempts: cfg.Retry.MaxConflictRetries + 1},
		}
		o.Logger = opts.Logger
	})

	agents := opts.Agents
	if len(agents) == 0 {
		agentOpts := func(o *agent.Options) {
			o.Fallback = fb
			o.HistoryWindow = cfg.Pipeline.HistoryWindow
			o.Logger = opts.Logger
		}
		agents = []core.Agent{
			agent.NewSales(service, opts.Durable, agentOpts),
			agent.NewSupport(service, opts.Durable, agentOpts),
			agent.NewRoyalties(service, opts.Durable, agentOpts),
		}
	}
	registry, err := agent.NewRegistry(agents...)
	if err != nil {
		return nil, err
	}

	g := gate.New(service, func(o *gate.Options) {
		o.MessagesPerMinute = cfg.Gate.MessagesPerMinute
		o.Burst = cfg.Gate.Burst
		o.FailClosedReason = core.RejectReason(cfg.Gate.FailClosedReason)
		o.Logger = opts.Logger
	})

	p, err := pipeline.New(opts.Store, service, registry, func(o *pipeline.Options) {
		o.Gate = g
		o.Router = router.New(func(ro *router.Options) {
			ro.ConfidenceThreshold = cfg.Router.ConfidenceThreshold
			ro.Logger = opts.Logger
		})
		o.Priority = priority.New(func(po *priority.Options) {
			po.Weights = cfg.Priority.Weights
			po.EscalationThreshold = cfg.Priority.EscalationThreshold
			po.RiskCeiling = cfg.Priority.RiskCeiling
			po.CriticalThreshold = cfg.Priority.CriticalThreshold
		})
		o.Fallback = fb
		o.Retriever = opts.Retriever
		o.Durable = opts.Durable
		o.Gateway = opts.Gateway
		o.Audit = opts.Audit
		o.Logger = opts.Logger
		o.Pipeline = cfg.Pipeline
		o.Retry = cfg.Retry
	})
	if err != nil {
		return nil, err
	}

	return &Orchestrator{opts: opts, pipeline: p, gateway: opts.Gateway}, nil
}

// ProcessMessage runs one inbound message through the pipeline and returns
// the turn result. Turns of the same conversation must not be processed
// concurrently; use Serve for automatic per-conversation sequencing.
func (o *Orchestrator) ProcessMessage(ctx context.Context, in core.Inbound) (pipeline.Result, error) {
	return o.pipeline.Process(ctx, in)
}

// Serve pumps the configured gateway until ctx is cancelled, processing each
// conversation's messages in strict arrival order.
func (o *Orchestrator) Serve(ctx context.Context) error {
	return o.pipeline.Serve(ctx)
}

// Resume hands a human-handled conversation back to an automated agent.
func (o *Orchestrator) Resume(ctx context.Context, conversationKey string, target core.AgentID) error {
	return o.pipeline.Resume(ctx, conversationKey, target)
}
