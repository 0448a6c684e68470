// Package router implements the per-turn handoff policy: explicit agent
// requests first, then confidence-gated intent switching with stickiness,
// with HUMAN as a terminal pseudo-agent that automated routing never leaves.
package router

import (
	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/logging"
	"github.com/angiesanchezm/genai-music/model"
)

// Options configure a Router.
type Options struct {
	// ConfidenceThreshold below which a differing classified intent keeps
	// the current agent (stickiness, avoids thrashing on ambiguous turns).
	ConfidenceThreshold float64
	Logger              logging.Logger
}

// Decision is the routing outcome for one turn. The router never touches
// conversation state; it only names the target, the pipeline commits it with
// the full snapshot visible unmodified to the new agent.
type Decision struct {
	Target   core.AgentID
	Switched bool
	Reason   string
}

// Router chooses the active agent per turn. Stateless, safe for concurrent use.
type Router struct {
	threshold float64
	logger    logging.Logger
}

// New constructs a Router.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		ConfidenceThreshold: 0.7,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{threshold: opts.ConfidenceThreshold, logger: opts.Logger}
}

// Route decides the target agent. Precedence:
//
//  1. HUMAN is terminal: once a conversation is human handled, no automated
//     signal re-enters an automated agent. Resume is a separate, explicit act.
//  2. An explicit handoff request from the executing agent is honored
//     unconditionally, even against a contradicting high-confidence intent.
//  3. A classified intent differing from the current agent's category
//     switches only above the confidence threshold; otherwise the current
//     agent is retained.
func (r *Router) Route(snap core.Snapshot, intent model.Intent, explicit *core.HandoffRequest) Decision {
	current := snap.CurrentAgent
	if !current.Valid() {
		current = core.DefaultAgent
	}

	if current == core.AgentHuman {
		return r.decide(current, core.AgentHuman, "human handled, automated re-entry refused")
	}

	if explicit != nil {
		target := explicit.Target
		if !target.Valid() {
			target = core.AgentHuman
		}
		return r.decide(current, target, "explicit handoff: "+explicit.Reason)
	}

	target, ok := intent.Category.Agent()
	if !ok {
		// Residual "unclear" category: ambiguity never fails the turn.
		return r.decide(current, current, "intent unclear, retaining agent")
	}
	if target == current {
		return r.decide(current, current, "intent matches current agent")
	}
	if intent.Confidence < r.threshold {
		return r.decide(current, current, "intent confidence below threshold, retaining agent")
	}
	return r.decide(current, target, "high-confidence intent switch")
}

func (r *Router) decide(current, target core.AgentID, reason string) Decision {
	d := Decision{Target: target, Switched: target != current, Reason: reason}
	r.logger.Debug("router.decision", "from", string(current), "to", string(target), "switched", d.Switched, "reason", reason)
	return d
}
