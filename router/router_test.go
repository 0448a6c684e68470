package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/model"
)

func snapWith(agent core.AgentID) core.Snapshot {
	return core.Snapshot{Key: "conv-1", CurrentAgent: agent}
}

func TestRoute_HighConfidenceIntentSwitches(t *testing.T) {
	r := New()

	d := r.Route(snapWith(core.AgentSales), model.Intent{Category: model.IntentSupport, Confidence: 0.9}, nil)

	assert.Equal(t, core.AgentSupport, d.Target)
	assert.True(t, d.Switched)
}

func TestRoute_LowConfidenceSticksToCurrentAgent(t *testing.T) {
	r := New()

	d := r.Route(snapWith(core.AgentSales), model.Intent{Category: model.IntentSupport, Confidence: 0.5}, nil)

	assert.Equal(t, core.AgentSales, d.Target)
	assert.False(t, d.Switched)
}

func TestRoute_UnclearIntentRetainsAgent(t *testing.T) {
	r := New()

	d := r.Route(snapWith(core.AgentRoyalties), model.Intent{Category: model.IntentUnclear, Confidence: 0.9}, nil)

	assert.Equal(t, core.AgentRoyalties, d.Target)
	assert.False(t, d.Switched)
}

func TestRoute_SameAgentIntentIsNoOp(t *testing.T) {
	r := New()

	d := r.Route(snapWith(core.AgentSupport), model.Intent{Category: model.IntentSupport, Confidence: 0.2}, nil)

	assert.Equal(t, core.AgentSupport, d.Target)
	assert.False(t, d.Switched)
}

func TestRoute_HumanIsTerminal(t *testing.T) {
	r := New()

	// Neither a high-confidence intent nor an explicit handoff leaves HUMAN.
	d := r.Route(snapWith(core.AgentHuman), model.Intent{Category: model.IntentSales, Confidence: 0.99}, nil)
	assert.Equal(t, core.AgentHuman, d.Target)

	explicit := &core.HandoffRequest{Target: core.AgentSales, Reason: "resuelto"}
	d = r.Route(snapWith(core.AgentHuman), model.Intent{}, explicit)
	assert.Equal(t, core.AgentHuman, d.Target)
}

func TestRoute_ExplicitHandoffBeatsIntent(t *testing.T) {
	r := New()

	// The executing agent's own request wins even against a contradicting
	// high-confidence classification.
	explicit := &core.HandoffRequest{Target: core.AgentRoyalties, Reason: "consulta de pagos"}
	d := r.Route(snapWith(core.AgentSales), model.Intent{Category: model.IntentSupport, Confidence: 0.99}, explicit)

	assert.Equal(t, core.AgentRoyalties, d.Target)
	assert.True(t, d.Switched)
}

func TestRoute_InvalidExplicitTargetGoesHuman(t *testing.T) {
	r := New()

	explicit := &core.HandoffRequest{Target: core.AgentID("BILLING"), Reason: "???"}
	d := r.Route(snapWith(core.AgentSales), model.Intent{}, explicit)

	assert.Equal(t, core.AgentHuman, d.Target)
}

func TestRoute_CustomThreshold(t *testing.T) {
	r := New(func(o *Options) { o.ConfidenceThreshold = 0.4 })

	d := r.Route(snapWith(core.AgentSales), model.Intent{Category: model.IntentSupport, Confidence: 0.5}, nil)

	assert.Equal(t, core.AgentSupport, d.Target)
	assert.True(t, d.Switched)
}
