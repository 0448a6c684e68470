package core

// RecommendedAction is the escalation-ladder hint attached to a score.
type RecommendedAction string

const (
	ActionImmediateEscalation RecommendedAction = "immediate_escalation"
	ActionEscalateAfterReply  RecommendedAction = "escalate_after_response"
	ActionRespondAndMonitor   RecommendedAction = "respond_and_monitor"
	ActionRespond             RecommendedAction = "respond"
)

// PriorityScore is the per-turn multi-dimensional priority verdict. All
// sub-scores live on a 0..10 scale. Computed once per turn and never mutated
// afterward; computing it twice on the same immutable turn inputs yields the
// same value.
type PriorityScore struct {
	Sentiment       float64 `json:"sentiment"`
	SecurityRisk    float64 `json:"security_risk"`
	FinancialRisk   float64 `json:"financial_risk"`
	LegalRisk       float64 `json:"legal_risk"`
	OperationalRisk float64 `json:"operational_risk"`

	Total    float64 `json:"total"`
	Escalate bool    `json:"escalate"`
	// Severe marks escalations driven by a single risk dimension hitting its
	// hard ceiling (or critical urgency); these hand the conversation to a
	// human immediately rather than after the reply.
	Severe bool              `json:"severe"`
	Reason string            `json:"reason,omitempty"`
	Action RecommendedAction `json:"action"`
}

// MaxRisk returns the highest of the four risk sub-scores.
func (p PriorityScore) MaxRisk() float64 {
	m := p.SecurityRisk
	for _, v := range []float64{p.FinancialRisk, p.LegalRisk, p.OperationalRisk} {
		if v > m {
			m = v
		}
	}
	return m
}
