// Package priority implements the multi-dimensional priority scoring and
// escalation engine. Scoring is a pure function of the turn snapshot and the
// cached classification observations: no hidden randomness, no re-querying.
// Computing a score twice on the same immutable inputs yields the same
// verdict.
package priority

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/angiesanchezm/genai-music/config"
	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/model"
)

// Options configure an Engine.
type Options struct {
	// Weights for the five sub-scores; should sum to 1.0.
	Weights config.Weights
	// EscalationThreshold on the weighted total.
	EscalationThreshold float64
	// RiskCeiling per risk dimension: a single sub-score at or above it
	// escalates regardless of the total, so one severe dimension is never
	// diluted by otherwise mild signals.
	RiskCeiling float64
	// CriticalThreshold marks totals that demand immediate escalation.
	CriticalThreshold float64
}

// Engine scores turns. Stateless and safe for concurrent use.
type Engine struct {
	opts Options
}

// New constructs an Engine with defaults from config.Default().
func New(optFns ...func(o *Options)) *Engine {
	def := config.Default().Priority
	opts := Options{
		Weights:             def.Weights,
		EscalationThreshold: def.EscalationThreshold,
		RiskCeiling:         def.RiskCeiling,
		CriticalThreshold:   def.CriticalThreshold,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{opts: opts}
}

// Sentiment label and urgency lookup tables (0..10 scale).
var (
	labelScores = map[model.SentimentLabel]float64{
		model.SentimentVeryNegative: 9,
		model.SentimentNegative:     7,
		model.SentimentNeutral:      5,
		model.SentimentPositive:     3,
	}
	urgencyScores = map[model.UrgencyLevel]float64{
		model.UrgencyCritical: 10,
		model.UrgencyHigh:     8,
		model.UrgencyMedium:   5,
		model.UrgencyLow:      2,
	}
)

// Keyword detectors per risk dimension. A hit raises the dimension to at
// least the floor, combined by max with the classifier observation so a
// classifier miss cannot zero out an obvious signal.
type keywordDetector struct {
	re    *regexp.Regexp
	floor float64
}

var riskDetectors = map[string]keywordDetector{
	"security": {
		re:    regexp.MustCompile(`(?i)\b(fraude|hackea|hackeo|acceso no autorizado|robaron|phishing|suplantaci[oó]n)\b`),
		floor: 6,
	},
	"financial": {
		re:    regexp.MustCompile(`(?i)\b(reembolso|no me pagaron|cobro indebido|factura err[oó]nea|disputa de pago|chargeback)\b`),
		floor: 6,
	},
	"legal": {
		re:    regexp.MustCompile(`(?i)\b(copyright|derechos de autor|demanda|abogado|infracci[oó]n|plagio|disputa legal)\b`),
		floor: 6,
	},
	"operational": {
		re:    regexp.MustCompile(`(?i)\b(no aparece|ca[ií]do|bloqueado|no funciona|error cr[ií]tico|lanzamiento detenido)\b`),
		floor: 6,
	},
}

// Score computes the per-turn priority verdict from the snapshot, the latest
// turn text and the single sampled sentiment/implication observations cached
// with the turn.
func (e *Engine) Score(snap core.Snapshot, text string, sent model.Sentiment, imp model.Implications) core.PriorityScore {
	score := core.PriorityScore{
		Sentiment:       e.sentimentScore(sent),
		SecurityRisk:    e.riskScore("security", imp.Security, text),
		FinancialRisk:   e.riskScore("financial", imp.Financial, text),
		LegalRisk:       e.riskScore("legal", imp.Legal, text),
		OperationalRisk: e.riskScore("operational", imp.Operational, text),
	}

	w := e.opts.Weights
	score.Total = round2(score.Sentiment*w.Sentiment +
		score.SecurityRisk*w.Security +
		score.FinancialRisk*w.Financial +
		score.LegalRisk*w.Legal +
		score.OperationalRisk*w.Operational)

	ceilingHit := score.MaxRisk() >= e.opts.RiskCeiling
	critical := sent.Urgency == model.UrgencyCritical

	score.Severe = ceilingHit || critical
	score.Escalate = score.Total >= e.opts.EscalationThreshold || score.Severe
	score.Action = e.action(score)
	if score.Escalate {
		score.Reason = e.reason(score, sent)
	}
	return score
}

// sentimentScore maps the observation onto 0..10: 30% label, 40% urgency,
// 30% frustration.
func (e *Engine) sentimentScore(sent model.Sentiment) float64 {
	label, ok := labelScores[sent.Label]
	if !ok {
		label = labelScores[model.SentimentNeutral]
	}
	urgency, ok := urgencyScores[sent.Urgency]
	if !ok {
		urgency = urgencyScores[model.UrgencyLow]
	}
	return round2(label*0.3 + urgency*0.4 + clamp(sent.Frustration)*0.3)
}

func (e *Engine) riskScore(dimension string, observed float64, text string) float64 {
	v := clamp(observed)
	if det, ok := riskDetectors[dimension]; ok && det.re.MatchString(text) && det.floor > v {
		v = det.floor
	}
	return v
}

func (e *Engine) action(score core.PriorityScore) core.RecommendedAction {
	switch {
	case score.Severe || score.Total >= e.opts.CriticalThreshold:
		return core.ActionImmediateEscalation
	case score.Total >= e.opts.EscalationThreshold:
		return core.ActionEscalateAfterReply
	case score.Total >= 5.0:
		return core.ActionRespondAndMonitor
	default:
		return core.ActionRespond
	}
}

func (e *Engine) reason(score core.PriorityScore, sent model.Sentiment) string {
	var reasons []string
	if sent.Label == model.SentimentVeryNegative {
		reasons = append(reasons, "cliente muy insatisfecho")
	}
	if sent.Urgency == model.UrgencyCritical {
		reasons = append(reasons, "urgencia crítica")
	}
	if sent.Frustration >= 8 {
		reasons = append(reasons, "alta frustración")
	}
	for name, v := range map[string]float64{
		"security":    score.SecurityRisk,
		"financial":   score.FinancialRisk,
		"legal":       score.LegalRisk,
		"operational": score.OperationalRisk,
	} {
		if v >= e.opts.RiskCeiling {
			reasons = append(reasons, fmt.Sprintf("implicación %s crítica", name))
		}
	}
	if len(reasons) == 0 {
		return "score de prioridad alto"
	}
	// Map iteration order is random; sort for deterministic reasons.
	slices.Sort(reasons)
	return strings.Join(reasons, ", ")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
