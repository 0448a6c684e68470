// Package config holds the engine's tunable knobs: gate rate limits, routing
// confidence threshold, priority weights and ceilings, retry/backoff policy
// and per-turn budgets. Defaults are safe for local development; Load reads
// overrides from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML parsing of Go duration strings
// ("250ms", "5s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Gate configures the security gate.
type Gate struct {
	// MessagesPerMinute bounds turns per identity per rolling window.
	MessagesPerMinute int `yaml:"messages_per_minute"`
	// Burst allows short spikes above the sustained rate.
	Burst int `yaml:"burst"`
	// FailClosedReason is the rejection reason used when the classification
	// capability itself fails: "malicious-intent" or "out-of-domain".
	FailClosedReason string `yaml:"fail_closed_reason"`
}

// Router configures the handoff policy.
type Router struct {
	// ConfidenceThreshold below which a differing intent keeps the current
	// agent (stickiness).
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// Weights are the fixed aggregation weights for the five priority
// sub-scores. They should sum to 1.0.
type Weights struct {
	Sentiment   float64 `yaml:"sentiment"`
	Security    float64 `yaml:"security"`
	Financial   float64 `yaml:"financial"`
	Legal       float64 `yaml:"legal"`
	Operational float64 `yaml:"operational"`
}

// Priority configures the escalation engine.
type Priority struct {
	Weights Weights `yaml:"weights"`
	// EscalationThreshold on the weighted total (0..10).
	EscalationThreshold float64 `yaml:"escalation_threshold"`
	// RiskCeiling is the per-dimension hard ceiling: any single risk
	// sub-score at or above it escalates regardless of the total.
	RiskCeiling float64 `yaml:"risk_ceiling"`
	// CriticalThreshold marks totals that demand immediate escalation.
	CriticalThreshold float64 `yaml:"critical_threshold"`
}

// Retry configures the fallback controller and conflict replay.
type Retry struct {
	// MaxConflictRetries bounds version-conflict replays of a turn.
	MaxConflictRetries int `yaml:"max_conflict_retries"`
	// MaxCallAttempts bounds attempts per collaborator call (1 = no retry).
	MaxCallAttempts int `yaml:"max_call_attempts"`
	// CallTimeout applies to each collaborator call attempt.
	CallTimeout Duration `yaml:"call_timeout"`
	// BaseBackoff is the initial delay between attempts, doubled per retry
	// up to MaxBackoff.
	BaseBackoff Duration `yaml:"base_backoff"`
	MaxBackoff  Duration `yaml:"max_backoff"`
	// ReuseGenerationOnConflict replays a conflicted turn without re-paying
	// the generation call. Classification and scoring always re-run.
	ReuseGenerationOnConflict bool `yaml:"reuse_generation_on_conflict"`
}

// Pipeline configures per-turn execution.
type Pipeline struct {
	// RetrievalTopK passages fetched per turn.
	RetrievalTopK int `yaml:"retrieval_top_k"`
	// MaxCallsPerTurn bounds collaborator calls within one turn.
	MaxCallsPerTurn int `yaml:"max_calls_per_turn"`
	// MaxTurnsBeforeEscalation forces an escalation once a conversation
	// accumulates this many messages without resolution. 0 disables.
	MaxTurnsBeforeEscalation int `yaml:"max_turns_before_escalation"`
	// HistoryWindow is how many trailing messages agents see.
	HistoryWindow int `yaml:"history_window"`
}

// Config aggregates all engine settings.
type Config struct {
	Gate     Gate     `yaml:"gate"`
	Router   Router   `yaml:"router"`
	Priority Priority `yaml:"priority"`
	Retry    Retry    `yaml:"retry"`
	Pipeline Pipeline `yaml:"pipeline"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Gate: Gate{
			MessagesPerMinute: 10,
			Burst:             5,
			FailClosedReason:  "malicious-intent",
		},
		Router: Router{
			ConfidenceThreshold: 0.7,
		},
		Priority: Priority{
			Weights: Weights{
				Sentiment:   0.4,
				Security:    0.15,
				Financial:   0.15,
				Legal:       0.15,
				Operational: 0.15,
			},
			EscalationThreshold: 7.0,
			RiskCeiling:         8.0,
			CriticalThreshold:   9.0,
		},
		Retry: Retry{
			MaxConflictRetries:        2,
			MaxCallAttempts:           3,
			CallTimeout:               Duration(10 * time.Second),
			BaseBackoff:               Duration(200 * time.Millisecond),
			MaxBackoff:                Duration(2 * time.Second),
			ReuseGenerationOnConflict: false,
		},
		Pipeline: Pipeline{
			RetrievalTopK:            3,
			MaxCallsPerTurn:          12,
			MaxTurnsBeforeEscalation: 20,
			HistoryWindow:            5,
		},
	}
}

// Load reads a YAML file over the defaults. Missing fields keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Gate.MessagesPerMinute <= 0 {
		return fmt.Errorf("gate.messages_per_minute must be positive")
	}
	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		return fmt.Errorf("router.confidence_threshold must be in [0,1]")
	}
	sum := c.Priority.Weights.Sentiment + c.Priority.Weights.Security +
		c.Priority.Weights.Financial + c.Priority.Weights.Legal + c.Priority.Weights.Operational
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("priority.weights must sum to 1.0, got %.2f", sum)
	}
	if c.Retry.MaxCallAttempts < 1 {
		return fmt.Errorf("retry.max_call_attempts must be at least 1")
	}
	if c.Retry.CallTimeout.Std() <= 0 {
		return fmt.Errorf("retry.call_timeout must be positive")
	}
	return nil
}
