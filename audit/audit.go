// Package audit records the decision trail of every processed turn: gate
// verdicts, routing choices, escalations and commits. Sinks are pluggable;
// the default writes structured log lines, and MemorySink captures events
// for assertions in tests.
package audit

import (
	"sync"
	"time"

	"github.com/angiesanchezm/genai-music/logging"
)

// Kind classifies an audit event.
type Kind string

const (
	KindGateVerdict Kind = "gate_verdict"
	KindRoute       Kind = "route"
	KindEscalation  Kind = "escalation"
	KindCommit      Kind = "commit"
	KindFallback    Kind = "fallback"
	KindError       Kind = "error"
)

// Event is one audit record. Fields lives as flat key/value pairs so sinks
// can serialize without knowing every event shape.
type Event struct {
	Kind            Kind
	ConversationKey string
	TurnID          string
	At              time.Time
	Fields          map[string]any
}

// Sink receives audit events. Implementations must be safe for concurrent
// use and must never block turn processing on slow destinations.
type Sink interface {
	Record(ev Event)
}

// LogSink writes audit events as structured log lines.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogSink{logger: logger}
}

// Record emits the event as one info line.
func (s *LogSink) Record(ev Event) {
	args := []any{
		"kind", string(ev.Kind),
		"conversation_key", ev.ConversationKey,
		"turn_id", ev.TurnID,
	}
	for k, v := range ev.Fields {
		args = append(args, k, v)
	}
	s.logger.Info("audit", args...)
}

// MemorySink captures events in memory for test assertions.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty capturing sink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Record appends the event.
func (s *MemorySink) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// OfKind returns the recorded events matching kind, in arrival order.
func (s *MemorySink) OfKind(kind Kind) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Record does nothing.
func (NoOpSink) Record(Event) {}

var (
	_ Sink = (*LogSink)(nil)
	_ Sink = (*MemorySink)(nil)
	_ Sink = NoOpSink{}
)
