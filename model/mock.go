package model

import (
	"context"
	"sync"

	"github.com/angiesanchezm/genai-music/core"
)

// Mock is a deterministic in-memory Service for tests and examples. Every
// classification can be canned per input text, and errors can be injected
// per operation to exercise fallback paths.
type Mock struct {
	mu sync.Mutex

	info Info

	intents      map[string]Intent
	sentiments   map[string]Sentiment
	implications map[string]Implications
	offDomain    map[string]bool
	malicious    map[string]bool
	responses    []Response
	requests     []Request

	failures map[string]error // keyed by operation name

	calls map[string]int
}

// NewMock constructs a Mock with tool support enabled and neutral defaults.
func NewMock() *Mock {
	return &Mock{
		info:         Info{Name: "mock", Provider: "mock", SupportsTools: true},
		intents:      map[string]Intent{},
		sentiments:   map[string]Sentiment{},
		implications: map[string]Implications{},
		offDomain:    map[string]bool{},
		malicious:    map[string]bool{},
		failures:     map[string]error{},
		calls:        map[string]int{},
	}
}

// SetIntent cans the intent classification for an input text.
func (m *Mock) SetIntent(text string, in Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[text] = in
}

// SetSentiment cans the sentiment classification for an input text.
func (m *Mock) SetSentiment(text string, s Sentiment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentiments[text] = s
}

// SetImplications cans the implication detection for an input text.
func (m *Mock) SetImplications(text string, imp Implications) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.implications[text] = imp
}

// SetOffDomain marks an input text as out of the business domain.
func (m *Mock) SetOffDomain(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offDomain[text] = true
}

// SetMalicious marks an input text as malicious.
func (m *Mock) SetMalicious(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malicious[text] = true
}

// QueueResponse appends a generation response returned in FIFO order.
func (m *Mock) QueueResponse(r Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
}

// FailWith injects an error for the named operation ("classify_intent",
// "classify_sentiment", "classify_implications", "in_domain", "malicious",
// "generate"). Pass nil to clear.
func (m *Mock) FailWith(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// GenerateRequests returns a copy of every generation request received, in
// arrival order.
func (m *Mock) GenerateRequests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Calls returns how often the named operation was invoked.
func (m *Mock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Mock) begin(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.failures[op]
}

// ClassifyIntent implements Service.
func (m *Mock) ClassifyIntent(_ context.Context, text string) (Intent, error) {
	if err := m.begin("classify_intent"); err != nil {
		return Intent{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.intents[text]; ok {
		return in, nil
	}
	return Intent{Category: IntentUnclear, Confidence: 0}, nil
}

// ClassifySentiment implements Service.
func (m *Mock) ClassifySentiment(_ context.Context, text string, _ []core.Message) (Sentiment, error) {
	if err := m.begin("classify_sentiment"); err != nil {
		return Sentiment{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sentiments[text]; ok {
		return s, nil
	}
	return NeutralSentiment(), nil
}

// ClassifyImplications implements Service.
func (m *Mock) ClassifyImplications(_ context.Context, text string) (Implications, error) {
	if err := m.begin("classify_implications"); err != nil {
		return Implications{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.implications[text], nil
}

// InDomain implements Service.
func (m *Mock) InDomain(_ context.Context, text string) (bool, error) {
	if err := m.begin("in_domain"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.offDomain[text], nil
}

// Malicious implements Service.
func (m *Mock) Malicious(_ context.Context, text string) (bool, error) {
	if err := m.begin("malicious"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.malicious[text], nil
}

// Generate implements Service; pops the next queued response or echoes the
// last user turn.
func (m *Mock) Generate(_ context.Context, req Request) (Response, error) {
	if err := m.begin("generate"); err != nil {
		return Response{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.responses) > 0 {
		r := m.responses[0]
		m.responses = m.responses[1:]
		return r, nil
	}
	var last string
	for _, t := range req.Turns {
		if t.Role == "user" && t.Text != "" {
			last = t.Text
		}
	}
	return Response{Text: "Mock response to: " + last, FinishReason: "stop"}, nil
}

// Info implements Service.
func (m *Mock) Info() Info { return m.info }

var _ Service = (*Mock)(nil)
