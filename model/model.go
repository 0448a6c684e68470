// Package model defines the language understanding/generation capability
// consumed by the engine: intent, sentiment and implication classification
// plus tool-calling text generation. Vendor adapters live in subpackages;
// the engine itself never imports a provider SDK.
package model

import (
	"context"
	"encoding/json"

	"github.com/angiesanchezm/genai-music/core"
)

// IntentCategory is the closed set of intent classes plus a residual
// "unclear" bucket for low-signal messages.
type IntentCategory string

const (
	IntentSales     IntentCategory = "SALES"
	IntentSupport   IntentCategory = "SUPPORT"
	IntentRoyalties IntentCategory = "ROYALTIES"
	IntentUnclear   IntentCategory = "UNCLEAR"
)

// Agent maps an intent category onto the agent that owns it. Unclear maps to
// no agent (ok == false).
func (c IntentCategory) Agent() (core.AgentID, bool) {
	switch c {
	case IntentSales:
		return core.AgentSales, true
	case IntentSupport:
		return core.AgentSupport, true
	case IntentRoyalties:
		return core.AgentRoyalties, true
	}
	return "", false
}

// Intent is the result of classifying an inbound message.
type Intent struct {
	Category   IntentCategory `json:"category"`
	Confidence float64        `json:"confidence"`
}

// SentimentLabel grades the emotional tone of a message.
type SentimentLabel string

const (
	SentimentPositive     SentimentLabel = "positive"
	SentimentNeutral      SentimentLabel = "neutral"
	SentimentNegative     SentimentLabel = "negative"
	SentimentVeryNegative SentimentLabel = "very_negative"
)

// UrgencyLevel grades how time-critical a message is.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// Sentiment is a single sampled sentiment observation for one turn. The
// pipeline caches it with the turn; it is never re-queried for the same
// immutable snapshot.
type Sentiment struct {
	Label       SentimentLabel `json:"sentiment"`
	Urgency     UrgencyLevel   `json:"urgency"`
	Frustration float64        `json:"frustration_level"` // 0..10
	Confidence  float64        `json:"confidence"`        // 0..1
}

// NeutralSentiment is the conservative fallback when classification fails.
func NeutralSentiment() Sentiment {
	return Sentiment{Label: SentimentNeutral, Urgency: UrgencyLow, Frustration: 5, Confidence: 0}
}

// Implications carries the four risk dimensions detected in a message, each
// on a 0..10 scale.
type Implications struct {
	Security    float64 `json:"security"`
	Financial   float64 `json:"financial"`
	Legal       float64 `json:"legal"`
	Operational float64 `json:"operational"`
}

// ToolCall is a function call request surfaced by a model provider, unified
// across vendors.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult feeds a tool execution result back into generation.
type ToolResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Turn is one normalized chat message inside a generation request.
type Turn struct {
	Role        string       `json:"role"` // user, assistant, system
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Request captures the normalized generation input produced by agents.
type Request struct {
	Instructions string           `json:"instructions"`
	Turns        []Turn           `json:"turns"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final generation result for a request.
type Response struct {
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a service implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Service is the language understanding/generation collaborator. Every call
// may fail or time out; callers wrap invocations with the fallback
// controller, which owns timeouts and retries.
type Service interface {
	// ClassifyIntent maps free text onto an intent category with confidence.
	ClassifyIntent(ctx context.Context, text string) (Intent, error)

	// ClassifySentiment grades tone/urgency/frustration using up to the last
	// few messages of history for context.
	ClassifySentiment(ctx context.Context, text string, history []core.Message) (Sentiment, error)

	// ClassifyImplications detects risk signals across the four dimensions.
	ClassifyImplications(ctx context.Context, text string) (Implications, error)

	// InDomain reports whether the message plausibly belongs to the
	// service's business domain.
	InDomain(ctx context.Context, text string) (bool, error)

	// Malicious reports whether the message solicits fraud, abuse or
	// attempts to manipulate the system.
	Malicious(ctx context.Context, text string) (bool, error)

	// Generate produces the next assistant turn, possibly requesting tools.
	Generate(ctx context.Context, req Request) (Response, error)

	// Info returns metadata about the service implementation.
	Info() Info
}
