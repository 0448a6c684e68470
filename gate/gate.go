// Package gate implements pre-pipeline admission control: per-identity rate
// limiting, domain validation, prompt-injection detection and malicious
// intent analysis, run in fixed order with short-circuit on first failure.
// The gate defaults closed: a failing or timed-out classifier is a
// rejection, never an implicit allow.
package gate

import (
	"context"
	"regexp"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/logging"
)

// Classifier is the external classification capability the gate may consult.
// Satisfied by model.Service.
type Classifier interface {
	InDomain(ctx context.Context, text string) (bool, error)
	Malicious(ctx context.Context, text string) (bool, error)
}

// Options configure a Gate.
type Options struct {
	// MessagesPerMinute bounds turns per identity in a rolling window.
	MessagesPerMinute int
	// Burst allows short spikes above the sustained rate.
	Burst int
	// ClassifierTimeout applies to each classifier call. Expiry rejects.
	ClassifierTimeout time.Duration
	// FailClosedReason is the verdict used when the classifier itself fails.
	// Must be RejectMaliciousIntent or RejectOutOfDomain.
	FailClosedReason core.RejectReason
	// OffTopicPatterns and InjectionPatterns extend the built-in sets.
	OffTopicPatterns  []string
	InjectionPatterns []string
	// Logger for verdict logging.
	Logger logging.Logger
}

// Built-in pattern sets. Off-topic patterns catch the obvious cases cheaply
// before the semantic check; injection patterns cover the usual override
// phrasings in English and Spanish.
var (
	defaultOffTopicPatterns = []string{
		`\b(invertir|inversión|acciones|bolsa|forex)\b`,
		`\b(almuerzo|comida|cena|desayuno|receta)\b`,
		`\b(clima|tiempo|pronóstico)\b`,
		`\b(deporte|fútbol|basketball)\b`,
	}
	defaultInjectionPatterns = []string{
		`ignore\s+(previous|all)\s+instructions`,
		`system\s*:`,
		`<\s*system\s*>`,
		`olvida\s+(todo|las\s+instrucciones)`,
		`ignora\s+las\s+reglas`,
	}
)

// Static user-facing refusals per rejection reason. Never LLM-generated.
var rejectionMessages = map[core.RejectReason]string{
	core.RejectRateLimited:     "Has enviado demasiados mensajes. Por favor espera un momento.",
	core.RejectPromptInjection: "Lo siento, no puedo procesar ese tipo de mensaje.",
	core.RejectOutOfDomain:     "Hola! Solo puedo ayudarte con temas relacionados a distribución musical, regalías y lanzamientos. ¿En qué puedo asistirte?",
	core.RejectMaliciousIntent: "Lo siento, no puedo ayudarte con eso. ¿Tienes alguna consulta sobre nuestros servicios musicales?",
}

// RejectionMessage returns the static refusal text for a rejection reason.
func RejectionMessage(reason core.RejectReason) string {
	if msg, ok := rejectionMessages[reason]; ok {
		return msg
	}
	return "Lo siento, no puedo procesar tu mensaje en este momento."
}

// Gate evaluates inbound messages before any expensive pipeline work.
// Safe for concurrent use.
type Gate struct {
	classifier Classifier
	limit      rate.Limit
	burst      int
	timeout    time.Duration
	failClosed core.RejectReason
	offTopic   []*regexp.Regexp
	injection  []*regexp.Regexp
	logger     logging.Logger

	mu       sync.Mutex
	limiters map[string]*identityLimiter
}

type identityLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// maxTrackedIdentities triggers pruning of idle rate-limiter entries.
const maxTrackedIdentities = 1024

// New constructs a Gate around the given classifier.
func New(classifier Classifier, optFns ...func(o *Options)) *Gate {
	opts := Options{
		MessagesPerMinute: 10,
		Burst:             5,
		ClassifierTimeout: 5 * time.Second,
		FailClosedReason:  core.RejectMaliciousIntent,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MessagesPerMinute <= 0 {
		opts.MessagesPerMinute = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	g := &Gate{
		classifier: classifier,
		limit:      rate.Every(time.Minute / time.Duration(opts.MessagesPerMinute)),
		burst:      opts.Burst,
		timeout:    opts.ClassifierTimeout,
		failClosed: opts.FailClosedReason,
		logger:     opts.Logger,
		limiters:   map[string]*identityLimiter{},
	}
	if g.failClosed != core.RejectMaliciousIntent && g.failClosed != core.RejectOutOfDomain {
		g.failClosed = core.RejectMaliciousIntent
	}
	for _, p := range append(defaultOffTopicPatterns, opts.OffTopicPatterns...) {
		g.offTopic = append(g.offTopic, regexp.MustCompile(`(?i)`+p))
	}
	for _, p := range append(defaultInjectionPatterns, opts.InjectionPatterns...) {
		g.injection = append(g.injection, regexp.MustCompile(`(?i)`+p))
	}
	return g
}

// Evaluate runs the four checks in fixed order, short-circuiting on the
// first failure: rate limit, domain validation, prompt injection, malicious
// intent. The snapshot is advisory context; verdicts are never persisted.
func (g *Gate) Evaluate(ctx context.Context, snap core.Snapshot, text, identity string) core.Verdict {
	verdict := g.evaluate(ctx, text, identity)
	if !verdict.Allowed {
		g.logger.Warn("gate.rejected", "identity", identity, "reason", string(verdict.Reason), "conversation_key", snap.Key)
	} else {
		g.logger.Debug("gate.admitted", "identity", identity, "conversation_key", snap.Key)
	}
	return verdict
}

func (g *Gate) evaluate(ctx context.Context, text, identity string) core.Verdict {
	// 1. Rate limiting: cheapest check first, avoids wasting classifier calls.
	if !g.allowRate(identity) {
		return core.Reject(core.RejectRateLimited, 1)
	}

	// 2. Domain validation: obvious pattern hits first, semantic check second.
	for _, re := range g.offTopic {
		if re.MatchString(text) {
			return core.Reject(core.RejectOutOfDomain, 0.95)
		}
	}
	inDomain, err := g.classifyInDomain(ctx, text)
	if err != nil {
		return core.Reject(g.failClosed, 0.5)
	}
	if !inDomain {
		return core.Reject(core.RejectOutOfDomain, 0.8)
	}

	// 3. Prompt-injection detection.
	for _, re := range g.injection {
		if re.MatchString(text) {
			return core.Reject(core.RejectPromptInjection, 0.95)
		}
	}

	// 4. Malicious-intent analysis.
	malicious, err := g.classifyMalicious(ctx, text)
	if err != nil {
		return core.Reject(g.failClosed, 0.5)
	}
	if malicious {
		return core.Reject(core.RejectMaliciousIntent, 0.8)
	}

	return core.Allow()
}

func (g *Gate) classifyInDomain(ctx context.Context, text string) (bool, error) {
	if g.classifier == nil {
		return true, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.classifier.InDomain(ctx, text)
}

func (g *Gate) classifyMalicious(ctx context.Context, text string) (bool, error) {
	if g.classifier == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.classifier.Malicious(ctx, text)
}

func (g *Gate) allowRate(identity string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	il, ok := g.limiters[identity]
	if !ok {
		if len(g.limiters) >= maxTrackedIdentities {
			g.pruneLocked()
		}
		il = &identityLimiter{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.limiters[identity] = il
	}
	il.lastSeen = time.Now()
	return il.limiter.Allow()
}

// pruneLocked drops limiter entries idle for more than ten minutes.
func (g *Gate) pruneLocked() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for id, il := range g.limiters {
		if il.lastSeen.Before(cutoff) {
			delete(g.limiters, id)
		}
	}
}
