// Package gateway adapts messaging channels to the orchestrator's Gateway
// contract. The Loopback implementation backs tests and local demos; a
// production deployment plugs a WhatsApp or web-chat adapter in behind the
// same interface.
package gateway

import (
	"context"
	"sync"

	"github.com/angiesanchezm/genai-music/core"
)

// Outbound is one reply delivered through the gateway.
type Outbound struct {
	ConversationKey string
	Text            string
}

// Loopback is an in-process channel gateway. Inbound messages are injected
// by the test or demo harness; outbound replies are recorded and also
// published on a channel for consumers that want to block on them.
type Loopback struct {
	inbound  chan core.Inbound
	outbound chan Outbound

	mu   sync.Mutex
	sent []Outbound
}

// NewLoopback creates a loopback gateway with the given channel capacity.
func NewLoopback(capacity int) *Loopback {
	if capacity <= 0 {
		capacity = 16
	}
	return &Loopback{
		inbound:  make(chan core.Inbound, capacity),
		outbound: make(chan Outbound, capacity),
	}
}

// Inject enqueues an inbound customer message.
func (g *Loopback) Inject(ctx context.Context, in core.Inbound) error {
	select {
	case g.inbound <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the next inbound message or cancellation.
func (g *Loopback) Receive(ctx context.Context) (core.Inbound, error) {
	select {
	case in := <-g.inbound:
		return in, nil
	case <-ctx.Done():
		return core.Inbound{}, ctx.Err()
	}
}

// Send records the outbound reply and publishes it for blocking consumers.
func (g *Loopback) Send(ctx context.Context, conversationKey, text string) error {
	out := Outbound{ConversationKey: conversationKey, Text: text}
	g.mu.Lock()
	g.sent = append(g.sent, out)
	g.mu.Unlock()

	select {
	case g.outbound <- out:
	default: // nobody draining; the record above is authoritative
	}
	return nil
}

// Outbound returns the channel of delivered replies.
func (g *Loopback) Outbound() <-chan Outbound { return g.outbound }

// Sent returns a copy of every reply delivered so far.
func (g *Loopback) Sent() []Outbound {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Outbound, len(g.sent))
	copy(out, g.sent)
	return out
}

var _ core.Gateway = (*Loopback)(nil)
