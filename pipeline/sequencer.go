package pipeline

import (
	"context"
	"errors"
	"sync"
)

// Sequencer serializes turn processing per conversation in strict arrival
// order, while unrelated conversations proceed concurrently. One goroutine
// per active conversation drains its queue and exits when it empties.
type Sequencer struct {
	mu     sync.Mutex
	queues map[string][]func()
	wg     sync.WaitGroup
}

// NewSequencer creates an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{queues: map[string][]func(){}}
}

// Enqueue schedules fn for the conversation key. Functions for the same key
// run one at a time in enqueue order.
func (s *Sequencer) Enqueue(key string, fn func()) {
	s.mu.Lock()
	queue, active := s.queues[key]
	s.queues[key] = append(queue, fn)
	if !active {
		s.wg.Add(1)
		go s.drain(key)
	}
	s.mu.Unlock()
}

func (s *Sequencer) drain(key string) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		queue := s.queues[key]
		if len(queue) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn := queue[0]
		s.queues[key] = queue[1:]
		s.mu.Unlock()

		fn()
	}
}

// Wait blocks until every queued function has run. Call after the producer
// side stopped enqueuing.
func (s *Sequencer) Wait() { s.wg.Wait() }

// Serve pumps inbound messages from the pipeline's gateway through the
// sequencer, keeping strict per-conversation arrival order. It returns when
// ctx is cancelled, after letting in-flight turns finish.
func (p *Pipeline) Serve(ctx context.Context) error {
	if p.gw == nil {
		return errors.New("pipeline: no gateway configured")
	}
	seq := NewSequencer()
	defer seq.Wait()

	for {
		in, err := p.gw.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("pipeline.receive_failed", "error", err.Error())
			continue
		}
		msg := in
		seq.Enqueue(msg.ConversationKey, func() {
			if _, err := p.Process(ctx, msg); err != nil && ctx.Err() == nil {
				p.logger.Error("pipeline.process_failed", "conversation_key", msg.ConversationKey, "error", err.Error())
			}
		})
	}
}
