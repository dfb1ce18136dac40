package docstore

import (
	"context"
	"sync"
)

// Subscription is a stream of full query snapshots. Only the most recent
// snapshot is retained for a slow reader; older undelivered ones are dropped.
// Once closed it cannot be restarted.
type Subscription struct {
	updates chan []Document
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

func newSubscription(parent context.Context) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	return &Subscription{
		updates: make(chan []Document, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Updates is closed when the subscription ends.
func (s *Subscription) Updates() <-chan []Document {
	return s.updates
}

// Close stops the subscription and waits for its producer to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

// Err reports why the stream ended, nil when it was closed by the caller.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) publish(docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- docs
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		if s.ctx.Err() == nil {
			s.err = err
		}
		close(s.updates)
	}
	s.mu.Unlock()
	s.cancel()
	close(s.done)
}
