// Package eventstream is a small in-memory fan-out: one publisher, many
// subscribers, each with its own buffered channel. Publishing never blocks;
// a subscriber that stops draining loses events rather than stalling the
// orchestrator's event loop.
package eventstream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// subscriberBuffer absorbs bursts: a scenario with many parallel background
// steps can emit a batch of status events in one scheduler tick.
const subscriberBuffer = 256

// ErrClosed is returned by Subscribe after Shutdown.
var ErrClosed = errors.New("eventstream: streamer closed")

type subscriber[T any] struct {
	ctx    context.Context
	ch     chan T
	closed atomic.Bool
}

// Streamer fans events out to all active subscribers.
type Streamer[T any] struct {
	mu          sync.RWMutex
	subscribers map[*subscriber[T]]struct{}
	closed      atomic.Bool
}

// New creates an empty streamer.
func New[T any]() *Streamer[T] {
	return &Streamer[T]{subscribers: make(map[*subscriber[T]]struct{})}
}

// Subscribe registers a new subscriber. The returned channel is closed when
// the context is cancelled or the streamer shuts down.
func (s *Streamer[T]) Subscribe(ctx context.Context) (<-chan T, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	sub := &subscriber[T]{ctx: ctx, ch: make(chan T, subscriberBuffer)}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.remove(sub)
	}()

	return sub.ch, nil
}

// Publish delivers the event to every subscriber that can take it without
// blocking.
func (s *Streamer[T]) Publish(event T) {
	if s.closed.Load() {
		return
	}

	s.mu.RLock()
	subs := make([]*subscriber[T], 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		s.trySend(sub, event)
	}
}

// trySend delivers without blocking. The subscriber's channel may be closed by
// remove between the flag check and the send; the recover turns that narrow
// race into a dropped event.
func (s *Streamer[T]) trySend(sub *subscriber[T], event T) {
	defer func() {
		if r := recover(); r != nil {
			sub.closed.Store(true)
		}
	}()

	if sub.closed.Load() {
		return
	}
	select {
	case sub.ch <- event:
	default:
	}
}

// Shutdown closes every subscriber channel. Further Subscribe calls fail with
// ErrClosed; further Publish calls are no-ops.
func (s *Streamer[T]) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subscribers {
		if sub.closed.CompareAndSwap(false, true) {
			close(sub.ch)
		}
	}
	s.subscribers = nil
}

func (s *Streamer[T]) remove(sub *subscriber[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers == nil {
		return
	}
	if _, ok := s.subscribers[sub]; !ok {
		return
	}
	delete(s.subscribers, sub)
	if sub.closed.CompareAndSwap(false, true) {
		close(sub.ch)
	}
}
