package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type subscriber[T any] struct {
	name    string
	ch      chan<- T
	timeout time.Duration

	closed  atomic.Bool
	dropped atomic.Int64
}

func (s *subscriber[T]) deliver(msg T) {
	if s.closed.Load() {
		s.dropped.Add(1)
		return
	}

	err := Send(s.ch, msg, s.timeout)
	if err == nil {
		return
	}

	s.dropped.Add(1)
	if errors.Is(err, ErrChannelClosed) {
		s.closed.Store(true)
	}
}

// Broadcaster copies every message from its input channel to each
// subscriber. A subscriber that cannot keep up loses messages; the others
// are unaffected.
//
// Cancelling the context passed to Run closes the input. Messages already
// queued are still delivered before Wait returns.
type Broadcaster[T any] struct {
	subscribers []*subscriber[T]
	started     atomic.Bool
	wg          sync.WaitGroup
}

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe registers ch under name. Each message waits up to timeout for ch
// to accept it; a zero timeout drops the message when ch is full.
// Subscribers must be added before Run.
func (b *Broadcaster[T]) Subscribe(name string, ch chan<- T, timeout time.Duration) error {
	switch {
	case b.started.Load():
		return errors.New("cannot subscribe after broadcaster started")
	case name == "":
		return errors.New("subscriber name cannot be empty")
	case ch == nil:
		return fmt.Errorf("subscriber %q: channel cannot be nil", name)
	case timeout < 0:
		return fmt.Errorf("subscriber %q: timeout cannot be negative, got %s", name, timeout)
	}

	for _, s := range b.subscribers {
		if s.name == name {
			return fmt.Errorf("subscriber %q already registered", name)
		}
	}

	b.subscribers = append(b.subscribers, &subscriber[T]{name: name, ch: ch, timeout: timeout})

	return nil
}

// Run starts broadcasting and returns the input channel. The broadcaster
// owns the channel and closes it when ctx is cancelled.
func (b *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if len(b.subscribers) == 0 {
		return nil, errors.New("no subscribers available")
	}

	if !b.started.CompareAndSwap(false, true) {
		return nil, errors.New("broadcaster already started")
	}

	input := make(chan T, len(b.subscribers)*2)

	b.wg.Go(func() {
		for msg := range input {
			for _, s := range b.subscribers {
				s.deliver(msg)
			}
		}
	})

	go func() {
		<-ctx.Done()
		close(input)
	}()

	return input, nil
}

// Wait blocks until the input is closed and fully delivered.
func (b *Broadcaster[T]) Wait() {
	b.wg.Wait()
}

// SubscriberStats reports delivery problems for one subscriber.
type SubscriberStats struct {
	Dropped int
	Closed  bool
}

// Stats returns delivery stats keyed by subscriber name.
func (b *Broadcaster[T]) Stats() map[string]SubscriberStats {
	stats := make(map[string]SubscriberStats, len(b.subscribers))
	for _, s := range b.subscribers {
		stats[s.name] = SubscriberStats{
			Dropped: int(s.dropped.Load()),
			Closed:  s.closed.Load(),
		}
	}

	return stats
}
