// Package streams provides the cancelable subscription primitive used by
// every observe operation. A Subscription delivers values on a channel until
// it is cancelled; after Cancel returns, no further value is ever delivered.
package streams

import (
	"sync"
)

// Subscription delivers values of type T until cancelled.
type Subscription[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewSubscription creates a subscription with the given channel buffer.
func NewSubscription[T any](buffer int) *Subscription[T] {
	return &Subscription[T]{
		ch:   make(chan T, buffer),
		done: make(chan struct{}),
	}
}

// C is the delivery channel. Consumers should select on C and Done together.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Done is closed when the subscription is cancelled.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Cancel stops delivery. Safe to call more than once. Publishers observe the
// cancellation on their next Publish call; consumers observe it via Done.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription[T]) Cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// TryPublish offers a value without blocking. It reports whether the value
// was accepted; a full buffer or a cancelled subscription both refuse.
// Suitable for status feeds where a slow consumer may skip intermediate
// states.
func (s *Subscription[T]) TryPublish(v T) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

// Publish offers a value to the consumer, blocking until the value is
// accepted or the subscription is cancelled. It reports whether the value
// was delivered; once it returns false, the subscription is dead and the
// publisher should stop.
func (s *Subscription[T]) Publish(v T) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.ch <- v:
		return true
	case <-s.done:
		return false
	}
}
