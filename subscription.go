package operation

import "sync"

// Subscription is a cancellable registration handle. Cancellation is
// idempotent.
type Subscription struct {
	once   *sync.Once
	cancel func()
}

// NewSubscription wraps a teardown closure as a Subscription.
func NewSubscription(teardown func()) Subscription {
	if teardown == nil {
		teardown = func() {}
	}
	return Subscription{once: &sync.Once{}, cancel: teardown}
}

// EmptySubscription is the no-op handle.
var EmptySubscription = NewSubscription(nil)

// Cancel tears down the subscription. Safe to call multiple times and from
// multiple goroutines; only the first call has effect.
func (s Subscription) Cancel() {
	if s.once == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Combined returns one handle whose cancellation cancels every handle in
// subs, each exactly once.
func Combined(subs ...Subscription) Subscription {
	captured := append([]Subscription(nil), subs...)
	return NewSubscription(func() {
		for _, s := range captured {
			s.Cancel()
		}
	})
}
