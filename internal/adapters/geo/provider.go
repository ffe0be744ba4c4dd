// Package geo provides the operator's own position for self-tracking.
package geo

import (
	"context"
	"sync"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
)

// Provider yields position fixes.
type Provider interface {
	// Current returns one fix.
	Current(ctx context.Context) (model.Position, error)
	// Watch starts a continuous stream. The caller must Close the
	// subscription on every exit path.
	Watch(ctx context.Context) (*Subscription, error)
}

// Update is one item of a position stream: a fix or a failure.
type Update struct {
	Position model.Position
	Err      error
}

// Subscription is a live position stream.
type Subscription struct {
	C <-chan Update

	once   sync.Once
	cancel func()
}

// NewSubscription wraps c. cancel runs once on the first Close.
func NewSubscription(c <-chan Update, cancel func()) *Subscription {
	return &Subscription{C: c, cancel: cancel}
}

// Close releases the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Unsupported is the provider used when no position source is configured.
type Unsupported struct{}

// Current implements Provider.
func (Unsupported) Current(context.Context) (model.Position, error) {
	return model.Position{}, ErrUnsupported
}

// Watch implements Provider.
func (Unsupported) Watch(context.Context) (*Subscription, error) {
	return nil, ErrUnsupported
}
