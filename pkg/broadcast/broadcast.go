// Package broadcast delivers the knowledge-base state to listeners after
// every mutation. Delivery is fire-and-forget: publishers report errors but
// nothing is retried, and publishing with no listener attached is a no-op.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/getmockd/kbase/pkg/entity"
)

// Publisher sends the full state to whoever is listening.
type Publisher interface {
	Publish(ctx context.Context, state entity.State) error
}

// Func adapts a function to Publisher.
type Func func(ctx context.Context, state entity.State) error

// Publish calls f.
func (f Func) Publish(ctx context.Context, state entity.State) error {
	return f(ctx, state)
}

// Nop discards every state.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, entity.State) error { return nil }

// Multi publishes to several publishers in order. Every publisher is tried;
// errors are joined.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, state entity.State) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, state.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every published state in memory. It is meant for tests and
// for in-process consumers that only need the latest value.
type Recorder struct {
	mu     sync.Mutex
	states []entity.State
}

// Publish records a copy of state.
func (r *Recorder) Publish(_ context.Context, state entity.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state.Clone())
	return nil
}

// Count returns how many states were published.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Last returns the most recent state and whether there was one.
func (r *Recorder) Last() (entity.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return entity.State{}, false
	}
	return r.states[len(r.states)-1].Clone(), true
}

// All returns copies of every recorded state in publish order.
func (r *Recorder) All() []entity.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.State, len(r.states))
	for i, s := range r.states {
		out[i] = s.Clone()
	}
	return out
}
