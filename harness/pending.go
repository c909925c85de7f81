package harness

import (
	"sync"

	"github.com/hostlink-dev/hostlink/wireformat"
)

// Key identifies one in-flight invocation's pending response slot. Two
// keys are equal iff both tokens match; the type is comparable so map
// hashing covers both fields jointly.
type Key struct {
	Callback wireformat.CallbackID
	Error    wireformat.CallbackID
}

// KeyFor derives the correlation key for an invocation payload.
func KeyFor(payload wireformat.InvokePayload) Key {
	return Key{Callback: payload.Callback, Error: payload.Error}
}

// Pending is the registry of invocations currently awaiting delivery.
// It maps a correlation key to a one-shot response channel. All access
// is mediated by a single lock; Register and Take from different
// goroutines observe a consistent linearized order.
type Pending struct {
	mu      sync.Mutex
	waiters map[Key]chan wireformat.Response
	closed  bool
}

// NewPending creates an empty registry.
func NewPending() *Pending {
	return &Pending{waiters: make(map[Key]chan wireformat.Response)}
}

// Register creates a fresh one-shot channel for key and returns its
// receive side. The channel is buffered so delivery never blocks on an
// absent or timed-out receiver.
//
// Registering a key that is already present silently replaces the
// previous channel; its waiter will never be delivered to. Callers must
// not reuse a key while its invocation is still in flight.
func (p *Pending) Register(key Key) <-chan wireformat.Response {
	ch := make(chan wireformat.Response, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return ch
	}
	p.waiters[key] = ch
	return ch
}

// Take atomically removes and returns the channel registered under key.
// It never blocks.
func (p *Pending) Take(key Key) (chan<- wireformat.Response, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.waiters[key]
	if ok {
		delete(p.waiters, key)
	}
	return ch, ok
}

// Remove drops the entry for key, if any. Used to clean up after a
// timed-out wait so a late delivery cannot race a dead assertion.
func (p *Pending) Remove(key Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.waiters, key)
}

// Len reports the number of invocations currently pending.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

// Close unblocks every waiter by closing its channel and rejects
// further registrations. Called on host teardown.
func (p *Pending) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for key, ch := range p.waiters {
		close(ch)
		delete(p.waiters, key)
	}
	return nil
}
