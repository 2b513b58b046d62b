package signal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrDisposed is returned by Wait on a disposed signal.
var ErrDisposed = errors.New("signal disposed")

// Connection is the token returned by Connect.
type Connection struct {
	id        string
	connected atomic.Bool
	once      bool
	detach    func(*Connection)
}

// ID returns the unique subscription id.
func (c *Connection) ID() string { return c.id }

// Connected reports whether the handler still receives events.
func (c *Connection) Connected() bool { return c != nil && c.connected.Load() }

// Disconnect stops delivery to the handler. Safe to call more than once.
func (c *Connection) Disconnect() {
	if c == nil || !c.connected.Swap(false) {
		return
	}
	if c.detach != nil {
		c.detach(c)
	}
}

type subscription[T any] struct {
	conn    *Connection
	handler func(T)
}

// Signal is a typed, synchronous, multi-subscriber event. Handlers run on the
// goroutine that calls Fire, in the order they were connected.
type Signal[T any] struct {
	name     string
	mu       sync.RWMutex
	subs     []subscription[T]
	disposed bool
}

// New creates an empty Signal.
func New[T any](name string) *Signal[T] {
	return &Signal[T]{name: name}
}

func (s *Signal[T]) Name() string { return s.name }

// Connect subscribes handler. Connecting to a disposed signal returns a
// connection that is already disconnected.
func (s *Signal[T]) Connect(handler func(T)) *Connection {
	return s.connect(handler, false)
}

// Once subscribes handler for a single delivery.
func (s *Signal[T]) Once(handler func(T)) *Connection {
	return s.connect(handler, true)
}

func (s *Signal[T]) connect(handler func(T), once bool) *Connection {
	c := &Connection{id: uuid.NewString(), once: once}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || handler == nil {
		return c
	}
	c.connected.Store(true)
	c.detach = s.remove
	s.subs = append(s.subs, subscription[T]{conn: c, handler: handler})
	return c
}

// Disconnect is equivalent to c.Disconnect().
func (s *Signal[T]) Disconnect(c *Connection) {
	c.Disconnect()
}

func (s *Signal[T]) remove(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.conn == c {
			// copy-on-write so snapshots taken by Fire stay intact
			next := make([]subscription[T], 0, len(s.subs)-1)
			next = append(next, s.subs[:i]...)
			s.subs = append(next, s.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of connected handlers.
func (s *Signal[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Disposed reports whether Dispose has been called.
func (s *Signal[T]) Disposed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disposed
}

func (s *Signal[T]) snapshot() []subscription[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.disposed {
		return nil
	}
	return s.subs
}

// Fire delivers arg to every handler connected when Fire started. Handlers
// disconnected by an earlier handler in the same Fire are skipped. A panic in
// a handler propagates to the caller.
func (s *Signal[T]) Fire(arg T) {
	for _, sub := range s.snapshot() {
		if !s.claim(sub) {
			continue
		}
		sub.handler(arg)
	}
}

// FireIsolated is Fire for teardown paths: a panicking handler is reported
// to onPanic and the remaining handlers still run.
func (s *Signal[T]) FireIsolated(arg T, onPanic func(recovered any)) {
	for _, sub := range s.snapshot() {
		if !s.claim(sub) {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil && onPanic != nil {
					onPanic(r)
				}
			}()
			sub.handler(arg)
		}()
	}
}

func (s *Signal[T]) claim(sub subscription[T]) bool {
	if !sub.conn.connected.Load() {
		return false
	}
	if sub.conn.once {
		// only the goroutine that flips the flag delivers
		if !sub.conn.connected.Swap(false) {
			return false
		}
		s.remove(sub.conn)
	}
	return true
}

// Wait blocks until the next Fire and returns its argument.
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	ch := make(chan T, 1)
	c := s.Once(func(v T) { ch <- v })
	var zero T
	if !c.Connected() {
		return zero, ErrDisposed
	}
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		c.Disconnect()
		// Fire may have won the race after Done was selected
		select {
		case v := <-ch:
			return v, nil
		default:
		}
		return zero, ctx.Err()
	}
}

// Dispose drops every handler; later Fire and Connect calls are no-ops.
func (s *Signal[T]) Dispose() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.disposed = true
	s.mu.Unlock()
	for _, sub := range subs {
		sub.conn.connected.Store(false)
	}
}
