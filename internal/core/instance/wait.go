package instance

import (
	"context"
	"time"

	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// InfiniteYieldWarning is how long an unbounded WaitForChild runs before a
// warning is logged.
const InfiniteYieldWarning = 5 * time.Second

type childWaiter struct {
	name string
	ch   chan *Instance
}

// WaitForChild returns the child named name, suspending the calling goroutine
// until such a child is added or renamed into place. A positive timeout or
// the ctx deadline bounds the wait; on expiry the registration is removed and
// ok is false. Destroying n also resumes every waiter with ok false.
func (n *Instance) WaitForChild(ctx context.Context, name string, timeout time.Duration) (child *Instance, ok bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	n.waitMu.Lock()
	if n.IsDestroyed() {
		n.waitMu.Unlock()
		return nil, false
	}
	if ch := n.children.FindByName(name); ch != nil {
		n.waitMu.Unlock()
		return ch, true
	}
	w := &childWaiter{name: name, ch: make(chan *Instance, 1)}
	n.waiters[name] = append(n.waiters[name], w)
	n.waitMu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	} else {
		warn := time.AfterFunc(InfiniteYieldWarning, func() {
			n.Logger().Warn("infinite yield possible", log.String("child", name))
		})
		defer warn.Stop()
	}

	select {
	case ch := <-w.ch:
		return ch, ch != nil
	case <-ctx.Done():
		if n.removeWaiter(w) {
			recordWaitTimeout(n.kind.Name)
			return nil, false
		}
		// fulfilment removed the registration first and has already sent
		ch := <-w.ch
		return ch, ch != nil
	}
}

// PendingWaits returns the number of registered waiters for name.
func (n *Instance) PendingWaits(name string) int {
	n.waitMu.Lock()
	defer n.waitMu.Unlock()
	return len(n.waiters[name])
}

func (n *Instance) removeWaiter(w *childWaiter) bool {
	n.waitMu.Lock()
	defer n.waitMu.Unlock()
	list := n.waiters[w.name]
	for i, other := range list {
		if other == w {
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(n.waiters, w.name)
			} else {
				n.waiters[w.name] = list
			}
			return true
		}
	}
	return false
}

// fulfillWaiters resumes every waiter registered for child's current name.
func (n *Instance) fulfillWaiters(child *Instance) {
	n.waitMu.Lock()
	defer n.waitMu.Unlock()
	name := child.Name()
	list, ok := n.waiters[name]
	if !ok || child.Parent() != n {
		return
	}
	delete(n.waiters, name)
	for _, w := range list {
		w.ch <- child
	}
}

func (n *Instance) cancelWaiters() {
	n.waitMu.Lock()
	defer n.waitMu.Unlock()
	for name, list := range n.waiters {
		for _, w := range list {
			w.ch <- nil
		}
		delete(n.waiters, name)
	}
}
