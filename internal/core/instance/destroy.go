package instance

import (
	"errors"
	"fmt"

	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// Destroy tears the node down: it detaches from its parent, becomes
// permanently parent-locked and non-archivable, destroys its unlocked
// children (locked children only have their own children cleared), leaves the
// unique-id registry, fires Destroyed and disposes every signal.
//
// Destroying twice is a no-op. Parent-locked nodes fail with ErrParentLocked.
// Errors from child teardown are joined and returned once the node itself is
// fully destroyed.
func (n *Instance) Destroy() error {
	if n.IsDestroyed() {
		return nil
	}
	if n.ParentLocked() {
		return fmt.Errorf("destroy %s: %w", n.FullName(), ErrParentLocked)
	}
	return n.destroy()
}

func (n *Instance) destroy() error {
	if !n.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	logger := n.Logger()
	logger.Debug("destroying instance")

	// A handler panic never stops the teardown half way. The first one is
	// re-raised once the node is fully destroyed.
	var err error
	first := capturePanic(func() {
		// detaching to nil is always valid on the internal path
		_ = n.setParent(nil, true)
	})
	n.parentLocked.Store(true)
	n.archivable.Store(false)
	if p := capturePanic(func() { n.SetSelected(false) }); first == nil {
		first = p
	}
	if p := capturePanic(func() { err = n.clearChildren() }); first == nil {
		first = p
	}

	n.ctx.unregister(n, n.UniqueID())
	n.cancelWaiters()
	recordDestroyed(n.kind.Name)

	n.Destroyed.FireIsolated(n, func(recovered any) {
		logger.Error("destroyed handler panicked", log.Any("panic", recovered))
	})
	for _, s := range n.signals() {
		s.Dispose()
	}
	if first != nil {
		panic(first)
	}
	return err
}

// ClearAllChildren destroys every unlocked child. Locked children survive
// but have their own children cleared.
func (n *Instance) ClearAllChildren() error {
	return n.clearChildren()
}

// clearChildren visits every child even when one of them panics; the first
// panic is re-raised after the loop.
func (n *Instance) clearChildren() error {
	var (
		errs  []error
		first any
	)
	for _, ch := range n.children.snapshotAll() {
		var err error
		p := capturePanic(func() {
			if ch.ParentLocked() {
				err = ch.clearChildren()
			} else {
				err = ch.Destroy()
			}
		})
		if p != nil && first == nil {
			first = p
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if first != nil {
		panic(first)
	}
	return errors.Join(errs...)
}

func capturePanic(fn func()) (recovered any) {
	defer func() { recovered = recover() }()
	fn()
	return nil
}

// forceDestroy destroys n and its whole subtree regardless of parent locks.
// Only the owning Context uses it, on Close.
func (n *Instance) forceDestroy() error {
	n.walk(func(d *Instance) {
		if !d.IsDestroyed() {
			d.parentLocked.Store(false)
		}
	})
	return n.destroy()
}
