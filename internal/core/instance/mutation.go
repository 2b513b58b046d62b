package instance

import (
	"fmt"

	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// reparent is the state captured under the topology lock for one SetParent,
// replayed as notifications once the lock is released.
type reparent struct {
	node      *Instance
	oldParent *Instance
	newParent *Instance
	removed   bool
	added     bool

	// ancestors of the old and new parent, parent first, captured at swap time
	oldChain []*Instance
	newChain []*Instance

	// node and its descendants in pre-order, with world moves
	subtree []*Instance
	moves   map[*Instance]WorldChange
}

// SetParent moves n under parent (nil detaches). Self-parenting and cycles
// fail with a *ParentError and destroyed nodes with ErrAlreadyDisposed.
// Rejections by the parent filter, including parent-locked nodes, return nil
// and leave the tree untouched.
func (n *Instance) SetParent(parent *Instance) error {
	return n.setParent(parent, false)
}

func (n *Instance) setParent(parent *Instance, internal bool) error {
	r, err := n.applyReparent(parent, internal)
	if err != nil || r == nil {
		return err
	}
	r.notify()
	return nil
}

func (n *Instance) applyReparent(parent *Instance, internal bool) (*reparent, error) {
	ctx := n.ctx
	ctx.topology.Lock()
	defer ctx.topology.Unlock()

	if parent == n {
		return nil, &ParentError{Child: n.FullName(), Parent: n.FullName(), Reason: "cannot parent to self"}
	}
	if !internal && n.IsDestroyed() {
		return nil, fmt.Errorf("set parent of %s: %w", n.FullName(), ErrAlreadyDisposed)
	}
	// programming errors surface even when the filter would reject the call
	if err := n.validateParent(parent); err != nil {
		return nil, err
	}
	if internal {
		if n.Parent() == parent {
			return nil, nil
		}
	} else if !n.filterParent(parent) {
		return nil, nil
	}

	r := &reparent{
		node:      n,
		oldParent: n.Parent(),
		newParent: parent,
		moves:     make(map[*Instance]WorldChange),
	}
	if r.oldParent != nil {
		r.removed = r.oldParent.children.Remove(n)
		r.oldChain = chainFrom(r.oldParent)
	}

	n.mu.Lock()
	n.parent = parent
	n.mu.Unlock()

	if parent != nil {
		r.added = parent.children.Add(n)
		r.newChain = chainFrom(parent)
	}

	// recompute cached worlds for the moved subtree while the topology is stable
	n.walk(func(d *Instance) {
		r.subtree = append(r.subtree, d)
		d.mu.Lock()
		old := d.world
		d.mu.Unlock()
		next := d.resolveWorld()
		if next != old {
			d.mu.Lock()
			d.world = next
			d.mu.Unlock()
			r.moves[d] = WorldChange{Old: old, New: next}
		}
	})
	return r, nil
}

// filterParent is the parent filter predicate. A false result aborts the
// reparent without an error.
func (n *Instance) filterParent(parent *Instance) bool {
	current := n.Parent()
	if parent == current {
		return false
	}
	if n.ParentLocked() {
		n.Logger().Warn("rejected reparent of parent-locked instance",
			log.String("from", nameOrNil(current)),
			log.String("to", nameOrNil(parent)))
		recordReparentRejected(n.kind.Name)
		return false
	}
	if f, ok := n.behavior.(ParentFilter); ok && !f.FilterParent(n, parent) {
		return false
	}
	return true
}

func (n *Instance) validateParent(parent *Instance) error {
	if parent == nil {
		return nil
	}
	if parent.ctx != n.ctx {
		return &ParentError{Child: n.FullName(), Parent: parent.FullName(), Reason: "parent belongs to another context"}
	}
	if parent.IsDescendantOf(n) {
		return &ParentError{Child: n.FullName(), Parent: parent.FullName(), Reason: "would create circular reference"}
	}
	if parent.IsDestroyed() {
		return fmt.Errorf("set parent of %s to %s: %w", n.FullName(), parent.FullName(), ErrAlreadyDisposed)
	}
	return nil
}

// resolveWorld is n itself for world contexts, otherwise the parent's world.
// Callers hold the topology lock and have already updated the parent's world.
func (n *Instance) resolveWorld() *Instance {
	if _, ok := n.behavior.(WorldContext); ok {
		return n
	}
	p := n.Parent()
	if p == nil {
		return nil
	}
	if _, ok := p.behavior.(WorldContext); ok {
		return p
	}
	return p.World()
}

func chainFrom(start *Instance) []*Instance {
	var out []*Instance
	for a := start; a != nil; a = a.Parent() {
		out = append(out, a)
	}
	return out
}

// notify fires, in order: detach notifications on the old parent chain,
// attach notifications on the new chain, ancestry propagation through the
// moved subtree, then ParentChanged and Changed("Parent") on the node.
func (r *reparent) notify() {
	n := r.node
	if r.removed {
		r.oldParent.ChildRemoved.Fire(n)
		for _, a := range r.oldChain {
			a.DescendantRemoving.Fire(n)
		}
	}
	if r.added {
		r.newParent.ChildAdded.Fire(n)
		for _, a := range r.newChain {
			a.DescendantAdded.Fire(n)
		}
		r.newParent.fulfillWaiters(n)
	}

	change := AncestryChange{Node: n, Parent: r.newParent}
	for _, d := range r.subtree {
		d.refreshLogger()
		d.AncestryChanged.Fire(change)
		if move, ok := r.moves[d]; ok {
			d.WorldChanged.Fire(move)
		}
	}

	n.ParentChanged.Fire(r.newParent)
	n.Changed.Fire("Parent")
}

func nameOrNil(n *Instance) string {
	if n == nil {
		return "nil"
	}
	return n.FullName()
}
