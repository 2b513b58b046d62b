package instance

import (
	"fmt"
)

// BeforeSerialization prepares n to be saved: children switch to filter mode
// so codecs only see archivable, unlocked children, then the kind hook runs.
func (n *Instance) BeforeSerialization() error {
	if n.IsDestroyed() {
		return fmt.Errorf("serialize %s: %w", n.FullName(), ErrAlreadyDisposed)
	}
	n.children.SetFiltered(true)
	if h, ok := n.behavior.(SerializationHooks); ok {
		if err := h.BeforeSerialize(n); err != nil {
			n.children.SetFiltered(false)
			return fmt.Errorf("serialize %s: %w", n.FullName(), err)
		}
	}
	return nil
}

// AfterSerialization restores the unfiltered child view.
func (n *Instance) AfterSerialization() error {
	n.children.SetFiltered(false)
	if h, ok := n.behavior.(SerializationHooks); ok {
		if err := h.AfterSerialize(n); err != nil {
			return fmt.Errorf("serialize %s: %w", n.FullName(), err)
		}
	}
	return nil
}

// BeforeDeserialization clears the existing children before a load
// repopulates them.
func (n *Instance) BeforeDeserialization() error {
	if n.IsDestroyed() {
		return fmt.Errorf("deserialize %s: %w", n.FullName(), ErrAlreadyDisposed)
	}
	if err := n.ClearAllChildren(); err != nil {
		return fmt.Errorf("deserialize %s: %w", n.FullName(), err)
	}
	if h, ok := n.behavior.(SerializationHooks); ok {
		if err := h.BeforeDeserialize(n); err != nil {
			return fmt.Errorf("deserialize %s: %w", n.FullName(), err)
		}
	}
	return nil
}

// AfterDeserialization re-links children whose parent pointer disagrees with
// the collection, recomputes cached worlds below n and lets the kind rebuild
// derived state.
func (n *Instance) AfterDeserialization() error {
	if n.IsDestroyed() {
		return fmt.Errorf("deserialize %s: %w", n.FullName(), ErrAlreadyDisposed)
	}
	n.relink()
	if h, ok := n.behavior.(SerializationHooks); ok {
		if err := h.AfterDeserialize(n); err != nil {
			return fmt.Errorf("deserialize %s: %w", n.FullName(), err)
		}
	}
	return nil
}

func (n *Instance) relink() {
	ctx := n.ctx
	ctx.topology.Lock()
	defer ctx.topology.Unlock()

	for _, ch := range n.children.snapshotAll() {
		ch.mu.Lock()
		if ch.parent != n {
			ch.parent = n
		}
		ch.mu.Unlock()
	}
	n.walk(func(d *Instance) {
		next := d.resolveWorld()
		d.mu.Lock()
		d.world = next
		d.mu.Unlock()
		d.refreshLogger()
	})
}
