package instance

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Children is the ordered child set of a node. It has its own RWMutex so
// render and physics traversals can read concurrently with each other.
//
// Structural changes should go through Instance.SetParent; Add and Remove only
// maintain the set itself.
type Children struct {
	mu       sync.RWMutex
	items    []*Instance
	filtered atomic.Bool
}

func newChildren() *Children {
	return &Children{}
}

// Read runs fn with the read lock held. In filter mode fn sees only the
// serializable children. fn must not retain the slice or mutate the tree;
// take a Snapshot for that.
func (c *Children) Read(fn func(items []*Instance)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.filtered.Load() {
		fn(archivableOnly(c.items))
		return
	}
	fn(c.items)
}

// Write runs fn with the write lock held. Check-then-modify sequences belong
// inside a single Write since the lock cannot be upgraded from Read.
func (c *Children) Write(fn func(items *[]*Instance)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.items)
}

// Add appends child unless it is already present.
func (c *Children) Add(child *Instance) bool {
	if child == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.items, child) {
		return false
	}
	c.items = append(c.items, child)
	return true
}

// Remove deletes child by identity.
func (c *Children) Remove(child *Instance) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := slices.Index(c.items, child)
	if idx < 0 {
		return false
	}
	c.items = slices.Delete(c.items, idx, idx+1)
	return true
}

// Len is the size of the underlying set, regardless of filter mode.
func (c *Children) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// At returns the child at index i of the underlying set, or nil.
func (c *Children) At(i int) *Instance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// IndexOf returns the position of child or -1.
func (c *Children) IndexOf(child *Instance) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Index(c.items, child)
}

// Contains reports whether child is in the set.
func (c *Children) Contains(child *Instance) bool {
	return c.IndexOf(child) >= 0
}

// FindByName returns the first child named name in insertion order.
func (c *Children) FindByName(name string) *Instance {
	return c.FindFunc(func(ch *Instance) bool { return ch.Name() == name })
}

// FindFunc returns the first child matching pred. pred runs under the read lock.
func (c *Children) FindFunc(pred func(*Instance) bool) *Instance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.items {
		if pred(ch) {
			return ch
		}
	}
	return nil
}

// Snapshot copies the children visible under the current filter mode.
func (c *Children) Snapshot() []*Instance {
	var out []*Instance
	c.Read(func(items []*Instance) {
		out = slices.Clone(items)
	})
	return out
}

func (c *Children) snapshotAll() []*Instance {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// SetFiltered toggles serialization filter mode and returns the previous mode.
func (c *Children) SetFiltered(on bool) bool {
	return c.filtered.Swap(on)
}

// Filtered reports whether filter mode is on.
func (c *Children) Filtered() bool {
	return c.filtered.Load()
}

func archivableOnly(items []*Instance) []*Instance {
	out := make([]*Instance, 0, len(items))
	for _, ch := range items {
		if ch.Archivable() && !ch.ParentLocked() {
			out = append(out, ch)
		}
	}
	return out
}
