package instance

import (
	"strings"
	"sync"
	"sync/atomic"
	"unique"

	"github.com/zeusync/scenecore/internal/core/events/signal"
	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// AncestryChange is the payload of AncestryChanged: Node is the node whose
// parent changed and Parent its new parent (nil when detached).
type AncestryChange struct {
	Node   *Instance
	Parent *Instance
}

// Instance is a node of the scene tree. Behavior specific to a kind lives in
// the value returned by Kind.New; see the capability interfaces.
//
// Structural notifications fire after the topology change is committed.
// DescendantRemoving follows ChildRemoved on the old parent, so its handlers
// already see the node outside the old parent's children, with its new
// parent pointer and world set. It still precedes every attach notification
// of the same SetParent.
type Instance struct {
	ctx      *Context
	kind     *Kind
	id       uint64
	behavior any

	// mu guards the fields below. It is never held while calling out of the
	// node, so it is safe to take from any handler.
	mu       sync.Mutex
	parent   *Instance
	world    *Instance
	uniqueID string
	logger   log.Log

	name     atomic.Value // string
	children *Children

	archivable   atomic.Bool
	parentLocked atomic.Bool
	selected     atomic.Bool
	destroyed    atomic.Bool

	waitMu  sync.Mutex
	waiters map[string][]*childWaiter

	Changed            *signal.Signal[string]
	ChildAdded         *signal.Signal[*Instance]
	ChildRemoved       *signal.Signal[*Instance]
	DescendantAdded    *signal.Signal[*Instance]
	DescendantRemoving *signal.Signal[*Instance]
	AncestryChanged    *signal.Signal[AncestryChange]
	ParentChanged      *signal.Signal[*Instance]
	WorldChanged       *signal.Signal[WorldChange]
	Destroyed          *signal.Signal[*Instance]
}

func newInstance(ctx *Context, kind *Kind, behavior any) *Instance {
	n := &Instance{
		ctx:      ctx,
		kind:     kind,
		id:       ctx.ids.Next(),
		behavior: behavior,
		children: newChildren(),
		waiters:  make(map[string][]*childWaiter),

		Changed:            signal.New[string]("Changed"),
		ChildAdded:         signal.New[*Instance]("ChildAdded"),
		ChildRemoved:       signal.New[*Instance]("ChildRemoved"),
		DescendantAdded:    signal.New[*Instance]("DescendantAdded"),
		DescendantRemoving: signal.New[*Instance]("DescendantRemoving"),
		AncestryChanged:    signal.New[AncestryChange]("AncestryChanged"),
		ParentChanged:      signal.New[*Instance]("ParentChanged"),
		WorldChanged:       signal.New[WorldChange]("WorldChanged"),
		Destroyed:          signal.New[*Instance]("Destroyed"),
	}
	n.name.Store(kind.Name)
	n.archivable.Store(true)
	if _, ok := behavior.(WorldContext); ok {
		n.world = n
	}
	n.refreshLogger()
	return n
}

// bind wires capability handlers once the node is registered.
func (n *Instance) bind() {
	if r, ok := n.behavior.(Renderable); ok {
		n.Changed.Connect(func(property string) { r.UpdateRenderData(n, property) })
	}
	if p, ok := n.behavior.(Physical); ok {
		n.WorldChanged.Connect(func(change WorldChange) { p.RebuildRigidBody(n, change) })
	}
	if b, ok := n.behavior.(Binder); ok {
		b.Bind(n)
	}
}

func (n *Instance) signals() []interface{ Dispose() } {
	return []interface{ Dispose() }{
		n.Changed, n.ChildAdded, n.ChildRemoved, n.DescendantAdded, n.DescendantRemoving,
		n.AncestryChanged, n.ParentChanged, n.WorldChanged, n.Destroyed,
	}
}

// ID returns the process-unique numeric id.
func (n *Instance) ID() uint64 { return n.id }

// UniqueID returns the stable string id used for cross-session references.
func (n *Instance) UniqueID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.uniqueID
}

// SetUniqueID replaces the stable id, typically from a loaded file. If uid is
// already taken by a live instance a fresh one is generated. Singletons keep
// their kind-derived id. It returns the id in effect.
func (n *Instance) SetUniqueID(uid string) (string, error) {
	if n.IsDestroyed() {
		return "", ErrAlreadyDisposed
	}
	old := n.UniqueID()
	if n.kind.Singleton || uid == "" || uid == old {
		return old, nil
	}
	got, err := n.ctx.register(n, uid, false)
	if err != nil {
		return old, err
	}
	n.ctx.unregister(n, old)
	n.mu.Lock()
	n.uniqueID = got
	n.mu.Unlock()
	return got, nil
}

// ClassName returns the kind name.
func (n *Instance) ClassName() string { return n.kind.Name }

// Kind returns the node's kind.
func (n *Instance) Kind() *Kind { return n.kind }

// IsA reports whether the node is of the named kind.
func (n *Instance) IsA(kind string) bool { return n.kind.Name == kind }

// Behavior returns the kind-specific behavior value.
func (n *Instance) Behavior() any { return n.behavior }

// Context returns the owning context.
func (n *Instance) Context() *Context { return n.ctx }

func (n *Instance) Name() string {
	name, _ := n.name.Load().(string)
	return name
}

// SetName renames the node, wakes parent waiters for the new name and fires
// Changed("Name").
func (n *Instance) SetName(name string) {
	if n.Name() == name {
		return
	}
	n.name.Store(unique.Make(name).Value())
	n.refreshLogger()
	if p := n.Parent(); p != nil {
		p.fulfillWaiters(n)
	}
	n.Changed.Fire("Name")
}

func (n *Instance) Archivable() bool { return n.archivable.Load() }

// SetArchivable marks the node as eligible for serialization.
func (n *Instance) SetArchivable(v bool) {
	if n.IsDestroyed() || n.archivable.Swap(v) == v {
		return
	}
	n.Changed.Fire("Archivable")
}

// ParentLocked reports whether the node is protected from reparenting and
// external destruction.
func (n *Instance) ParentLocked() bool { return n.parentLocked.Load() }

// LockParent protects the node. The lock is permanent for the node's lifetime.
func (n *Instance) LockParent() { n.parentLocked.Store(true) }

func (n *Instance) Selected() bool { return n.selected.Load() }

// SetSelected updates the editor selection flag.
func (n *Instance) SetSelected(v bool) {
	if n.selected.Swap(v) == v {
		return
	}
	n.Changed.Fire("Selected")
}

func (n *Instance) IsDestroyed() bool { return n.destroyed.Load() }

func (n *Instance) Parent() *Instance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.parent
}

// World returns the nearest world-context node at or above n.
func (n *Instance) World() *Instance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.world
}

// WorldContext returns the world capability of World().
func (n *Instance) WorldContext() (WorldContext, bool) {
	return As[WorldContext](n.World())
}

// Children returns the child collection.
func (n *Instance) Children() *Children { return n.children }

// GetChildren returns a snapshot of the children.
func (n *Instance) GetChildren() []*Instance { return n.children.Snapshot() }

// GetDescendants returns every descendant in pre-order.
func (n *Instance) GetDescendants() []*Instance {
	var out []*Instance
	n.walk(func(d *Instance) {
		if d != n {
			out = append(out, d)
		}
	})
	return out
}

// walk visits n and its descendants in pre-order over snapshots.
func (n *Instance) walk(fn func(*Instance)) {
	fn(n)
	for _, ch := range n.children.snapshotAll() {
		ch.walk(fn)
	}
}

// FindFirstChild returns the first child named name, searching the whole
// subtree breadth-first when recursive is set.
func (n *Instance) FindFirstChild(name string, recursive bool) *Instance {
	if !recursive {
		return n.children.FindByName(name)
	}
	return n.findBreadthFirst(func(ch *Instance) bool { return ch.Name() == name })
}

// FindFirstChildOfClass returns the first child of the given kind.
func (n *Instance) FindFirstChildOfClass(kind string) *Instance {
	return n.children.FindFunc(func(ch *Instance) bool { return ch.IsA(kind) })
}

// FindFirstDescendant returns the first descendant, breadth-first, matching pred.
func (n *Instance) FindFirstDescendant(pred func(*Instance) bool) *Instance {
	return n.findBreadthFirst(pred)
}

func (n *Instance) findBreadthFirst(pred func(*Instance) bool) *Instance {
	queue := n.children.snapshotAll()
	for len(queue) > 0 {
		ch := queue[0]
		queue = queue[1:]
		if pred(ch) {
			return ch
		}
		queue = append(queue, ch.children.snapshotAll()...)
	}
	return nil
}

// FindFirstAncestor returns the nearest ancestor named name.
func (n *Instance) FindFirstAncestor(name string) *Instance {
	for a := n.Parent(); a != nil; a = a.Parent() {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// FindFirstAncestorOfClass returns the nearest ancestor of the given kind.
func (n *Instance) FindFirstAncestorOfClass(kind string) *Instance {
	for a := n.Parent(); a != nil; a = a.Parent() {
		if a.IsA(kind) {
			return a
		}
	}
	return nil
}

// IsDescendantOf reports whether ancestor is a strict ancestor of n.
func (n *Instance) IsDescendantOf(ancestor *Instance) bool {
	if ancestor == nil {
		return false
	}
	for a := n.Parent(); a != nil; a = a.Parent() {
		if a == ancestor {
			return true
		}
	}
	return false
}

// IsAncestorOf reports whether n is a strict ancestor of d.
func (n *Instance) IsAncestorOf(d *Instance) bool {
	return d != nil && d.IsDescendantOf(n)
}

// FullName is the dot-separated path from below the context root to n.
func (n *Instance) FullName() string {
	var parts []string
	for a := n; a != nil; a = a.Parent() {
		if a == n.ctx.root && a != n {
			break
		}
		parts = append(parts, a.Name())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func (n *Instance) String() string {
	if n == nil {
		return "nil"
	}
	return n.FullName()
}

// Logger returns the node's logger, tagged with its id, class, name and world.
func (n *Instance) Logger() log.Log {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.logger
}

func (n *Instance) refreshLogger() {
	fields := []log.Field{
		log.Uint64("instance_id", n.id),
		log.String("class", n.kind.Name),
		log.String("name", n.Name()),
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.world != nil && n.world != n {
		fields = append(fields, log.String("world", n.world.Name()))
	}
	n.logger = n.ctx.log.With(fields...)
}
