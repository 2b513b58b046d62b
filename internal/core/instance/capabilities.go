package instance

import (
	"github.com/zeusync/scenecore/internal/core/systems/physics"
	"github.com/zeusync/scenecore/internal/core/systems/render"
)

// Kinds attach behavior to a node through a plain value returned by
// Kind.New. The value opts into capabilities by implementing the interfaces
// below; the core discovers them with type assertions.

// WorldContext marks a node as a world boundary. Descendants resolve their
// World to the nearest such ancestor (inclusive).
type WorldContext interface {
	Simulation() physics.Simulation
	RenderObjects() render.Provider
}

// Renderable nodes refresh their render state from the Changed signal.
type Renderable interface {
	UpdateRenderData(n *Instance, property string)
}

// WorldChange is the payload of WorldChanged.
type WorldChange struct {
	Old *Instance
	New *Instance
}

// Physical nodes rebuild their rigid body when their world changes.
type Physical interface {
	RebuildRigidBody(n *Instance, change WorldChange)
}

// ParentFilter lets a kind veto a reparent. It runs while the tree topology
// lock is held and must not mutate the tree.
type ParentFilter interface {
	FilterParent(n, newParent *Instance) bool
}

// SerializationHooks bracket save and load of a node.
type SerializationHooks interface {
	BeforeSerialize(n *Instance) error
	AfterSerialize(n *Instance) error
	BeforeDeserialize(n *Instance) error
	AfterDeserialize(n *Instance) error
}

// PropertyCodec exposes the persisted fields of a kind to codecs.
type PropertyCodec interface {
	Properties() map[string]any
	SetProperties(props map[string]any) error
}

// Binder is called once when the behavior is attached to its node.
type Binder interface {
	Bind(n *Instance)
}

// As returns n's behavior as T when it implements T.
func As[T any](n *Instance) (T, bool) {
	var zero T
	if n == nil {
		return zero, false
	}
	t, ok := n.behavior.(T)
	return t, ok
}
