package render

import "github.com/zeusync/scenecore/internal/core/systems/physics"

// Object is the renderer-facing snapshot of a renderable node.
type Object struct {
	ID       uint64
	Class    string
	Position physics.Vec3
	Size     physics.Vec3
	Visible  bool
}

// Provider receives render objects from renderable nodes. It belongs to a
// world-context node and is driven from Changed handlers only.
type Provider interface {
	Upsert(obj Object)
	Remove(id uint64)
}
