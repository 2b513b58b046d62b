package datamodel

import (
	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/systems/physics"
)

// boxed is implemented by part kinds.
type boxed interface {
	Bounds() physics.AABB
}

// Model groups parts.
type Model struct {
	node *instance.Instance
}

func (m *Model) Bind(n *instance.Instance) { m.node = n }

// BoundingBox is the smallest box containing every part below the model.
func (m *Model) BoundingBox() (physics.AABB, bool) {
	var (
		box   physics.AABB
		found bool
	)
	for _, d := range m.node.GetDescendants() {
		b, ok := instance.As[boxed](d)
		if !ok {
			continue
		}
		bounds := b.Bounds()
		if !found {
			box, found = bounds, true
			continue
		}
		box = physics.AABB{Min: box.Min.Min(bounds.Min), Max: box.Max.Max(bounds.Max)}
	}
	return box, found
}

// MoveTo translates every part so the bounding box is centered on target.
func (m *Model) MoveTo(target physics.Vec3) {
	box, ok := m.BoundingBox()
	if !ok {
		return
	}
	delta := target.Sub(box.Center())
	for _, d := range m.node.GetDescendants() {
		if p, ok := partOf(d); ok {
			p.SetPosition(p.Position().Add(delta))
		}
	}
}

// partOf returns the Part behavior of a Part or MeshPart node.
func partOf(n *instance.Instance) (*Part, bool) {
	switch b := n.Behavior().(type) {
	case *Part:
		return b, true
	case *MeshPart:
		return b.Part, true
	}
	return nil, false
}
