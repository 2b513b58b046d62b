package datamodel

import (
	"sync"

	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/systems/physics"
	"github.com/zeusync/scenecore/internal/core/systems/render"
)

var defaultPartSize = physics.Vec3{X: 4, Y: 1, Z: 2}

// Part is a box in the world. It keeps its rigid body and render object in
// sync with its world and properties.
type Part struct {
	mu       sync.RWMutex
	node     *instance.Instance
	position physics.Vec3
	size     physics.Vec3
	anchored bool
}

func newPart() *Part {
	return &Part{size: defaultPartSize}
}

type partProps struct {
	Position physics.Vec3 `mapstructure:"Position"`
	Size     physics.Vec3 `mapstructure:"Size"`
	Anchored bool         `mapstructure:"Anchored"`
}

func (p *Part) Bind(n *instance.Instance) {
	p.mu.Lock()
	p.node = n
	p.mu.Unlock()
}

func (p *Part) Position() physics.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.position
}

func (p *Part) SetPosition(v physics.Vec3) {
	p.set("Position", func() bool {
		changed := p.position != v
		p.position = v
		return changed
	})
}

func (p *Part) Size() physics.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

func (p *Part) SetSize(v physics.Vec3) {
	p.set("Size", func() bool {
		changed := p.size != v
		p.size = v
		return changed
	})
}

func (p *Part) Anchored() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.anchored
}

func (p *Part) SetAnchored(v bool) {
	p.set("Anchored", func() bool {
		changed := p.anchored != v
		p.anchored = v
		return changed
	})
}

// Bounds is the box occupied by the part.
func (p *Part) Bounds() physics.AABB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	half := p.size.Scale(0.5)
	return physics.AABB{Min: p.position.Sub(half), Max: p.position.Add(half)}
}

// set applies a property change under the lock and fires Changed outside it.
func (p *Part) set(property string, apply func() bool) {
	p.mu.Lock()
	changed := apply()
	n := p.node
	p.mu.Unlock()
	if changed && n != nil {
		n.Changed.Fire(property)
	}
}

func (p *Part) body(id uint64) physics.Body {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return physics.Body{ID: id, Position: p.position, Size: p.size, Anchored: p.anchored}
}

func (p *Part) object(n *instance.Instance) render.Object {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return render.Object{
		ID:       n.ID(),
		Class:    n.ClassName(),
		Position: p.position,
		Size:     p.size,
		Visible:  true,
	}
}

// UpdateRenderData pushes the part to its world's renderer and, for
// physical properties, refreshes the body.
func (p *Part) UpdateRenderData(n *instance.Instance, property string) {
	wc, ok := n.WorldContext()
	if !ok {
		return
	}
	switch property {
	case "Position", "Size", "Anchored":
		if sim := wc.Simulation(); sim != nil {
			sim.AddBody(p.body(n.ID()))
		}
	case "Parent", "Name":
	default:
		return
	}
	if objects := wc.RenderObjects(); objects != nil {
		objects.Upsert(p.object(n))
	}
}

// RebuildRigidBody moves the body and render object between worlds.
func (p *Part) RebuildRigidBody(n *instance.Instance, change instance.WorldChange) {
	if old, ok := instance.As[instance.WorldContext](change.Old); ok {
		if sim := old.Simulation(); sim != nil {
			sim.RemoveBody(n.ID())
		}
		if objects := old.RenderObjects(); objects != nil {
			objects.Remove(n.ID())
		}
	}
	if next, ok := instance.As[instance.WorldContext](change.New); ok {
		if sim := next.Simulation(); sim != nil {
			sim.AddBody(p.body(n.ID()))
		}
		if objects := next.RenderObjects(); objects != nil {
			objects.Upsert(p.object(n))
		}
	}
}

func (p *Part) Properties() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return map[string]any{
		"Position": vecList(p.position),
		"Size":     vecList(p.size),
		"Anchored": p.anchored,
	}
}

func (p *Part) SetProperties(props map[string]any) error {
	decoded, err := p.decodeFields(props)
	if err != nil {
		return err
	}
	p.applyFields(decoded)
	return nil
}

// decodeFields overlays props on the current values without applying them.
func (p *Part) decodeFields(props map[string]any) (partProps, error) {
	decoded := partProps{Position: p.Position(), Size: p.Size(), Anchored: p.Anchored()}
	if err := decodeProps(props, &decoded); err != nil {
		return partProps{}, err
	}
	return decoded, nil
}

func (p *Part) applyFields(decoded partProps) {
	p.SetPosition(decoded.Position)
	p.SetSize(decoded.Size)
	p.SetAnchored(decoded.Anchored)
}
