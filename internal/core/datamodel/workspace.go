package datamodel

import (
	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/systems/physics"
	"github.com/zeusync/scenecore/internal/core/systems/render"
)

// Workspace is the world context of a game: parts below it are simulated
// and rendered.
type Workspace struct {
	sim     physics.Simulation
	objects render.Provider
}

func (w *Workspace) Simulation() physics.Simulation { return w.sim }
func (w *Workspace) RenderObjects() render.Provider { return w.objects }

// FilterParent keeps the workspace directly under the root.
func (w *Workspace) FilterParent(n, parent *instance.Instance) bool {
	return parent == nil || parent == n.Context().Root()
}
