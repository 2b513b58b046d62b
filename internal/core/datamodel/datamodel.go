// Package datamodel defines the concrete node kinds of a game tree: the
// DataModel root, its services and the parts that live in a Workspace.
package datamodel

import (
	"fmt"

	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/systems/physics"
	"github.com/zeusync/scenecore/internal/core/systems/render"
)

const (
	KindDataModel = "DataModel"
	KindWorkspace = "Workspace"
	KindLighting  = "Lighting"
	KindPlayers   = "Players"
	KindPlayer    = "Player"
	KindFolder    = "Folder"
	KindModel     = "Model"
	KindBasePart  = "BasePart"
	KindPart      = "Part"
	KindMeshPart  = "MeshPart"
)

// Services are created under the root by New, in this order.
var Services = []string{KindWorkspace, KindLighting, KindPlayers}

// Env supplies the external systems handed to each Workspace.
type Env struct {
	NewSimulation func() physics.Simulation
	NewRenderer   func() render.Provider
}

func (e Env) withDefaults() Env {
	if e.NewSimulation == nil {
		e.NewSimulation = func() physics.Simulation { return physics.NewSpace() }
	}
	if e.NewRenderer == nil {
		e.NewRenderer = func() render.Provider { return render.NewScene() }
	}
	return e
}

// Register adds every datamodel kind to reg.
func Register(reg *instance.KindRegistry, env Env) error {
	env = env.withDefaults()
	kinds := []instance.Kind{
		{Name: KindDataModel, New: func() any { return &DataModel{} }},
		{Name: KindWorkspace, Singleton: true, New: func() any {
			return &Workspace{sim: env.NewSimulation(), objects: env.NewRenderer()}
		}},
		{Name: KindLighting, Singleton: true, New: func() any { return newLighting() }},
		{Name: KindPlayers, Singleton: true, New: func() any { return &Players{} }},
		{Name: KindPlayer, New: func() any { return &Player{} }},
		{Name: KindFolder, New: func() any { return folder{} }},
		{Name: KindModel, New: func() any { return &Model{} }},
		{Name: KindBasePart, Abstract: true},
		{Name: KindPart, New: func() any { return newPart() }},
		{Name: KindMeshPart, New: func() any { return newMeshPart() }},
	}
	for _, k := range kinds {
		if err := reg.Register(k); err != nil {
			return fmt.Errorf("register datamodel: %w", err)
		}
	}
	return nil
}

// New builds a Context rooted at a DataModel with every service created.
// Options are applied after the datamodel kinds are installed.
func New(env Env, opts ...instance.Option) (*instance.Context, error) {
	reg := instance.NewKindRegistry()
	if err := Register(reg, env); err != nil {
		return nil, err
	}
	opts = append([]instance.Option{
		instance.WithKinds(reg),
		instance.WithRootKind(KindDataModel),
	}, opts...)

	ctx, err := instance.NewContext(opts...)
	if err != nil {
		return nil, err
	}
	for _, svc := range Services {
		if _, err := ctx.GetOrCreate(svc); err != nil {
			_ = ctx.Close()
			return nil, err
		}
	}
	return ctx, nil
}

// DataModel is the root behavior. It resolves services by kind.
type DataModel struct {
	node *instance.Instance
}

func (d *DataModel) Bind(n *instance.Instance) { d.node = n }

// GetService returns the service of the given kind, creating it on demand.
func (d *DataModel) GetService(kind string) (*instance.Instance, error) {
	return d.node.Context().GetOrCreate(kind)
}

type folder struct{}

// WorkspaceOf returns the Workspace service of ctx, or nil.
func WorkspaceOf(ctx *instance.Context) *instance.Instance {
	return ctx.FindService(KindWorkspace)
}
