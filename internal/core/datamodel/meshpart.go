package datamodel

import (
	"fmt"
	"maps"
	"sync"

	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/systems/physics"
)

// MeshPart is a Part shaped by a triangle mesh. Vertices and indices are
// persisted; the bounding box is derived and rebuilt after loading.
type MeshPart struct {
	*Part

	meshMu   sync.RWMutex
	vertices []physics.Vec3
	indices  []int
	bounds   physics.AABB
}

func newMeshPart() *MeshPart {
	return &MeshPart{Part: newPart()}
}

type meshProps struct {
	Vertices []physics.Vec3 `mapstructure:"Vertices"`
	Indices  []int          `mapstructure:"Indices"`
}

// SetMesh replaces the mesh and recomputes the bounds.
func (m *MeshPart) SetMesh(vertices []physics.Vec3, indices []int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= len(vertices) {
			return fmt.Errorf("mesh index %d out of range [0,%d)", idx, len(vertices))
		}
	}
	m.meshMu.Lock()
	m.vertices = append([]physics.Vec3(nil), vertices...)
	m.indices = append([]int(nil), indices...)
	m.bounds = physics.BoundsOf(m.vertices)
	m.meshMu.Unlock()

	m.set("Mesh", func() bool { return true })
	return nil
}

// IndexCount is the number of indices in the mesh.
func (m *MeshPart) IndexCount() int {
	m.meshMu.RLock()
	defer m.meshMu.RUnlock()
	return len(m.indices)
}

// TriangleCount is the number of triangles: three indices each.
func (m *MeshPart) TriangleCount() int {
	return m.IndexCount() / 3
}

// MeshBounds is the bounding box of the vertices in mesh space.
func (m *MeshPart) MeshBounds() physics.AABB {
	m.meshMu.RLock()
	defer m.meshMu.RUnlock()
	return m.bounds
}

func (m *MeshPart) Properties() map[string]any {
	props := m.Part.Properties()
	m.meshMu.RLock()
	defer m.meshMu.RUnlock()
	verts := make([][]float64, len(m.vertices))
	for i, v := range m.vertices {
		verts[i] = vecList(v)
	}
	props["Vertices"] = verts
	props["Indices"] = append([]int(nil), m.indices...)
	return props
}

// SetProperties loads part and mesh fields. Nothing changes unless every
// field decodes. The bounds are left for AfterDeserialize.
func (m *MeshPart) SetProperties(props map[string]any) error {
	part := maps.Clone(props)
	var mesh meshProps
	meshOnly := map[string]any{}
	for _, key := range []string{"Vertices", "Indices"} {
		if v, ok := part[key]; ok {
			meshOnly[key] = v
			delete(part, key)
		}
	}
	decoded, err := m.Part.decodeFields(part)
	if err != nil {
		return err
	}
	if err := decodeProps(meshOnly, &mesh); err != nil {
		return err
	}
	m.Part.applyFields(decoded)
	m.meshMu.Lock()
	if _, ok := meshOnly["Vertices"]; ok {
		m.vertices = mesh.Vertices
	}
	if _, ok := meshOnly["Indices"]; ok {
		m.indices = mesh.Indices
	}
	m.meshMu.Unlock()
	return nil
}

func (m *MeshPart) BeforeSerialize(*instance.Instance) error { return nil }
func (m *MeshPart) AfterSerialize(*instance.Instance) error  { return nil }

// BeforeDeserialize drops the previous mesh.
func (m *MeshPart) BeforeDeserialize(*instance.Instance) error {
	m.meshMu.Lock()
	defer m.meshMu.Unlock()
	m.vertices, m.indices, m.bounds = nil, nil, physics.AABB{}
	return nil
}

// AfterDeserialize validates the loaded mesh and rebuilds its bounds.
func (m *MeshPart) AfterDeserialize(*instance.Instance) error {
	m.meshMu.RLock()
	vertices, indices := m.vertices, m.indices
	m.meshMu.RUnlock()
	return m.SetMesh(vertices, indices)
}
