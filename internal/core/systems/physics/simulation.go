package physics

// Body is the description of a rigid body handed to a Simulation.
type Body struct {
	ID       uint64
	Position Vec3
	Size     Vec3
	Anchored bool
}

// Simulation is the physics world owned by a world-context node. The tree
// core never calls it; physical node kinds do, from their WorldChanged
// handlers. Implementations guard themselves with their own lock.
type Simulation interface {
	AddBody(body Body)
	RemoveBody(id uint64)
}
