package physics

import (
	"slices"
	"sync"
)

// Space is an in-memory Simulation that only tracks body membership. Hosts
// without a physics engine use it, and tests inspect it.
type Space struct {
	mu     sync.RWMutex
	bodies map[uint64]Body
}

func NewSpace() *Space {
	return &Space{bodies: make(map[uint64]Body)}
}

// AddBody inserts or replaces the body with the same id.
func (s *Space) AddBody(body Body) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[body.ID] = body
}

func (s *Space) RemoveBody(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bodies, id)
}

// Body returns the body with the given id.
func (s *Space) Body(id uint64) (Body, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[id]
	return b, ok
}

func (s *Space) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bodies)
}

// Bodies returns every body ordered by id.
func (s *Space) Bodies() []Body {
	s.mu.RLock()
	out := make([]Body, 0, len(s.bodies))
	for _, b := range s.bodies {
		out = append(out, b)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b Body) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}
