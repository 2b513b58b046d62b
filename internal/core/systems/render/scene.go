package render

import "sync"

// Scene is an in-memory Provider holding the latest object per id.
type Scene struct {
	mu      sync.RWMutex
	objects map[uint64]Object
}

func NewScene() *Scene {
	return &Scene{objects: make(map[uint64]Object)}
}

func (s *Scene) Upsert(obj Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[obj.ID] = obj
}

func (s *Scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
}

// Object returns the object with the given id.
func (s *Scene) Object(id uint64) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	return obj, ok
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
