package instance

import (
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Kind describes a node class. New builds the behavior value attached to
// each node of the kind; a nil New makes the kind non-constructible.
type Kind struct {
	Name      string
	Singleton bool
	Abstract  bool
	New       func() any
}

// SingletonID is the fixed unique id of a singleton kind's instance.
func SingletonID(kind string) string {
	return "svc-" + strconv.FormatUint(xxhash.Sum64String(kind), 16)
}

// KindRegistry maps kind names to kinds.
type KindRegistry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

func NewKindRegistry() *KindRegistry {
	return &KindRegistry{kinds: make(map[string]*Kind)}
}

// Register adds k. Names are case-sensitive.
func (r *KindRegistry) Register(k Kind) error {
	if k.Name == "" {
		return fmt.Errorf("register kind: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[k.Name]; ok {
		return fmt.Errorf("register kind %q: %w", k.Name, ErrKindExists)
	}
	r.kinds[k.Name] = &k
	return nil
}

// MustRegister is Register for package init code.
func (r *KindRegistry) MustRegister(kinds ...Kind) {
	for _, k := range kinds {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the kind named name.
func (r *KindRegistry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Constructible returns the kind if it can be instantiated without arguments.
func (r *KindRegistry) Constructible(name string) (*Kind, error) {
	k, ok := r.Lookup(name)
	switch {
	case !ok:
		return nil, fmt.Errorf("kind %q: %w", name, ErrNotFound)
	case k.Abstract:
		return nil, fmt.Errorf("kind %q is abstract: %w", name, ErrNotFound)
	case k.New == nil:
		return nil, fmt.Errorf("kind %q has no constructor: %w", name, ErrNotFound)
	}
	return k, nil
}

// Names lists registered kinds in sorted order.
func (r *KindRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
