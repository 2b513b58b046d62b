package instance

import (
	"fmt"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// DefaultRootKind is the kind of the root node unless WithRootKind is given.
const DefaultRootKind = "DataModel"

// Context is the process-scoped state shared by one tree: id allocation,
// kinds, the unique-id registry, the topology lock and the service table.
// Independent engines in one process each own a Context.
type Context struct {
	ids      IDAllocator
	log      log.Log
	kinds    *KindRegistry
	rootKind string

	// topology serializes validation and pointer swaps of every structural
	// mutation in the tree. Notifications never fire while it is held.
	topology sync.Mutex

	regMu    sync.RWMutex
	registry map[string]weak.Pointer[Instance]

	svcMu    sync.RWMutex
	services map[string]*Instance
	svcGroup singleflight.Group

	root   *Instance
	closed atomic.Bool
}

type Option func(*Context)

// WithLogger sets the logger every instance logger derives from.
func WithLogger(l log.Log) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// WithKinds sets the kind registry.
func WithKinds(k *KindRegistry) Option {
	return func(c *Context) {
		if k != nil {
			c.kinds = k
		}
	}
}

// WithRootKind selects the kind of the root node.
func WithRootKind(kind string) Option {
	return func(c *Context) {
		if kind != "" {
			c.rootKind = kind
		}
	}
}

// NewContext builds a Context and its parent-locked root node.
func NewContext(opts ...Option) (*Context, error) {
	c := &Context{
		log:      log.NewNop(),
		kinds:    NewKindRegistry(),
		rootKind: DefaultRootKind,
		registry: make(map[string]weak.Pointer[Instance]),
		services: make(map[string]*Instance),
	}
	for _, opt := range opts {
		opt(c)
	}

	root, err := c.New(c.rootKind)
	if err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	root.parentLocked.Store(true)
	c.root = root
	return c, nil
}

// Root returns the root node.
func (c *Context) Root() *Instance { return c.root }

// Kinds returns the kind registry.
func (c *Context) Kinds() *KindRegistry { return c.kinds }

// Logger returns the context logger.
func (c *Context) Logger() log.Log { return c.log }

// IDs returns the id allocator.
func (c *Context) IDs() *IDAllocator { return &c.ids }

// New constructs a detached node of the named kind.
func (c *Context) New(kind string) (*Instance, error) {
	if c.closed.Load() {
		return nil, ErrContextClosed
	}
	k, err := c.kinds.Constructible(kind)
	if err != nil {
		return nil, err
	}

	n := newInstance(c, k, k.New())
	uid := uuid.NewString()
	if k.Singleton {
		uid = SingletonID(k.Name)
	}
	uid, err = c.register(n, uid, k.Singleton)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	n.mu.Lock()
	n.uniqueID = uid
	n.mu.Unlock()
	n.bind()
	recordCreated(k.Name)
	return n, nil
}

// MustNew is New for tests and setup code with known kinds.
func (c *Context) MustNew(kind string) *Instance {
	n, err := c.New(kind)
	if err != nil {
		panic(err)
	}
	return n
}

// Lookup resolves a unique id to a live instance.
func (c *Context) Lookup(uniqueID string) *Instance {
	c.regMu.RLock()
	wp, ok := c.registry[uniqueID]
	c.regMu.RUnlock()
	if !ok {
		return nil
	}
	n := wp.Value()
	if n == nil || n.IsDestroyed() {
		return nil
	}
	return n
}

// register maps uid to n. A generated uid that collides with a live instance
// is regenerated; a fixed one fails.
func (c *Context) register(n *Instance, uid string, fixed bool) (string, error) {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	for {
		if wp, ok := c.registry[uid]; ok {
			if other := wp.Value(); other != nil && other != n && !other.IsDestroyed() {
				if fixed {
					return "", ErrSingletonExists
				}
				uid = uuid.NewString()
				continue
			}
		}
		c.registry[uid] = weak.Make(n)
		return uid, nil
	}
}

func (c *Context) unregister(n *Instance, uid string) {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	if wp, ok := c.registry[uid]; ok {
		if other := wp.Value(); other == nil || other == n {
			delete(c.registry, uid)
		}
	}
}

// Registered returns the number of live registry entries.
func (c *Context) Registered() int {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	live := 0
	for uid, wp := range c.registry {
		if wp.Value() == nil {
			delete(c.registry, uid)
			continue
		}
		live++
	}
	return live
}

// Close destroys the whole tree, protected nodes included. The Context
// rejects New afterwards.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.root.forceDestroy()

	c.svcMu.Lock()
	clear(c.services)
	c.svcMu.Unlock()

	if err != nil {
		return fmt.Errorf("close context: %w", err)
	}
	return nil
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool { return c.closed.Load() }
