package instance

import (
	"fmt"
)

// FindService returns the live service of the given kind, or nil.
func (c *Context) FindService(kind string) *Instance {
	c.svcMu.RLock()
	n := c.services[kind]
	c.svcMu.RUnlock()
	if n == nil || n.IsDestroyed() {
		return nil
	}
	return n
}

// GetOrCreate returns the service of the given kind under the root,
// constructing, parenting and parent-locking it on first use. Concurrent
// callers for the same kind share one construction.
func (c *Context) GetOrCreate(kind string) (*Instance, error) {
	if n := c.FindService(kind); n != nil {
		return n, nil
	}
	if c.closed.Load() {
		return nil, ErrContextClosed
	}

	v, err, _ := c.svcGroup.Do(kind, func() (any, error) {
		if n := c.FindService(kind); n != nil {
			return n, nil
		}
		k, err := c.kinds.Constructible(kind)
		if err != nil {
			return nil, fmt.Errorf("get service: %w", err)
		}

		// a singleton built by hand and parented to the root is adopted
		if k.Singleton {
			if n := c.Lookup(SingletonID(k.Name)); n != nil {
				if n.Parent() != c.root {
					return nil, fmt.Errorf("get service %s: %w", kind, ErrSingletonExists)
				}
				n.LockParent()
				c.addService(kind, n)
				return n, nil
			}
		}

		n, err := c.New(kind)
		if err != nil {
			return nil, fmt.Errorf("get service: %w", err)
		}
		if err := n.SetParent(c.root); err != nil {
			_ = n.Destroy()
			return nil, fmt.Errorf("get service %s: %w", kind, err)
		}
		n.LockParent()
		c.addService(kind, n)
		n.Logger().Debug("service created")
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Instance), nil
}

// Services returns the live services keyed by kind.
func (c *Context) Services() map[string]*Instance {
	c.svcMu.RLock()
	defer c.svcMu.RUnlock()
	out := make(map[string]*Instance, len(c.services))
	for kind, n := range c.services {
		if !n.IsDestroyed() {
			out[kind] = n
		}
	}
	return out
}

func (c *Context) addService(kind string, n *Instance) {
	c.svcMu.Lock()
	c.services[kind] = n
	c.svcMu.Unlock()
}
