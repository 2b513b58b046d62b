package instance

import "sync/atomic"

// IDAllocator hands out process-unique instance ids. Ids start at 1 and are
// never reused; zero means "no instance".
type IDAllocator struct {
	next atomic.Uint64
}

// Next returns the next id. Safe for concurrent use.
func (a *IDAllocator) Next() uint64 {
	return a.next.Add(1)
}

// Last returns the most recently allocated id.
func (a *IDAllocator) Last() uint64 {
	return a.next.Load()
}
