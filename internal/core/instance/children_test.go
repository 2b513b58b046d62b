package instance

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChildrenAddIsUniqueByIdentity(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.MustNew("Folder")
	b := ctx.MustNew("Folder")

	c := newChildren()
	assert.True(t, c.Add(a))
	assert.True(t, c.Add(b))
	assert.False(t, c.Add(a))
	assert.False(t, c.Add(nil))
	assert.Equal(t, 2, c.Len())

	// same name, different node
	assert.Equal(t, a.Name(), b.Name())
	assert.Equal(t, 0, c.IndexOf(a))
	assert.Equal(t, 1, c.IndexOf(b))
}

func TestChildrenRemoveAndIndex(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.MustNew("Folder")
	b := ctx.MustNew("Model")

	c := newChildren()
	c.Add(a)
	c.Add(b)

	assert.Same(t, b, c.At(1))
	assert.Nil(t, c.At(2))
	assert.Nil(t, c.At(-1))

	assert.True(t, c.Remove(a))
	assert.False(t, c.Remove(a))
	assert.Equal(t, 1, c.Len())
	assert.Same(t, b, c.At(0))
	assert.False(t, c.Contains(a))
	assert.Same(t, b, c.FindByName("Model"))
	assert.Nil(t, c.FindByName("Folder"))
}

func TestChildrenFilterMode(t *testing.T) {
	ctx := newTestContext(t)
	keep := ctx.MustNew("Folder")
	skip := ctx.MustNew("Folder")
	skip.SetArchivable(false)
	locked := ctx.MustNew("Folder")
	locked.LockParent()

	c := newChildren()
	c.Add(keep)
	c.Add(skip)
	c.Add(locked)

	assert.False(t, c.SetFiltered(true))
	assert.True(t, c.Filtered())
	assert.Equal(t, []*Instance{keep}, c.Snapshot())
	c.Read(func(items []*Instance) {
		assert.Len(t, items, 1)
	})
	// the underlying set is untouched
	assert.Equal(t, 3, c.Len())
	assert.Same(t, locked, c.At(2))

	assert.True(t, c.SetFiltered(false))
	assert.Len(t, c.Snapshot(), 3)
}

func TestChildrenWriteScope(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.MustNew("Folder")
	c := newChildren()

	var wg sync.WaitGroup
	added := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Write(func(items *[]*Instance) {
				for _, it := range *items {
					if it == a {
						added <- false
						return
					}
				}
				*items = append(*items, a)
				added <- true
			})
		}()
	}
	wg.Wait()
	close(added)

	wins := 0
	for ok := range added {
		if ok {
			wins++
		}
	}
	require.Equal(t, 1, wins)
	assert.Equal(t, 1, c.Len())
}

func TestChildrenConcurrentReaders(t *testing.T) {
	ctx := newTestContext(t)
	c := newChildren()
	for i := 0; i < 16; i++ {
		c.Add(ctx.MustNew("Folder"))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Snapshot()
			}
		}()
		go func() {
			defer wg.Done()
			n := ctx.MustNew("Model")
			c.Add(n)
			c.Remove(n)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}
