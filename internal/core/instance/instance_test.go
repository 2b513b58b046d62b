package instance

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetParentEventOrder(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	p := child(t, ctx, "Folder", "P", root)
	q := child(t, ctx, "Folder", "Q", root)
	c := child(t, ctx, "Folder", "C", p)

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(format string, args ...any) {
		mu.Lock()
		events = append(events, fmt.Sprintf(format, args...))
		mu.Unlock()
	}
	p.ChildRemoved.Connect(func(n *Instance) { record("P.ChildRemoved(%s)", n.Name()) })
	var removedBeforeNotify bool
	p.DescendantRemoving.Connect(func(n *Instance) {
		removedBeforeNotify = !p.Children().Contains(n)
		record("P.DescendantRemoving(%s)", n.Name())
	})
	q.ChildAdded.Connect(func(n *Instance) { record("Q.ChildAdded(%s)", n.Name()) })
	q.DescendantAdded.Connect(func(n *Instance) { record("Q.DescendantAdded(%s)", n.Name()) })
	c.AncestryChanged.Connect(func(ch AncestryChange) {
		record("C.AncestryChanged(%s, %s)", ch.Node.Name(), ch.Parent.Name())
	})
	c.ParentChanged.Connect(func(n *Instance) { record("C.ParentChanged(%s)", n.Name()) })
	c.Changed.Connect(func(prop string) { record("C.Changed(%s)", prop) })

	require.NoError(t, c.SetParent(q))

	assert.Equal(t, []string{
		"P.ChildRemoved(C)",
		"P.DescendantRemoving(C)",
		"Q.ChildAdded(C)",
		"Q.DescendantAdded(C)",
		"C.AncestryChanged(C, Q)",
		"C.ParentChanged(Q)",
		"C.Changed(Parent)",
	}, events)
	assert.True(t, removedBeforeNotify)
	assert.Same(t, q, c.Parent())
	assert.False(t, p.Children().Contains(c))
	assert.True(t, q.Children().Contains(c))
}

func TestDescendantNotificationsVisitEachAncestorOnce(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	a := child(t, ctx, "Folder", "A", root)
	b := child(t, ctx, "Folder", "B", a)
	c := ctx.MustNew("Folder")

	var added []string
	for _, anc := range []*Instance{root, a, b} {
		anc.DescendantAdded.Connect(func(*Instance) { added = append(added, anc.Name()) })
	}
	require.NoError(t, c.SetParent(b))
	assert.Equal(t, []string{"B", "A", DefaultRootKind}, added)
}

func TestAncestryChangedReachesWholeSubtree(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	a := child(t, ctx, "Folder", "A", nil)
	b := child(t, ctx, "Folder", "B", a)
	c := child(t, ctx, "Folder", "C", b)

	var seen []string
	for _, n := range []*Instance{a, b, c} {
		n.AncestryChanged.Connect(func(ch AncestryChange) {
			assert.Same(t, a, ch.Node)
			assert.Same(t, root, ch.Parent)
			seen = append(seen, n.Name())
		})
	}
	require.NoError(t, a.SetParent(root))
	assert.Equal(t, []string{"A", "B", "C"}, seen)
	assert.Equal(t, "A.B.C", c.FullName())
}

func TestNoSelfParenting(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	for _, n := range []*Instance{
		ctx.MustNew("Folder"),
		child(t, ctx, "Folder", "Attached", root),
		root,
	} {
		before := n.Parent()
		err := n.SetParent(n)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrParent)
		var pe *ParentError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "cannot parent to self", pe.Reason)
		assert.Same(t, before, n.Parent())
	}
}

func TestNoCycles(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	a := child(t, ctx, "Folder", "A", root)
	b := child(t, ctx, "Folder", "B", a)
	c := child(t, ctx, "Folder", "C", b)

	for _, d := range []*Instance{b, c} {
		err := a.SetParent(d)
		require.ErrorIs(t, err, ErrParent)
		var pe *ParentError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "would create circular reference", pe.Reason)
	}
	assert.Same(t, root, a.Parent())
	assert.Same(t, a, b.Parent())
	assert.Same(t, b, c.Parent())
	assert.Equal(t, []*Instance{b, c}, a.GetDescendants())
}

func TestNoCyclesUnderConcurrentReparenting(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	nodes := make([]*Instance, 8)
	for i := range nodes {
		nodes[i] = child(t, ctx, "Folder", fmt.Sprintf("N%d", i), root)
	}

	var wg sync.WaitGroup
	for i := range nodes {
		for j := range nodes {
			if i == j {
				continue
			}
			wg.Add(1)
			go func(n, p *Instance) {
				defer wg.Done()
				_ = n.SetParent(p)
			}(nodes[i], nodes[j])
		}
	}
	wg.Wait()

	// every node still reaches the root without revisiting itself
	for _, n := range nodes {
		seen := map[*Instance]bool{}
		a := n
		for a != nil {
			require.False(t, seen[a], "cycle through %s", n.Name())
			seen[a] = true
			a = a.Parent()
		}
		assert.True(t, n.IsDescendantOf(root))
	}
	total := len(root.GetDescendants())
	assert.Equal(t, len(nodes), total)
}

func TestSetParentAcrossContextsFails(t *testing.T) {
	one := newTestContext(t)
	two := newTestContext(t)
	n := one.MustNew("Folder")

	err := n.SetParent(two.Root())
	assert.ErrorIs(t, err, ErrParent)
	assert.Nil(t, n.Parent())
}

func TestSetParentSameParentIsSilent(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	n := child(t, ctx, "Folder", "N", root)

	fired := 0
	n.ParentChanged.Connect(func(*Instance) { fired++ })
	require.NoError(t, n.SetParent(root))
	assert.Zero(t, fired)
	assert.Equal(t, 1, root.Children().Len())
}

func TestParentLockedReparentIsSoftFailure(t *testing.T) {
	logger, logs := observedLogger()
	ctx := newTestContext(t, WithLogger(logger))
	root := ctx.Root()
	folder := child(t, ctx, "Folder", "Folder", root)
	n := child(t, ctx, "Folder", "Locked", root)
	n.LockParent()

	require.NoError(t, n.SetParent(folder))
	assert.Same(t, root, n.Parent())

	warnings := logs.FilterMessage("rejected reparent of parent-locked instance").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	assert.Equal(t, "Locked", fields["name"])
	assert.Equal(t, "Folder", fields["to"])

	// programming errors still surface on locked nodes
	assert.ErrorIs(t, n.SetParent(n), ErrParent)
}

func TestParentFilterBehavior(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	model := child(t, ctx, "Model", "", root)
	folder := child(t, ctx, "Folder", "", root)
	picky := ctx.MustNew("Picky")

	require.NoError(t, picky.SetParent(model))
	assert.Nil(t, picky.Parent())
	require.NoError(t, picky.SetParent(folder))
	assert.Same(t, folder, picky.Parent())
}

func TestWorldPropagation(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	a := child(t, ctx, "Viewport", "A", root)
	d := child(t, ctx, "Viewport", "D", root)
	b := child(t, ctx, "Folder", "B", a)
	c := child(t, ctx, "Part", "C", b)

	assert.Nil(t, root.World())
	assert.Same(t, a, a.World())
	assert.Same(t, a, b.World())
	assert.Same(t, a, c.World())

	var moved []WorldChange
	c.WorldChanged.Connect(func(ch WorldChange) { moved = append(moved, ch) })

	require.NoError(t, b.SetParent(d))
	assert.Same(t, d, b.World())
	assert.Same(t, d, c.World())
	require.Len(t, moved, 1)
	assert.Same(t, a, moved[0].Old)
	assert.Same(t, d, moved[0].New)

	phys, ok := As[*body](c)
	require.True(t, ok)
	assert.Len(t, phys.rebuilds(), 2)

	require.NoError(t, b.SetParent(nil))
	assert.Nil(t, c.World())
	wc, ok := c.WorldContext()
	assert.False(t, ok)
	assert.Nil(t, wc)
}

func TestWorldChangedNotFiredWithinSameWorld(t *testing.T) {
	ctx := newTestContext(t)
	w := child(t, ctx, "Viewport", "W", ctx.Root())
	f1 := child(t, ctx, "Folder", "F1", w)
	f2 := child(t, ctx, "Folder", "F2", w)
	p := child(t, ctx, "Part", "P", f1)

	fired := 0
	p.WorldChanged.Connect(func(WorldChange) { fired++ })
	require.NoError(t, p.SetParent(f2))
	assert.Zero(t, fired)
}

func TestHandlerMayReparentFromNotification(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	inbox := child(t, ctx, "Folder", "Inbox", root)
	archive := child(t, ctx, "Folder", "Archive", root)
	inbox.ChildAdded.Connect(func(n *Instance) {
		require.NoError(t, n.SetParent(archive))
	})

	n := child(t, ctx, "Folder", "Mail", inbox)
	assert.Same(t, archive, n.Parent())
	assert.Zero(t, inbox.Children().Len())
	assert.Equal(t, 1, archive.Children().Len())
}

func TestDestroyIdempotent(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())

	fired := 0
	n.Destroyed.Connect(func(*Instance) { fired++ })

	require.NoError(t, n.Destroy())
	require.NoError(t, n.Destroy())
	assert.Equal(t, 1, fired)
	assert.True(t, n.IsDestroyed())
	assert.True(t, n.ParentLocked())
	assert.False(t, n.Archivable())
	assert.Nil(t, n.Parent())
	assert.Zero(t, ctx.Root().Children().Len())
}

func TestSetParentFailsAfterDestroy(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	other := child(t, ctx, "Folder", "Other", root)
	n := child(t, ctx, "Folder", "N", root)
	require.NoError(t, n.Destroy())

	for _, target := range []*Instance{nil, root, other} {
		err := n.SetParent(target)
		assert.ErrorIs(t, err, ErrAlreadyDisposed)
		assert.Nil(t, n.Parent())
	}
	assert.Error(t, n.SetParent(n))

	// attaching under a destroyed parent fails too
	orphan := ctx.MustNew("Folder")
	assert.ErrorIs(t, orphan.SetParent(n), ErrAlreadyDisposed)
	assert.Nil(t, orphan.Parent())
}

func TestDestroyParentLockedFails(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())
	n.LockParent()

	assert.ErrorIs(t, n.Destroy(), ErrParentLocked)
	assert.False(t, n.IsDestroyed())
	assert.ErrorIs(t, ctx.Root().Destroy(), ErrParentLocked)
}

func TestDestroyLockedSubtree(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())
	plain := child(t, ctx, "Folder", "Plain", n)
	x := child(t, ctx, "Folder", "X", n)
	y := child(t, ctx, "Folder", "Y", x)
	z := child(t, ctx, "Folder", "Z", y)
	x.LockParent()

	require.NoError(t, n.Destroy())

	assert.True(t, n.IsDestroyed())
	assert.True(t, plain.IsDestroyed())
	assert.True(t, y.IsDestroyed())
	assert.True(t, z.IsDestroyed())

	assert.False(t, x.IsDestroyed())
	assert.Same(t, n, x.Parent())
	assert.Zero(t, x.Children().Len())
}

func TestDestroyDisposesSignalsAndDetaches(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	n := child(t, ctx, "Folder", "N", root)
	kid := child(t, ctx, "Folder", "Kid", n)

	var order []string
	root.ChildRemoved.Connect(func(c *Instance) { order = append(order, "removed:"+c.Name()) })
	kid.Destroyed.Connect(func(*Instance) { order = append(order, "destroyed:Kid") })
	n.Destroyed.Connect(func(*Instance) { order = append(order, "destroyed:N") })

	require.NoError(t, n.Destroy())
	assert.Equal(t, []string{"removed:N", "destroyed:Kid", "destroyed:N"}, order)

	assert.True(t, n.Changed.Disposed())
	assert.Zero(t, n.Destroyed.Len())
	assert.NotPanics(t, func() { n.Changed.Fire("Name") })
}

func TestDestroyedHandlerPanicIsIsolated(t *testing.T) {
	logger, logs := observedLogger()
	ctx := newTestContext(t, WithLogger(logger))
	n := child(t, ctx, "Folder", "N", ctx.Root())

	second := false
	n.Destroyed.Connect(func(*Instance) { panic("boom") })
	n.Destroyed.Connect(func(*Instance) { second = true })

	assert.NotPanics(t, func() { require.NoError(t, n.Destroy()) })
	assert.True(t, second)
	assert.Equal(t, 1, logs.FilterMessage("destroyed handler panicked").Len())
}

func TestChildHandlerPanicDoesNotAbortTeardown(t *testing.T) {
	ctx := newTestContext(t)
	p := child(t, ctx, "Folder", "P", ctx.Root())
	a := child(t, ctx, "Folder", "A", p)
	b := child(t, ctx, "Folder", "B", p)
	a.AncestryChanged.Connect(func(AncestryChange) { panic("boom") })

	fired := false
	p.Destroyed.Connect(func(*Instance) { fired = true })

	assert.PanicsWithValue(t, "boom", func() { _ = p.Destroy() })

	assert.True(t, p.IsDestroyed())
	assert.True(t, fired)
	assert.True(t, p.Changed.Disposed())
	assert.Nil(t, p.Parent())
	assert.Nil(t, ctx.Lookup(p.UniqueID()))

	for _, n := range []*Instance{a, b} {
		assert.True(t, n.IsDestroyed(), n.Name())
		assert.Nil(t, n.Parent(), n.Name())
		assert.True(t, n.Destroyed.Disposed(), n.Name())
	}
	assert.Zero(t, p.Children().Len())
}

func TestClearAllChildren(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())
	a := child(t, ctx, "Folder", "A", n)
	locked := child(t, ctx, "Folder", "Locked", n)
	inner := child(t, ctx, "Folder", "Inner", locked)
	locked.LockParent()

	require.NoError(t, n.ClearAllChildren())
	assert.True(t, a.IsDestroyed())
	assert.True(t, inner.IsDestroyed())
	assert.False(t, locked.IsDestroyed())
	assert.Equal(t, []*Instance{locked}, n.GetChildren())
	assert.False(t, n.IsDestroyed())
}

func TestSetNameFiresChangedOnce(t *testing.T) {
	ctx := newTestContext(t)
	n := ctx.MustNew("Folder")

	var props []string
	n.Changed.Connect(func(p string) { props = append(props, p) })
	n.SetName("Crate")
	n.SetName("Crate")
	assert.Equal(t, []string{"Name"}, props)
	assert.Equal(t, "Crate", n.Name())
}

func TestQueries(t *testing.T) {
	ctx := newTestContext(t)
	root := ctx.Root()
	a := child(t, ctx, "Folder", "A", root)
	b := child(t, ctx, "Model", "B", a)
	c := child(t, ctx, "Folder", "Target", b)
	d := child(t, ctx, "Folder", "Target", root)

	assert.Same(t, d, root.FindFirstChild("Target", false))
	assert.Same(t, d, root.FindFirstChild("Target", true))
	assert.Same(t, c, a.FindFirstChild("Target", true))
	assert.Nil(t, a.FindFirstChild("Target", false))
	assert.Same(t, b, a.FindFirstChildOfClass("Model"))
	assert.Same(t, a, c.FindFirstAncestor("A"))
	assert.Same(t, b, c.FindFirstAncestorOfClass("Model"))
	assert.Same(t, c, root.FindFirstDescendant(func(n *Instance) bool { return n.IsA("Folder") && n.Parent() == b }))

	assert.True(t, c.IsDescendantOf(root))
	assert.True(t, a.IsAncestorOf(c))
	assert.False(t, c.IsAncestorOf(a))
	assert.False(t, a.IsDescendantOf(a))

	assert.Equal(t, "A.B.Target", c.FullName())
	assert.Equal(t, DefaultRootKind, root.FullName())
	assert.Equal(t, []*Instance{a, b, c, d}, root.GetDescendants())
}

func TestIdentity(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.MustNew("Folder")
	b := ctx.MustNew("Folder")

	assert.Greater(t, b.ID(), a.ID())
	assert.NotEqual(t, a.UniqueID(), b.UniqueID())
	assert.Equal(t, "Folder", a.ClassName())
	assert.True(t, a.IsA("Folder"))
	assert.Same(t, ctx, a.Context())
}

func TestSelection(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())

	n.SetSelected(true)
	assert.True(t, n.Selected())
	require.NoError(t, n.Destroy())
	assert.False(t, n.Selected())
}
