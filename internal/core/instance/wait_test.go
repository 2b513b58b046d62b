package instance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForChildTimeout(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())

	start := time.Now()
	got, ok := n.WaitForChild(context.Background(), "Foo", 100*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Nil(t, got)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Zero(t, n.PendingWaits("Foo"))
}

func TestWaitForChildExisting(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())
	foo := child(t, ctx, "Folder", "Foo", n)

	got, ok := n.WaitForChild(context.Background(), "Foo", 0)
	require.True(t, ok)
	assert.Same(t, foo, got)
}

func TestWaitForChildFulfilledByAdd(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())

	done := make(chan *Instance, 1)
	go func() {
		got, _ := n.WaitForChild(context.Background(), "Foo", 5*time.Second)
		done <- got
	}()
	require.Eventually(t, func() bool { return n.PendingWaits("Foo") == 1 }, time.Second, 5*time.Millisecond)

	foo := child(t, ctx, "Folder", "Foo", n)
	select {
	case got := <-done:
		assert.Same(t, foo, got)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not resumed")
	}
	assert.Zero(t, n.PendingWaits("Foo"))
}

func TestWaitForChildFulfilledByRename(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())
	kid := child(t, ctx, "Folder", "Bar", n)

	done := make(chan *Instance, 2)
	for i := 0; i < 2; i++ {
		go func() {
			got, _ := n.WaitForChild(context.Background(), "Foo", 5*time.Second)
			done <- got
		}()
	}
	require.Eventually(t, func() bool { return n.PendingWaits("Foo") == 2 }, time.Second, 5*time.Millisecond)

	kid.SetName("Foo")
	for i := 0; i < 2; i++ {
		select {
		case got := <-done:
			assert.Same(t, kid, got)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter not resumed")
		}
	}
}

func TestWaitForChildCancelledByContext(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())

	cctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	got, ok := n.WaitForChild(cctx, "Foo", 0)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Zero(t, n.PendingWaits("Foo"))
}

func TestWaitForChildResumedByDestroy(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())

	done := make(chan bool, 1)
	go func() {
		_, ok := n.WaitForChild(context.Background(), "Foo", 5*time.Second)
		done <- ok
	}()
	require.Eventually(t, func() bool { return n.PendingWaits("Foo") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, n.Destroy())
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not resumed")
	}

	_, ok := n.WaitForChild(context.Background(), "Foo", time.Second)
	assert.False(t, ok)
}

func TestWaitForChildRacesTimeoutAndFulfilment(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())

	for i := 0; i < 50; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			got, ok := n.WaitForChild(context.Background(), "Foo", time.Millisecond)
			if ok {
				assert.Equal(t, "Foo", got.Name())
			}
		}()
		kid := child(t, ctx, "Folder", "Foo", n)
		<-done
		require.NoError(t, kid.Destroy())
		assert.Zero(t, n.PendingWaits("Foo"))
	}
}
