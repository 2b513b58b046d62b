package instance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializationHooksOrder(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Hooked", "H", ctx.Root())
	keep := child(t, ctx, "Folder", "Keep", n)
	transient := child(t, ctx, "Folder", "Transient", n)
	transient.SetArchivable(false)

	require.NoError(t, n.BeforeSerialization())
	assert.True(t, n.Children().Filtered())
	assert.Equal(t, []*Instance{keep}, n.GetChildren())
	require.NoError(t, n.AfterSerialization())
	assert.False(t, n.Children().Filtered())
	assert.Len(t, n.GetChildren(), 2)

	require.NoError(t, n.BeforeDeserialization())
	assert.True(t, keep.IsDestroyed())
	assert.True(t, transient.IsDestroyed())
	require.NoError(t, n.AfterDeserialization())

	h, ok := As[*hooked](n)
	require.True(t, ok)
	assert.Equal(t, []string{"before-save", "after-save", "before-load", "after-load"}, h.calls)
}

func TestBeforeSerializationFailsWhenDestroyed(t *testing.T) {
	ctx := newTestContext(t)
	n := child(t, ctx, "Folder", "N", ctx.Root())
	require.NoError(t, n.Destroy())

	assert.ErrorIs(t, n.BeforeSerialization(), ErrAlreadyDisposed)
}

func TestBeforeSerializationHookErrorRestoresFilter(t *testing.T) {
	ctx := newTestContext(t)
	n := ctx.MustNew("Hooked")
	h, _ := As[*hooked](n)
	h.fail = errors.New("unsupported")

	err := n.BeforeSerialization()
	assert.ErrorContains(t, err, "unsupported")
	assert.False(t, n.Children().Filtered())
}

func TestAfterDeserializationRelinksChildren(t *testing.T) {
	ctx := newTestContext(t)
	w := child(t, ctx, "Viewport", "W", ctx.Root())
	model := ctx.MustNew("Model")
	part := ctx.MustNew("Part")

	// a codec filling collections directly, without SetParent
	w.Children().Add(model)
	model.Children().Add(part)
	assert.Nil(t, part.Parent())

	require.NoError(t, model.AfterDeserialization())
	require.NoError(t, w.AfterDeserialization())

	assert.Same(t, w, model.Parent())
	assert.Same(t, model, part.Parent())
	assert.Same(t, w, model.World())
	assert.Same(t, w, part.World())
	assert.Equal(t, "W.Model.Part", part.FullName())
}
