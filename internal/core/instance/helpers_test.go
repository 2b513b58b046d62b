package instance

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/scenecore/internal/core/observability/log"
	"github.com/zeusync/scenecore/internal/core/systems/physics"
	"github.com/zeusync/scenecore/internal/core/systems/render"
)

type plain struct{}

type world struct{}

func (world) Simulation() physics.Simulation { return nil }
func (world) RenderObjects() render.Provider { return nil }

// body records the rigid body rebuilds triggered by world moves.
type body struct {
	mu      sync.Mutex
	rebuilt []WorldChange
}

func (b *body) RebuildRigidBody(_ *Instance, change WorldChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rebuilt = append(b.rebuilt, change)
}

func (b *body) rebuilds() []WorldChange {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]WorldChange(nil), b.rebuilt...)
}

// hooked records serialization hook calls.
type hooked struct {
	calls []string
	fail  error
}

func (h *hooked) record(call string) { h.calls = append(h.calls, call) }

func (h *hooked) BeforeSerialize(*Instance) error {
	h.record("before-save")
	return h.fail
}

func (h *hooked) AfterSerialize(*Instance) error    { h.record("after-save"); return nil }
func (h *hooked) BeforeDeserialize(*Instance) error { h.record("before-load"); return nil }
func (h *hooked) AfterDeserialize(*Instance) error  { h.record("after-load"); return nil }

// noModels refuses parents of kind Model.
type noModels struct{}

func (noModels) FilterParent(_, parent *Instance) bool {
	return parent == nil || !parent.IsA("Model")
}

func testKinds() *KindRegistry {
	reg := NewKindRegistry()
	reg.MustRegister(
		Kind{Name: DefaultRootKind, New: func() any { return plain{} }},
		Kind{Name: "Folder", New: func() any { return plain{} }},
		Kind{Name: "Model", New: func() any { return plain{} }},
		Kind{Name: "Workspace", Singleton: true, New: func() any { return world{} }},
		Kind{Name: "Viewport", New: func() any { return world{} }},
		Kind{Name: "Part", New: func() any { return &body{} }},
		Kind{Name: "Hooked", New: func() any { return &hooked{} }},
		Kind{Name: "Picky", New: func() any { return noModels{} }},
		Kind{Name: "Service", Singleton: true, New: func() any { return plain{} }},
		Kind{Name: "Base", Abstract: true, New: func() any { return plain{} }},
		Kind{Name: "Opaque"},
	)
	return reg
}

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	opts = append([]Option{WithKinds(testKinds())}, opts...)
	ctx, err := NewContext(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func observedLogger() (log.Log, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return log.FromZap(zap.New(core), log.LevelDebug), logs
}

// child builds a node of kind under parent.
func child(t *testing.T, ctx *Context, kind, name string, parent *Instance) *Instance {
	t.Helper()
	n, err := ctx.New(kind)
	require.NoError(t, err)
	if name != "" {
		n.SetName(name)
	}
	if parent != nil {
		require.NoError(t, n.SetParent(parent))
	}
	return n
}
