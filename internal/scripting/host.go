package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/observability/log"
)

// Options bound script execution.
type Options struct {
	MaxConcurrent int
	CallStackSize int
	// Timeout caps each script's run time; zero disables it.
	Timeout time.Duration
}

// Script is a named chunk of Lua source.
type Script struct {
	Name   string
	Source string
}

// Host runs Lua scripts against an instance tree. Every script gets its own
// VM, so scripts run in parallel and a blocking call such as WaitForChild
// only suspends the script that made it.
type Host struct {
	tree *instance.Context
	log  log.Log
	opts Options
}

func NewHost(tree *instance.Context, logger log.Log, opts Options) *Host {
	if logger == nil {
		logger = log.NewNop()
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.CallStackSize <= 0 {
		opts.CallStackSize = lua.CallStackSize
	}
	return &Host{tree: tree, log: logger.Named("scripting"), opts: opts}
}

// Run executes one script to completion.
func (h *Host) Run(ctx context.Context, s Script) error {
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	L := lua.NewState(lua.Options{CallStackSize: h.opts.CallStackSize})
	defer L.Close()
	L.SetContext(ctx)

	logger := h.log.With(log.String("script", s.Name))
	h.install(L, logger)

	start := time.Now()
	fn, err := L.Load(strings.NewReader(s.Source), s.Name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", s.Name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("run %s: %w", s.Name, ctxErr)
		}
		return fmt.Errorf("run %s: %w", s.Name, err)
	}
	logger.Debug("script finished", log.Duration("elapsed", time.Since(start)))
	return nil
}

// RunAll runs the scripts concurrently, at most MaxConcurrent at a time. The
// first failure cancels the others.
func (h *Host) RunAll(ctx context.Context, scripts []Script) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.MaxConcurrent)
	for _, s := range scripts {
		g.Go(func() error {
			return h.Run(gctx, s)
		})
	}
	return g.Wait()
}

// LoadFiles reads .lua files into scripts named after the file.
func LoadFiles(paths ...string) ([]Script, error) {
	scripts := make([]Script, 0, len(paths))
	for _, path := range paths {
		if filepath.Ext(path) != ".lua" {
			return nil, fmt.Errorf("load %s: not a .lua file", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		scripts = append(scripts, Script{Name: filepath.Base(path), Source: string(data)})
	}
	return scripts, nil
}

// install sets the globals every script sees.
func (h *Host) install(L *lua.LState, logger log.Log) {
	registerInstanceType(L, h.tree)
	L.SetGlobal("game", push(L, h.tree.Root()))
	if ws := h.tree.FindService("Workspace"); ws != nil {
		L.SetGlobal("workspace", push(L, ws))
	}

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		logger.Info(strings.Join(parts, "\t"))
		return 0
	}))
	L.SetGlobal("warn", L.NewFunction(func(L *lua.LState) int {
		logger.Warn(L.CheckString(1))
		return 0
	}))

	// wait(seconds) suspends only this script
	L.SetGlobal("wait", L.NewFunction(func(L *lua.LState) int {
		d := time.Duration(float64(L.OptNumber(1, 0)) * float64(time.Second))
		start := time.Now()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-L.Context().Done():
			L.RaiseError("wait interrupted: %v", L.Context().Err())
		}
		L.Push(lua.LNumber(time.Since(start).Seconds()))
		return 1
	}))
}
