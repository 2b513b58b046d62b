package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeusync/scenecore/internal/codec/place"
	"github.com/zeusync/scenecore/internal/config"
	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/observability/log"
	"github.com/zeusync/scenecore/internal/scripting"
)

var ErrScriptingDisabled = errors.New("scripting is disabled")

// Engine owns one instance tree and the systems attached to it.
type Engine struct {
	cfg     *config.Config
	log     log.Log
	tree    *instance.Context
	scripts *scripting.Host
	feed    *Feed
}

func New(cfg *config.Config, logger *log.Logger, tree *instance.Context, scripts *scripting.Host, feed *Feed) *Engine {
	return &Engine{cfg: cfg, log: logger, tree: tree, scripts: scripts, feed: feed}
}

func (e *Engine) Tree() *instance.Context { return e.tree }
func (e *Engine) Logger() log.Log         { return e.log }
func (e *Engine) Feed() *Feed             { return e.feed }

// Start loads the configured place file, if any.
func (e *Engine) Start() error {
	if e.cfg.Engine.Place != "" {
		if err := e.LoadPlace(e.cfg.Engine.Place); err != nil {
			return err
		}
	}
	e.log.Info("engine started",
		log.String("root", e.tree.Root().Name()),
		log.Int("services", len(e.tree.Services())),
		log.Int("instances", len(e.tree.Root().GetDescendants())))
	return nil
}

// LoadPlace replaces the tree contents with a place file.
func (e *Engine) LoadPlace(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open place: %w", err)
	}
	defer f.Close()
	if err := place.NewDecoder(f).Decode(e.tree.Root()); err != nil {
		return fmt.Errorf("load place %s: %w", path, err)
	}
	e.log.Info("place loaded", log.String("path", path))
	return nil
}

// SavePlace writes the whole tree to w.
func (e *Engine) SavePlace(w io.Writer) error {
	return place.NewEncoder(w).Encode(e.tree.Root())
}

// RunScripts runs the given Lua files concurrently against the tree.
func (e *Engine) RunScripts(ctx context.Context, paths ...string) error {
	if !e.cfg.Scripting.Enabled {
		return ErrScriptingDisabled
	}
	scripts, err := scripting.LoadFiles(paths...)
	if err != nil {
		return err
	}
	return e.scripts.RunAll(ctx, scripts)
}

// Run executes inline scripts.
func (e *Engine) Run(ctx context.Context, scripts ...scripting.Script) error {
	if !e.cfg.Scripting.Enabled {
		return ErrScriptingDisabled
	}
	return e.scripts.RunAll(ctx, scripts)
}
