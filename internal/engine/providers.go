package engine

import (
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/scenecore/internal/config"
	"github.com/zeusync/scenecore/internal/core/datamodel"
	"github.com/zeusync/scenecore/internal/core/events/bus"
	"github.com/zeusync/scenecore/internal/core/instance"
	"github.com/zeusync/scenecore/internal/core/observability/log"
	"github.com/zeusync/scenecore/internal/scripting"
)

// ProviderSet builds an Engine from a *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideTree,
	ProvideScriptHost,
	ProvideFeed,
	New,
)

// ProvideLogger builds the root logger from the logging section.
func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	logger, err := log.New(log.Options{Level: level, Encoding: cfg.Logging.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	named := logger.Named(cfg.Engine.Name).(*log.Logger)
	return named, func() { _ = named.Sync() }, nil
}

// ProvideTree builds the DataModel tree with the configured services.
func ProvideTree(cfg *config.Config, logger *log.Logger) (*instance.Context, func(), error) {
	tree, err := datamodel.New(datamodel.Env{}, instance.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("build tree: %w", err)
	}
	for _, svc := range cfg.Engine.Services {
		if _, err := tree.GetOrCreate(svc); err != nil {
			_ = tree.Close()
			return nil, nil, fmt.Errorf("build tree: %w", err)
		}
	}
	cleanup := func() {
		if err := tree.Close(); err != nil {
			logger.Error("close tree", log.Error(err))
		}
	}
	return tree, cleanup, nil
}

// ProvideScriptHost builds the Lua host for tree.
func ProvideScriptHost(cfg *config.Config, tree *instance.Context, logger *log.Logger) *scripting.Host {
	return scripting.NewHost(tree, logger, scripting.Options{
		MaxConcurrent: cfg.Scripting.MaxConcurrent,
		CallStackSize: cfg.Scripting.CallStackSize,
		Timeout:       cfg.Scripting.Timeout,
	})
}

// ProvideFeed attaches a change feed to the tree root.
func ProvideFeed(tree *instance.Context, logger *log.Logger) (*Feed, func()) {
	feed := NewFeed(tree, bus.New(), logger)
	return feed, feed.Close
}
