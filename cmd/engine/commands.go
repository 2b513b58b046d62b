package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zeusync/scenecore/internal/config"
	"github.com/zeusync/scenecore/internal/engine"
	"github.com/zeusync/scenecore/internal/injector"
)

var (
	configPath string
	dumpFormat string

	rootCmd = &cobra.Command{
		Use:           "engine",
		Short:         "Run scripts and inspect place files against an instance tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run [script.lua...]",
		Short: "Run Lua scripts concurrently against a fresh tree",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScripts,
	}

	dumpCmd = &cobra.Command{
		Use:   "dump [place.yaml]",
		Short: "Load a place file and print the resulting tree",
		Args:  cobra.MaximumNArgs(1),
		RunE:  dumpPlace,
	}

	kindsCmd = &cobra.Command{
		Use:   "kinds",
		Short: "List the registered instance kinds",
		Args:  cobra.NoArgs,
		RunE:  listKinds,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "engine config file (.yaml, .yml or .toml)")
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "tree", "output format: tree or yaml")

	rootCmd.AddCommand(runCmd, dumpCmd, kindsCmd)
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Defaults(), nil
	}
	return config.Load(configPath)
}

// withEngine builds an engine, runs fn and tears the engine down.
func withEngine(fn func(e *engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, cleanup, err := injector.InitializeEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := e.Start(); err != nil {
		return err
	}
	return fn(e)
}

func runScripts(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return withEngine(func(e *engine.Engine) error {
		return e.RunScripts(ctx, args...)
	})
}

func dumpPlace(cmd *cobra.Command, args []string) error {
	return withEngine(func(e *engine.Engine) error {
		if len(args) == 1 {
			if err := e.LoadPlace(args[0]); err != nil {
				return err
			}
		}
		switch dumpFormat {
		case "tree":
			return e.DumpTree(cmd.OutOrStdout())
		case "yaml":
			return e.SavePlace(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unknown format %q", dumpFormat)
		}
	})
}

func listKinds(cmd *cobra.Command, _ []string) error {
	return withEngine(func(e *engine.Engine) error {
		for _, name := range e.Tree().Kinds().Names() {
			k, _ := e.Tree().Kinds().Lookup(name)
			tag := ""
			switch {
			case k.Abstract:
				tag = " (abstract)"
			case k.Singleton:
				tag = " (service)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", name, tag)
		}
		return nil
	})
}
