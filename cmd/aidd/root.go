package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacoblum22/AID-D-sub000/internal/config"
	"github.com/jacoblum22/AID-D-sub000/internal/executor"
	"github.com/jacoblum22/AID-D-sub000/internal/items"
	"github.com/jacoblum22/AID-D-sub000/internal/logging"
	"github.com/jacoblum22/AID-D-sub000/internal/pipeline"
	"github.com/jacoblum22/AID-D-sub000/internal/planner"
)

var (
	cfgPath string
	cfg     *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aidd",
		Short: "AID-D tabletop runtime: decision and mutation core",
		Long: `aidd runs the AID-D engine: a zone-graph world model, a tool
catalog with affordance filtering, a transactional effect engine, and a
turn pipeline that resolves player utterances into validated mutations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return logging.Initialize(logging.Settings{
				Level:      cfg.Logging.Level,
				Categories: cfg.Logging.Categories,
				JSON:       cfg.Logging.JSONFormat,
				OutputPath: cfg.Logging.OutputPath,
			})
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "aidd.yaml", "config file path")

	root.AddCommand(newPlayCmd())
	root.AddCommand(newSaveCmd())
	root.AddCommand(newLoadCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newPathCmd())
	return root
}

// buildRuntime wires the collaborators from config: item registry with
// optional hot reload, outcome tables, executor, and a planner.
func buildRuntime(ctx context.Context) (*pipeline.Runtime, func(), error) {
	registry := items.NewRegistry()
	if n, err := registry.LoadDir(cfg.Data.ItemsDir); err != nil {
		return nil, nil, fmt.Errorf("loading items: %w", err)
	} else if n > 0 {
		logging.Boot("loaded %d items from %s", n, cfg.Data.ItemsDir)
	}

	cleanup := func() {}
	if cfg.Data.HotReload {
		watcher, err := items.Watch(registry, cfg.Data.ItemsDir)
		if err != nil {
			logging.BootWarn("item hot reload unavailable: %v", err)
		} else {
			cleanup = func() { watcher.Close() }
		}
	}

	exec := executor.New(nil, nil, registry)

	var p planner.Planner
	if cfg.LLM.Provider == "gemini" && cfg.LLM.APIKey != "" {
		gp, err := planner.NewGeminiPlanner(ctx, cfg.LLM.APIKey, cfg.LLM.Model, exec.Catalog())
		if err != nil {
			logging.BootWarn("gemini planner unavailable, using keywords: %v", err)
		} else {
			p = gp
		}
	}
	if p == nil {
		p = planner.NewKeywordPlanner(exec.Catalog())
	}

	rt := pipeline.NewRuntime(nil, exec, p)
	if n, err := rt.Resolver.LoadDir(cfg.Data.OutcomesDir); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("loading outcome tables: %w", err)
	} else if n > 0 {
		logging.Boot("merged %d outcome entries from %s", n, cfg.Data.OutcomesDir)
	}
	return rt, cleanup, nil
}
