package main

import (
	"fmt"
	"log/slog"

	"github.com/coolbeans/yomikae/pkg/classify"
	"github.com/coolbeans/yomikae/pkg/config"
	"github.com/coolbeans/yomikae/pkg/index"
	"github.com/coolbeans/yomikae/pkg/pipeline"
	"github.com/coolbeans/yomikae/pkg/yomikae"
)

// runtime holds the long-lived components built from a Config.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    index.Store
	cached   *index.CachedValidator
	registry *classify.Registry
	metrics  *pipeline.Metrics
}

func newRuntime(cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger}

	if cfg.Index.Path != "" {
		store, err := index.New(index.Config{Path: cfg.Index.Path})
		if err != nil {
			return nil, err
		}
		rt.store = store
		rt.cached = index.NewCachedValidator(index.NewValidator(store), cfg.Index.CacheTTL)
	}

	rt.registry = classify.NewRegistry(logger)
	if err := rt.registry.LoadDefaults(); err != nil {
		rt.Close()
		return nil, err
	}
	if cfg.Classify.ProfileDir != "" {
		if err := rt.registry.LoadDirectory(cfg.Classify.ProfileDir); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
	}

	if cfg.Output.Metrics != "" {
		rt.metrics = pipeline.NewMetrics()
	}
	return rt, nil
}

// parser returns a parser validating against the index when one is open.
func (rt *runtime) parser() *yomikae.Parser {
	if rt.cached == nil {
		return yomikae.NewParser(nil)
	}
	return yomikae.NewParser(rt.cached)
}

// runner builds a Runner over the current classifier profiles.
func (rt *runtime) runner() *pipeline.Runner {
	cfg := pipeline.RunnerConfig{
		WorkDir:    rt.cfg.Input.WorkDir,
		Workers:    rt.cfg.Workers,
		Parser:     rt.parser(),
		Classifier: rt.registry.Classifier(),
		Metrics:    rt.metrics,
		Logger:     rt.logger,
	}
	if rt.cfg.Index.Build && rt.store != nil {
		cfg.Indexer = index.NewIndexer(rt.store, rt.logger)
		cfg.Cache = rt.cached.Cache()
	}
	return pipeline.NewRunner(cfg)
}

// laws lists the laws named by the config.
func (rt *runtime) laws() ([]index.LawEntry, error) {
	return pipeline.Discover(rt.cfg.Input.WorkDir, rt.cfg.LawListPath(), rt.cfg.Input.Glob)
}

// sweepCache drops expired validator answers. Long-running commands call it
// between batches.
func (rt *runtime) sweepCache() int {
	if rt.cached == nil {
		return 0
	}
	n := rt.cached.Cache().Cleanup()
	if n > 0 {
		rt.logger.Debug("swept lookup cache", slog.Int("expired", n))
	}
	return n
}

func (rt *runtime) writeMetrics() error {
	if rt.metrics == nil {
		return nil
	}
	if err := rt.metrics.WriteFile(rt.cfg.Output.Metrics); err != nil {
		return err
	}
	rt.logger.Debug("wrote metrics", slog.String("path", rt.cfg.Output.Metrics))
	return nil
}

func (rt *runtime) Close() error {
	rt.registry.StopWatch()
	if rt.store != nil {
		return rt.store.Close()
	}
	return nil
}
