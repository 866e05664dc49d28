package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
	"github.com/JakeFAU/tika-extractor/internal/api"
	"github.com/JakeFAU/tika-extractor/internal/config"
	"github.com/JakeFAU/tika-extractor/internal/engine"
	"github.com/JakeFAU/tika-extractor/internal/filter"
	"github.com/JakeFAU/tika-extractor/internal/hash/sha224"
	"github.com/JakeFAU/tika-extractor/internal/id/uuid"
	"github.com/JakeFAU/tika-extractor/internal/input"
	"github.com/JakeFAU/tika-extractor/internal/logging"
	"github.com/JakeFAU/tika-extractor/internal/metrics"
	"github.com/JakeFAU/tika-extractor/internal/pipeline"
	"github.com/JakeFAU/tika-extractor/internal/policy/ratelimit"
	"github.com/JakeFAU/tika-extractor/internal/progress"
	"github.com/JakeFAU/tika-extractor/internal/retry"
	"github.com/JakeFAU/tika-extractor/internal/storage/local"
	"github.com/JakeFAU/tika-extractor/internal/tika"
)

// pipelineDef describes one annotation service and where its output goes.
type pipelineDef struct {
	name        string
	endpoint    config.EndpointConfig
	contentType string
	filter      annotate.Filter
}

const (
	// outputDirSuffix names pipeline directories under --output-dir.
	outputDirSuffix = "-json"
	hubCloseTimeout = 5 * time.Second
)

// pipelineDefs lists pipelines in submission order.
func pipelineDefs(cfg config.Config) []pipelineDef {
	return []pipelineDef{
		{name: config.PipelineGeo, endpoint: cfg.Geo, contentType: tika.ContentTypeGeoTopic, filter: filter.Geo{}},
		{name: config.PipelineCTakes, endpoint: cfg.CTakes, contentType: tika.ContentTypeText},
	}
}

func runExtract(ctx context.Context, cfg config.Config) error {
	base, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger, _, err := logging.WithRun(base, uuid.New())
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := extract(ctx, cfg, logger); err != nil {
		logger.Error("extraction failed", zap.Error(err))
		return err
	}
	logger.Info("extraction finished")
	return nil
}

func extract(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting extraction",
		zap.String("input_file", cfg.InputFile),
		zap.String("output_dir", cfg.OutputDir),
		zap.Int("workers", cfg.Workers),
		zap.String("ctakes", cfg.CTakes.URL()),
		zap.String("geo", cfg.Geo.URL()),
		zap.Int("max_attempts", cfg.Retry.MaxAttempts),
	)

	src, err := input.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			logger.Warn("failed to close input", zap.Error(cerr))
		}
	}()

	hub := progress.NewHub(progress.Config{
		FlushInterval: cfg.Progress.Interval,
		Logger:        logger,
	}, progress.NewLogSink(logger.Named("progress")))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), hubCloseTimeout)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("failed to flush progress", zap.Error(cerr))
		}
	}()

	eng, err := buildEngine(cfg, hub, logger)
	if err != nil {
		return err
	}

	var stats engine.Stats
	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	g.Go(func() error {
		defer stopServe()
		var runErr error
		stats, runErr = eng.Run(gctx, src)
		return runErr
	})
	if cfg.Metrics.Addr != "" {
		srv := api.NewServer(eng, logger)
		g.Go(func() error {
			return srv.Serve(serveCtx, cfg.Metrics.Addr)
		})
	}

	err = g.Wait()
	fields := []zap.Field{
		zap.Int("read", stats.Read),
		zap.Int("skipped", stats.Skipped),
		zap.Int("submitted", stats.Submitted),
	}
	for name, ps := range stats.Pipelines {
		fields = append(fields, zap.Any(name, ps))
	}
	logger.Info("run summary", fields...)
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("interrupted: %w", err)
	}
	return err
}

// buildEngine creates the output directories, the shared client pool and one
// pipeline per annotation service.
func buildEngine(cfg config.Config, events progress.Emitter, logger *zap.Logger) (*engine.Engine, error) {
	metrics.Init()
	poolCfg := tika.PoolConfig{
		Timeout:         cfg.HTTP.Timeout,
		MaxConnsPerHost: cfg.HTTP.MaxConnsPerHost,
	}
	if limiter := ratelimit.New(cfg.HTTP.RateLimit); limiter.Enabled() {
		poolCfg.Limiter = limiter
		logger.Info("request rate limit enabled",
			zap.Float64("rps", cfg.HTTP.RateLimit.RPS),
			zap.Int("burst", cfg.HTTP.RateLimit.Burst),
		)
	}
	pool := tika.NewPool(poolCfg)
	policy := retry.New(cfg.Retry)
	hasher := sha224.New()

	var pipes []engine.Pipeline
	for _, def := range pipelineDefs(cfg) {
		dir, err := local.MakeOutputDir(cfg.OutputDir, def.name+outputDirSuffix)
		if err != nil {
			pool.Close()
			return nil, err
		}
		writer, err := local.New(local.Config{BaseDir: dir}, hasher, logger.Named("writer").With(zap.String("pipeline", def.name)))
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init %s writer: %w", def.name, err)
		}
		client, err := pool.Client(def.endpoint.URL(), def.contentType, def.name)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init %s client: %w", def.name, err)
		}
		p, err := pipeline.New(
			pipeline.Config{Name: def.name, Workers: cfg.Workers, Events: events},
			client,
			def.filter,
			writer,
			policy,
			logger,
		)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pipes = append(pipes, p)
	}

	eng, err := engine.New(pipes, pool, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init engine: %w", err)
	}
	return eng, nil
}
