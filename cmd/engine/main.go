package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hazard-engine/internal/adapter/geojson"
	httpadapter "github.com/couchcryptid/hazard-engine/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-engine/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-engine/internal/adapter/openmeteo"
	"github.com/couchcryptid/hazard-engine/internal/adapter/sqlite"
	"github.com/couchcryptid/hazard-engine/internal/alerts"
	"github.com/couchcryptid/hazard-engine/internal/cache"
	"github.com/couchcryptid/hazard-engine/internal/config"
	"github.com/couchcryptid/hazard-engine/internal/forecast"
	"github.com/couchcryptid/hazard-engine/internal/observability"
	"github.com/couchcryptid/hazard-engine/internal/pipeline"
	"github.com/couchcryptid/hazard-engine/internal/predictor"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("engine stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("reading store close error", "error", err)
		}
	}()

	model := predictor.New(predictor.Paths{
		Model:    cfg.ModelPath,
		Features: cfg.FeaturesPath,
		Encoder:  cfg.EncoderPath,
	}, logger)

	alertService := alerts.NewService(cfg.NearbyRadiusKm)
	restoreSnapshot(cfg.SnapshotPath, alertService, logger)

	var notifier pipeline.Notifier
	if cfg.NotifyEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
	} else {
		logger.Info("alert notifications disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}()
	ingest := pipeline.NewIngest(reader, pipeline.NewTransformer(), store, logger, metrics, cfg.BatchSize)

	proc := pipeline.NewProcessor(store, model, geojson.NewPublisher(cfg.SnapshotPath, cfg.KMLPath, logger),
		alertService, notifier, pipeline.PassConfig{
			Window:            cfg.ReadingWindow,
			Limit:             cfg.ReadingLimit,
			Retention:         cfg.ReadingRetention,
			DefaultPopulation: cfg.DefaultPopulation,
		}, clockwork.NewRealClock(), logger, metrics)
	scheduler, err := pipeline.NewScheduler(cfg.ProcessSchedule, pipeline.PassFunc(func(ctx context.Context) error {
		_, err := proc.Run(ctx)
		return err
	}), logger)
	if err != nil {
		return err
	}

	checks := readinessChecks{store, ingest, snapshotReady{alertService}}

	deps := httpadapter.Deps{
		Alerts:  alertService,
		Trigger: scheduler,
	}
	if cfg.ForecastEnabled {
		forecastCache, closeCache, check := newForecastCache(ctx, cfg, logger)
		defer closeCache()
		if check != nil {
			checks = append(checks, check)
		}
		client := openmeteo.NewClient(cfg.ForecastBaseURL, cfg.ForecastTimeout, cfg.ForecastRateLimit, logger, metrics)
		deps.Forecast = forecast.NewService(client, store, model, forecastCache, metrics, logger)
		metrics.ForecastEnabled.Set(1)
		logger.Info("forecast enabled", "base_url", cfg.ForecastBaseURL, "rate_limit", cfg.ForecastRateLimit)
	} else {
		logger.Info("forecast disabled")
	}
	deps.Ready = checks

	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})
	g.Go(func() error { return ingest.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })

	return g.Wait()
}

// restoreSnapshot serves the last published snapshot until the first pass
// replaces it.
func restoreSnapshot(path string, svc *alerts.Service, logger *slog.Logger) {
	snap, err := geojson.Load(path)
	switch {
	case geojson.IsNotExist(err):
		logger.Info("no previous snapshot", "path", path)
	case err != nil:
		logger.Warn("previous snapshot unreadable, waiting for first pass", "error", err, "path", path)
	default:
		svc.Replace(snap)
		logger.Info("previous snapshot restored", "snapshot_id", snap.ID, "zones", len(snap.Zones))
	}
}

// newForecastCache prefers a shared Redis cache and falls back to an
// in-process LRU when Redis is unset or unreachable.
func newForecastCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func(), sharedobs.ReadinessChecker) {
	if cfg.RedisAddr != "" {
		r, client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.ForecastCacheTTL)
		if err == nil {
			logger.Info("forecast cache: redis", "addr", cfg.RedisAddr, "ttl", cfg.ForecastCacheTTL)
			return r, func() {
				if err := client.Close(); err != nil {
					logger.Error("redis close error", "error", err)
				}
			}, r
		}
		logger.Warn("redis unavailable, using in-process forecast cache", "error", err)
	}
	logger.Info("forecast cache: lru", "size", cfg.ForecastCacheSize, "ttl", cfg.ForecastCacheTTL)
	return cache.NewLRU(cfg.ForecastCacheSize, cfg.ForecastCacheTTL, clockwork.NewRealClock()), func() {}, nil
}

// readinessChecks is ready when every check passes.
type readinessChecks []sharedobs.ReadinessChecker

func (c readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

type snapshotReady struct {
	svc *alerts.Service
}

func (s snapshotReady) CheckReadiness(context.Context) error {
	if !s.svc.Ready() {
		return errors.New("no risk-zone snapshot published yet")
	}
	return nil
}
