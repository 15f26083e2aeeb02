// Command etl runs one pass of the trip enrichment pipeline: it extracts
// trips from the store, enriches them with routing distance and duration,
// merges and cleans the result, and prints the reports to stdout. When
// METRICS_ADDR is set, health, metrics and the final report stay served
// until SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/trip-enrichment-etl/internal/adapter/distancematrix"
	httpadapter "github.com/couchcryptid/trip-enrichment-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/trip-enrichment-etl/internal/adapter/kafka"
	"github.com/couchcryptid/trip-enrichment-etl/internal/adapter/rediscache"
	"github.com/couchcryptid/trip-enrichment-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/trip-enrichment-etl/internal/config"
	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
	"github.com/couchcryptid/trip-enrichment-etl/internal/pipeline"
	"github.com/couchcryptid/trip-enrichment-etl/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("pipeline failed", "error", err, "fatal", domain.IsFatal(err))
		stop()
		os.Exit(1) //nolint:gocritic // deferred cleanup already ran inside run
	}
}

// run owns every resource of the pass; each is released by defer on all
// exit paths.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:   cfg.Store.Driver,
		DSN:      cfg.Store.DSN,
		Host:     cfg.Store.Host,
		User:     cfg.Store.User,
		Password: cfg.Store.Password,
		Database: cfg.Store.Database,
		PageSize: cfg.Store.PageSize,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()
	logger.Info("store connected", "driver", cfg.Store.Driver)

	var enricher *pipeline.Enricher
	if !cfg.Run.SkipEnrich {
		lookup, closeLookup, err := newLookup(ctx, cfg, logger, metrics)
		if err != nil {
			return err
		}
		defer closeLookup()

		var opts []pipeline.EnricherOption
		if len(cfg.Kafka.Brokers) > 0 {
			writer := kafkaadapter.NewWriter(cfg, logger)
			defer func() {
				if err := writer.Close(); err != nil {
					logger.Error("kafka writer close error", "error", err)
				}
			}()
			opts = append(opts, pipeline.WithPublisher(writer))
			logger.Info("publishing results", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
		}
		enricher = pipeline.NewEnricher(lookup, store, cfg.Lookup.Delay, logger, metrics, opts...)
	} else {
		logger.Info("enrichment skipped, using stored results")
	}

	p := pipeline.New(store, store, enricher, store, logger, metrics)

	var status *statusServer
	if cfg.MetricsAddr != "" {
		l, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.MetricsAddr, err)
		}
		srv := httpadapter.NewServer(cfg.MetricsAddr, httpadapter.Checks{store, p}, p, logger)
		status = startStatusServer(l, srv, cfg.ShutdownTimeout, logger)
		defer status.shutdown()
	}

	res, err := p.Run(ctx, pipeline.Options{
		IDRange:    cfg.IDRange(),
		SkipEnrich: cfg.Run.SkipEnrich,
		CleanMode:  cfg.Run.CleanMode,
	})
	if err != nil {
		return err
	}

	if err := report.Render(os.Stdout, res.Summary, cfg.Run.ReportFormat); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if status != nil {
		status.hold(ctx)
	}
	return nil
}

// newLookup builds the routing client and, when configured, its cache.
func newLookup(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (domain.RouteLookup, func(), error) {
	client := distancematrix.NewClient(cfg.Lookup.APIKey, cfg.Lookup.BaseURL, cfg.Lookup.Timeout, logger, metrics)
	logger.Info("routing lookup enabled", "timeout", cfg.Lookup.Timeout, "delay", cfg.Lookup.Delay, "cache", cfg.Lookup.Cache)

	switch cfg.Lookup.Cache {
	case config.CacheMemory:
		lru := distancematrix.NewLRU(cfg.Lookup.CacheSize)
		return distancematrix.NewCachedLookup(client, lru, logger, metrics), func() {}, nil
	case config.CacheRedis:
		rc, err := rediscache.Connect(ctx, rediscache.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, fmt.Errorf("lookup cache: %w", err)
		}
		closeFn := func() {
			if err := rc.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}
		cache := rediscache.New(rc, cfg.Redis.TTL)
		return distancematrix.NewCachedLookup(client, cache, logger, metrics), closeFn, nil
	default:
		return client, func() {}, nil
	}
}
