// Command importcsv loads a raw taxi trip CSV into the trips table so the
// etl command can enrich it. Rows that cannot be parsed are counted and
// skipped; identifiers already present are left untouched.
//
// Usage:
//
//	STORE_DSN='root:secret@tcp(localhost:3306)/taxi' \
//	  go run ./cmd/importcsv -csv data/train.csv -batch 1000 -limit 50000
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/trip-enrichment-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/trip-enrichment-etl/internal/config"
	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
)

func main() {
	csvPath := flag.String("csv", "", "path to the trip CSV file")
	batch := flag.Int("batch", 1000, "rows per insert transaction")
	limit := flag.Int("limit", 0, "stop after this many parsed rows (0 = all)")
	flag.Parse()

	if *csvPath == "" || *batch <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadStore()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *csvPath, *batch, *limit); err != nil {
		logger.Error("import failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, path string, batch, limit int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

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
	defer store.Close()

	r, err := newTripReader(f)
	if err != nil {
		return err
	}

	var parsed, rejected int
	var inserted int64
	buf := make([]domain.TripRecord, 0, batch)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		n, err := store.InsertTrips(ctx, buf)
		if err != nil {
			return err
		}
		inserted += n
		logger.Info("batch imported", "rows", len(buf), "inserted", n, "total_parsed", parsed)
		buf = buf[:0]
		return nil
	}

	for limit == 0 || parsed < limit {
		trip, err := r.next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *rowError
		if errors.As(err, &rowErr) {
			rejected++
			logger.Debug("skipping unparseable row", "line", rowErr.line, "error", rowErr.err)
			continue
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}

		parsed++
		buf = append(buf, trip)
		if len(buf) == batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("import complete", "parsed", parsed, "rejected", rejected, "inserted", inserted)
	return nil
}
