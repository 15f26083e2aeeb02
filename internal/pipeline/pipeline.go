package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
	"github.com/couchcryptid/trip-enrichment-etl/internal/report"
)

// Clean modes accepted by Options.CleanMode.
const (
	CleanFilter = "filter"
	CleanDelete = "delete"
)

// Options scope one pipeline run.
type Options struct {
	IDRange    domain.IDRange
	SkipEnrich bool
	CleanMode  string
}

// Result is everything a run produced.
type Result struct {
	Stats    Stats
	Merged   int
	Cleaned  []domain.CleanedTrip
	Excluded []domain.Exclusion
	Purged   int64
	Summary  report.Summary
}

// Pipeline runs extract, enrich, merge, clean and report in that order.
type Pipeline struct {
	source   Source
	results  ResultStore
	enricher *Enricher
	purger   Purger
	airport  report.Airport
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	mu   sync.Mutex
	last *report.Summary
}

// New creates a Pipeline. enricher may be nil when every run skips
// enrichment; purger may be nil when CLEAN_MODE=delete is never used.
func New(source Source, results ResultStore, enricher *Enricher, purger Purger, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:   source,
		results:  results,
		enricher: enricher,
		purger:   purger,
		airport:  report.JFK,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a run has read from the source, even when
// the source held no trips.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not read from the source yet")
	}
	return nil
}

// LastSummary returns the report of the most recent successful run.
func (p *Pipeline) LastSummary() (report.Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return report.Summary{}, false
	}
	return *p.last, true
}

// Run executes one full pass. Per-record failures are counted in
// Result.Stats; only store failures and cancellation return an error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	p.logger.Info("pipeline started",
		"id_from", opts.IDRange.From,
		"id_to", opts.IDRange.To,
		"skip_enrich", opts.SkipEnrich,
		"clean_mode", opts.CleanMode,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var res Result

	trips, stats, err := p.extractAndEnrich(ctx, opts)
	res.Stats = stats
	if err != nil {
		return res, err
	}

	results, err := collect(p.results.Results(ctx))
	if err != nil {
		return res, fmt.Errorf("read enrichment results: %w", err)
	}

	merged := domain.Merge(trips, results)
	res.Merged = len(merged)

	res.Cleaned, res.Excluded = domain.Clean(merged, domain.DefaultRules()...)
	for _, ex := range res.Excluded {
		p.metrics.TripsExcluded.WithLabelValues(ex.Rule).Inc()
	}
	p.metrics.TripsCleaned.Set(float64(len(res.Cleaned)))

	if opts.CleanMode == CleanDelete {
		if p.purger == nil {
			return res, errors.New("clean mode delete requires a store that supports purging")
		}
		n, err := p.purger.PurgeInvalid(ctx)
		if err != nil {
			return res, fmt.Errorf("purge invalid rows: %w", err)
		}
		res.Purged = n
	}

	res.Summary = report.Build(res.Cleaned, p.airport)
	p.mu.Lock()
	p.last = &res.Summary
	p.mu.Unlock()

	p.logger.Info("pipeline finished",
		"trips_read", len(trips),
		"enriched", res.Stats.Enriched,
		"skipped", res.Stats.Skipped(),
		"invalid_coordinate", res.Stats.InvalidCoordinate,
		"lookup_failed", res.Stats.LookupFailed,
		"malformed_response", res.Stats.Malformed,
		"duplicate_result", res.Stats.Duplicate,
		"merged", res.Merged,
		"cleaned", len(res.Cleaned),
		"excluded", len(res.Excluded),
		"purged", res.Purged,
		"duration", time.Since(start).String(),
	)
	return res, nil
}

// extractAndEnrich streams the source once, feeding the enricher and keeping
// a copy of every trip for the merge.
func (p *Pipeline) extractAndEnrich(ctx context.Context, opts Options) ([]domain.TripRecord, Stats, error) {
	var trips []domain.TripRecord
	seq := p.tee(p.source.Trips(ctx, opts.IDRange), &trips)

	if opts.SkipEnrich || p.enricher == nil {
		for _, err := range seq {
			if err != nil {
				return trips, Stats{}, fmt.Errorf("extract trips: %w", err)
			}
		}
		p.metrics.TripsRead.Add(float64(len(trips)))
		return trips, Stats{Read: len(trips)}, nil
	}

	stats, err := p.enricher.Enrich(ctx, seq)
	return trips, stats, err
}

// tee records every successfully read trip into dst. The pipeline is marked
// ready after the first trip, or once the source ends cleanly with none.
func (p *Pipeline) tee(seq iter.Seq2[domain.TripRecord, error], dst *[]domain.TripRecord) iter.Seq2[domain.TripRecord, error] {
	return func(yield func(domain.TripRecord, error) bool) {
		failed := false
		for trip, err := range seq {
			if err == nil {
				*dst = append(*dst, trip)
				p.ready.Store(true)
			} else {
				failed = true
			}
			if !yield(trip, err) {
				return
			}
		}
		if !failed {
			p.ready.Store(true)
		}
	}
}

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
