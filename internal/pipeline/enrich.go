package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/observability"
)

// Stats counts what happened to each trip during enrichment.
type Stats struct {
	Read              int `json:"read"`
	Enriched          int `json:"enriched"`
	InvalidCoordinate int `json:"invalid_coordinate"`
	LookupFailed      int `json:"lookup_failed"`
	Malformed         int `json:"malformed_response"`
	Duplicate         int `json:"duplicate_result"`
}

// Skipped is the number of trips read but not enriched.
func (s Stats) Skipped() int {
	return s.InvalidCoordinate + s.LookupFailed + s.Malformed + s.Duplicate
}

// Enricher looks up distance and duration for trips one at a time, waiting a
// fixed delay between lookups, and stores each result as soon as it is known.
type Enricher struct {
	lookup    domain.RouteLookup
	sink      Sink
	publisher Publisher
	clock     clockwork.Clock
	delay     time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// EnricherOption customizes an Enricher.
type EnricherOption func(*Enricher)

// WithPublisher announces every stored result through p.
func WithPublisher(p Publisher) EnricherOption {
	return func(e *Enricher) { e.publisher = p }
}

// WithClock replaces the clock used for pacing.
func WithClock(c clockwork.Clock) EnricherOption {
	return func(e *Enricher) { e.clock = c }
}

// NewEnricher creates an Enricher that waits delay between routing lookups.
func NewEnricher(lookup domain.RouteLookup, sink Sink, delay time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		lookup:  lookup,
		sink:    sink,
		clock:   domain.Clock(),
		delay:   delay,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich consumes trips in order. Per-record failures are logged, counted and
// skipped. It returns early only when the source or sink fails, or ctx ends.
func (e *Enricher) Enrich(ctx context.Context, trips iter.Seq2[domain.TripRecord, error]) (Stats, error) {
	var stats Stats
	lookups := 0

	for trip, err := range trips {
		if err != nil {
			return stats, fmt.Errorf("extract trips: %w", err)
		}
		stats.Read++
		e.metrics.TripsRead.Inc()

		if trip.HasZeroCoordinate() {
			e.skip(trip, &domain.RecordError{TripID: trip.ID, Err: domain.ErrInvalidCoordinate}, &stats)
			continue
		}

		if lookups > 0 {
			if err := e.wait(ctx); err != nil {
				return stats, err
			}
		}
		lookups++

		result, err := e.enrichOne(ctx, trip)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			e.skip(trip, err, &stats)
			continue
		}

		if err := e.sink.Upsert(ctx, result); err != nil {
			if errors.Is(err, domain.ErrDuplicateResult) {
				e.skip(trip, err, &stats)
				continue
			}
			return stats, fmt.Errorf("store result for trip %s: %w", trip.ID, err)
		}
		stats.Enriched++
		e.metrics.ResultsStored.Inc()
		e.logger.Info("trip enriched",
			"trip_id", trip.ID,
			"distance_km", result.DistanceKm,
			"duration_min", result.DurationMin,
		)

		e.publish(ctx, result)
	}

	return stats, nil
}

// enrichOne performs one routing lookup and normalizes its answer.
func (e *Enricher) enrichOne(ctx context.Context, trip domain.TripRecord) (domain.EnrichmentResult, error) {
	resp, err := e.lookup.Lookup(ctx, trip.Pickup, trip.Dropoff)
	if err != nil {
		if errors.Is(err, domain.ErrLookupFailed) || errors.Is(err, domain.ErrMalformedResponse) {
			return domain.EnrichmentResult{}, &domain.RecordError{TripID: trip.ID, Err: err}
		}
		return domain.EnrichmentResult{}, &domain.RecordError{
			TripID: trip.ID,
			Err:    fmt.Errorf("%w: %w", domain.ErrLookupFailed, err),
		}
	}
	return domain.NormalizeLookup(trip.ID, resp)
}

// wait blocks for the pacing delay between two lookups.
func (e *Enricher) wait(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(e.delay):
		return nil
	}
}

func (e *Enricher) skip(trip domain.TripRecord, err error, stats *Stats) {
	reason := domain.Reason(err)
	e.metrics.RecordsSkipped.WithLabelValues(reason).Inc()

	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate):
		stats.InvalidCoordinate++
		e.logger.Warn("skipping trip with zero coordinate",
			"trip_id", trip.ID,
			"pickup", trip.Pickup.String(),
			"dropoff", trip.Dropoff.String(),
		)
	case errors.Is(err, domain.ErrDuplicateResult):
		stats.Duplicate++
		e.logger.Debug("trip already enriched", "trip_id", trip.ID)
	case errors.Is(err, domain.ErrMalformedResponse):
		stats.Malformed++
		e.logger.Warn("malformed routing response", "trip_id", trip.ID, "error", err)
	default:
		stats.LookupFailed++
		var lookupErr *domain.LookupError
		if errors.As(err, &lookupErr) {
			e.logger.Warn("routing lookup failed", "trip_id", trip.ID, "status", lookupErr.Status)
			return
		}
		e.logger.Warn("routing lookup failed", "trip_id", trip.ID, "error", err)
	}
}

func (e *Enricher) publish(ctx context.Context, result domain.EnrichmentResult) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, result); err != nil {
		e.logger.Warn("publish result failed", "trip_id", result.TripID, "error", err)
	}
}
