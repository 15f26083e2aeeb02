package pipeline

import (
	"context"
	"iter"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

// Source streams raw trips, optionally bounded by identifier. Rows are
// yielded as stored; an error ends the sequence.
type Source interface {
	Trips(ctx context.Context, r domain.IDRange) iter.Seq2[domain.TripRecord, error]
}

// Sink stores one enrichment result per call. A result whose trip already
// has one must fail with domain.ErrDuplicateResult.
type Sink interface {
	Upsert(ctx context.Context, result domain.EnrichmentResult) error
}

// ResultStore streams every stored enrichment result.
type ResultStore interface {
	Results(ctx context.Context) iter.Seq2[domain.EnrichmentResult, error]
}

// Purger deletes rows that violate the cleaning rules from the store and
// returns how many rows were removed.
type Purger interface {
	PurgeInvalid(ctx context.Context) (int64, error)
}

// Publisher announces stored results to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, result domain.EnrichmentResult) error
}
