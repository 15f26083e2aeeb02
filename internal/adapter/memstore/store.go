// Package memstore is an in-memory trip and result store. It backs tests and
// dry runs with the same contracts as the SQL store.
package memstore

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

// Store keeps trips and enrichment results in insertion order.
type Store struct {
	mu      sync.Mutex
	trips   []domain.TripRecord
	results []domain.EnrichmentResult
	byTrip  map[string]struct{}
}

// New creates a Store seeded with trips, sorted by identifier the way the
// SQL store returns them.
func New(trips ...domain.TripRecord) *Store {
	s := &Store{byTrip: make(map[string]struct{})}
	s.AddTrips(trips...)
	return s
}

// AddTrips appends trips and keeps them ordered by identifier.
func (s *Store) AddTrips(trips ...domain.TripRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trips = append(s.trips, trips...)
	slices.SortStableFunc(s.trips, func(a, b domain.TripRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// Trips yields stored trips within r.
func (s *Store) Trips(ctx context.Context, r domain.IDRange) iter.Seq2[domain.TripRecord, error] {
	return func(yield func(domain.TripRecord, error) bool) {
		for _, t := range s.snapshotTrips() {
			if err := ctx.Err(); err != nil {
				yield(domain.TripRecord{}, err)
				return
			}
			if !r.Contains(t.ID) {
				continue
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// Upsert stores result unless its trip already has one.
func (s *Store) Upsert(_ context.Context, result domain.EnrichmentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byTrip[result.TripID]; ok {
		return domain.ErrDuplicateResult
	}
	s.byTrip[result.TripID] = struct{}{}
	s.results = append(s.results, result)
	return nil
}

// Results yields stored results in insertion order.
func (s *Store) Results(ctx context.Context) iter.Seq2[domain.EnrichmentResult, error] {
	return func(yield func(domain.EnrichmentResult, error) bool) {
		s.mu.Lock()
		results := slices.Clone(s.results)
		s.mu.Unlock()

		for _, r := range results {
			if err := ctx.Err(); err != nil {
				yield(domain.EnrichmentResult{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// PurgeInvalid deletes trips with a zero coordinate or no passengers and
// results shorter than domain.MinDistanceKm.
func (s *Store) PurgeInvalid(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.trips) + len(s.results)
	s.trips = slices.DeleteFunc(s.trips, func(t domain.TripRecord) bool {
		return t.HasZeroCoordinate() || t.PassengerCount < domain.MinPassengers
	})
	s.results = slices.DeleteFunc(s.results, func(r domain.EnrichmentResult) bool {
		if r.DistanceKm < domain.MinDistanceKm {
			delete(s.byTrip, r.TripID)
			return true
		}
		return false
	})
	return int64(before - len(s.trips) - len(s.results)), nil
}

// Len reports the number of stored trips and results.
func (s *Store) Len() (trips, results int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trips), len(s.results)
}

func (s *Store) snapshotTrips() []domain.TripRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trips)
}
