package domain

import "context"

// StatusOK is the only routing status that yields a result.
const StatusOK = "OK"

// LookupResult is one routing service answer for an origin/destination pair.
type LookupResult struct {
	Status       string `json:"status"`
	DistanceText string `json:"distance"`
	DurationText string `json:"duration"`
}

// RouteLookup queries an external routing service for travel distance and
// duration between two coordinates.
type RouteLookup interface {
	Lookup(ctx context.Context, origin, destination Coordinate) (LookupResult, error)
}

// NormalizeLookup turns an OK lookup into an EnrichmentResult. Any other
// status yields a *LookupError; unparseable texts yield ErrMalformedResponse.
func NormalizeLookup(tripID string, r LookupResult) (EnrichmentResult, error) {
	if r.Status != StatusOK {
		return EnrichmentResult{}, &LookupError{TripID: tripID, Status: r.Status}
	}
	return NewEnrichmentResult(tripID, r.DistanceText, r.DurationText)
}

// NewEnrichmentResult builds a result from the routing texts, normalizing
// distance to kilometres and duration to minutes.
func NewEnrichmentResult(tripID, distanceText, durationText string) (EnrichmentResult, error) {
	km, err := ParseDistanceKm(distanceText)
	if err != nil {
		return EnrichmentResult{}, err
	}
	mins, err := ParseDurationMinutes(durationText)
	if err != nil {
		return EnrichmentResult{}, err
	}
	return EnrichmentResult{
		TripID:       tripID,
		DistanceText: distanceText,
		DurationText: durationText,
		DistanceKm:   km,
		DurationMin:  mins,
	}, nil
}
