package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable means the trip store cannot be reached. Fatal.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMissingCredential means a required credential was not configured. Fatal.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidCoordinate marks a trip with a zero pickup or dropoff coordinate.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrLookupFailed marks a routing lookup that returned a non-OK status.
	ErrLookupFailed = errors.New("lookup failed")
	// ErrMalformedResponse marks a routing payload of unexpected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrDuplicateResult marks an enrichment result whose trip is already stored.
	ErrDuplicateResult = errors.New("duplicate result")
)

// LookupError carries the upstream status of a failed routing lookup.
type LookupError struct {
	TripID string
	Status string
}

func (e *LookupError) Error() string {
	if e.TripID == "" {
		return fmt.Sprintf("lookup failed: status %s", e.Status)
	}
	return fmt.Sprintf("lookup failed for trip %s: status %s", e.TripID, e.Status)
}

func (e *LookupError) Unwrap() error { return ErrLookupFailed }

// RecordError attaches a trip identifier to a per-record failure.
type RecordError struct {
	TripID string
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("trip %s: %v", e.TripID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort the whole run. Everything else is a
// per-record failure that skips one trip.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrMissingCredential)
}

// Reason returns a short label for a per-record error, used in logs and
// metric labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCoordinate):
		return "invalid_coordinate"
	case errors.Is(err, ErrLookupFailed):
		return "lookup_failed"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrDuplicateResult):
		return "duplicate_result"
	default:
		return "error"
	}
}
