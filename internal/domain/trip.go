package domain

import (
	"fmt"
	"strings"
	"time"
)

// pickupLayouts are tried in order when parsing TripRecord.PickupDatetime.
var pickupLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// IsZero reports whether either component is exactly zero. The source data
// uses 0 as the "not recorded" marker for both latitude and longitude.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 || c.Lon == 0
}

// String formats the coordinate as "lat,lon" with six decimals.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// TripRecord is one raw ride as stored by the import.
type TripRecord struct {
	ID             string     `json:"id"`
	PickupDatetime string     `json:"pickup_datetime"`
	Pickup         Coordinate `json:"pickup"`
	Dropoff        Coordinate `json:"dropoff"`
	FareAmount     float64    `json:"fare_amount"`
	PassengerCount int        `json:"passenger_count"`
}

// HasZeroCoordinate reports whether the pickup or dropoff coordinate is unset.
func (t TripRecord) HasZeroCoordinate() bool {
	return t.Pickup.IsZero() || t.Dropoff.IsZero()
}

// PickupTime parses PickupDatetime. The wall clock of the stored text is kept
// as-is; the returned time carries the UTC location.
func (t TripRecord) PickupTime() (time.Time, error) {
	s := strings.TrimSpace(t.PickupDatetime)
	for _, layout := range pickupLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("trip %s: unrecognized pickup datetime %q", t.ID, t.PickupDatetime)
}

// EnrichmentResult is the routing-derived distance and duration for one trip.
// The text fields hold the routing service's values verbatim; the numeric
// fields are their normalized forms.
type EnrichmentResult struct {
	TripID       string  `json:"trip_id"`
	DistanceText string  `json:"distance"`
	DurationText string  `json:"duration"`
	DistanceKm   float64 `json:"distance_km"`
	DurationMin  float64 `json:"duration_min"`
}

// CleanedTrip is a TripRecord joined with its EnrichmentResult.
type CleanedTrip struct {
	TripRecord
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// IDRange bounds extraction by trip identifier. Empty bounds are open.
type IDRange struct {
	From string
	To   string
}

// IsOpen reports whether the range places no bound at all.
func (r IDRange) IsOpen() bool {
	return r.From == "" && r.To == ""
}

// Contains reports whether id lies within the inclusive bounds.
func (r IDRange) Contains(id string) bool {
	if r.From != "" && id < r.From {
		return false
	}
	if r.To != "" && id > r.To {
		return false
	}
	return true
}
