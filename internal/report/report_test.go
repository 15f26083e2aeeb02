package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	monday   = "2012-04-16"
	saturday = "2012-04-21"
	sunday   = "2012-04-22"
)

var (
	midtown = domain.Coordinate{Lat: 40.7549, Lon: -73.9840}
	soho    = domain.Coordinate{Lat: 40.7233, Lon: -74.0030}
)

func trip(id, day string, hour int) domain.CleanedTrip {
	return domain.CleanedTrip{
		TripRecord: domain.TripRecord{
			ID:             id,
			PickupDatetime: fmt.Sprintf("%s %02d:15:00 UTC", day, hour),
			Pickup:         midtown,
			Dropoff:        soho,
			FareAmount:     10,
			PassengerCount: 1,
		},
		DistanceKm: 4,
	}
}

func TestRidesByHour_OnePerHour(t *testing.T) {
	var trips []domain.CleanedTrip
	for h := 0; h < 24; h++ {
		trips = append(trips, trip(fmt.Sprintf("t%02d", h), monday, h))
	}

	got := RidesByHour(trips)

	require.Len(t, got, 24)
	for i, g := range got {
		assert.Equal(t, 1, g.Count)
		assert.Equal(t, i, g.Hour, "ties are ordered by hour")
	}
}

func TestRidesByHour_OrderedByCountDesc(t *testing.T) {
	trips := []domain.CleanedTrip{
		trip("a", monday, 9),
		trip("b", monday, 18),
		trip("c", saturday, 18),
		trip("d", sunday, 18),
		trip("e", monday, 9),
		trip("f", monday, 3),
	}

	got := RidesByHour(trips)

	want := []HourCount{{Hour: 18, Count: 3}, {Hour: 9, Count: 2}, {Hour: 3, Count: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rides by hour mismatch (-want +got):\n%s", diff)
	}
}

func TestRidesByHour_SkipsUnparseableTime(t *testing.T) {
	bad := trip("bad", monday, 1)
	bad.PickupDatetime = "not a time"

	got := RidesByHour([]domain.CleanedTrip{bad, trip("ok", monday, 2)})

	assert.Equal(t, []HourCount{{Hour: 2, Count: 1}}, got)
}

func TestWeekdayVsWeekendByHour_PercentagesSumTo100(t *testing.T) {
	trips := []domain.CleanedTrip{
		trip("a", monday, 7),
		trip("b", monday, 7),
		trip("c", monday, 8),
		trip("d", monday, 17),
		trip("e", monday, 23),
		trip("f", monday, 23),
		trip("g", saturday, 1),
		trip("h", sunday, 1),
		trip("i", sunday, 14),
	}

	got := WeekdayVsWeekendByHour(trips)

	sums := map[string]float64{}
	for _, g := range got {
		sums[g.DayType] += g.Percentage
	}
	assert.InDelta(t, 100.0, sums[Weekday], 1e-9)
	assert.InDelta(t, 100.0, sums[Weekend], 1e-9)

	require.NotEmpty(t, got)
	assert.Equal(t, DayTypeHourShare{DayType: Weekday, Hour: 7, Count: 2, Percentage: 2.0 / 6 * 100}, got[0])
	last := got[len(got)-1]
	assert.Equal(t, Weekend, last.DayType)
	assert.Equal(t, 14, last.Hour)
	assert.InDelta(t, 100.0/3, last.Percentage, 1e-9)
}

func TestWeekdayVsWeekendByHour_OnlyWeekday(t *testing.T) {
	got := WeekdayVsWeekendByHour([]domain.CleanedTrip{trip("a", monday, 5)})

	require.Len(t, got, 1)
	assert.Equal(t, Weekday, got[0].DayType)
	assert.Equal(t, 100.0, got[0].Percentage)
}

func TestAirport_Contains(t *testing.T) {
	assert.True(t, JFK.Contains(domain.Coordinate{Lat: 40.648, Lon: -73.780}))
	assert.False(t, JFK.Contains(domain.Coordinate{Lat: 40.700, Lon: -73.780}))
	assert.False(t, JFK.Contains(domain.Coordinate{Lat: 40.648, Lon: -73.700}))
	assert.True(t, JFK.Contains(JFK.Point))
}

func TestAirport_ContainsEdgesInclusive(t *testing.T) {
	tests := []struct {
		name string
		c    domain.Coordinate
		want bool
	}{
		{"north edge", domain.Coordinate{Lat: 40.654537, Lon: -73.783260}, true},
		{"south edge", domain.Coordinate{Lat: 40.634537, Lon: -73.783260}, true},
		{"east edge", domain.Coordinate{Lat: 40.644537, Lon: -73.773260}, true},
		{"west edge", domain.Coordinate{Lat: 40.644537, Lon: -73.793260}, true},
		{"corner", domain.Coordinate{Lat: 40.654537, Lon: -73.793260}, true},
		{"past north edge", domain.Coordinate{Lat: 40.654538, Lon: -73.783260}, false},
		{"past east edge", domain.Coordinate{Lat: 40.644537, Lon: -73.773259}, false},
		{"past west edge", domain.Coordinate{Lat: 40.644537, Lon: -73.793261}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, JFK.Contains(tt.c))
		})
	}
}

func TestAirportRides(t *testing.T) {
	pickupAtJFK := trip("pickup", sunday, 6)
	pickupAtJFK.Pickup = domain.Coordinate{Lat: 40.648, Lon: -73.780}

	dropoffAtJFK := trip("dropoff", saturday, 20)
	dropoffAtJFK.Dropoff = domain.Coordinate{Lat: 40.640, Lon: -73.790}

	nearby := trip("nearby", sunday, 9)
	nearby.Pickup = domain.Coordinate{Lat: 40.700, Lon: -73.780}

	secondSunday := trip("pickup-2", sunday, 22)
	secondSunday.Pickup = JFK.Point

	got := AirportRides([]domain.CleanedTrip{pickupAtJFK, dropoffAtJFK, nearby, secondSunday, trip("city", monday, 8)}, JFK)

	want := []WeekdayCount{
		{DayOfWeek: 1, DayName: "Sunday", Count: 2},
		{DayOfWeek: 7, DayName: "Saturday", Count: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("airport rides mismatch (-want +got):\n%s", diff)
	}
}

func TestFareByPassengerCount(t *testing.T) {
	a := trip("a", monday, 1)
	a.FareAmount = 10
	b := trip("b", monday, 1)
	b.FareAmount = 20
	c := trip("c", monday, 1)
	c.PassengerCount = 4
	c.FareAmount = 35.5

	got := FareByPassengerCount([]domain.CleanedTrip{c, a, b})

	want := []PassengerFare{
		{PassengerCount: 1, Rides: 2, MeanFare: 15},
		{PassengerCount: 4, Rides: 1, MeanFare: 35.5},
	}
	assert.Equal(t, want, got)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	trips := []domain.CleanedTrip{trip("b", monday, 3), trip("a", saturday, 1)}
	before := append([]domain.CleanedTrip(nil), trips...)

	s := Build(trips, JFK)

	assert.Equal(t, 2, s.Trips)
	assert.Equal(t, before, trips)
}

func TestRender_JSON(t *testing.T) {
	s := Build([]domain.CleanedTrip{trip("a", monday, 3)}, JFK)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s, FormatJSON))

	var decoded Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, s.RidesByHour, decoded.RidesByHour)
}

func TestRender_Table(t *testing.T) {
	s := Build([]domain.CleanedTrip{trip("a", monday, 3)}, JFK)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, s, FormatTable))

	out := buf.String()
	assert.Contains(t, out, "Cleaned trips: 1")
	assert.Contains(t, out, "RIDES BY HOUR")
	assert.Contains(t, out, "MEAN FARE BY PASSENGER COUNT")
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, Summary{}, "xml")
	assert.Error(t, err)
}
