// Package report computes read-only aggregations over cleaned trips.
// Every function is pure: it neither mutates its input nor touches a store.
package report

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

// Day types used by WeekdayVsWeekendByHour.
const (
	Weekday = "Weekday"
	Weekend = "Weekend"
)

// Airport is a reference point and the half-width, in degrees, of the box
// around it that counts as "at the airport".
type Airport struct {
	Name   string
	Point  domain.Coordinate
	Radius float64
}

// JFK is John F. Kennedy International Airport.
var JFK = Airport{
	Name:   "JFK",
	Point:  domain.Coordinate{Lat: 40.644537, Lon: -73.783260},
	Radius: 0.01,
}

// Contains reports whether c lies within Radius of the reference point on
// both latitude and longitude. Bounds are inclusive. Offsets are compared in
// micro-degrees, the precision coordinates are stored at.
func (a Airport) Contains(c domain.Coordinate) bool {
	limit := microDegrees(a.Radius)
	return math.Abs(microDegrees(c.Lat-a.Point.Lat)) <= limit &&
		math.Abs(microDegrees(c.Lon-a.Point.Lon)) <= limit
}

func microDegrees(deg float64) float64 {
	return math.Round(deg * 1e6)
}

// Serves reports whether the trip picks up or drops off at the airport.
func (a Airport) Serves(t domain.CleanedTrip) bool {
	return a.Contains(t.Pickup) || a.Contains(t.Dropoff)
}

// HourCount is the number of rides starting in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// DayTypeHourShare is the share of a day type's rides starting in one hour.
type DayTypeHourShare struct {
	DayType    string  `json:"day_type"`
	Hour       int     `json:"hour"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// WeekdayCount is the number of rides on one day of the week, Sunday=1
// through Saturday=7.
type WeekdayCount struct {
	DayOfWeek int    `json:"day_of_week"`
	DayName   string `json:"day_name"`
	Count     int    `json:"count"`
}

// PassengerFare is the mean fare of rides with a given passenger count.
type PassengerFare struct {
	PassengerCount int     `json:"passenger_count"`
	Rides          int     `json:"rides"`
	MeanFare       float64 `json:"mean_fare"`
}

// Summary bundles every report for one cleaned dataset.
type Summary struct {
	Trips                  int                `json:"trips"`
	RidesByHour            []HourCount        `json:"rides_by_hour"`
	WeekdayVsWeekendByHour []DayTypeHourShare `json:"weekday_vs_weekend_by_hour"`
	AirportRides           []WeekdayCount     `json:"airport_rides"`
	FareByPassengerCount   []PassengerFare    `json:"fare_by_passenger_count"`
}

// Build runs every report over trips.
func Build(trips []domain.CleanedTrip, airport Airport) Summary {
	return Summary{
		Trips:                  len(trips),
		RidesByHour:            RidesByHour(trips),
		WeekdayVsWeekendByHour: WeekdayVsWeekendByHour(trips),
		AirportRides:           AirportRides(trips, airport),
		FareByPassengerCount:   FareByPassengerCount(trips),
	}
}

// RidesByHour counts rides per pickup hour, busiest hour first. Ties are
// ordered by hour. Trips with an unparseable pickup time are not counted.
func RidesByHour(trips []domain.CleanedTrip) []HourCount {
	var counts [24]int
	for _, t := range trips {
		ts, err := t.PickupTime()
		if err != nil {
			continue
		}
		counts[ts.Hour()]++
	}

	var out []HourCount
	for h, n := range counts {
		if n > 0 {
			out = append(out, HourCount{Hour: h, Count: n})
		}
	}
	slices.SortStableFunc(out, func(a, b HourCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Hour, b.Hour)
	})
	return out
}

// WeekdayVsWeekendByHour splits rides by day type and hour and expresses each
// group as a percentage of its day type's total.
func WeekdayVsWeekendByHour(trips []domain.CleanedTrip) []DayTypeHourShare {
	counts := map[string]*[24]int{Weekday: {}, Weekend: {}}
	totals := map[string]int{}

	for _, t := range trips {
		ts, err := t.PickupTime()
		if err != nil {
			continue
		}
		dt := dayType(ts.Weekday())
		counts[dt][ts.Hour()]++
		totals[dt]++
	}

	var out []DayTypeHourShare
	for _, dt := range []string{Weekday, Weekend} {
		if totals[dt] == 0 {
			continue
		}
		for h, n := range counts[dt] {
			if n == 0 {
				continue
			}
			out = append(out, DayTypeHourShare{
				DayType:    dt,
				Hour:       h,
				Count:      n,
				Percentage: float64(n) / float64(totals[dt]) * 100,
			})
		}
	}
	return out
}

// AirportRides counts airport-related rides per day of week, Sunday=1.
// Only days with at least one ride appear.
func AirportRides(trips []domain.CleanedTrip, airport Airport) []WeekdayCount {
	var counts [7]int
	for _, t := range trips {
		if !airport.Serves(t) {
			continue
		}
		ts, err := t.PickupTime()
		if err != nil {
			continue
		}
		counts[ts.Weekday()]++
	}

	var out []WeekdayCount
	for d, n := range counts {
		if n == 0 {
			continue
		}
		out = append(out, WeekdayCount{
			DayOfWeek: d + 1,
			DayName:   time.Weekday(d).String(),
			Count:     n,
		})
	}
	return out
}

// FareByPassengerCount averages fares per passenger count, ordered by count.
func FareByPassengerCount(trips []domain.CleanedTrip) []PassengerFare {
	type acc struct {
		rides int
		sum   float64
	}
	groups := map[int]*acc{}
	for _, t := range trips {
		g, ok := groups[t.PassengerCount]
		if !ok {
			g = &acc{}
			groups[t.PassengerCount] = g
		}
		g.rides++
		g.sum += t.FareAmount
	}

	out := make([]PassengerFare, 0, len(groups))
	for n, g := range groups {
		out = append(out, PassengerFare{
			PassengerCount: n,
			Rides:          g.rides,
			MeanFare:       g.sum / float64(g.rides),
		})
	}
	slices.SortFunc(out, func(a, b PassengerFare) int {
		return cmp.Compare(a.PassengerCount, b.PassengerCount)
	})
	return out
}

func dayType(d time.Weekday) string {
	if d == time.Saturday || d == time.Sunday {
		return Weekend
	}
	return Weekday
}
