package main

import (
	"math"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
	"github.com/couchcryptid/trip-enrichment-etl/internal/report"
)

const percentTolerance = 1e-6

// ── Phase 1: extraction ──

func validateExtraction(trips []domain.TripRecord) *phase {
	p := &phase{name: "Phase 1: Extraction (trips)"}

	seen := make(map[string]bool, len(trips))
	for i, t := range trips {
		if t.ID == "" {
			p.errorf("trip #%d: empty identifier", i)
			continue
		}
		if seen[t.ID] {
			p.errorf("trip %s: duplicate identifier", t.ID)
		}
		seen[t.ID] = true

		if t.FareAmount < 0 {
			p.errorf("trip %s: negative fare %g", t.ID, t.FareAmount)
		}
		if t.PassengerCount < 0 {
			p.errorf("trip %s: negative passenger count %d", t.ID, t.PassengerCount)
		}
		if _, err := t.PickupTime(); err != nil {
			p.errorf("%v", err)
		}
	}
	return p
}

// ── Phase 2: enrichment ──

func validateEnrichment(trips []domain.TripRecord, results []domain.EnrichmentResult) *phase {
	p := &phase{name: "Phase 2: Enrichment (results)"}

	known := make(map[string]domain.TripRecord, len(trips))
	for _, t := range trips {
		known[t.ID] = t
	}

	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if seen[r.TripID] {
			p.errorf("result %s: more than one result for trip", r.TripID)
		}
		seen[r.TripID] = true

		if r.DistanceKm < 0 || r.DurationMin < 0 {
			p.errorf("result %s: negative distance %g or duration %g", r.TripID, r.DistanceKm, r.DurationMin)
		}
		t, ok := known[r.TripID]
		if !ok {
			continue
		}
		if t.HasZeroCoordinate() {
			p.errorf("result %s: trip has a zero coordinate and must not have been looked up", r.TripID)
		}
	}
	return p
}

// ── Phase 3: merge ──

func validateMerge(trips []domain.TripRecord, results []domain.EnrichmentResult, merged []domain.CleanedTrip) *phase {
	p := &phase{name: "Phase 3: Merge (inner join)"}

	enriched := make(map[string]bool, len(results))
	for _, r := range results {
		enriched[r.TripID] = true
	}
	want := 0
	for _, t := range trips {
		if enriched[t.ID] {
			want++
		}
	}
	if len(merged) != want {
		p.errorf("merged %d trips, want %d trips that have a result", len(merged), want)
	}
	for _, m := range merged {
		if !enriched[m.ID] {
			p.errorf("trip %s: merged without a result", m.ID)
		}
	}
	return p
}

// ── Phase 4: cleaning ──

func validateCleaning(merged, cleaned []domain.CleanedTrip, excluded []domain.Exclusion) *phase {
	p := &phase{name: "Phase 4: Cleaning (CleanedTrip invariants)"}

	if len(cleaned)+len(excluded) != len(merged) {
		p.errorf("cleaned %d + excluded %d != merged %d", len(cleaned), len(excluded), len(merged))
	}
	for _, c := range cleaned {
		if c.HasZeroCoordinate() {
			p.errorf("trip %s: zero coordinate survived cleaning", c.ID)
		}
		if c.DistanceKm < domain.MinDistanceKm {
			p.errorf("trip %s: distance %g km below %g", c.ID, c.DistanceKm, domain.MinDistanceKm)
		}
		if c.PassengerCount < domain.MinPassengers {
			p.errorf("trip %s: passenger count %d below %d", c.ID, c.PassengerCount, domain.MinPassengers)
		}
	}

	rules := make(map[string]domain.Rule)
	for _, r := range domain.DefaultRules() {
		rules[r.Name] = r
	}
	for _, ex := range excluded {
		rule, ok := rules[ex.Rule]
		if !ok {
			p.errorf("trip %s: excluded by unknown rule %q", ex.Trip.ID, ex.Rule)
			continue
		}
		if rule.Keep(ex.Trip) {
			p.errorf("trip %s: excluded by %s but satisfies it", ex.Trip.ID, ex.Rule)
		}
	}
	return p
}

// ── Phase 5: reports ──

func validateReports(cleaned []domain.CleanedTrip, s report.Summary) *phase {
	p := &phase{name: "Phase 5: Reports (aggregate consistency)"}

	if s.Trips != len(cleaned) {
		p.errorf("summary covers %d trips, want %d", s.Trips, len(cleaned))
	}

	timed := 0
	for _, c := range cleaned {
		if _, err := c.PickupTime(); err == nil {
			timed++
		}
	}
	hourTotal := 0
	for i, h := range s.RidesByHour {
		hourTotal += h.Count
		if h.Hour < 0 || h.Hour > 23 {
			p.errorf("rides by hour: hour %d out of range", h.Hour)
		}
		if i > 0 && h.Count > s.RidesByHour[i-1].Count {
			p.errorf("rides by hour: not ordered by count at hour %d", h.Hour)
		}
	}
	if hourTotal != timed {
		p.errorf("rides by hour total %d, want %d", hourTotal, timed)
	}

	shares := map[string]float64{}
	for _, d := range s.WeekdayVsWeekendByHour {
		shares[d.DayType] += d.Percentage
	}
	for dayType, total := range shares {
		if math.Abs(total-100) > percentTolerance {
			p.errorf("%s percentages sum to %g, want 100", dayType, total)
		}
	}

	airport := 0
	for _, c := range cleaned {
		if _, err := c.PickupTime(); err == nil && report.JFK.Serves(c) {
			airport++
		}
	}
	airportTotal := 0
	for _, d := range s.AirportRides {
		airportTotal += d.Count
		if d.DayOfWeek < 1 || d.DayOfWeek > 7 {
			p.errorf("airport rides: day of week %d out of range", d.DayOfWeek)
		}
	}
	if airportTotal != airport {
		p.errorf("airport rides total %d, want %d", airportTotal, airport)
	}

	fareRides := 0
	for _, f := range s.FareByPassengerCount {
		fareRides += f.Rides
	}
	if fareRides != len(cleaned) {
		p.errorf("fare by passenger count covers %d rides, want %d", fareRides, len(cleaned))
	}
	return p
}
