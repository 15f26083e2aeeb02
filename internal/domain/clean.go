package domain

// MinDistanceKm is the shortest distance a cleaned trip may have. Shorter
// distances are treated as coordinate-recording errors whatever the fare.
const MinDistanceKm = 0.01

// MinPassengers is the smallest passenger count a cleaned trip may have.
const MinPassengers = 1

// Rule is one cleaning predicate. Keep reports whether a trip satisfies it.
type Rule struct {
	Name string
	Keep func(CleanedTrip) bool
}

// Exclusion records a trip removed by cleaning and the first rule it failed.
type Exclusion struct {
	Trip CleanedTrip
	Rule string
}

// NonZeroCoordinates keeps trips whose pickup and dropoff are both recorded.
func NonZeroCoordinates() Rule {
	return Rule{
		Name: "non_zero_coordinates",
		Keep: func(t CleanedTrip) bool { return !t.HasZeroCoordinate() },
	}
}

// MinDistance keeps trips at least minKm long.
func MinDistance(minKm float64) Rule {
	return Rule{
		Name: "min_distance",
		Keep: func(t CleanedTrip) bool { return t.DistanceKm >= minKm },
	}
}

// MinPassengerCount keeps trips with at least n passengers.
func MinPassengerCount(n int) Rule {
	return Rule{
		Name: "min_passengers",
		Keep: func(t CleanedTrip) bool { return t.PassengerCount >= n },
	}
}

// DefaultRules returns the cleaning rules in the order they are applied.
func DefaultRules() []Rule {
	return []Rule{
		NonZeroCoordinates(),
		MinDistance(MinDistanceKm),
		MinPassengerCount(MinPassengers),
	}
}

// Clean applies rules in order. A trip failing any rule is excluded and
// attributed to the first rule it failed. Kept trips retain input order.
func Clean(trips []CleanedTrip, rules ...Rule) ([]CleanedTrip, []Exclusion) {
	kept := make([]CleanedTrip, 0, len(trips))
	var excluded []Exclusion

	for _, t := range trips {
		failed := ""
		for _, r := range rules {
			if !r.Keep(t) {
				failed = r.Name
				break
			}
		}
		if failed != "" {
			excluded = append(excluded, Exclusion{Trip: t, Rule: failed})
			continue
		}
		kept = append(kept, t)
	}
	return kept, excluded
}
