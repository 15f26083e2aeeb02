package domain

// Merge inner-joins trips with enrichment results on trip identifier. Trips
// without a result are dropped. Output follows the order of trips.
func Merge(trips []TripRecord, results []EnrichmentResult) []CleanedTrip {
	byID := make(map[string]EnrichmentResult, len(results))
	for _, r := range results {
		if _, ok := byID[r.TripID]; ok {
			continue // first result wins, as with a primary key
		}
		byID[r.TripID] = r
	}

	merged := make([]CleanedTrip, 0, len(trips))
	for _, t := range trips {
		r, ok := byID[t.ID]
		if !ok {
			continue
		}
		merged = append(merged, CleanedTrip{
			TripRecord:  t,
			DistanceKm:  r.DistanceKm,
			DurationMin: r.DurationMin,
		})
	}
	return merged
}
