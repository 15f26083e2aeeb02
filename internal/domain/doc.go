// Package domain models raw taxi trip records and the distance/duration
// enrichment derived for them from an external routing service.
//
// # Data Source
//
// Trips are imported from the public NYC taxi fare dataset into the trips
// table. Each row carries a text key, the pickup time as text, pickup and
// dropoff coordinates, the fare and the passenger count. Rows are stored
// exactly as imported; validation happens in the cleaning stage, never at
// import or extraction time.
//
// # Routing Service Conventions
//
// Distance text:
//
//	"<number> <unit>"  →  e.g. "5.2 km", "1,204 km", "850 m", "0.3 mi", "500 ft"
//	Thousands separators are commas. Metric responses use km above one
//	kilometre and m below it. Everything is normalized to kilometres.
//
// Duration text:
//
//	"<n> <unit> [<n> <unit> ...]"  →  e.g. "12 mins", "1 hour 5 mins", "1 day 2 hours"
//	Units may be singular or plural. Everything is normalized to minutes.
//
// Element status:
//
//	"OK" is the only status that yields a result. NOT_FOUND, ZERO_RESULTS,
//	MAX_ROUTE_LENGTH_EXCEEDED and transport-level failures are reported as
//	[LookupError] carrying the upstream status string.
//
// # Cleaning
//
// Cleaning removes rows; it never rewrites them. The rules, applied in order:
//
//	1. pickup and dropoff coordinates are both non-zero
//	2. distance >= 0.01 km (a distance rule only, fare is not considered)
//	3. passenger count >= 1
//
// # Timestamps
//
// Pickup times are stored as text such as "2009-06-15 17:26:21 UTC". Hour of
// day and day of week are read from the wall clock of that text; no time zone
// conversion is applied. See [TripRecord.PickupTime].
package domain
