package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

// Columns of the raw taxi fare dataset.
var requiredColumns = []string{
	"key", "fare_amount", "pickup_datetime",
	"pickup_longitude", "pickup_latitude",
	"dropoff_longitude", "dropoff_latitude",
	"passenger_count",
}

// rowError marks a data row that could not be parsed. Reading continues.
type rowError struct {
	line int
	err  error
}

func (e *rowError) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }

func (e *rowError) Unwrap() error { return e.err }

// tripReader streams TripRecords from a CSV with a header row. Columns are
// matched by name so extra or reordered columns are tolerated.
type tripReader struct {
	r      *csv.Reader
	colIdx map[string]int
}

func newTripReader(src io.Reader) (*tripReader, error) {
	r := csv.NewReader(src)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	return &tripReader{r: r, colIdx: colIdx}, nil
}

// next returns the next trip, a *rowError for a bad row, or io.EOF.
func (tr *tripReader) next() (domain.TripRecord, error) {
	row, err := tr.r.Read()
	if err != nil {
		return domain.TripRecord{}, err
	}
	line, _ := tr.r.FieldPos(0)

	trip, err := tr.parse(row)
	if err != nil {
		return domain.TripRecord{}, &rowError{line: line, err: err}
	}
	return trip, nil
}

func (tr *tripReader) parse(row []string) (domain.TripRecord, error) {
	var p fieldParser
	trip := domain.TripRecord{
		ID:             tr.get(row, "key"),
		PickupDatetime: tr.get(row, "pickup_datetime"),
		FareAmount:     p.float("fare_amount", tr.get(row, "fare_amount")),
		Pickup: domain.Coordinate{
			Lat: p.float("pickup_latitude", tr.get(row, "pickup_latitude")),
			Lon: p.float("pickup_longitude", tr.get(row, "pickup_longitude")),
		},
		Dropoff: domain.Coordinate{
			Lat: p.float("dropoff_latitude", tr.get(row, "dropoff_latitude")),
			Lon: p.float("dropoff_longitude", tr.get(row, "dropoff_longitude")),
		},
		PassengerCount: p.int("passenger_count", tr.get(row, "passenger_count")),
	}
	if p.err != nil {
		return domain.TripRecord{}, p.err
	}
	if trip.ID == "" {
		return domain.TripRecord{}, fmt.Errorf("empty key")
	}
	if trip.FareAmount < 0 {
		return domain.TripRecord{}, fmt.Errorf("negative fare_amount %g", trip.FareAmount)
	}
	return trip, nil
}

func (tr *tripReader) get(row []string, col string) string {
	i, ok := tr.colIdx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// fieldParser keeps the first conversion error.
type fieldParser struct{ err error }

func (p *fieldParser) float(col, s string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (p *fieldParser) int(col, s string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}
