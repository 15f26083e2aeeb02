// Package sqlstore reads trips from and writes enrichment results to a
// relational store through sqlx. MySQL and PostgreSQL are supported.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/couchcryptid/trip-enrichment-etl/internal/domain"
)

// Drivers accepted by Config.Driver.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

const (
	mysqlDuplicateEntry   = 1062
	postgresUniqueViolate = "23505"
	pingTimeout           = 5 * time.Second

	// DefaultPageSize bounds how many rows one extraction or purge query
	// reads. No result set is held open while trips are being enriched.
	DefaultPageSize = 1000
)

// Config locates the store. DSN, when set, is used verbatim.
type Config struct {
	Driver   string
	DSN      string
	Host     string
	User     string
	Password string
	Database string
	PageSize int
}

// DataSourceName returns the driver connection string.
func (c Config) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == DriverPostgres {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     c.Host,
			Path:     "/" + c.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	}
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Host
	mc.DBName = c.Database
	return mc.FormatDSN()
}

// Store implements the pipeline source, sink, result store and purger.
type Store struct {
	db       *sqlx.DB
	logger   *slog.Logger
	pageSize int
}

// Option customizes a Store.
type Option func(*Store)

// WithPageSize sets the number of rows read per extraction or purge page.
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// Open connects and pings the store. Any failure is reported as
// domain.ErrSourceUnavailable.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrSourceUnavailable, cfg.Driver, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", domain.ErrSourceUnavailable, cfg.Driver, err)
	}
	return New(db, logger, WithPageSize(cfg.PageSize)), nil
}

// New wraps an open connection pool.
func New(db *sqlx.DB, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{db: db, logger: logger, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the store.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type tripRow struct {
	ID               string  `db:"id"`
	PickupDatetime   string  `db:"pickup_datetime"`
	PickupLatitude   float64 `db:"pickup_latitude"`
	PickupLongitude  float64 `db:"pickup_longitude"`
	DropoffLatitude  float64 `db:"dropoff_latitude"`
	DropoffLongitude float64 `db:"dropoff_longitude"`
	FareAmount       float64 `db:"fare_amount"`
	PassengerCount   int     `db:"passenger_count"`
}

func (r tripRow) toDomain() domain.TripRecord {
	return domain.TripRecord{
		ID:             r.ID,
		PickupDatetime: r.PickupDatetime,
		Pickup:         domain.Coordinate{Lat: r.PickupLatitude, Lon: r.PickupLongitude},
		Dropoff:        domain.Coordinate{Lat: r.DropoffLatitude, Lon: r.DropoffLongitude},
		FareAmount:     r.FareAmount,
		PassengerCount: r.PassengerCount,
	}
}

func fromDomain(t domain.TripRecord) tripRow {
	return tripRow{
		ID:               t.ID,
		PickupDatetime:   t.PickupDatetime,
		PickupLatitude:   t.Pickup.Lat,
		PickupLongitude:  t.Pickup.Lon,
		DropoffLatitude:  t.Dropoff.Lat,
		DropoffLongitude: t.Dropoff.Lon,
		FareAmount:       t.FareAmount,
		PassengerCount:   t.PassengerCount,
	}
}

type distanceRow struct {
	ID       string `db:"id"`
	Distance string `db:"distance"`
	Duration string `db:"duration"`
}

const selectTrips = `SELECT id, pickup_datetime, pickup_latitude, pickup_longitude,
	dropoff_latitude, dropoff_longitude, fare_amount, passenger_count
	FROM trips`

// tripsQuery builds one keyset page of the extraction for r. after is the
// last identifier of the previous page, empty for the first page.
func tripsQuery(r domain.IDRange, after string, limit int) (string, []any) {
	var conds []string
	var args []any
	switch {
	case after != "":
		conds = append(conds, "id > ?")
		args = append(args, after)
	case r.From != "":
		conds = append(conds, "id >= ?")
		args = append(args, r.From)
	}
	if r.To != "" {
		conds = append(conds, "id <= ?")
		args = append(args, r.To)
	}

	query := selectTrips
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY id LIMIT ?", append(args, limit)
}

// Trips yields trips within r ordered by identifier. Rows are read one page
// at a time and each page is fully scanned before its trips are yielded, so
// a slow consumer never keeps a server cursor open.
func (s *Store) Trips(ctx context.Context, r domain.IDRange) iter.Seq2[domain.TripRecord, error] {
	return func(yield func(domain.TripRecord, error) bool) {
		after := ""
		for {
			query, args := tripsQuery(r, after, s.pageSize)
			var page []tripRow
			if err := s.db.SelectContext(ctx, &page, s.db.Rebind(query), args...); err != nil {
				yield(domain.TripRecord{}, fmt.Errorf("%w: query trips: %w", domain.ErrSourceUnavailable, err))
				return
			}
			for _, row := range page {
				if !yield(row.toDomain(), nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

// Upsert inserts one result as its own statement. A second result for the
// same trip fails with domain.ErrDuplicateResult.
func (s *Store) Upsert(ctx context.Context, result domain.EnrichmentResult) error {
	distance := result.DistanceText
	if distance == "" {
		distance = strconv.FormatFloat(result.DistanceKm, 'f', -1, 64) + " km"
	}
	duration := result.DurationText
	if duration == "" {
		duration = strconv.FormatFloat(result.DurationMin, 'f', -1, 64) + " mins"
	}

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO trip_distances (id, distance, duration) VALUES (?, ?, ?)`),
		result.TripID, distance, duration,
	)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: trip %s", domain.ErrDuplicateResult, result.TripID)
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Results streams stored results, normalizing their text columns. Rows whose
// text cannot be parsed are logged and skipped.
func (s *Store) Results(ctx context.Context) iter.Seq2[domain.EnrichmentResult, error] {
	return func(yield func(domain.EnrichmentResult, error) bool) {
		rows, err := s.db.QueryxContext(ctx, `SELECT id, distance, duration FROM trip_distances ORDER BY id`)
		if err != nil {
			yield(domain.EnrichmentResult{}, fmt.Errorf("%w: query results: %w", domain.ErrSourceUnavailable, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var row distanceRow
			if err := rows.StructScan(&row); err != nil {
				yield(domain.EnrichmentResult{}, fmt.Errorf("scan result: %w", err))
				return
			}
			result, err := domain.NewEnrichmentResult(row.ID, row.Distance, row.Duration)
			if err != nil {
				s.logger.Warn("skipping unparseable stored result", "trip_id", row.ID, "error", err)
				continue
			}
			if !yield(result, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.EnrichmentResult{}, fmt.Errorf("%w: read results: %w", domain.ErrSourceUnavailable, err))
		}
	}
}

// PurgeInvalid deletes trips with a zero coordinate or no passengers and
// results shorter than domain.MinDistanceKm, in one transaction. It returns
// the number of rows removed.
func (s *Store) PurgeInvalid(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM trips
		WHERE pickup_latitude = 0 OR pickup_longitude = 0
		OR dropoff_latitude = 0 OR dropoff_longitude = 0
		OR passenger_count < ?`), domain.MinPassengers)
	if err != nil {
		return 0, fmt.Errorf("purge trips: %w", err)
	}
	trips, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge trips: %w", err)
	}

	// Distances are stored as routing text, so the threshold is applied here,
	// one page of rows at a time.
	var results int64
	after := ""
	for {
		var page []distanceRow
		err := tx.SelectContext(ctx, &page,
			tx.Rebind(`SELECT id, distance, duration FROM trip_distances WHERE id > ? ORDER BY id LIMIT ?`),
			after, s.pageSize)
		if err != nil {
			return 0, fmt.Errorf("scan distances: %w", err)
		}
		n, err := deleteShort(ctx, tx, page)
		if err != nil {
			return 0, err
		}
		results += n
		if len(page) < s.pageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}
	s.logger.Info("invalid rows purged", "trips", trips, "results", results)
	return trips + results, nil
}

// deleteShort removes the rows of page whose distance is below
// domain.MinDistanceKm. Rows with unparseable text are kept.
func deleteShort(ctx context.Context, tx *sqlx.Tx, page []distanceRow) (int64, error) {
	var short []string
	for _, row := range page {
		km, err := domain.ParseDistanceKm(row.Distance)
		if err != nil {
			continue
		}
		if km < domain.MinDistanceKm {
			short = append(short, row.ID)
		}
	}
	if len(short) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`DELETE FROM trip_distances WHERE id IN (?)`, short)
	if err != nil {
		return 0, fmt.Errorf("build distance purge: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("purge distances: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge distances: %w", err)
	}
	return n, nil
}

// InsertTrips imports trips in one transaction, ignoring identifiers that
// already exist. It returns the number of rows inserted.
func (s *Store) InsertTrips(ctx context.Context, trips []domain.TripRecord) (int64, error) {
	if len(trips) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareNamedContext(ctx, s.insertTripQuery())
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, t := range trips {
		res, err := stmt.ExecContext(ctx, fromDomain(t))
		if err != nil {
			return 0, fmt.Errorf("insert trip %s: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert trip %s: %w", t.ID, err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

func (s *Store) insertTripQuery() string {
	const cols = `(id, pickup_datetime, pickup_latitude, pickup_longitude,
		dropoff_latitude, dropoff_longitude, fare_amount, passenger_count)
		VALUES (:id, :pickup_datetime, :pickup_latitude, :pickup_longitude,
		:dropoff_latitude, :dropoff_longitude, :fare_amount, :passenger_count)`
	if s.db.DriverName() == DriverPostgres {
		return `INSERT INTO trips ` + cols + ` ON CONFLICT (id) DO NOTHING`
	}
	return `INSERT IGNORE INTO trips ` + cols
}

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == postgresUniqueViolate
	}
	return false
}
