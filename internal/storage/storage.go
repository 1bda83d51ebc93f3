package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/pfrederiksen/econ-calendar/internal/event"
)

const (
	// DateLayout is the layout of partition dates
	DateLayout = "2006-01-02"

	driverName = "sqlite3"
	dsnParams  = "?_busy_timeout=5000&_journal_mode=WAL"
)

const schema = `
CREATE TABLE IF NOT EXISTS news_meta (
	id INTEGER PRIMARY KEY,
	date TEXT NOT NULL UNIQUE,
	table_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS news_events (
	id INTEGER PRIMARY KEY,
	date TEXT NOT NULL REFERENCES news_meta(date),
	time TEXT NOT NULL,
	currency TEXT NOT NULL,
	impact INTEGER NOT NULL CHECK (impact BETWEEN 0 AND 3),
	event TEXT NOT NULL CHECK (length(trim(event)) > 0),
	actual TEXT NOT NULL DEFAULT '',
	forecast TEXT NOT NULL DEFAULT '',
	previous TEXT NOT NULL DEFAULT '',
	first_seen TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE (date, time, currency, event)
);

CREATE INDEX IF NOT EXISTS idx_news_events_date ON news_events(date);
`

const upsertSQL = `
INSERT INTO news_events (date, time, currency, impact, event, actual, forecast, previous, first_seen, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (date, time, currency, event) DO UPDATE SET
	actual = excluded.actual,
	forecast = excluded.forecast,
	previous = excluded.previous,
	updated_at = excluded.updated_at
WHERE news_events.actual IS NOT excluded.actual
	OR news_events.forecast IS NOT excluded.forecast
	OR news_events.previous IS NOT excluded.previous
`

// Partition describes one ingestion date and its partition name
type Partition struct {
	Date      string `json:"date"`
	TableName string `json:"table_name"`
}

// UpsertResult counts what a batch did to a partition
type UpsertResult struct {
	Partition string `json:"partition"`
	Created   bool   `json:"created"` // partition was first seen in this batch
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Unchanged int    `json:"unchanged"`
}

// Store owns the SQLite handle for the lifetime of the process
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for first_seen/updated_at bookkeeping
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (creating if necessary) the database at path and applies the schema
func Open(path string, opts ...Option) (*Store, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Single long-lived connection, single writer
	db.SetMaxOpenConns(1)

	s := &Store{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return s, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// PartitionName returns the deterministic partition name for a date
func PartitionName(date time.Time) string {
	return "news_" + date.Format("2006_01_02")
}

// FormatDate returns the partition date key for a point in time, in that time's location
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensurePartition(ctx context.Context, ex execer, date time.Time) (string, bool, error) {
	name := PartitionName(date)

	res, err := ex.ExecContext(ctx,
		`INSERT INTO news_meta (date, table_name) VALUES (?, ?) ON CONFLICT (date) DO NOTHING`,
		FormatDate(date), name)
	if err != nil {
		return "", false, fmt.Errorf("registering partition %s: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("registering partition %s: %w", name, err)
	}

	return name, n > 0, nil
}

// EnsurePartition registers the partition for date if it is not yet known.
// It reports whether the partition was created by this call.
func (s *Store) EnsurePartition(ctx context.Context, date time.Time) (string, bool, error) {
	return ensurePartition(ctx, s.db, date)
}

// Upsert applies a batch of records to the partition for date in one transaction.
// New keys are inserted; existing keys only have actual, forecast and previous overwritten.
// If any record fails validation or the write, nothing from the batch is committed.
func (s *Store) Upsert(ctx context.Context, date time.Time, records []*event.Record) (*UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	name, created, err := ensurePartition(ctx, tx, date)
	if err != nil {
		return nil, err
	}

	result := &UpsertResult{
		Partition: name,
		Created:   created,
	}

	lookup, err := tx.PrepareContext(ctx,
		`SELECT 1 FROM news_events WHERE date = ? AND time = ? AND currency = ? AND event = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing lookup: %w", err)
	}
	defer lookup.Close()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return nil, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	day := FormatDate(date)
	stamp := s.now().UTC().Format(time.RFC3339)

	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid record %s: %w", r.Key(), err)
		}

		var one int
		existed := true
		if err := lookup.QueryRowContext(ctx, day, r.Time, r.Currency, r.Event).Scan(&one); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("looking up %s: %w", r.Key(), err)
			}
			existed = false
		}

		res, err := stmt.ExecContext(ctx, day, r.Time, r.Currency, r.Impact, r.Event,
			r.Actual, r.Forecast, r.Previous, stamp, stamp)
		if err != nil {
			return nil, fmt.Errorf("upserting %s: %w", r.Key(), err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("upserting %s: %w", r.Key(), err)
		}

		switch {
		case !existed:
			result.Inserted++
		case n > 0:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}

	return result, nil
}

// Records returns every record in the partition for date, ordered by time
func (s *Store) Records(ctx context.Context, date time.Time) ([]*event.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT time, currency, impact, event, actual, forecast, previous
		FROM news_events
		WHERE date = ?
		ORDER BY time, currency, event`, FormatDate(date))
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := make([]*event.Record, 0)
	for rows.Next() {
		r := &event.Record{}
		if err := rows.Scan(&r.Time, &r.Currency, &r.Impact, &r.Event, &r.Actual, &r.Forecast, &r.Previous); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	return records, nil
}

// Partitions lists every known partition, oldest first
func (s *Store) Partitions(ctx context.Context) ([]Partition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, table_name FROM news_meta ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("querying partitions: %w", err)
	}
	defer rows.Close()

	partitions := make([]Partition, 0)
	for rows.Next() {
		var p Partition
		if err := rows.Scan(&p.Date, &p.TableName); err != nil {
			return nil, fmt.Errorf("scanning partition: %w", err)
		}
		partitions = append(partitions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading partitions: %w", err)
	}

	return partitions, nil
}

// ErrNoPartition is returned when a date has never been processed
var ErrNoPartition = errors.New("no partition for date")

// Partition looks up the partition for date
func (s *Store) Partition(ctx context.Context, date time.Time) (*Partition, error) {
	p := &Partition{}
	err := s.db.QueryRowContext(ctx,
		`SELECT date, table_name FROM news_meta WHERE date = ?`, FormatDate(date)).
		Scan(&p.Date, &p.TableName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoPartition, FormatDate(date))
	}
	if err != nil {
		return nil, fmt.Errorf("querying partition: %w", err)
	}
	return p, nil
}
