// Package collector runs one calendar update cycle: fetch, extract, persist.
//
// A cycle that cannot get data (HTTP failure, page without a calendar table, no
// allow-listed rows) is skipped without touching the store. Store failures are
// returned to the caller and are expected to stop the process.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/econ-calendar/internal/event"
	"github.com/pfrederiksen/econ-calendar/internal/logger"
	"github.com/pfrederiksen/econ-calendar/internal/metrics"
	"github.com/pfrederiksen/econ-calendar/internal/scraper"
	"github.com/pfrederiksen/econ-calendar/internal/storage"
)

// Fetcher retrieves and extracts calendar records
type Fetcher interface {
	FetchRecords(ctx context.Context) (*scraper.ExtractResult, error)
	URL() string
}

// Store persists records into daily partitions
type Store interface {
	Records(ctx context.Context, date time.Time) ([]*event.Record, error)
	Upsert(ctx context.Context, date time.Time, records []*event.Record) (*storage.UpsertResult, error)
}

// Result summarizes one cycle
type Result struct {
	Date      string          `json:"date"`
	Partition string          `json:"partition,omitempty"`
	Created   bool            `json:"created"`
	Fetched   int             `json:"fetched"`
	Skipped   bool            `json:"skipped"`
	Reason    string          `json:"reason,omitempty"`
	New       int             `json:"new"`
	Revised   int             `json:"revised"`
	Unchanged int             `json:"unchanged"`
	Changes   []*event.Change `json:"changes,omitempty"`

	// FetchErr is set when the cycle was skipped because the page could not be fetched
	FetchErr *scraper.FetchError `json:"-"`
}

// Collector ties a fetcher to a store
type Collector struct {
	fetcher Fetcher
	store   Store
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// Option configures a Collector
type Option func(*Collector)

// WithClock overrides the wall clock that decides the current partition
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// WithMetrics records cycle outcomes on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithLogger overrides the logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Collector) {
		c.log = l
	}
}

// New creates a Collector
func New(fetcher Fetcher, store Store, opts ...Option) *Collector {
	c := &Collector{
		fetcher: fetcher,
		store:   store,
		log:     logger.Default().With("collector"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateDatabase fetches the calendar and upserts its records into today's partition.
// Fetch and parse failures skip the cycle and return a nil error.
func (c *Collector) UpdateDatabase(ctx context.Context) (*Result, error) {
	today := c.now()
	result := &Result{Date: storage.FormatDate(today)}

	start := time.Now()
	extracted, err := c.fetcher.FetchRecords(ctx)
	c.observeFetch(time.Since(start))

	if err != nil {
		return c.skip(result, err)
	}

	result.Fetched = len(extracted.Records)
	if n := len(extracted.Skipped); n > 0 {
		c.log.Warn("Skipped malformed calendar rows", logger.Fields{
			"count": n,
			"rows":  extracted.Skipped,
		}, nil)
		if c.metrics != nil {
			c.metrics.ObserveSkippedRows(n)
		}
	}

	// A page can list the same release twice; the last row wins
	records := event.Collapse(extracted.Records)

	if len(records) == 0 {
		result.Skipped = true
		result.Reason = "no records"
		c.log.Info("No calendar records this cycle", logger.Fields{"url": c.fetcher.URL()})
		c.observeCycle(metrics.ResultEmpty)
		return result, nil
	}

	stored, err := c.store.Records(ctx, today)
	if err != nil {
		c.observeCycle(metrics.ResultStoreError)
		return nil, fmt.Errorf("loading stored records: %w", err)
	}
	diff := event.Diff(event.CreateSnapshot(stored), records)

	upserted, err := c.store.Upsert(ctx, today, records)
	if err != nil {
		c.observeCycle(metrics.ResultStoreError)
		return nil, fmt.Errorf("persisting records: %w", err)
	}

	result.Partition = upserted.Partition
	result.Created = upserted.Created
	result.New = len(diff.New)
	result.Revised = len(diff.Revised)
	result.Unchanged = diff.Unchanged
	result.Changes = diff.Changes

	if upserted.Created {
		c.log.Info("Created daily partition", logger.Fields{"partition": upserted.Partition})
	}
	c.log.Info("Database updated", logger.Fields{
		"partition": upserted.Partition,
		"fetched":   result.Fetched,
		"inserted":  upserted.Inserted,
		"updated":   upserted.Updated,
		"unchanged": upserted.Unchanged,
	})
	for _, ch := range diff.Changes {
		c.log.Debug("Value changed", logger.Fields{
			"time":     ch.Key.Time,
			"currency": ch.Key.Currency,
			"event":    ch.Key.Event,
			"field":    ch.Field,
			"old":      ch.OldValue,
			"new":      ch.NewValue,
		})
	}

	if c.metrics != nil {
		c.metrics.ObserveUpsert(upserted.Inserted, upserted.Updated, upserted.Unchanged, upserted.Created, c.now())
	}
	c.observeCycle(metrics.ResultSuccess)

	return result, nil
}

// skip classifies a fetch/extract error. Anything other than a fetch or parse error is returned.
func (c *Collector) skip(result *Result, err error) (*Result, error) {
	var fetchErr *scraper.FetchError
	var parseErr *scraper.ParseError

	switch {
	case errors.As(err, &fetchErr):
		result.Skipped = true
		result.Reason = fetchErr.Error()
		result.FetchErr = fetchErr
		c.log.Warn("Fetch failed, skipping cycle", logger.Fields{
			"url":         c.fetcher.URL(),
			"status_code": fetchErr.StatusCode,
		}, err)
		c.observeCycle(metrics.ResultFetchError)
		return result, nil

	case errors.As(err, &parseErr):
		result.Skipped = true
		result.Reason = parseErr.Error()
		c.log.Warn("Calendar page not recognized, skipping cycle", logger.Fields{
			"url": c.fetcher.URL(),
		}, err)
		c.observeCycle(metrics.ResultParseError)
		return result, nil
	}

	c.observeCycle(metrics.ResultParseError)
	return nil, fmt.Errorf("fetching records: %w", err)
}

func (c *Collector) observeCycle(result string) {
	if c.metrics != nil {
		c.metrics.ObserveCycle(result)
	}
}

func (c *Collector) observeFetch(d time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveFetch(d)
	}
}
