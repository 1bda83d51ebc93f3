package event

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxImpact is the highest impact level a calendar row can carry
const MaxImpact = 3

// Record represents one scheduled economic-calendar release
type Record struct {
	Time     string `json:"time"`     // Local civil time, YYYY-MM-DD HH:mm
	Currency string `json:"currency"` // Country or region name from the allow-list
	Impact   int    `json:"impact"`
	Event    string `json:"event"`
	Actual   string `json:"actual"`
	Forecast string `json:"forecast"`
	Previous string `json:"previous"`
}

// Key is the natural key of a record. It is unique within a daily partition.
type Key struct {
	Time     string
	Currency string
	Event    string
}

// String renders the key in a stable pipe-separated form
func (k Key) String() string {
	return k.Time + "|" + k.Currency + "|" + k.Event
}

// Key returns the record's natural key
func (r *Record) Key() Key {
	return Key{Time: r.Time, Currency: r.Currency, Event: r.Event}
}

// ID creates a deterministic identifier for the record based on its natural key
func (r *Record) ID() string {
	h := sha1.New()
	h.Write([]byte(r.Key().String()))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// NewRecord creates a Record with trimmed text fields
func NewRecord(localTime, currency string, impact int, title, actual, forecast, previous string) *Record {
	return &Record{
		Time:     localTime,
		Currency: currency,
		Impact:   impact,
		Event:    strings.TrimSpace(title),
		Actual:   strings.TrimSpace(actual),
		Forecast: strings.TrimSpace(forecast),
		Previous: strings.TrimSpace(previous),
	}
}

// Validate checks the invariants a record must satisfy before it is persisted
func (r *Record) Validate() error {
	var errs []error

	if strings.TrimSpace(r.Event) == "" {
		errs = append(errs, errors.New("event title is empty"))
	}
	if !IsAllowed(r.Currency) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownCountry, r.Currency))
	}
	if r.Impact < 0 || r.Impact > MaxImpact {
		errs = append(errs, fmt.Errorf("impact %d out of range 0-%d", r.Impact, MaxImpact))
	}
	if _, err := time.Parse(LocalLayout, r.Time); err != nil {
		errs = append(errs, fmt.Errorf("time %q is not %s", r.Time, LocalLayout))
	}

	return errors.Join(errs...)
}

// SameValues reports whether two records carry the same actual, forecast and previous values
func (r *Record) SameValues(other *Record) bool {
	return r.Actual == other.Actual &&
		r.Forecast == other.Forecast &&
		r.Previous == other.Previous
}
