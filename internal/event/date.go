package event

import (
	"errors"
	"fmt"
	"sort"
	"time"

	// Embedded zone database so conversions do not depend on the host's tzdata.
	_ "time/tzdata"
)

const (
	// UTCLayout is the layout of the data-event-datetime attribute on calendar rows
	UTCLayout = "2006/01/02 15:04:05"
	// LocalLayout is the layout of Record.Time
	LocalLayout = "2006-01-02 15:04"
)

// ErrUnknownCountry is returned for a country outside the allow-list
var ErrUnknownCountry = errors.New("unknown country")

// Timezones maps every allow-listed country/region to the IANA zone its releases are quoted in.
// It doubles as the allow-list: countries not in this table are discarded.
var Timezones = map[string]string{
	"United States":  "America/New_York",
	"China":          "Asia/Shanghai",
	"Eurozone":       "Europe/Berlin", // ECB releases follow Frankfurt time
	"Germany":        "Europe/Berlin",
	"France":         "Europe/Paris",
	"Japan":          "Asia/Tokyo",
	"Australia":      "Australia/Sydney",
	"United Kingdom": "Europe/London",
	"Canada":         "America/Toronto",
	"New Zealand":    "Pacific/Auckland",
	"Switzerland":    "Europe/Zurich",
}

// IsAllowed reports whether country is in the allow-list
func IsAllowed(country string) bool {
	_, ok := Timezones[country]
	return ok
}

// Countries returns the allow-listed countries in sorted order
func Countries() []string {
	countries := make([]string, 0, len(Timezones))
	for c := range Timezones {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	return countries
}

// Location loads the time zone for an allow-listed country
func Location(country string) (*time.Location, error) {
	name, ok := Timezones[country]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading zone %s: %w", name, err)
	}
	return loc, nil
}

// ParseUTC parses a data-event-datetime value as UTC
func ParseUTC(value string) (time.Time, error) {
	t, err := time.ParseInLocation(UTCLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing event datetime %q: %w", value, err)
	}
	return t, nil
}

// ToLocal converts a UTC datetime string into the civil time of the country's zone,
// formatted as LocalLayout. It fails for countries outside the allow-list.
func ToLocal(utc, country string) (string, error) {
	loc, err := Location(country)
	if err != nil {
		return "", err
	}

	t, err := ParseUTC(utc)
	if err != nil {
		return "", err
	}

	return t.In(loc).Format(LocalLayout), nil
}

// LocalTime parses a record's civil time back into an instant in its country's zone
func LocalTime(r *Record) (time.Time, error) {
	loc, err := Location(r.Currency)
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.ParseInLocation(LocalLayout, r.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing record time %q: %w", r.Time, err)
	}
	return t, nil
}
