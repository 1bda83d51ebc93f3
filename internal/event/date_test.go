package event

import (
	"errors"
	"testing"
	"time"
)

func TestToLocal(t *testing.T) {
	tests := []struct {
		name     string
		utc      string
		country  string
		expected string
	}{
		{"US after DST start", "2024/03/15 13:30:00", "United States", "2024-03-15 09:30"},
		{"US standard time", "2024/01/10 13:30:00", "United States", "2024-01-10 08:30"},
		{"Canada follows Toronto", "2024/03/15 12:30:00", "Canada", "2024-03-15 08:30"},
		{"China", "2024/03/15 01:30:00", "China", "2024-03-15 09:30"},
		{"Eurozone uses Berlin", "2024/03/15 10:00:00", "Eurozone", "2024-03-15 11:00"},
		{"Germany summer", "2024/07/01 06:00:00", "Germany", "2024-07-01 08:00"},
		{"France", "2024/03/15 07:45:00", "France", "2024-03-15 08:45"},
		{"Japan crosses midnight", "2024/03/14 23:50:00", "Japan", "2024-03-15 08:50"},
		{"Australia daylight time", "2024/03/15 00:30:00", "Australia", "2024-03-15 11:30"},
		{"UK winter", "2024/03/15 07:00:00", "United Kingdom", "2024-03-15 07:00"},
		{"UK summer", "2024/07/01 07:00:00", "United Kingdom", "2024-07-01 08:00"},
		{"New Zealand daylight time", "2024/03/14 21:45:00", "New Zealand", "2024-03-15 10:45"},
		{"Switzerland", "2024/03/15 08:30:00", "Switzerland", "2024-03-15 09:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToLocal(tt.utc, tt.country)
			if err != nil {
				t.Fatalf("ToLocal(%q, %q) error: %v", tt.utc, tt.country, err)
			}
			if got != tt.expected {
				t.Errorf("ToLocal(%q, %q) = %q, want %q", tt.utc, tt.country, got, tt.expected)
			}
		})
	}
}

func TestToLocal_Errors(t *testing.T) {
	if _, err := ToLocal("2024/03/15 13:30:00", "Brazil"); !errors.Is(err, ErrUnknownCountry) {
		t.Errorf("ToLocal() with unknown country error = %v, want ErrUnknownCountry", err)
	}

	malformed := []string{"", "2024-03-15 13:30:00", "2024/03/15 13:30", "yesterday"}
	for _, value := range malformed {
		if _, err := ToLocal(value, "Japan"); err == nil {
			t.Errorf("ToLocal(%q) expected error, got nil", value)
		}
	}
}

func TestToLocal_Deterministic(t *testing.T) {
	for _, country := range Countries() {
		first, err := ToLocal("2024/11/03 06:30:00", country)
		if err != nil {
			t.Fatalf("ToLocal() for %s error: %v", country, err)
		}
		second, _ := ToLocal("2024/11/03 06:30:00", country)
		if first != second {
			t.Errorf("ToLocal() for %s not deterministic: %q vs %q", country, first, second)
		}
	}
}

func TestCountries(t *testing.T) {
	countries := Countries()
	if len(countries) != 11 {
		t.Fatalf("expected 11 allow-listed countries, got %d", len(countries))
	}

	for i := 1; i < len(countries); i++ {
		if countries[i-1] >= countries[i] {
			t.Errorf("Countries() not sorted at %d: %q >= %q", i, countries[i-1], countries[i])
		}
	}

	for _, c := range countries {
		if !IsAllowed(c) {
			t.Errorf("IsAllowed(%q) = false for listed country", c)
		}
	}

	if IsAllowed("Brazil") {
		t.Error("IsAllowed(\"Brazil\") = true")
	}
}

func TestLocalTime(t *testing.T) {
	r := &Record{Time: "2024-03-15 09:30", Currency: "United States"}

	got, err := LocalTime(r)
	if err != nil {
		t.Fatalf("LocalTime() error: %v", err)
	}

	want := time.Date(2024, 3, 15, 13, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("LocalTime() = %v, want %v", got.UTC(), want)
	}

	if _, err := LocalTime(&Record{Time: "2024-03-15 09:30", Currency: "Mars"}); err == nil {
		t.Error("LocalTime() expected error for unknown country")
	}
}
