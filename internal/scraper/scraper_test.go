package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/pfrederiksen/econ-calendar/internal/event"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/calendar.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return data
}

// calendarPage wraps rows in the calendar table
func calendarPage(rows ...string) string {
	return `<html><body><table id="economicCalendarData"><tbody>` +
		strings.Join(rows, "\n") +
		`</tbody></table></body></html>`
}

func TestExtract_Fixture(t *testing.T) {
	result, err := Extract(strings.NewReader(string(loadFixture(t))))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if len(result.Skipped) != 0 {
		t.Errorf("expected no skipped rows, got %+v", result.Skipped)
	}

	want := []event.Record{
		{Time: "2024-03-15 11:30", Currency: "Australia", Impact: 1, Event: "Home Loans (MoM)", Actual: "4.5%", Forecast: "2.0%", Previous: "-4.2%"},
		{Time: "2024-03-15 08:30", Currency: "United States", Impact: 2, Event: "NY Empire State Manufacturing Index (Mar)", Actual: "-20.90", Forecast: "-7.00", Previous: "-2.40"},
		{Time: "2024-03-15 09:15", Currency: "United States", Impact: 3, Event: "Industrial Production (MoM) (Feb)", Actual: "", Forecast: "0.0%", Previous: ""},
	}

	if len(result.Records) != len(want) {
		t.Fatalf("Extract() returned %d records, want %d", len(result.Records), len(want))
	}

	// Document order is preserved
	for i, w := range want {
		if got := *result.Records[i]; got != w {
			t.Errorf("record %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestExtract_AllowListOnly(t *testing.T) {
	rows := []string{
		`<tr class="js-event-item" data-event-datetime="2024/03/15 12:30:00"><td class="flagCur"><span title="Brazil"></span></td><td class="event">Retail Sales</td></tr>`,
		`<tr class="js-event-item" data-event-datetime="2024/03/15 12:30:00"><td class="flagCur"><span title="India"></span></td><td class="event">WPI Inflation</td></tr>`,
		`<tr class="js-event-item" data-event-datetime="2024/03/15 12:30:00"><td class="flagCur"><span></span></td><td class="event">No title attribute</td></tr>`,
		`<tr class="js-event-item" data-event-datetime="2024/03/15 12:30:00"><td class="event">No flag cell</td></tr>`,
		`<tr class="js-event-item" data-event-datetime="2024/03/15 12:30:00"><td class="flagCur"><span title="united states"></span></td><td class="event">Wrong case</td></tr>`,
		`<tr class="js-event-item"><td class="flagCur"><span title="Mexico"></span></td></tr>`,
	}

	result, err := Extract(strings.NewReader(calendarPage(rows...)))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	if len(result.Records) != 0 {
		t.Errorf("expected no records for non-allow-listed rows, got %d", len(result.Records))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("non-allow-listed rows should be dropped silently, got skipped %+v", result.Skipped)
	}
}

func TestExtract_SkipsMalformedRows(t *testing.T) {
	good := `<tr class="js-event-item" data-event-datetime="2024/03/15 01:30:00"><td class="flagCur"><span title="China"></span></td><td class="event">Industrial Production (YoY)</td></tr>`

	tests := []struct {
		name       string
		row        string
		wantReason string
	}{
		{
			name:       "missing datetime",
			row:        `<tr class="js-event-item"><td class="flagCur"><span title="Japan"></span></td><td class="event">GDP</td></tr>`,
			wantReason: "missing data-event-datetime",
		},
		{
			name:       "malformed datetime",
			row:        `<tr class="js-event-item" data-event-datetime="15/03/2024"><td class="flagCur"><span title="Japan"></span></td><td class="event">GDP</td></tr>`,
			wantReason: "parsing event datetime",
		},
		{
			name:       "missing event cell",
			row:        `<tr class="js-event-item" data-event-datetime="2024/03/15 01:30:00"><td class="flagCur"><span title="Japan"></span></td></tr>`,
			wantReason: "missing event cell",
		},
		{
			name:       "empty event title",
			row:        `<tr class="js-event-item" data-event-datetime="2024/03/15 01:30:00"><td class="flagCur"><span title="Japan"></span></td><td class="event">   </td></tr>`,
			wantReason: "empty event title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(strings.NewReader(calendarPage(tt.row, good)))
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}

			if len(result.Records) != 1 || result.Records[0].Currency != "China" {
				t.Errorf("expected the well-formed row to survive, got %+v", result.Records)
			}

			if len(result.Skipped) != 1 {
				t.Fatalf("expected 1 skipped row, got %d", len(result.Skipped))
			}
			skipped := result.Skipped[0]
			if skipped.Currency != "Japan" || skipped.Index != 0 {
				t.Errorf("unexpected skipped row %+v", skipped)
			}
			if !strings.Contains(skipped.Reason, tt.wantReason) {
				t.Errorf("skipped reason = %q, should contain %q", skipped.Reason, tt.wantReason)
			}
		})
	}
}

func TestExtract_Impact(t *testing.T) {
	row := func(icons string) string {
		return `<tr class="js-event-item" data-event-datetime="2024/03/15 01:30:00"><td class="flagCur"><span title="China"></span></td>` +
			`<td class="sentiment">` + icons + `</td><td class="event">CPI</td></tr>`
	}
	full := `<i class="grayFullBullishIcon"></i>`
	empty := `<i class="grayEmptyBullishIcon"></i>`

	tests := []struct {
		name  string
		icons string
		want  int
	}{
		{"no sentiment icons", "", 0},
		{"empty icons only", empty + empty + empty, 0},
		{"one full", full + empty + empty, 1},
		{"three full", full + full + full, 3},
		{"extra icons clamp", full + full + full + full, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(strings.NewReader(calendarPage(row(tt.icons))))
			if err != nil {
				t.Fatalf("Extract() error: %v", err)
			}
			if len(result.Records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(result.Records))
			}
			if result.Records[0].Impact != tt.want {
				t.Errorf("Impact = %d, want %d", result.Records[0].Impact, tt.want)
			}
		})
	}
}

func TestExtract_MissingTable(t *testing.T) {
	_, err := Extract(strings.NewReader(`<html><body><p>Access denied</p></body></html>`))

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Extract() error = %v, want *ParseError", err)
	}
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantStatus int // FetchError status, 0 for success
		wantRecs   int
	}{
		{
			name:       "successful fetch",
			statusCode: http.StatusOK,
			wantRecs:   3,
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "server error",
			statusCode: http.StatusServiceUnavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	fixture := loadFixture(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ua := r.Header.Get("User-Agent"); ua != UserAgent {
					t.Errorf("User-Agent = %q, want %q", ua, UserAgent)
				}
				if r.Method != http.MethodGet {
					t.Errorf("Method = %s, want GET", r.Method)
				}

				w.WriteHeader(tt.statusCode)
				if tt.statusCode == http.StatusOK {
					w.Write(fixture)
				}
			}))
			defer server.Close()

			s := New(WithURL(server.URL))
			result, err := s.FetchRecords(context.Background())

			if tt.wantStatus != 0 {
				var fetchErr *FetchError
				if !errors.As(err, &fetchErr) {
					t.Fatalf("FetchRecords() error = %v, want *FetchError", err)
				}
				if fetchErr.StatusCode != tt.wantStatus {
					t.Errorf("FetchError.StatusCode = %d, want %d", fetchErr.StatusCode, tt.wantStatus)
				}
				return
			}

			if err != nil {
				t.Fatalf("FetchRecords() unexpected error: %v", err)
			}
			if len(result.Records) != tt.wantRecs {
				t.Errorf("FetchRecords() returned %d records, want %d", len(result.Records), tt.wantRecs)
			}
		})
	}
}

func TestFetch_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	s := New(WithURL(url))
	_, err := s.Fetch(context.Background())

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error = %v, want *FetchError", err)
	}
	if fetchErr.StatusCode != 0 {
		t.Errorf("FetchError.StatusCode = %d, want 0 for transport failure", fetchErr.StatusCode)
	}
	if fetchErr.Unwrap() == nil {
		t.Error("expected wrapped transport error")
	}
}

func TestNew(t *testing.T) {
	s := New()

	if s == nil {
		t.Fatal("New() returned nil")
	}

	if s.client == nil {
		t.Error("scraper client is nil")
	}

	if s.client.Timeout != Timeout {
		t.Errorf("client timeout = %v, want %v", s.client.Timeout, Timeout)
	}

	if s.URL() != CalendarURL {
		t.Errorf("scraper url = %q, want %q", s.URL(), CalendarURL)
	}

	custom := &http.Client{}
	s = New(WithURL("https://example.com/cal"), WithHTTPClient(custom))
	if s.URL() != "https://example.com/cal" || s.client != custom {
		t.Error("options were not applied")
	}
}
