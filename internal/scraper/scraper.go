package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/econ-calendar/internal/event"
)

const (
	CalendarURL = "https://www.investing.com/economic-calendar/"
	UserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/51.0.2704.103 Safari/537.36"
	Timeout     = 30 * time.Second
)

// Selectors for the calendar markup
const (
	tableSelector     = "table#economicCalendarData"
	rowSelector       = "tr.js-event-item"
	flagSelector      = "td.flagCur span"
	impactSelector    = "td.sentiment i.grayFullBullishIcon"
	eventSelector     = "td.event"
	actualSelector    = "td.act"
	forecastSelector  = "td.fore"
	previousSelector  = "td.prev"
	datetimeAttribute = "data-event-datetime"
)

// FetchError is returned when the calendar page could not be retrieved.
// StatusCode is zero for transport failures.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("fetching page: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the page does not have the expected structure
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parsing calendar: " + e.Reason
}

// SkippedRow describes a calendar row that matched the allow-list but could not be normalized
type SkippedRow struct {
	Index    int    `json:"index"`
	Currency string `json:"currency"`
	Reason   string `json:"reason"`
}

// ExtractResult holds the records extracted from one page
type ExtractResult struct {
	Records []*event.Record
	Skipped []SkippedRow
}

// Scraper handles fetching and parsing the economic calendar
type Scraper struct {
	client *http.Client
	url    string
}

// Option configures a Scraper
type Option func(*Scraper)

// WithURL overrides the calendar URL
func WithURL(url string) Option {
	return func(s *Scraper) {
		s.url = url
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		s.client = client
	}
}

// New creates a new Scraper instance
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: &http.Client{
			Timeout: Timeout,
		},
		url: CalendarURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the page the scraper fetches
func (s *Scraper) URL() string {
	return s.url
}

// Fetch issues a single GET for the calendar page and returns the raw markup
func (s *Scraper) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("reading body: %w", err)}
	}

	return body, nil
}

// FetchRecords fetches the calendar page and extracts its records
func (s *Scraper) FetchRecords(ctx context.Context) (*ExtractResult, error) {
	body, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Extract(bytes.NewReader(body))
}

// Extract parses calendar markup into records, preserving document order
func Extract(r io.Reader) (*ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return nil, &ParseError{Reason: "calendar table not found"}
	}

	result := &ExtractResult{
		Records: make([]*event.Record, 0),
	}

	table.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		country, _ := row.Find(flagSelector).First().Attr("title")
		country = strings.TrimSpace(country)
		if !event.IsAllowed(country) {
			return
		}

		rec, err := parseRow(row, country)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{
				Index:    i,
				Currency: country,
				Reason:   err.Error(),
			})
			return
		}
		result.Records = append(result.Records, rec)
	})

	return result, nil
}

// parseRow builds a record from one allow-listed calendar row
func parseRow(row *goquery.Selection, country string) (*event.Record, error) {
	utc, ok := row.Attr(datetimeAttribute)
	if !ok {
		return nil, fmt.Errorf("missing %s attribute", datetimeAttribute)
	}

	localTime, err := event.ToLocal(strings.TrimSpace(utc), country)
	if err != nil {
		return nil, err
	}

	title := row.Find(eventSelector).First()
	if title.Length() == 0 {
		return nil, fmt.Errorf("missing event cell")
	}
	if strings.TrimSpace(title.Text()) == "" {
		return nil, fmt.Errorf("empty event title")
	}

	impact := row.Find(impactSelector).Length()
	if impact > event.MaxImpact {
		impact = event.MaxImpact
	}

	return event.NewRecord(
		localTime,
		country,
		impact,
		title.Text(),
		cellText(row, actualSelector),
		cellText(row, forecastSelector),
		cellText(row, previousSelector),
	), nil
}

// cellText returns the trimmed text of the first matching cell, or "" when absent
func cellText(row *goquery.Selection, selector string) string {
	cell := row.Find(selector).First()
	if cell.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(cell.Text())
}
