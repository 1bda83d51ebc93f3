package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pfrederiksen/econ-calendar/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// OutputResult contains data to be output
type OutputResult struct {
	Date      string          `json:"date"`
	Partition string          `json:"partition"`
	Filter    string          `json:"filter,omitempty"`
	Records   []*event.Record `json:"records"`
	Count     int             `json:"count"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	fmt.Fprintf(w, "%s (%s)\n", result.Date, result.Partition)
	if verbose && result.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", result.Filter)
	}

	if result.Count == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, r := range result.Records {
		fmt.Fprintf(w, "  %s  %-14s %s  %s\n", r.Time, r.Currency, impactBar(r.Impact), r.Event)

		values := formatValues(r)
		if values != "" {
			fmt.Fprintf(w, "       %s\n", values)
		}
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", r.ID())
		}
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", result.Count)

	return nil
}

// impactBar renders impact as filled and empty markers, e.g. "**-"
func impactBar(impact int) string {
	if impact < 0 {
		impact = 0
	}
	if impact > event.MaxImpact {
		impact = event.MaxImpact
	}
	return strings.Repeat("*", impact) + strings.Repeat("-", event.MaxImpact-impact)
}

func formatValues(r *event.Record) string {
	var parts []string
	if r.Actual != "" {
		parts = append(parts, "Actual: "+r.Actual)
	}
	if r.Forecast != "" {
		parts = append(parts, "Forecast: "+r.Forecast)
	}
	if r.Previous != "" {
		parts = append(parts, "Previous: "+r.Previous)
	}
	return strings.Join(parts, " | ")
}
