// Package scraper provides HTTP fetching and HTML parsing for the investing.com economic calendar.
//
// The scraper package fetches the calendar page with a browser User-Agent and extracts one
// event.Record per calendar row for the allow-listed countries. UTC row timestamps are
// converted to each country's local civil time. Rows for other countries are dropped
// silently, and rows missing a timestamp or title are skipped and reported.
package scraper
