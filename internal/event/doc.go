// Package event provides the economic-calendar record type and its country tables.
//
// The event package defines Record, the normalized form of one calendar row, along with
// the fixed allow-list of countries/regions and the timezone each one reports in. Records
// are identified by the natural key (time, currency, event); a deterministic SHA1-based ID
// is derived from that key so the same release can be tracked across fetches.
package event
