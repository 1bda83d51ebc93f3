// Package cli implements the command-line interface for econ-calendar.
//
// The cli package provides the Cobra-based CLI. The root command (and its `run` alias)
// drives the collection loop: it loads configuration, opens the SQLite store and runs
// one update cycle per interval until interrupted. The `list` and `partitions` commands
// read collected data back, with filtering, sorting and text/JSON/iCalendar output.
package cli
