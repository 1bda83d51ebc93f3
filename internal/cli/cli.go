package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/econ-calendar/internal/calendar"
	"github.com/pfrederiksen/econ-calendar/internal/collector"
	"github.com/pfrederiksen/econ-calendar/internal/config"
	"github.com/pfrederiksen/econ-calendar/internal/filter"
	"github.com/pfrederiksen/econ-calendar/internal/logger"
	"github.com/pfrederiksen/econ-calendar/internal/metrics"
	"github.com/pfrederiksen/econ-calendar/internal/scheduler"
	"github.com/pfrederiksen/econ-calendar/internal/scraper"
	"github.com/pfrederiksen/econ-calendar/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// options holds the flag values shared by all commands
type options struct {
	configPath  string
	url         string
	dbPath      string
	interval    time.Duration
	logLevel    string
	metricsAddr string
	once        bool
}

type listOptions struct {
	date         string
	countries    []string
	minImpact    int
	contains     []string
	from         string
	to           string
	releasedOnly bool
	sort         string
	format       string
	verbose      bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "econ-calendar",
		Short: "Collect the investing.com economic calendar into SQLite",
		Long: `A CLI tool that periodically scrapes the investing.com economic calendar,
keeps the events of a fixed set of countries and stores them in a local SQLite
database partitioned by day. Actual, forecast and previous values are updated
in place as they are released.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", config.DefaultDBPath, "SQLite database file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.url, "url", scraper.CalendarURL, "Economic calendar page URL")
	cmd.PersistentFlags().DurationVar(&opts.interval, "interval", config.DefaultInterval, "Time between update cycles")
	cmd.PersistentFlags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9102)")
	cmd.PersistentFlags().BoolVar(&opts.once, "once", false, "Run a single update cycle and exit")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the collection loop (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, opts)
		},
	}

	cmd.AddCommand(runCmd, newListCmd(opts), newPartitionsCmd(opts))

	return cmd
}

// loadConfig reads the config file and applies explicitly set flags on top of it
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("url") {
		cfg.URL = opts.url
	}
	if changed("db") {
		cfg.DBPath = opts.dbPath
	}
	if changed("interval") {
		cfg.Interval = opts.interval
	}
	if changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	// Level was checked by Validate
	level, _ := logger.ParseLevel(cfg.LogLevel)
	log := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(log)
	return log
}

// runCollect is the collection loop
func runCollect(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log := setupLogger(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close() // nolint:errcheck

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error("Metrics server stopped", logger.Fields{"addr": cfg.MetricsAddr}, err)
			}
		}()
	}

	sc := scraper.New(scraper.WithURL(cfg.URL))
	col := collector.New(sc, store, collector.WithMetrics(m), collector.WithLogger(log.With("collector")))

	log.Info("Starting", logger.Fields{
		"url":      cfg.URL,
		"db":       cfg.DBPath,
		"interval": cfg.Interval.String(),
		"once":     opts.once,
	})

	out := cmd.OutOrStdout()
	job := func(ctx context.Context) error {
		result, err := col.UpdateDatabase(ctx)
		if err != nil {
			return err
		}
		printStatus(out, result)
		return nil
	}

	if opts.once {
		return job(context.WithoutCancel(ctx))
	}

	if err := scheduler.Run(ctx, cfg.Interval, job); err != nil {
		return err
	}

	fmt.Fprintln(out, "Stopping the collector.")
	return nil
}

// printStatus writes the one-line summary of a cycle
func printStatus(w io.Writer, result *collector.Result) {
	switch {
	case result.FetchErr != nil && result.FetchErr.StatusCode != 0:
		fmt.Fprintf(w, "Oops... Got HTTP error %d\n", result.FetchErr.StatusCode)
	case result.FetchErr != nil:
		fmt.Fprintf(w, "Oops... Could not reach the calendar: %v\n", result.FetchErr.Err)
	case result.Skipped:
		fmt.Fprintf(w, "No news to update for %s (%s)\n", result.Date, result.Reason)
	default:
		fmt.Fprintf(w, "Database updated with the latest news (%d new, %d revised, %d unchanged) for %s\n",
			result.New, result.Revised, result.Unchanged, result.Date)
	}
}

func newListCmd(opts *options) *cobra.Command {
	lo := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collected events for a day",
		Long: `List the events stored for one ingestion date (default: the latest).
Events can be filtered by country, impact, title and local time of day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, lo)
		},
	}

	cmd.Flags().StringVar(&lo.date, "date", "", "Ingestion date YYYY-MM-DD (default: latest)")
	cmd.Flags().StringSliceVar(&lo.countries, "country", nil, "Only these countries (repeatable)")
	cmd.Flags().IntVar(&lo.minImpact, "min-impact", 0, "Minimum impact (0-3)")
	cmd.Flags().StringSliceVar(&lo.contains, "contains", nil, "Event title contains (repeatable, case-insensitive)")
	cmd.Flags().StringVar(&lo.from, "from", "", "Earliest local time of day HH:mm")
	cmd.Flags().StringVar(&lo.to, "to", "", "Latest local time of day HH:mm")
	cmd.Flags().BoolVar(&lo.releasedOnly, "released", false, "Only events with an actual value")
	cmd.Flags().StringVar(&lo.sort, "sort", string(SortByTime), "Sort order: time, impact or currency")
	cmd.Flags().StringVar(&lo.format, "format", string(FormatText), "Output format: text, json or ics")
	cmd.Flags().BoolVar(&lo.verbose, "verbose", false, "Show record IDs in text output")

	return cmd
}

func runList(cmd *cobra.Command, opts *options, lo *listOptions) error {
	format := OutputFormat(strings.ToLower(lo.format))
	if format != FormatText && format != FormatJSON && format != FormatICS {
		return fmt.Errorf("invalid format: %s (must be 'text', 'json' or 'ics')", lo.format)
	}

	order := SortOrder(strings.ToLower(lo.sort))
	if order != SortByTime && order != SortByImpact && order != SortByCurrency {
		return fmt.Errorf("invalid sort: %s (must be 'time', 'impact' or 'currency')", lo.sort)
	}

	f := &filter.Filter{
		Countries:    lo.countries,
		MinImpact:    lo.minImpact,
		Events:       lo.contains,
		From:         lo.from,
		To:           lo.to,
		ReleasedOnly: lo.releasedOnly,
	}
	if err := f.Validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	setupLogger(cmd, cfg)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close() // nolint:errcheck

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	partition, err := resolvePartition(ctx, store, lo.date)
	if err != nil {
		return err
	}
	if partition == nil {
		fmt.Fprintln(out, "No data collected yet.")
		return nil
	}

	date, err := time.ParseInLocation(storage.DateLayout, partition.Date, time.Local)
	if err != nil {
		return fmt.Errorf("parsing partition date: %w", err)
	}

	records, err := store.Records(ctx, date)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	records = f.Apply(records)
	sortRecords(records, order)

	if format == FormatICS {
		_, err := io.WriteString(out, calendar.GenerateICS(records, time.Now()))
		return err
	}

	result := &OutputResult{
		Date:      partition.Date,
		Partition: partition.TableName,
		Filter:    f.String(),
		Records:   records,
		Count:     len(records),
	}
	if err := WriteOutput(out, result, format, lo.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// resolvePartition finds the partition for date, or the latest one when date is empty.
// A nil partition with a nil error means the store is empty.
func resolvePartition(ctx context.Context, store *storage.Store, date string) (*storage.Partition, error) {
	if date == "" {
		partitions, err := store.Partitions(ctx)
		if err != nil {
			return nil, err
		}
		if len(partitions) == 0 {
			return nil, nil
		}
		latest := partitions[len(partitions)-1]
		return &latest, nil
	}

	d, err := time.ParseInLocation(storage.DateLayout, date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", date, err)
	}

	p, err := store.Partition(ctx, d)
	if errors.Is(err, storage.ErrNoPartition) {
		return nil, fmt.Errorf("no data collected for %s", date)
	}
	return p, err
}

func newPartitionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "partitions",
		Short: "List the days that have been collected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			setupLogger(cmd, cfg)

			store, err := storage.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}
			defer store.Close() // nolint:errcheck

			partitions, err := store.Partitions(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(partitions) == 0 {
				fmt.Fprintln(out, "No data collected yet.")
				return nil
			}
			for _, p := range partitions {
				fmt.Fprintf(out, "%s  %s\n", p.Date, p.TableName)
			}
			return nil
		},
	}
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
