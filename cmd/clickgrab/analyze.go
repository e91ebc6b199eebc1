package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/clickgrab/internal/aggregate"
	"github.com/nao1215/clickgrab/internal/config"
	"github.com/nao1215/clickgrab/internal/database"
	"github.com/nao1215/clickgrab/internal/feed"
	"github.com/nao1215/clickgrab/internal/fetch"
	applog "github.com/nao1215/clickgrab/internal/log"
	"github.com/nao1215/clickgrab/internal/metrics"
	"github.com/nao1215/clickgrab/internal/model"
	"github.com/nao1215/clickgrab/internal/pipeline"
	"github.com/nao1215/clickgrab/internal/report"
)

// fileKeys maps analyze flags to the configuration file keys they override.
var fileKeys = map[string]string{
	"tags":             "tags",
	"suffixes":         "url_suffixes",
	"limit":            "limit",
	"concurrency":      "concurrency",
	"rate-limit":       "rate_limit",
	"user-agent":       "user_agent",
	"proxy":            "proxy",
	"command-variable": "command_variable",
	"path-variable":    "path_variable",
	"example-limit":    "example_limit",
	"cdn-host":         "extra_cdn_hosts",
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze fake-CAPTCHA lure pages and build a run report",
		Long: `Analyze downloads lure pages and extracts the commands they stage.

Pages come from the URLhaus feed (filtered by tag and URL suffix), from
explicit --url arguments, or from saved files given with --file. Each page is
checked for clipboard writes, staged commands, script resources and lure text.
The run is archived by date so that the next run can report new patterns.

Examples:
  # Analyze today's feed and print a text summary
  clickgrab analyze

  # Analyze at most 50 feed URLs and write a Markdown report
  clickgrab analyze --limit 50 --format markdown -o report.md

  # Analyze a single page through a SOCKS5 proxy
  clickgrab analyze --url https://lure.example/ --proxy 127.0.0.1:9050

  # Analyze saved samples offline without touching the archive
  clickgrab analyze --file samples/a.html --file samples/b.html --no-archive

Configuration file (.clickgrab.yaml) example:
  tags: [FakeCaptcha, ClickFix]
  rate_limit: 30
  hosts:
    lure.example.com:
      headers:
        Referer: "https://search.example/"`,
		Args: cobra.NoArgs,
		RunE: runAnalyzeCmd,
	}

	// Sources
	cmd.Flags().String("feed", config.DefaultFeedURL,
		"URLhaus CSV feed URL")
	cmd.Flags().StringSlice("tags", config.DefaultTags(),
		"Feed tags that select lure pages")
	cmd.Flags().StringSlice("suffixes", config.DefaultURLSuffixes(),
		"URL endings that select HTML pages")
	cmd.Flags().IntP("limit", "l", 0,
		"Maximum number of feed URLs (0 = no limit)")
	cmd.Flags().StringArrayP("url", "u", nil,
		"Analyze this URL instead of the feed (repeatable)")
	cmd.Flags().StringArray("file", nil,
		"Analyze this saved page instead of fetching (repeatable)")

	// Fetching
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of pages fetched and analyzed at once")
	cmd.Flags().Int("rate-limit", config.DefaultRateLimit,
		"Requests per minute across all workers (0 = unlimited)")
	cmd.Flags().Int("rate-burst", config.DefaultRateBurst,
		"Requests allowed back to back")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header for HTTP requests")
	cmd.Flags().String("proxy", "",
		"Fetch through this SOCKS5 proxy (host:port)")

	// Analysis
	cmd.Flags().Duration("site-timeout", config.DefaultSiteTimeout,
		"Timeout for analyzing one page")
	cmd.Flags().String("command-variable", config.DefaultCommandVariable,
		"Variable holding the staged command")
	cmd.Flags().String("path-variable", config.DefaultPathVariable,
		"Variable holding the staging path")
	cmd.Flags().StringSlice("cdn-host", nil,
		"Extra hosts classified as script CDNs")
	cmd.Flags().Bool("no-readability", false,
		"Match lure phrases against parsed text only")
	cmd.Flags().Int("example-limit", config.DefaultExampleLimit,
		"Number of command examples kept in the report")

	// Output
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: text, json, markdown or csv")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("date", "",
		"Run date as YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this textfile")

	// Archive
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run archive")
	cmd.Flags().Bool("no-archive", false,
		"Do not read or write the run archive")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .clickgrab.yaml in current or home directory)")

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	runDate, err := parseRunDate(cmd)
	if err != nil {
		return err
	}

	logger := applog.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAnalyze(ctx, cfg, runDate, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the command flags and the
// configuration file. Flags set on the command line win over the file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	if cfg.FeedURL, err = flags.GetString("feed"); err != nil {
		return nil, err
	}
	if cfg.Tags, err = flags.GetStringSlice("tags"); err != nil {
		return nil, err
	}
	if cfg.URLSuffixes, err = flags.GetStringSlice("suffixes"); err != nil {
		return nil, err
	}
	if cfg.Limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if cfg.URLs, err = flags.GetStringArray("url"); err != nil {
		return nil, err
	}
	if cfg.Files, err = flags.GetStringArray("file"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.SiteTimeout, err = flags.GetDuration("site-timeout"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetInt("rate-limit"); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = flags.GetInt("rate-burst"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.CommandVariable, err = flags.GetString("command-variable"); err != nil {
		return nil, err
	}
	if cfg.PathVariable, err = flags.GetString("path-variable"); err != nil {
		return nil, err
	}
	if cfg.ExtraCDNHosts, err = flags.GetStringSlice("cdn-host"); err != nil {
		return nil, err
	}
	noReadability, err := flags.GetBool("no-readability")
	if err != nil {
		return nil, err
	}
	cfg.Readability = !noReadability
	if cfg.ExampleLimit, err = flags.GetInt("example-limit"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noArchive, err := flags.GetBool("no-archive")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noArchive
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// Explicit URLs replace the feed unless --feed was given as well.
	if (len(cfg.URLs) > 0 || len(cfg.Files) > 0) && !flags.Changed("feed") {
		cfg.FeedURL = ""
	}

	if err := loadConfigFile(cfg, func(key string) bool {
		for flag, k := range fileKeys {
			if k == key && flags.Changed(flag) {
				return true
			}
		}
		return false
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadConfigFile applies the configuration file to cfg. A missing file is
// an error only when its path was given explicitly.
func loadConfigFile(cfg *config.Config, explicit func(key string) bool) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	cfg.ApplyFile(file, explicit)
	return nil
}

// parseRunDate returns the --date flag as a UTC day, or today.
func parseRunDate(cmd *cobra.Command) (time.Time, error) {
	value, err := cmd.Flags().GetString("date")
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return parseDate(value)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// runAnalyze executes one run and writes its report to stdout or the
// configured output file.
func runAnalyze(ctx context.Context, cfg *config.Config, runDate time.Time, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting run",
		"run_date", runDate.Format(model.DateLayout),
		"feed", cfg.FeedURL,
		"urls", len(cfg.URLs),
		"files", len(cfg.Files),
		"concurrency", cfg.Concurrency,
		"archive", cfg.SaveToDB,
	)

	source, err := newSource(cfg, logger)
	if err != nil {
		return err
	}

	var recorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		if recorder, err = metrics.NewRecorder(); err != nil {
			return err
		}
	}

	batchOpts := []pipeline.BatchOption{
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithSiteTimeout(cfg.SiteTimeout),
		pipeline.WithBatchLogger(logger),
	}
	runnerOpts := []pipeline.RunnerOption{
		pipeline.WithAggregator(aggregate.New(
			aggregate.WithExampleLimit(cfg.ExampleLimit),
			aggregate.WithLogger(logger),
		)),
		pipeline.WithRunnerLogger(logger),
	}
	if recorder != nil {
		batchOpts = append(batchOpts, pipeline.WithSiteObserver(recorder))
		runnerOpts = append(runnerOpts, pipeline.WithRunObserver(recorder))
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("archive opened", "path", db.Path())
		runnerOpts = append(runnerOpts, pipeline.WithArchive(db))
	}

	batch := pipeline.NewBatchProcessor(pipeline.NewFactory(cfg, logger), batchOpts...)
	runner := pipeline.NewRunner(source, batch, runnerOpts...)

	rep, err := runner.Run(ctx, runDate)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyInput) {
			return fmt.Errorf("%w: check the feed filters or the --url/--file arguments", err)
		}
		return err
	}

	if err := writeReport(cfg, rep, stdout); err != nil {
		return err
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
		logger.Info("metrics written", "path", cfg.MetricsFile)
	}
	return nil
}

// newSource selects local files, or remote pages from explicit URLs and
// the feed.
func newSource(cfg *config.Config, logger *slog.Logger) (pipeline.Source, error) {
	if len(cfg.Files) > 0 {
		return fetch.NewFileSource(cfg.Files, cfg.MaxBodySize), nil
	}

	client, err := fetch.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	if cfg.FileConfig != nil {
		client = fetch.WithHostConfig(client, cfg.FileConfig.HostConfig)
	}

	limiter := fetch.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	fetcher := fetch.NewFetcher(client,
		fetch.WithLimiter(limiter),
		fetch.WithConcurrency(cfg.Concurrency),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithLogger(logger),
	)

	opts := []fetch.SourceOption{
		fetch.WithURLs(cfg.URLs),
		fetch.WithSourceLogger(logger),
	}
	if cfg.FeedURL != "" {
		opts = append(opts, fetch.WithLister(feed.NewClient(cfg.FeedURL,
			feed.WithHTTPClient(client),
			feed.WithTags(cfg.Tags),
			feed.WithURLSuffixes(cfg.URLSuffixes),
			feed.WithLimit(cfg.Limit),
			feed.WithUserAgent(cfg.UserAgent),
			feed.WithLimiter(limiter),
			feed.WithLogger(logger),
		)))
	}
	return fetch.NewRemoteSource(fetcher, opts...), nil
}

// writeReport writes rep in the configured format.
func writeReport(cfg *config.Config, rep *model.Report, stdout io.Writer) error {
	out, closeOutput, err := openOutput(cfg.OutputFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	w, err := newReportWriter(cfg.Format, out, cfg.Verbose)
	if err != nil {
		return err
	}
	if _, err := w.WriteReport(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// newReportWriter creates the writer for format. The text writer lists
// every site when verbose.
func newReportWriter(format string, out io.Writer, verbose bool) (report.Writer, error) {
	if format == config.FormatText {
		return report.NewTextWriter(out, report.WithVerbose(verbose)), nil
	}
	return report.New(format, out)
}

// openOutput returns the report destination. Reports name live attacker
// infrastructure, so files are created owner-readable only.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
