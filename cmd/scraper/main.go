package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aluiziolira/books-report/config"
	"github.com/aluiziolira/books-report/models"
	"github.com/aluiziolira/books-report/pipeline"
	"github.com/aluiziolira/books-report/report"
	"github.com/aluiziolira/books-report/scraper"
	"github.com/aluiziolira/books-report/store"
)

type flags struct {
	configPath    string
	envFile       string
	parallelism   int
	timeout       time.Duration
	mediaBase     string
	storeDriver   string
	storePath     string
	outputDir     string
	metricsAddr   string
	respectRobots bool
	verbose       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "scraper [category-url...]",
		Short: "Scrape book categories into a store and HTML reports",
		Long: `Fetches each category page, extracts its books, stores every book and
writes books-<category>.html into the output directory.

Settings are read in order from defaults, the .env file, the YAML config,
SCRAPER_* environment variables, and finally flags. Positional URLs replace
the configured category list.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd.Flags(), f, args)
			if err != nil {
				slog.Error("invalid configuration", slog.Any("error", err))
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	bindFlags(cmd.Flags(), f)
	return cmd
}

func bindFlags(fl *pflag.FlagSet, f *flags) {
	defaults := config.DefaultConfig()
	fl.StringVar(&f.configPath, "config", "", "YAML config file")
	fl.StringVar(&f.envFile, "env-file", ".env", "Env file loaded before reading SCRAPER_* variables")
	fl.IntVar(&f.parallelism, "parallel", defaults.Parallelism, "Number of categories processed concurrently")
	fl.DurationVar(&f.timeout, "timeout", defaults.Timeout, "Request timeout")
	fl.StringVar(&f.mediaBase, "media-base", defaults.MediaBaseURL, "Base URL for relative image locators")
	fl.StringVar(&f.storeDriver, "store", defaults.StoreDriver, "Record store: sqlite, csv, or jsonl")
	fl.StringVar(&f.storePath, "store-path", defaults.StorePath, "SQLite database file, or directory for csv/jsonl")
	fl.StringVar(&f.outputDir, "output", defaults.OutputDir, "Directory for HTML reports")
	fl.StringVar(&f.metricsAddr, "metrics-addr", defaults.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	fl.BoolVar(&f.respectRobots, "respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	fl.BoolVarP(&f.verbose, "verbose", "v", defaults.Verbose, "Enable verbose logging")
}

func buildConfig(fl *pflag.FlagSet, f *flags, args []string) (*config.Config, error) {
	if err := config.LoadEnvFile(f.envFile); err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	if f.configPath != "" {
		if err := config.Load(cfg, f.configPath); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	changed := fl.Changed
	if changed("parallel") {
		cfg.Parallelism = f.parallelism
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("media-base") {
		cfg.MediaBaseURL = f.mediaBase
	}
	if changed("store") {
		cfg.StoreDriver = strings.ToLower(f.storeDriver)
	}
	if changed("store-path") {
		cfg.StorePath = f.storePath
	}
	if changed("output") {
		cfg.OutputDir = f.outputDir
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if changed("respect-robots") {
		cfg.RespectRobotsTxt = f.respectRobots
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if len(args) > 0 {
		cfg.CategoryURLs = args
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(parent context.Context, cfg *config.Config) error {
	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting scrape",
		slog.Int("categories", len(cfg.CategoryURLs)),
		slog.Int("workers", cfg.Parallelism),
		slog.String("store", cfg.StoreDriver),
		slog.String("output", cfg.OutputDir),
	)

	fetcher, err := scraper.NewFetcher(cfg)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		return err
	}

	recordStore, err := openStore(cfg.StoreDriver, cfg.StorePath)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		return err
	}
	defer func() {
		if err := recordStore.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	reports, err := report.NewWriter(cfg.OutputDir)
	if err != nil {
		slog.Error("creating report writer", slog.Any("error", err))
		return err
	}

	mediaBase, err := url.Parse(cfg.MediaBaseURL)
	if err != nil {
		return fmt.Errorf("parse media base: %w", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(fetcher.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	o := pipeline.New(fetcher, recordStore, reports, pipeline.Options{
		MediaBase:   mediaBase,
		Parallelism: cfg.Parallelism,
		Variant:     report.VariantPlain,
		Metrics:     fetcher.Metrics,
	})

	startTime := time.Now()
	results := o.Run(ctx, cfg.CategoryURLs)
	duration := time.Since(startTime)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(results, duration)

	for _, result := range results {
		if result.Status != models.BatchFailed {
			return nil
		}
	}
	return fmt.Errorf("all %d batches failed", len(results))
}

type recordStore interface {
	pipeline.RecordStore
	Close() error
}

func openStore(driver, path string) (recordStore, error) {
	switch driver {
	case "sqlite":
		return store.OpenSQLite(path)
	case "csv":
		return store.NewCSVStore(path)
	case "jsonl":
		return store.NewJSONLStore(path)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

func printSummary(results []models.BatchResult, duration time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Category", "Status", "Items", "Stored", "Store failures", "Report", "Error"})

	var items, stored, failures int
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.ErrorKind
		}
		t.AppendRow(table.Row{r.Category, r.Status, r.ItemCount, r.StoredCount, r.StoreFailures, r.ReportPath, errText})
		items += r.ItemCount
		stored += r.StoredCount
		failures += r.StoreFailures
	}
	t.AppendFooter(table.Row{"Total", "", items, stored, failures, "", duration.Round(time.Millisecond)})
	t.Render()
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
