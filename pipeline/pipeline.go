// Package pipeline drives category pages through extraction, storage and reporting.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aluiziolira/books-report/models"
	"github.com/aluiziolira/books-report/parser"
	"github.com/aluiziolira/books-report/report"
	"github.com/aluiziolira/books-report/scraper"
)

// Fetcher returns the raw markup of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RecordStore persists one item under a category and returns its identifier.
// It must tolerate concurrent calls.
type RecordStore interface {
	Save(ctx context.Context, category string, item models.Item) (string, error)
}

// ReportWriter stores a rendered report and returns where it went.
type ReportWriter interface {
	Write(category string, data []byte) (string, error)
}

// Options tunes an Orchestrator. Zero values fall back to defaults.
type Options struct {
	MediaBase   *url.URL
	Parallelism int
	Variant     report.Variant
	Metrics     *scraper.Metrics
	Now         func() time.Time
}

// Orchestrator processes one page batch per category URL.
type Orchestrator struct {
	fetcher     Fetcher
	store       RecordStore
	reports     ReportWriter
	mediaBase   *url.URL
	parallelism int
	variant     report.Variant
	metrics     *scraper.Metrics
	now         func() time.Time
}

// New wires an orchestrator to its collaborators.
func New(fetcher Fetcher, store RecordStore, reports ReportWriter, opts Options) *Orchestrator {
	o := &Orchestrator{
		fetcher:     fetcher,
		store:       store,
		reports:     reports,
		mediaBase:   opts.MediaBase,
		parallelism: opts.Parallelism,
		variant:     opts.Variant,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
	if o.mediaBase == nil {
		o.mediaBase, _ = url.Parse(parser.DefaultMediaBase)
	}
	if o.parallelism <= 0 {
		o.parallelism = 1
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Run fetches and processes every URL, at most Parallelism at a time.
// Results follow the order of urls; a failed batch never affects the others.
func (o *Orchestrator) Run(ctx context.Context, urls []string) []models.BatchResult {
	results := make([]models.BatchResult, len(urls))

	var g errgroup.Group
	g.SetLimit(o.parallelism)
	for i, rawURL := range urls {
		g.Go(func() error {
			results[i] = o.runURL(ctx, rawURL)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) runURL(ctx context.Context, rawURL string) (result models.BatchResult) {
	result = models.BatchResult{SourceURL: rawURL, StartTime: o.now()}
	defer func() {
		if r := recover(); r != nil {
			result = o.fail(result, "panic", fmt.Errorf("panic: %v", r))
		}
	}()

	category, err := CategoryKey(rawURL)
	if err != nil {
		return o.fail(result, "invalid_url", err)
	}
	result.Category = category

	markup, err := o.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return o.fail(result, scraper.ErrorKind(err), err)
	}

	return o.process(ctx, result, markup)
}

// ProcessPage turns one page of markup into stored items and a report.
// A page without items is reported as empty and touches neither the
// store nor the report writer.
func (o *Orchestrator) ProcessPage(ctx context.Context, category, source string, markup []byte) models.BatchResult {
	return o.process(ctx, models.BatchResult{Category: category, SourceURL: source, StartTime: o.now()}, markup)
}

// process continues a batch whose start time, category and source are set.
func (o *Orchestrator) process(ctx context.Context, result models.BatchResult, markup []byte) models.BatchResult {
	category, source := result.Category, result.SourceURL

	partials, err := parser.ExtractPage(markup)
	if err != nil {
		return o.fail(result, "parse", err)
	}
	if len(partials) == 0 {
		slog.Info("no items found", slog.String("category", category), slog.String("url", source))
		result.Status = models.BatchEmpty
		return o.finish(result)
	}

	items := make([]models.Item, 0, len(partials))
	for _, partial := range partials {
		items = append(items, parser.Normalize(partial, o.mediaBase))
	}
	result.ItemCount = len(items)
	o.metrics.AddItems(len(items))

	o.persist(ctx, category, items, &result)

	data, err := report.Render(items, report.Options{
		Title:   "Books - " + report.CategoryHeading(category),
		Heading: report.CategoryHeading(category) + " Books",
		Source:  source,
		Variant: o.variant,
	})
	if err != nil {
		return o.fail(result, "render", err)
	}
	path, err := o.reports.Write(category, data)
	if err != nil {
		return o.fail(result, "report", err)
	}
	o.metrics.IncReport()

	result.ReportPath = path
	result.Status = models.BatchSuccess
	slog.Info("batch complete",
		slog.String("category", category),
		slog.Int("items", result.ItemCount),
		slog.Int("stored", result.StoredCount),
		slog.Int("store_failures", result.StoreFailures),
		slog.String("report", path),
	)
	return o.finish(result)
}

// persist stores every item. A failed save is logged and skipped; the
// item still appears in the report.
func (o *Orchestrator) persist(ctx context.Context, category string, items []models.Item, result *models.BatchResult) {
	for _, item := range items {
		id, err := o.store.Save(ctx, category, item.Captured(o.now()))
		if err != nil {
			result.StoreFailures++
			o.metrics.IncStoreFailure()
			slog.Warn("store item failed",
				slog.String("category", category),
				slog.String("title", item.Title),
				slog.String("kind", "storage_unavailable"),
				slog.Any("error", err),
			)
			continue
		}
		result.StoredCount++
		slog.Debug("stored item", slog.String("category", category), slog.String("id", id))
	}
}

func (o *Orchestrator) fail(result models.BatchResult, kind string, err error) models.BatchResult {
	result.Status = models.BatchFailed
	result.Err = err
	result.ErrorKind = kind
	slog.Error("batch failed",
		slog.String("category", result.Category),
		slog.String("url", result.SourceURL),
		slog.String("kind", kind),
		slog.Any("error", err),
	)
	return o.finish(result)
}

func (o *Orchestrator) finish(result models.BatchResult) models.BatchResult {
	result.EndTime = o.now()
	o.metrics.IncBatch(string(result.Status))
	return result
}

// CategoryKey derives the category from a listing URL: the path segment
// before the final one, e.g. "travel_2" for .../travel_2/index.html.
func CategoryKey(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse category url: %w", err)
	}

	segments := strings.Split(parsed.Path, "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("category url %q has no category segment", rawURL)
	}
	key := segments[len(segments)-2]
	if key == "" || key == "." || key == ".." {
		return "", fmt.Errorf("category url %q has no category segment", rawURL)
	}
	return key, nil
}
