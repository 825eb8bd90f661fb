// Package scraper fetches category pages and classifies fetch failures.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/books-report/config"
)

// Fetcher downloads single pages through a shared colly collector.
type Fetcher struct {
	collector *colly.Collector
	Metrics   *Metrics
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure limits: %w", err)
	}

	return &Fetcher{
		collector: collector,
		Metrics:   NewMetrics(),
	}, nil
}

// Fetch returns the body of rawURL with invalid UTF-8 sequences dropped.
// Non-2xx responses and transport failures come back classified.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.collector.Clone()

	var (
		body     []byte
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put("start", time.Now())
		f.Metrics.IncRequest("started")
	})

	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		f.Metrics.IncRequest("succeeded")
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.Metrics.ObserveDuration(time.Since(start))
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		statusCode := 0
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = classifyError(err, statusCode)
		f.Metrics.IncError(ErrorKind(fetchErr))
		slog.Debug("fetch error",
			slog.String("url", rawURL),
			slog.Int("status", statusCode),
			slog.Any("error", err),
		)
	})

	visitErr := c.Visit(rawURL)
	if fetchErr != nil {
		return nil, fetchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visitErr != nil {
		classified := classifyError(visitErr, 0)
		f.Metrics.IncError(ErrorKind(classified))
		return nil, classified
	}
	if body == nil {
		return nil, fmt.Errorf("fetch %s: empty response", rawURL)
	}

	return bytes.ToValidUTF8(body, nil), nil
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("http status %d", statusCode)
	}

	kind := KindOther
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.As(err, &opErr):
		kind = KindConnection
	case statusCode == http.StatusForbidden:
		kind = KindForbidden
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	case statusCode != 0 && (statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices):
		kind = KindStatus
	}

	return &FetchError{Kind: kind, StatusCode: statusCode, Err: err}
}
