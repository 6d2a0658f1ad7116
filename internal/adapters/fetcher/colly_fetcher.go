package fetcher

import (
	"context"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/zatekoja/visibilityscore/internal/domain/providers"
	"github.com/zatekoja/visibilityscore/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/visibilityscore/pkg/errors"
)

// Options configures the page fetcher.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// CollyFetcher implements providers.PageFetcher with a fresh colly collector
// per fetch, so visited-URL state never leaks between audits.
type CollyFetcher struct {
	opts Options
}

var _ providers.PageFetcher = (*CollyFetcher)(nil)

// NewCollyFetcher creates a page fetcher.
func NewCollyFetcher(opts Options) *CollyFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &CollyFetcher{opts: opts}
}

// Fetch issues a single GET. It does not retry.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*providers.FetchedPage, error) {
	collectorOpts := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	}
	if f.opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(f.opts.UserAgent))
	}
	if f.opts.MaxBodyBytes > 0 {
		collectorOpts = append(collectorOpts, colly.MaxBodySize(f.opts.MaxBodyBytes))
	}

	c := colly.NewCollector(collectorOpts...)
	c.SetRequestTimeout(f.opts.Timeout)
	transport := f.opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	c.WithTransport(&contextTransport{ctx: ctx, next: transport})

	var page *providers.FetchedPage
	c.OnResponse(func(r *colly.Response) {
		page = &providers.FetchedPage{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		}
	})

	start := time.Now()
	err := c.Visit(url)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		observability.RecordAuditFetch(ctx, 0, time.Since(start))
		return nil, apperrors.NewFetchError(url, 0, err)
	}
	if page == nil {
		observability.RecordAuditFetch(ctx, 0, time.Since(start))
		return nil, apperrors.NewFetchError(url, 0, nil)
	}

	observability.RecordAuditFetch(ctx, page.StatusCode, time.Since(start))
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return nil, apperrors.NewFetchError(url, page.StatusCode, nil)
	}
	return page, nil
}

// contextTransport binds every outgoing request to the caller's context so
// cancellation and deadlines bound the fetch.
type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}
