package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FetchOptions configures the ratios page fetcher.
type FetchOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RatePerSec throttles requests against the upstream host.
	RatePerSec float64
}

// Fetcher downloads ratios pages with retry, backoff and rate limiting.
// A breaker suspends fetching when the upstream host fails repeatedly.
type Fetcher struct {
	client  *http.Client
	opts    FetchOptions
	limiter *rate.Limiter
	breaker *breaker
}

// NewFetcher creates a Fetcher with the given options, filling defaults.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (SGDevelopersHealthMonitor/1.0)"
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = 2
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		breaker: newBreaker(5, 60*time.Second),
	}
}

// FetchHTML downloads one page and returns its body as text. When the
// upstream host has failed too many times in a row it fails fast with
// ErrUpstreamSuspended instead of issuing the request.
func (f *Fetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	if err := f.breaker.allow(); err != nil {
		return "", err
	}

	body, err := f.fetchWithRetries(ctx, rawURL)
	f.breaker.record(outageError(err))
	return body, err
}

// statusError marks a terminal HTTP status. The host answered, so it does
// not count toward suspending the upstream.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ingest: unexpected status %d from %s", e.code, e.url)
}

// outageError filters out errors that prove the upstream is reachable.
func outageError(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return nil
	}
	return err
}

func (f *Fetcher) fetchWithRetries(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := range f.opts.MaxRetries {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "ingest: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", eris.Wrap(err, "ingest: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("ingest: request failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("ingest: http %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("ingest: upstream error, retrying",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			f.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return "", &statusError{code: resp.StatusCode, url: rawURL}
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return "", eris.Wrap(err, "ingest: read body")
		}
		return string(body), nil
	}
	return "", eris.Wrap(lastErr, "ingest: all retries exhausted")
}

func (f *Fetcher) backoff(ctx context.Context, attempt int) {
	base := 500 * time.Millisecond
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
