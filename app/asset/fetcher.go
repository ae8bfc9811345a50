package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// FetchError reports an asset that could not be retrieved from the source.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch asset %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.code, e.status)
}

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type FetcherConfig struct {
	// Domain replaces the host of every fetched URL.
	Domain string
	// Hidden sends Domain as the Host header; with Address set the request
	// is dialed there instead of resolving Domain.
	Hidden    bool
	Address   string
	UserAgent string
	Timeout   time.Duration
	// Rate limits requests per second; zero disables limiting.
	Rate    float64
	Retries int
}

var _ Fetcher = (*HTTPFetcher)(nil)

type HTTPFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	config  FetcherConfig
	backoff func() backoff.BackOff
}

func NewHTTPFetcher(client *http.Client, config FetcherConfig) *HTTPFetcher {
	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Limit(config.Rate)
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &HTTPFetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		config:  config,
		backoff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 250 * time.Millisecond
			return bo
		},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, host, err := f.resolve(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	var data []byte
	operation := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		body, err := f.fetchOnce(ctx, target, host)
		if err != nil {
			var statusErr *statusError
			if errors.As(err, &statusErr) && !retryableStatus(statusErr.code) {
				return backoff.Permanent(err)
			}
			return err
		}

		data = body
		return nil
	}

	bo := backoff.WithMaxRetries(f.backoff(), uint64(max(f.config.Retries, 0)))
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	return data, nil
}

// resolve builds the request URL and the Host header to send with it.
func (f *HTTPFetcher) resolve(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid asset URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Fragment = ""
	if f.config.Domain != "" {
		u.Host = f.config.Domain
	}

	var host string
	if f.config.Hidden {
		host = u.Host
		if f.config.Address != "" {
			u.Host = f.config.Address
		}
	}

	return u.String(), host, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, target, host string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}
	if host != "" {
		req.Host = host
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
