package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultFetchTimeout = 30 * time.Second

// fetcher is a small HTTP helper shared by the remote extractors. Every call
// carries the configured timeout, follows redirects, and sends the configured
// User-Agent.
type fetcher struct {
	client    *http.Client
	userAgent string
}

func newFetcher(timeout time.Duration, userAgent string) *fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// get fetches a URL and returns the body and status code. Extra headers
// override the defaults.
func (f *fetcher) get(ctx context.Context, url string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	return body, resp.StatusCode, nil
}
