// Package favicon fetches site icons so every feed on a domain can share
// one cached image.
package favicon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const s2Endpoint = "https://www.google.com/s2/favicons?sz=64&domain="

// Fetcher downloads favicons by domain.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with a short per-request timeout; icon
// fetches are best-effort decoration and must not stall a refresh.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: 5 * time.Second}}
}

// Fetch tries https then http /favicon.ico on the domain, falling back to
// the Google s2 service. Returns the raw image bytes.
func (f *Fetcher) Fetch(ctx context.Context, domain string) ([]byte, error) {
	for _, scheme := range []string{"https", "http"} {
		data, err := f.get(ctx, fmt.Sprintf("%s://%s/favicon.ico", scheme, domain))
		if err == nil && len(data) > 0 {
			return data, nil
		}
	}

	data, err := f.get(ctx, s2Endpoint+domain)
	if err != nil {
		return nil, fmt.Errorf("fetch favicon %s: %w", domain, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch favicon %s: empty response", domain)
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
