package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Typed provider failures. ErrUnauthorized means the credential itself is
// rejected and must escalate to a queue-wide halt; everything else is a
// per-title failure the queue simply moves past.
var (
	ErrUnauthorized = errors.New("omdb: invalid api key")
	ErrNotFound     = errors.New("omdb: title not found")
)

// Client looks up movie metadata for a normalized title with an optional
// year hint. Implementations own their timeouts; a timeout surfaces to the
// queue as an ordinary failure.
type Client interface {
	Lookup(ctx context.Context, title string, year int) (json.RawMessage, error)
}

// HTTPClient queries the OMDb web API.
type HTTPClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the given API key. baseURL overrides
// the production endpoint, primarily for tests.
func NewHTTPClient(apiKey, baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://www.omdbapi.com/"
	}
	return &HTTPClient{
		apiKey:  SanitizeAPIKey(apiKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) Lookup(ctx context.Context, title string, year int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("t", title)
	if year > 0 {
		q.Set("y", strconv.Itoa(year))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create omdb request %q: %w", title, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("omdb lookup %q: %w", title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("omdb read %q: %w", title, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("omdb lookup %q: status %d", title, resp.StatusCode)
	}

	// OMDb reports application errors inside a 200 body.
	var status struct {
		Response string `json:"Response"`
		Error    string `json:"Error"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("omdb decode %q: %w", title, err)
	}
	if strings.EqualFold(status.Response, "false") {
		if strings.Contains(strings.ToLower(status.Error), "api key") {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, status.Error)
	}
	return json.RawMessage(body), nil
}

// SanitizeAPIKey normalizes a stored credential: trims and removes all
// whitespace plus common zero-width code points that sneak in via
// copy-paste.
func SanitizeAPIKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f',
			'\u00a0', '\u200b', '\u200c', '\u200d', '\ufeff':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
