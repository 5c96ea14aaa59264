package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Fetcher retrieves and parses RSS/Atom feeds into raw entries.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

// NewFetcher creates a fetcher with a sane request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
	}
}

// Fetch downloads the feed at url and returns its entries in document order.
// The feed's own title is returned alongside so a caller adding a feed by
// bare URL can pick up a display name.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, []Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create feed request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "smallrss/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("feed %s status %d", url, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("parse feed %s: %w", url, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, fromGofeed(item))
	}
	return parsed.Title, entries, nil
}

func fromGofeed(item *gofeed.Item) Entry {
	e := Entry{
		GUID:       item.GUID,
		Link:       item.Link,
		Title:      item.Title,
		Summary:    item.Description,
		Content:    item.Content,
		Published:  item.Published,
		Updated:    item.Updated,
		Categories: item.Categories,
	}
	if e.Link == "" && len(item.Links) > 0 {
		e.Link = item.Links[0]
	}
	if item.Author != nil {
		e.Author = item.Author.Name
	}
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		e.Enclosures = append(e.Enclosures, Enclosure{
			URL:    enc.URL,
			Type:   enc.Type,
			Length: enc.Length,
		})
	}
	return e
}
