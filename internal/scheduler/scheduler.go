package scheduler

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/rocker/smallrss/internal/store"
	"github.com/rocker/smallrss/pkg/favicon"
	"github.com/rocker/smallrss/pkg/feed"
	"github.com/rocker/smallrss/pkg/omdb"
)

// Scheduler runs periodic feed refreshes, keeps favicons warm and feeds
// omdb-enabled groups into the lookup queue.
type Scheduler struct {
	store    store.Store
	fetcher  *feed.Fetcher
	queue    *omdb.Queue
	cache    *omdb.Cache
	icons    *favicon.Fetcher
	interval time.Duration
}

// New creates a scheduler. queue, cache and icons may be nil to disable
// metadata lookups or icon fetching.
func New(st store.Store, fetcher *feed.Fetcher, queue *omdb.Queue, cache *omdb.Cache, icons *favicon.Fetcher, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		store:    st,
		fetcher:  fetcher,
		queue:    queue,
		cache:    cache,
		icons:    icons,
		interval: interval,
	}
}

// Run starts the refresh loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	fmt.Fprintln(os.Stderr, "scheduler: initial refresh...")
	s.RefreshAll(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (refresh every %s)\n", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.persistCache(context.Background())
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintln(os.Stderr, "scheduler: refreshing...")
			s.RefreshAll(ctx)
		}
	}
}

// RefreshAll fetches every subscribed feed, upserts the current entries and
// queues metadata lookups for groups that have them enabled.
func (s *Scheduler) RefreshAll(ctx context.Context) {
	feeds, err := s.store.ListFeeds(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  list feeds error: %v\n", err)
		return
	}

	groups := map[string]store.GroupSetting{}
	if s.queue != nil {
		groups, err = s.store.LoadGroupSettings(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  load group settings error: %v\n", err)
			groups = map[string]store.GroupSetting{}
		}
	}

	total := 0
	for _, f := range feeds {
		_, entries, err := s.fetcher.Fetch(ctx, f.URL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s error: %v\n", f.URL, err)
			continue
		}

		if err := s.store.UpsertEntries(ctx, f.URL, entries); err != nil {
			fmt.Fprintf(os.Stderr, "  %s store error: %v\n", f.URL, err)
			continue
		}

		if s.queue != nil {
			if g, ok := groups[feed.GroupName(f.URL)]; ok && g.OmdbEnabled {
				s.queue.Enqueue(ctx, entries)
			}
		}

		s.ensureIcon(ctx, f.URL)

		fmt.Fprintf(os.Stderr, "  %s: %d entries\n", f.URL, len(entries))
		total += len(entries)
	}
	fmt.Fprintf(os.Stderr, "  total: %d entries\n", total)

	s.persistCache(ctx)
}

// persistCache mirrors the in-memory metadata cache back to the store.
// Lookups still in flight land in the next pass.
func (s *Scheduler) persistCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.store.SaveMovieCache(ctx, s.cache.Snapshot()); err != nil {
		fmt.Fprintf(os.Stderr, "  persist movie cache error: %v\n", err)
	}
}

func (s *Scheduler) ensureIcon(ctx context.Context, feedURL string) {
	if s.icons == nil {
		return
	}
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return
	}
	domain := feed.StripWWW(u.Hostname())

	existing, err := s.store.GetIcon(ctx, domain)
	if err != nil || existing != nil {
		return
	}

	data, err := s.icons.Fetch(ctx, domain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  favicon %s error: %v\n", domain, err)
		return
	}
	if err := s.store.SaveIcon(ctx, domain, data); err != nil {
		fmt.Fprintf(os.Stderr, "  favicon %s store error: %v\n", domain, err)
	}
}
