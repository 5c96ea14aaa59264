package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rocker/smallrss/pkg/feed"
)

// DefaultMaxInflight bounds concurrent provider calls. The provider is
// rate-limited and slow; refreshing many feeds at once must not fan out
// into hundreds of simultaneous requests.
const DefaultMaxInflight = 3

// Result is the single completion notification for one dispatched lookup.
type Result struct {
	RawTitle string
	Title    string
	Key      string
	Year     int
	Data     json.RawMessage
	Err      error
}

type request struct {
	raw   string
	title string
	year  int
	key   string
}

// Queue batches raw article titles needing metadata, deduplicates them
// against the cache and against each other on their normalized keys, and
// dispatches a bounded number of concurrent lookups. Dispatch is reactive:
// it runs on enqueue and again whenever a lookup completes, so whenever
// capacity is free and work is pending a lookup starts immediately.
type Queue struct {
	client Client
	cache  *Cache
	notify func(Result)

	mu          sync.Mutex
	pending     []request
	queued      map[string]bool
	inflight    map[string]bool
	maxInflight int
	visible     bool
	authFailed  bool

	wg sync.WaitGroup
}

// NewQueue creates a lookup queue over client and cache. maxInflight <= 0
// selects DefaultMaxInflight. notify, when non-nil, is invoked exactly once
// per dispatched lookup, off the queue's lock.
func NewQueue(client Client, cache *Cache, maxInflight int, notify func(Result)) *Queue {
	if maxInflight <= 0 {
		maxInflight = DefaultMaxInflight
	}
	return &Queue{
		client:      client,
		cache:       cache,
		notify:      notify,
		queued:      make(map[string]bool),
		inflight:    make(map[string]bool),
		maxInflight: maxInflight,
		visible:     true,
	}
}

// SetColumnsVisible gates enqueueing: when the metadata columns are hidden
// for the active view, Enqueue is a no-op.
func (q *Queue) SetColumnsVisible(visible bool) {
	q.mu.Lock()
	q.visible = visible
	q.mu.Unlock()
}

// AuthFailed reports whether the queue has halted on a rejected credential.
func (q *Queue) AuthFailed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.authFailed
}

// ClearAuthFailure lifts the credential halt, typically after the user has
// supplied a new key.
func (q *Queue) ClearAuthFailure() {
	q.mu.Lock()
	q.authFailed = false
	q.mu.Unlock()
}

// Stats returns the pending and in-flight counts.
func (q *Queue) Stats() (pending, inflight int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), len(q.inflight)
}

// Enqueue normalizes each entry's title and queues a lookup for it unless
// the raw title is blank, the raw or normalized form already has a cache
// hit, or the normalized key is already queued or in flight. New work is
// dispatched before returning.
func (q *Queue) Enqueue(ctx context.Context, entries []feed.Entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.visible || q.authFailed {
		return
	}

	for _, e := range entries {
		raw := strings.TrimSpace(e.Title)
		if raw == "" {
			raw = strings.TrimSpace(e.Link)
		}
		if raw == "" {
			continue
		}
		title, year := ExtractTitle(raw)
		key := NormalizeKey(raw)
		if title == "" || key == "" {
			continue
		}
		if q.cache.Has(raw) || q.cache.Has(key) {
			continue
		}
		if q.queued[key] || q.inflight[key] {
			continue
		}
		q.pending = append(q.pending, request{raw: raw, title: title, year: year, key: key})
		q.queued[key] = true
	}

	q.dispatchLocked(ctx)
}

// dispatchLocked starts lookups while capacity allows. Caller holds q.mu.
func (q *Queue) dispatchLocked(ctx context.Context) {
	for len(q.pending) > 0 && len(q.inflight) < q.maxInflight && !q.authFailed {
		req := q.pending[0]
		q.pending = q.pending[1:]
		delete(q.queued, req.key)

		// Another lookup may have filled the cache since this was queued.
		if q.cache.Has(req.raw) || q.cache.Has(req.key) {
			continue
		}
		if q.inflight[req.key] {
			continue
		}

		q.inflight[req.key] = true
		q.wg.Add(1)
		go q.run(ctx, req)
	}
}

func (q *Queue) run(ctx context.Context, req request) {
	defer q.wg.Done()
	data, err := q.client.Lookup(ctx, req.title, req.year)
	q.complete(ctx, req, data, err)
}

func (q *Queue) complete(ctx context.Context, req request, data json.RawMessage, err error) {
	q.mu.Lock()
	delete(q.inflight, req.key)
	switch {
	case err == nil:
		q.cache.Set(req.key, data)
	case errors.Is(err, ErrUnauthorized):
		// The credential itself is bad: stop hammering the provider.
		// Lookups already in flight finish on their own; nothing new goes
		// out until the flag is cleared.
		q.authFailed = true
		q.pending = nil
		q.queued = make(map[string]bool)
		q.inflight = make(map[string]bool)
	}
	q.dispatchLocked(ctx)
	q.mu.Unlock()

	if q.notify != nil {
		q.notify(Result{
			RawTitle: req.raw,
			Title:    req.title,
			Key:      req.key,
			Year:     req.year,
			Data:     data,
			Err:      err,
		})
	}
}

// Wait blocks until every dispatched lookup has completed and nothing is
// left to dispatch. Used by one-shot commands and tests.
func (q *Queue) Wait() {
	q.wg.Wait()
}
