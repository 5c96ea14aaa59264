package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocker/smallrss/pkg/feed"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "smallrss.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestFeeds_UpsertAndList(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertFeed(ctx, "Cinema News", "https://cinema.example.com/rss", 1, 0))
	require.NoError(t, st.UpsertFeed(ctx, "Aggregator", "https://agg.example.com/rss", 1, 0))

	feeds, err := st.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	// Ordered by title.
	assert.Equal(t, "Aggregator", feeds[0].Title)
	assert.Equal(t, "Cinema News", feeds[1].Title)

	// Upsert on the same URL updates rather than duplicating.
	require.NoError(t, st.UpsertFeed(ctx, "Cinema Weekly", "https://cinema.example.com/rss", 2, 1))
	feeds, err = st.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, "Cinema Weekly", feeds[1].Title)
	assert.Equal(t, 2, feeds[1].SortColumn)
	assert.Equal(t, 1, feeds[1].SortOrder)
}

func TestFeeds_UpdateURLAndRemove(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertFeed(ctx, "News", "https://old.example.com/rss", 1, 0))
	require.NoError(t, st.UpsertEntries(ctx, "https://old.example.com/rss", []feed.Entry{
		{GUID: "a", Title: "A"},
	}))

	require.NoError(t, st.UpdateFeedURL(ctx, "https://old.example.com/rss", "https://new.example.com/rss"))
	feeds, err := st.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "https://new.example.com/rss", feeds[0].URL)
	assert.Len(t, feeds[0].Entries, 1)

	require.NoError(t, st.RemoveFeed(ctx, "https://new.example.com/rss"))
	feeds, err = st.ListFeeds(ctx)
	require.NoError(t, err)
	assert.Empty(t, feeds)

	// Removing an absent URL is a no-op.
	assert.NoError(t, st.RemoveFeed(ctx, "https://absent.example.com/rss"))
}

func TestEntries_DedupOnRefresh(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	url := "https://cinema.example.com/rss"

	require.NoError(t, st.UpsertFeed(ctx, "Cinema News", url, 1, 0))

	entry := feed.Entry{GUID: "guid-1", Title: "Dune: Part Two", Published: "2024-03-01"}

	// The same entry twice leaves exactly one row.
	require.NoError(t, st.UpsertEntries(ctx, url, []feed.Entry{entry}))
	require.NoError(t, st.UpsertEntries(ctx, url, []feed.Entry{entry}))

	feeds, err := st.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Len(t, feeds[0].Entries, 1)

	// Upsert merges; absent entries survive.
	second := feed.Entry{GUID: "guid-2", Title: "Another", Published: "2024-03-02"}
	require.NoError(t, st.UpsertEntries(ctx, url, []feed.Entry{second}))
	feeds, _ = st.ListFeeds(ctx)
	assert.Len(t, feeds[0].Entries, 2)

	// Replace prunes entries no longer present.
	require.NoError(t, st.ReplaceEntries(ctx, url, []feed.Entry{entry}))
	feeds, _ = st.ListFeeds(ctx)
	require.Len(t, feeds[0].Entries, 1)
	assert.Equal(t, "Dune: Part Two", feeds[0].Entries[0].Title)

	// An overwrite with the same id carries the newer payload.
	entry.Summary = "updated summary"
	require.NoError(t, st.UpsertEntries(ctx, url, []feed.Entry{entry}))
	feeds, _ = st.ListFeeds(ctx)
	require.Len(t, feeds[0].Entries, 1)
	assert.Equal(t, "updated summary", feeds[0].Entries[0].Summary)
}

func TestEntries_UnknownFeedIsNoop(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, st.UpsertEntries(ctx, "https://nobody.example.com/rss", []feed.Entry{{GUID: "x"}}))
	assert.NoError(t, st.ReplaceEntries(ctx, "https://nobody.example.com/rss", []feed.Entry{{GUID: "x"}}))
}

func TestReadArticles_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveReadArticles(ctx, []string{"id-1", "id-2", "id-2"}))
	ids, err := st.LoadReadArticles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id-1", "id-2"}, ids)

	// Save has full-replace semantics.
	require.NoError(t, st.SaveReadArticles(ctx, []string{"id-3"}))
	ids, err = st.LoadReadArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-3"}, ids)
}

func TestGroupSettings_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	settings := map[string]GroupSetting{
		"cinema.example.com": {OmdbEnabled: true, NotificationsEnabled: false},
		"news.example.com":   {OmdbEnabled: false, NotificationsEnabled: true},
	}
	require.NoError(t, st.SaveGroupSettings(ctx, settings))

	loaded, err := st.LoadGroupSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)

	require.NoError(t, st.SaveGroupSettings(ctx, map[string]GroupSetting{}))
	loaded, err = st.LoadGroupSettings(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestColumnWidths_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	widths := map[string][]int{
		"https://cinema.example.com/rss": {220, 90, 60},
		"https://news.example.com/rss":   {180, 80},
	}
	require.NoError(t, st.SaveColumnWidths(ctx, widths))

	loaded, err := st.LoadColumnWidths(ctx)
	require.NoError(t, err)
	assert.Equal(t, widths, loaded)

	// Save has full-replace semantics; dropped feeds leave no stale rows.
	smaller := map[string][]int{
		"https://news.example.com/rss": {200},
	}
	require.NoError(t, st.SaveColumnWidths(ctx, smaller))
	loaded, err = st.LoadColumnWidths(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller, loaded)
	assert.NotContains(t, loaded, "https://cinema.example.com/rss")
}

func TestMovieCache_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cache := map[string]json.RawMessage{
		"dune: part two": json.RawMessage(`{"Title":"Dune: Part Two","imdbRating":"8.6"}`),
		"the matrix":     json.RawMessage(`{"Title":"The Matrix"}`),
	}
	require.NoError(t, st.SaveMovieCache(ctx, cache))

	loaded, err := st.LoadMovieCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, cache, loaded)

	// Save has full-replace semantics; evicted titles leave no stale rows.
	smaller := map[string]json.RawMessage{
		"the matrix": json.RawMessage(`{"Title":"The Matrix"}`),
	}
	require.NoError(t, st.SaveMovieCache(ctx, smaller))
	loaded, err = st.LoadMovieCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, smaller, loaded)
	assert.NotContains(t, loaded, "dune: part two")
}

func TestIconCache(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Unknown domain: nil blob, no error.
	data, err := st.GetIcon(ctx, "example.com")
	require.NoError(t, err)
	assert.Nil(t, data)

	icon := []byte{0x00, 0x01, 0x02, 0xff}
	require.NoError(t, st.SaveIcon(ctx, "example.com", icon))

	data, err = st.GetIcon(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, icon, data)

	// Replacement on the same domain.
	require.NoError(t, st.SaveIcon(ctx, "example.com", []byte{0xaa}))
	data, err = st.GetIcon(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, data)
}
