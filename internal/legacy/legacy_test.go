package legacy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocker/smallrss/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "smallrss.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestImport_FullMigration(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, dir, FeedsFile, `{
		"feeds": [
			{
				"title": "Cinema News",
				"url": "https://cinema.example.com/rss",
				"sort_order": 1,
				"entries": [
					{"guid": "g1", "title": "Dune: Part Two", "published": "2024-03-01"},
					{"guid": "g2", "title": "Another Story", "published": "2024-03-02"}
				]
			}
		],
		"column_widths": {"https://cinema.example.com/rss": [220, 90]}
	}`)
	writeFile(t, dir, ReadArticlesFile, `["id-1", "id-2"]`)
	writeFile(t, dir, GroupSettingsFile, `{"cinema.example.com": {"omdb_enabled": true, "notifications_enabled": false}}`)
	writeFile(t, dir, MovieCacheFile, `{"dune: part two": {"Title": "Dune: Part Two"}}`)

	require.NoError(t, Import(ctx, st, dir))

	feeds, err := st.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "Cinema News", feeds[0].Title)
	// sort_column omitted in the file defaults to the date column.
	assert.Equal(t, 1, feeds[0].SortColumn)
	assert.Len(t, feeds[0].Entries, 2)

	ids, err := st.LoadReadArticles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id-1", "id-2"}, ids)

	settings, err := st.LoadGroupSettings(ctx)
	require.NoError(t, err)
	require.Contains(t, settings, "cinema.example.com")
	assert.True(t, settings["cinema.example.com"].OmdbEnabled)

	widths, err := st.LoadColumnWidths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{220, 90}, widths["https://cinema.example.com/rss"])

	cache, err := st.LoadMovieCache(ctx)
	require.NoError(t, err)
	assert.Contains(t, cache, "dune: part two")

	// Successfully imported files are gone.
	for _, name := range []string{FeedsFile, ReadArticlesFile, GroupSettingsFile, MovieCacheFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.ErrorIs(t, err, os.ErrNotExist, name)
	}
}

func TestImport_BareFeedArray(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, dir, FeedsFile, `[{"title": "News", "url": "https://news.example.com/rss"}]`)

	require.NoError(t, Import(ctx, st, dir))

	feeds, err := st.ListFeeds(ctx)
	require.NoError(t, err)
	require.Len(t, feeds, 1)
	assert.Equal(t, "https://news.example.com/rss", feeds[0].URL)
}

func TestImport_NoFilesIsNoop(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Import(ctx, st, t.TempDir()))

	feeds, err := st.ListFeeds(ctx)
	require.NoError(t, err)
	assert.Empty(t, feeds)
}

func TestImport_SecondRunIsNoop(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, dir, ReadArticlesFile, `["id-1"]`)
	require.NoError(t, Import(ctx, st, dir))
	require.NoError(t, Import(ctx, st, dir))

	ids, err := st.LoadReadArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1"}, ids)
}

func TestImport_CorruptFileDoesNotBlockOthers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeFile(t, dir, GroupSettingsFile, `{not valid json`)
	writeFile(t, dir, ReadArticlesFile, `["id-9"]`)

	err := Import(ctx, st, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), GroupSettingsFile)

	// The healthy file migrated and was removed.
	ids, loadErr := st.LoadReadArticles(ctx)
	require.NoError(t, loadErr)
	assert.Equal(t, []string{"id-9"}, ids)
	_, statErr := os.Stat(filepath.Join(dir, ReadArticlesFile))
	assert.ErrorIs(t, statErr, os.ErrNotExist)

	// The corrupt file stays on disk for inspection.
	_, statErr = os.Stat(filepath.Join(dir, GroupSettingsFile))
	assert.NoError(t, statErr)
}
