// Package legacy imports the predecessor's flat JSON files into the
// relational store, once, then removes them.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rocker/smallrss/internal/store"
	"github.com/rocker/smallrss/pkg/feed"
)

// Well-known filenames of the previous generation's storage.
const (
	FeedsFile         = "feeds.json"
	ReadArticlesFile  = "read_articles.json"
	GroupSettingsFile = "group_settings.json"
	MovieCacheFile    = "movie_data_cache.json"
)

type legacyFeed struct {
	Title      string       `json:"title"`
	URL        string       `json:"url"`
	SortColumn *int         `json:"sort_column"`
	SortOrder  int          `json:"sort_order"`
	Entries    []feed.Entry `json:"entries"`
}

// sortColumn defaults to 1 (the date column) when the legacy file omits it.
func (f legacyFeed) sortColumn() int {
	if f.SortColumn != nil {
		return *f.SortColumn
	}
	return 1
}

type legacyFeedsDoc struct {
	Feeds        []legacyFeed     `json:"feeds"`
	ColumnWidths map[string][]int `json:"column_widths"`
}

// Import migrates whichever of the four legacy files exist under dir into
// st. Each file is handled independently: a parse failure in one never
// blocks the others, and a file is deleted only after its own content has
// been fully imported, so a failed file stays on disk for a later retry or
// inspection. Running Import again after a clean pass is a no-op.
func Import(ctx context.Context, st store.Store, dir string) error {
	var errs []error

	importFile(dir, FeedsFile, &errs, func(data []byte) error {
		return importFeeds(ctx, st, data)
	})
	importFile(dir, ReadArticlesFile, &errs, func(data []byte) error {
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		return st.SaveReadArticles(ctx, ids)
	})
	importFile(dir, GroupSettingsFile, &errs, func(data []byte) error {
		var settings map[string]store.GroupSetting
		if err := json.Unmarshal(data, &settings); err != nil {
			return err
		}
		return st.SaveGroupSettings(ctx, settings)
	})
	importFile(dir, MovieCacheFile, &errs, func(data []byte) error {
		var cache map[string]json.RawMessage
		if err := json.Unmarshal(data, &cache); err != nil {
			return err
		}
		return st.SaveMovieCache(ctx, cache)
	})

	return errors.Join(errs...)
}

// importFile reads one legacy file, hands it to consume, and deletes it on
// success. A missing file is not an error.
func importFile(dir, name string, errs *[]error, consume func([]byte) error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		*errs = append(*errs, fmt.Errorf("read %s: %w", name, err))
		return
	}
	if err := consume(data); err != nil {
		*errs = append(*errs, fmt.Errorf("import %s: %w", name, err))
		return
	}
	if err := os.Remove(path); err != nil {
		*errs = append(*errs, fmt.Errorf("remove %s: %w", name, err))
	}
}

// importFeeds accepts either a bare feed array or an object with a "feeds"
// key, optionally alongside a column-widths map. Entries run through the
// store's normal upsert path so their ids match what a regular refresh
// would have produced.
func importFeeds(ctx context.Context, st store.Store, data []byte) error {
	var doc legacyFeedsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		if arrErr := json.Unmarshal(data, &doc.Feeds); arrErr != nil {
			return err
		}
	}

	for _, f := range doc.Feeds {
		if f.URL == "" {
			continue
		}
		if err := st.UpsertFeed(ctx, f.Title, f.URL, f.sortColumn(), f.SortOrder); err != nil {
			return err
		}
		if len(f.Entries) > 0 {
			if err := st.UpsertEntries(ctx, f.URL, f.Entries); err != nil {
				return err
			}
		}
	}

	if len(doc.ColumnWidths) > 0 {
		if err := st.SaveColumnWidths(ctx, doc.ColumnWidths); err != nil {
			return err
		}
	}
	return nil
}
