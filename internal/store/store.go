package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rocker/smallrss/pkg/feed"
)

// GroupSetting holds the per-group feature flags keyed by a user-visible
// grouping label.
type GroupSetting struct {
	OmdbEnabled          bool `json:"omdb_enabled"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// Store is the persistence interface. It is the sole owner of durable
// state; every operation is a synchronous read or write against one local
// SQLite file.
type Store interface {
	UpsertFeed(ctx context.Context, title, url string, sortColumn, sortOrder int) error
	RemoveFeed(ctx context.Context, url string) error
	UpdateFeedURL(ctx context.Context, oldURL, newURL string) error
	ListFeeds(ctx context.Context) ([]feed.Feed, error)

	ReplaceEntries(ctx context.Context, feedURL string, entries []feed.Entry) error
	UpsertEntries(ctx context.Context, feedURL string, entries []feed.Entry) error

	LoadReadArticles(ctx context.Context) ([]string, error)
	SaveReadArticles(ctx context.Context, ids []string) error

	LoadGroupSettings(ctx context.Context) (map[string]GroupSetting, error)
	SaveGroupSettings(ctx context.Context, settings map[string]GroupSetting) error

	LoadColumnWidths(ctx context.Context) (map[string][]int, error)
	SaveColumnWidths(ctx context.Context, widths map[string][]int) error

	LoadMovieCache(ctx context.Context) (map[string]json.RawMessage, error)
	SaveMovieCache(ctx context.Context, cache map[string]json.RawMessage) error

	GetIcon(ctx context.Context, domain string) ([]byte, error)
	SaveIcon(ctx context.Context, domain string, data []byte) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB

	// Writes are serialized here; the store itself assumes a single writer
	// and callers on other goroutines must not race past this.
	mu sync.Mutex
}

// New opens (creating parent directories as needed) a SQLite database and
// ensures the schema exists.
func New(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertFeed(ctx context.Context, title, url string, sortColumn, sortOrder int) error {
	if title == "" {
		title = url
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (title, url, sort_column, sort_order)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			sort_column = excluded.sort_column,
			sort_order = excluded.sort_order
	`, title, url, sortColumn, sortOrder)
	if err != nil {
		return fmt.Errorf("upsert feed %s: %w", url, err)
	}
	return nil
}

func (s *SQLiteStore) RemoveFeed(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove feed %s: %w", url, err)
	}
	defer tx.Rollback()

	// Entries are removed explicitly rather than trusting the cascade
	// pragma on whichever pooled connection runs the delete.
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM entries WHERE feed_id IN (SELECT id FROM feeds WHERE url = ?)", url); err != nil {
		return fmt.Errorf("remove feed entries %s: %w", url, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM feeds WHERE url = ?", url); err != nil {
		return fmt.Errorf("remove feed %s: %w", url, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateFeedURL(ctx context.Context, oldURL, newURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE feeds SET url = ? WHERE url = ?", newURL, oldURL)
	if err != nil {
		return fmt.Errorf("update feed url %s: %w", oldURL, err)
	}
	return nil
}

func (s *SQLiteStore) ListFeeds(ctx context.Context) ([]feed.Feed, error) {
	var feeds []feed.Feed
	err := s.db.SelectContext(ctx, &feeds,
		"SELECT id, title, url, sort_column, sort_order FROM feeds ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	for i := range feeds {
		entries, err := s.entriesByFeedID(ctx, feeds[i].ID)
		if err != nil {
			return nil, err
		}
		feeds[i].Entries = entries
	}
	return feeds, nil
}

func (s *SQLiteStore) entriesByFeedID(ctx context.Context, feedID int64) ([]feed.Entry, error) {
	var payloads []string
	err := s.db.SelectContext(ctx, &payloads,
		"SELECT payload FROM entries WHERE feed_id = ? ORDER BY published_at DESC", feedID)
	if err != nil {
		return nil, fmt.Errorf("list entries for feed %d: %w", feedID, err)
	}

	var entries []feed.Entry
	for _, p := range payloads {
		var e feed.Entry
		if err := json.Unmarshal([]byte(p), &e); err != nil {
			// A payload that no longer parses is dropped, not fatal.
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *SQLiteStore) feedIDByURL(ctx context.Context, q sqlx.QueryerContext, url string) (int64, bool, error) {
	var id int64
	err := sqlx.GetContext(ctx, q, &id, "SELECT id FROM feeds WHERE url = ?", url)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup feed %s: %w", url, err)
	}
	return id, true, nil
}

func (s *SQLiteStore) ReplaceEntries(ctx context.Context, feedURL string, entries []feed.Entry) error {
	return s.writeEntries(ctx, feedURL, entries, true)
}

func (s *SQLiteStore) UpsertEntries(ctx context.Context, feedURL string, entries []feed.Entry) error {
	return s.writeEntries(ctx, feedURL, entries, false)
}

func (s *SQLiteStore) writeEntries(ctx context.Context, feedURL string, entries []feed.Entry, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write entries %s: %w", feedURL, err)
	}
	defer tx.Rollback()

	feedID, ok, err := s.feedIDByURL(ctx, tx, feedURL)
	if err != nil {
		return err
	}
	if !ok {
		// Unknown feed URL is a no-op, not an error.
		return nil
	}

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE feed_id = ?", feedID); err != nil {
			return fmt.Errorf("clear entries %s: %w", feedURL, err)
		}
	}

	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode entry for %s: %w", feedURL, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO entries (id, feed_id, payload, published_at)
			VALUES (?, ?, ?, ?)
		`, feed.ArticleID(e), feedID, string(payload), e.PublishedAt()); err != nil {
			return fmt.Errorf("insert entry for %s: %w", feedURL, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadReadArticles(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, "SELECT id FROM read_articles"); err != nil {
		return nil, fmt.Errorf("load read articles: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) SaveReadArticles(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save read articles: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM read_articles"); err != nil {
		return fmt.Errorf("save read articles: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO read_articles (id) VALUES (?)", id); err != nil {
			return fmt.Errorf("save read article %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadGroupSettings(ctx context.Context) (map[string]GroupSetting, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT group_name, omdb_enabled, notifications_enabled FROM group_settings")
	if err != nil {
		return nil, fmt.Errorf("load group settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]GroupSetting)
	for rows.Next() {
		var name string
		var omdb, notif int
		if err := rows.Scan(&name, &omdb, &notif); err != nil {
			return nil, fmt.Errorf("load group settings: %w", err)
		}
		settings[name] = GroupSetting{
			OmdbEnabled:          omdb != 0,
			NotificationsEnabled: notif != 0,
		}
	}
	return settings, rows.Err()
}

func (s *SQLiteStore) SaveGroupSettings(ctx context.Context, settings map[string]GroupSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save group settings: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_settings"); err != nil {
		return fmt.Errorf("save group settings: %w", err)
	}
	for name, cfg := range settings {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO group_settings (group_name, omdb_enabled, notifications_enabled)
			VALUES (?, ?, ?)
		`, name, boolToInt(cfg.OmdbEnabled), boolToInt(cfg.NotificationsEnabled)); err != nil {
			return fmt.Errorf("save group setting %s: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadColumnWidths(ctx context.Context) (map[string][]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT feed_url, col_index, width FROM column_widths")
	if err != nil {
		return nil, fmt.Errorf("load column widths: %w", err)
	}
	defer rows.Close()

	widths := make(map[string][]int)
	for rows.Next() {
		var url string
		var idx, w int
		if err := rows.Scan(&url, &idx, &w); err != nil {
			return nil, fmt.Errorf("load column widths: %w", err)
		}
		arr := widths[url]
		for len(arr) <= idx {
			arr = append(arr, 0)
		}
		arr[idx] = w
		widths[url] = arr
	}
	return widths, rows.Err()
}

func (s *SQLiteStore) SaveColumnWidths(ctx context.Context, widths map[string][]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save column widths: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM column_widths"); err != nil {
		return fmt.Errorf("save column widths: %w", err)
	}
	for url, arr := range widths {
		for idx, w := range arr {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO column_widths (feed_url, col_index, width)
				VALUES (?, ?, ?)
			`, url, idx, w); err != nil {
				return fmt.Errorf("save column widths %s: %w", url, err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadMovieCache(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT title, payload FROM movie_cache")
	if err != nil {
		return nil, fmt.Errorf("load movie cache: %w", err)
	}
	defer rows.Close()

	cache := make(map[string]json.RawMessage)
	for rows.Next() {
		var title, payload string
		if err := rows.Scan(&title, &payload); err != nil {
			return nil, fmt.Errorf("load movie cache: %w", err)
		}
		if !json.Valid([]byte(payload)) {
			continue
		}
		cache[title] = json.RawMessage(payload)
	}
	return cache, rows.Err()
}

func (s *SQLiteStore) SaveMovieCache(ctx context.Context, cache map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save movie cache: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM movie_cache"); err != nil {
		return fmt.Errorf("save movie cache: %w", err)
	}
	for title, payload := range cache {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO movie_cache (title, payload) VALUES (?, ?)
		`, title, string(payload)); err != nil {
			return fmt.Errorf("save movie cache %s: %w", title, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetIcon(ctx context.Context, domain string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT data FROM icon_cache WHERE domain = ?", domain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get icon %s: %w", domain, err)
	}
	return data, nil
}

func (s *SQLiteStore) SaveIcon(ctx context.Context, domain string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO icon_cache (domain, data, updated_at) VALUES (?, ?, ?)
	`, domain, data, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save icon %s: %w", domain, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
