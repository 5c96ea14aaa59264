package store

const schema = `
CREATE TABLE IF NOT EXISTS feeds (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL,
    url         TEXT NOT NULL UNIQUE,
    sort_column INTEGER NOT NULL DEFAULT 1,
    sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entries (
    id           TEXT PRIMARY KEY,
    feed_id      INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    payload      TEXT NOT NULL,
    published_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entries_feed ON entries(feed_id);
CREATE INDEX IF NOT EXISTS idx_entries_published ON entries(published_at);

CREATE TABLE IF NOT EXISTS read_articles (
    id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS group_settings (
    group_name            TEXT PRIMARY KEY,
    omdb_enabled          INTEGER NOT NULL DEFAULT 0,
    notifications_enabled INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS column_widths (
    feed_url  TEXT NOT NULL,
    col_index INTEGER NOT NULL,
    width     INTEGER NOT NULL,
    PRIMARY KEY(feed_url, col_index)
);

CREATE TABLE IF NOT EXISTS movie_cache (
    title   TEXT PRIMARY KEY,
    payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS icon_cache (
    domain     TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
`
