// Package store provides the durable state behind the announcer and the
// admin toggles: the last announced post, named bot settings, and the
// append-only usage analytics tables. Backed by an embedded SQLite
// database so state survives process restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// LastPosted is the durable marker of the most recently announced post.
type LastPosted struct {
	PostID      string
	Title       string
	URL         string
	PublishedAt time.Time
	PostedAt    time.Time
}

// Store wraps the SQLite connection. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS last_posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id TEXT NOT NULL UNIQUE,
	post_title TEXT NOT NULL,
	post_url TEXT NOT NULL,
	published_at TEXT NOT NULL,
	posted_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bot_settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS command_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	command_name TEXT NOT NULL,
	user_id TEXT NOT NULL,
	guild_id TEXT,
	channel_id TEXT,
	timestamp TEXT NOT NULL,
	execution_time INTEGER,
	success INTEGER NOT NULL DEFAULT 1,
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS content_interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content_type TEXT NOT NULL,
	content_id TEXT NOT NULL,
	content_title TEXT,
	user_id TEXT NOT NULL,
	guild_id TEXT,
	interaction_type TEXT NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS search_queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	user_id TEXT NOT NULL,
	guild_id TEXT,
	results_count INTEGER,
	timestamp TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_command_usage_command ON command_usage(command_name);
CREATE INDEX IF NOT EXISTS idx_command_usage_timestamp ON command_usage(timestamp);
CREATE INDEX IF NOT EXISTS idx_content_interactions_type ON content_interactions(content_type);
CREATE INDEX IF NOT EXISTS idx_search_queries_timestamp ON search_queries(timestamp);
`

// timeLayout is fixed-width RFC 3339 in UTC so lexicographic ordering in
// SQLite matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }

// Open opens (creating if needed) the SQLite database at path and
// ensures the schema exists. The parent directory is created when
// missing. The caller should Close the store when done.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection. Safe to call more than once.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetLastPosted returns the most recently recorded announced post, or
// nil if nothing was ever recorded.
func (s *Store) GetLastPosted(ctx context.Context) (*LastPosted, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT post_id, post_title, post_url, published_at, posted_at
		FROM last_posts
		ORDER BY posted_at DESC, id DESC
		LIMIT 1`)

	var lp LastPosted
	var publishedAt, postedAt string
	err := row.Scan(&lp.PostID, &lp.Title, &lp.URL, &publishedAt, &postedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last posted: %w", err)
	}

	if lp.PublishedAt, err = parseTime(publishedAt); err != nil {
		return nil, fmt.Errorf("parse published_at %q: %w", publishedAt, err)
	}
	if lp.PostedAt, err = parseTime(postedAt); err != nil {
		return nil, fmt.Errorf("parse posted_at %q: %w", postedAt, err)
	}
	return &lp, nil
}

// SaveLastPosted upserts the record for the given post id. A reappearing
// id replaces its row rather than duplicating it.
func (s *Store) SaveLastPosted(ctx context.Context, lp LastPosted) error {
	postedAt := lp.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_posts (post_id, post_title, post_url, published_at, posted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (post_id) DO UPDATE SET
			post_title = excluded.post_title,
			post_url = excluded.post_url,
			published_at = excluded.published_at,
			posted_at = excluded.posted_at`,
		lp.PostID, lp.Title, lp.URL, formatTime(lp.PublishedAt), formatTime(postedAt),
	)
	if err != nil {
		return fmt.Errorf("save last posted %s: %w", lp.PostID, err)
	}
	return nil
}

// GetSetting returns the value for key, or the empty string if the key
// was never set.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM bot_settings WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores value under key, last write wins.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
