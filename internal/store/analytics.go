package store

import (
	"context"
	"fmt"
	"time"
)

// Analytics writes are append-only and must never influence command or
// announcer outcomes; callers log and discard any error returned here.

// CommandUsage records one command invocation.
type CommandUsage struct {
	Command       string
	UserID        string
	GuildID       string
	ChannelID     string
	ExecutionTime time.Duration
	Success       bool
	ErrorMessage  string
}

// ContentInteraction records one user interaction with a content entity.
type ContentInteraction struct {
	ContentType  string // post, page, tag or author
	ContentID    string
	ContentTitle string
	UserID       string
	GuildID      string
	Type         string // view, click or share
}

// SearchQuery records one search and its result count.
type SearchQuery struct {
	Query   string
	UserID  string
	GuildID string
	Results int
}

// RecordCommand appends a command usage row.
func (s *Store) RecordCommand(ctx context.Context, u CommandUsage) error {
	success := 0
	if u.Success {
		success = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_usage (command_name, user_id, guild_id, channel_id, timestamp, execution_time, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Command, u.UserID, u.GuildID, u.ChannelID, formatTime(time.Now()),
		u.ExecutionTime.Milliseconds(), success, u.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("record command usage: %w", err)
	}
	return nil
}

// RecordInteraction appends a content interaction row.
func (s *Store) RecordInteraction(ctx context.Context, i ContentInteraction) error {
	interactionType := i.Type
	if interactionType == "" {
		interactionType = "view"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_interactions (content_type, content_id, content_title, user_id, guild_id, interaction_type, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ContentType, i.ContentID, i.ContentTitle, i.UserID, i.GuildID, interactionType, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record content interaction: %w", err)
	}
	return nil
}

// RecordSearch appends a search query row.
func (s *Store) RecordSearch(ctx context.Context, q SearchQuery) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_queries (query, user_id, guild_id, results_count, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		q.Query, q.UserID, q.GuildID, q.Results, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record search query: %w", err)
	}
	return nil
}

// CommandCount is one row of the command usage summary.
type CommandCount struct {
	Command string `json:"command"`
	Count   int    `json:"count"`
	Errors  int    `json:"errors"`
}

// TopCommands summarizes command usage since the given time.
func (s *Store) TopCommands(ctx context.Context, since time.Time, limit int) ([]CommandCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT command_name, COUNT(*), SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END)
		FROM command_usage
		WHERE timestamp >= ?
		GROUP BY command_name
		ORDER BY COUNT(*) DESC
		LIMIT ?`,
		formatTime(since), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top commands: %w", err)
	}
	defer rows.Close()

	var counts []CommandCount
	for rows.Next() {
		var c CommandCount
		if err := rows.Scan(&c.Command, &c.Count, &c.Errors); err != nil {
			return nil, fmt.Errorf("scan command count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// QueryCount is one row of the search query summary.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// TopSearches summarizes search queries since the given time.
func (s *Store) TopSearches(ctx context.Context, since time.Time, limit int) ([]QueryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*)
		FROM search_queries
		WHERE timestamp >= ?
		GROUP BY query
		ORDER BY COUNT(*) DESC
		LIMIT ?`,
		formatTime(since), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top searches: %w", err)
	}
	defer rows.Close()

	var counts []QueryCount
	for rows.Next() {
		var c QueryCount
		if err := rows.Scan(&c.Query, &c.Count); err != nil {
			return nil, fmt.Errorf("scan query count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ContentCount is one row of the content interaction summary.
type ContentCount struct {
	ContentType  string `json:"content_type"`
	ContentTitle string `json:"content_title"`
	Count        int    `json:"count"`
}

// TopContent summarizes content interactions since the given time.
func (s *Store) TopContent(ctx context.Context, since time.Time, limit int) ([]ContentCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_type, content_title, COUNT(*)
		FROM content_interactions
		WHERE timestamp >= ?
		GROUP BY content_type, content_id
		ORDER BY COUNT(*) DESC
		LIMIT ?`,
		formatTime(since), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top content: %w", err)
	}
	defer rows.Close()

	var counts []ContentCount
	for rows.Next() {
		var c ContentCount
		if err := rows.Scan(&c.ContentType, &c.ContentTitle, &c.Count); err != nil {
			return nil, fmt.Errorf("scan content count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
