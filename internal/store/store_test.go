package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("Open() returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDataDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "bot.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() should create missing parent directories: %v", err)
	}
	s.Close()
}

func TestGetLastPosted_Empty(t *testing.T) {
	s := newTestStore(t)

	lp, err := s.GetLastPosted(context.Background())
	if err != nil {
		t.Fatalf("GetLastPosted() returned error: %v", err)
	}
	if lp != nil {
		t.Errorf("expected nil for empty table, got %+v", lp)
	}
}

func TestSaveAndGetLastPosted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	published := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	err := s.SaveLastPosted(ctx, LastPosted{
		PostID:      "post-1",
		Title:       "Hello World",
		URL:         "https://blog/hello",
		PublishedAt: published,
		PostedAt:    published.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("SaveLastPosted() returned error: %v", err)
	}

	lp, err := s.GetLastPosted(ctx)
	if err != nil {
		t.Fatalf("GetLastPosted() returned error: %v", err)
	}
	if lp == nil {
		t.Fatal("expected a record")
	}
	if lp.PostID != "post-1" || lp.Title != "Hello World" {
		t.Errorf("unexpected record: %+v", lp)
	}
	if !lp.PublishedAt.Equal(published) {
		t.Errorf("expected published %v, got %v", published, lp.PublishedAt)
	}
}

func TestGetLastPosted_ReturnsMostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := s.SaveLastPosted(ctx, LastPosted{
			PostID:      id,
			Title:       id,
			URL:         "https://blog/" + id,
			PublishedAt: base.Add(time.Duration(i) * time.Hour),
			PostedAt:    base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	lp, err := s.GetLastPosted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if lp.PostID != "c" {
		t.Errorf("expected most recently posted record c, got %s", lp.PostID)
	}
}

func TestSaveLastPosted_UpsertsByPostID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	published := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, title := range []string{"Original Title", "Edited Title"} {
		err := s.SaveLastPosted(ctx, LastPosted{
			PostID:      "post-1",
			Title:       title,
			URL:         "https://blog/hello",
			PublishedAt: published,
			PostedAt:    published,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	lp, err := s.GetLastPosted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if lp.Title != "Edited Title" {
		t.Errorf("reappearing id should replace the row, got title %q", lp.Title)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM last_posts WHERE post_id = 'post-1'`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 row for post-1, got %d", count)
	}
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Absence is the zero value, not an error.
	v, err := s.GetSetting(ctx, "autopost_enabled")
	if err != nil {
		t.Fatalf("GetSetting() returned error: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value for unset key, got %q", v)
	}

	if err := s.SetSetting(ctx, "autopost_enabled", "true"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(ctx, "autopost_enabled", "false"); err != nil {
		t.Fatal(err)
	}

	v, err = s.GetSetting(ctx, "autopost_enabled")
	if err != nil {
		t.Fatal(err)
	}
	if v != "false" {
		t.Errorf("expected last write to win, got %q", v)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	published := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := s.SaveLastPosted(ctx, LastPosted{PostID: "p1", Title: "T", URL: "https://x", PublishedAt: published, PostedAt: published}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	lp, err := reopened.GetLastPosted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if lp == nil || lp.PostID != "p1" {
		t.Errorf("last posted record should survive a reopen, got %+v", lp)
	}
	v, err := reopened.GetSetting(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if v != "v" {
		t.Errorf("setting should survive a reopen, got %q", v)
	}
}
