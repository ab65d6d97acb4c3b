package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
)

func testPost() ghost.Post {
	published := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return ghost.Post{
		ID:           "p1",
		Title:        "Hello World",
		URL:          "https://blog/hello",
		Excerpt:      "A short excerpt",
		FeatureImage: "https://blog/hello.png",
		PublishedAt:  &published,
		Tags: []ghost.Tag{
			{Name: "News", Visibility: "public"},
			{Name: "#internal", Visibility: "public"},
		},
		Authors: []ghost.Author{
			{Name: "Ada Lovelace", URL: "https://blog/author/ada", ProfileImage: "https://blog/ada.png"},
		},
	}
}

func TestAnnouncePost(t *testing.T) {
	var payload discordMessagePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/12345/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bot test-token" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New("test-token")
	c.apiBase = srv.URL

	if err := c.AnnouncePost(context.Background(), "12345", testPost()); err != nil {
		t.Fatalf("AnnouncePost() returned error: %v", err)
	}

	if len(payload.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(payload.Embeds))
	}
	embed := payload.Embeds[0]
	if embed.Title != "Hello World" || embed.URL != "https://blog/hello" {
		t.Errorf("unexpected embed: %+v", embed)
	}
	if embed.Description != "A short excerpt" {
		t.Errorf("unexpected description %q", embed.Description)
	}
	if embed.Author.Name != "Ada Lovelace" {
		t.Errorf("unexpected author %+v", embed.Author)
	}
	if embed.Timestamp != "2025-06-01T10:00:00Z" {
		t.Errorf("unexpected timestamp %q", embed.Timestamp)
	}
	if !strings.Contains(embed.Footer.Text, "Tags: News") {
		t.Errorf("footer should list public tags, got %q", embed.Footer.Text)
	}
	if strings.Contains(embed.Footer.Text, "#internal") {
		t.Errorf("footer must not list internal tags, got %q", embed.Footer.Text)
	}
}

func TestAnnouncePost_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Missing Access"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("test-token")
	c.apiBase = srv.URL

	err := c.AnnouncePost(context.Background(), "12345", testPost())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "Missing Access") {
		t.Errorf("error should carry the response body, got %v", err)
	}
}

func TestFormatPostEmbed_DescriptionFallbacks(t *testing.T) {
	post := ghost.Post{Title: "T", HTML: "<p>Only <b>html</b> content here</p>"}
	embed := formatPostEmbed(post)
	if embed.Description != "Only html content here" {
		t.Errorf("expected plaintext extracted from HTML, got %q", embed.Description)
	}

	long := ghost.Post{Title: "T", Excerpt: strings.Repeat("word ", 100)}
	embed = formatPostEmbed(long)
	if len(embed.Description) > previewLength+3 {
		t.Errorf("description should be truncated to the preview length, got %d chars", len(embed.Description))
	}
	if !strings.HasSuffix(embed.Description, "...") {
		t.Error("truncated description should end with an ellipsis")
	}
}
