package search

import (
	"strings"
	"time"

	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
	"github.com/twhitfield/ghost-discord-bot/internal/util"
)

// Document is the flattened, weighted-field projection of a content
// entity. The document set is rebuilt wholesale from a content snapshot
// and never patched incrementally.
type Document struct {
	ID   string `json:"id"`
	Type string `json:"type"` // post, page, tag or author

	// Weighted text fields.
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
	Authors string `json:"authors"`

	Slug         string     `json:"slug"`
	URL          string     `json:"url,omitempty"`
	Excerpt      string     `json:"excerpt,omitempty"`
	FeatureImage string     `json:"feature_image,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	PostCount    int        `json:"post_count,omitempty"`
}

func postContent(plaintext, html, excerpt string) string {
	if plaintext != "" {
		return plaintext
	}
	if html != "" {
		return util.PlainText(html)
	}
	return excerpt
}

func documentFromPost(p ghost.Post) Document {
	publicTags := p.PublicTags()
	tagNames := make([]string, 0, len(publicTags))
	for _, t := range publicTags {
		tagNames = append(tagNames, t.Name)
	}
	authorNames := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		authorNames = append(authorNames, a.Name)
	}

	return Document{
		ID:           p.ID,
		Type:         "post",
		Title:        p.Title,
		Content:      postContent(p.Plaintext, p.HTML, p.Excerpt),
		Tags:         strings.Join(tagNames, " "),
		Authors:      strings.Join(authorNames, " "),
		Slug:         p.Slug,
		URL:          p.URL,
		Excerpt:      p.Excerpt,
		FeatureImage: p.FeatureImage,
		PublishedAt:  p.PublishedAt,
	}
}

func documentFromPage(p ghost.Page) Document {
	authorNames := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		authorNames = append(authorNames, a.Name)
	}

	return Document{
		ID:           p.ID,
		Type:         "page",
		Title:        p.Title,
		Content:      postContent(p.Plaintext, p.HTML, p.Excerpt),
		Authors:      strings.Join(authorNames, " "),
		Slug:         p.Slug,
		URL:          p.URL,
		Excerpt:      p.Excerpt,
		FeatureImage: p.FeatureImage,
		UpdatedAt:    p.UpdatedAt,
	}
}

func documentFromTag(t ghost.Tag) Document {
	doc := Document{
		ID:      t.ID,
		Type:    "tag",
		Title:   t.Name,
		Content: t.Description,
		Slug:    t.Slug,
		URL:     t.URL,
	}
	if t.Count != nil {
		doc.PostCount = t.Count.Posts
	}
	return doc
}

func documentFromAuthor(a ghost.Author) Document {
	doc := Document{
		ID:      a.ID,
		Type:    "author",
		Title:   a.Name,
		Content: a.Bio,
		Slug:    a.Slug,
		URL:     a.URL,
	}
	if a.Count != nil {
		doc.PostCount = a.Count.Posts
	}
	return doc
}
