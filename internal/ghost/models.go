package ghost

import (
	"strings"
	"time"
)

// Count carries the denormalized post count Ghost attaches to tags and
// authors when `include=count.posts` is requested.
type Count struct {
	Posts int `json:"posts"`
}

// Tag is a Ghost tag. Internal tags (visibility "internal", or the "#"
// name prefix convention) must never reach user-facing output.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	URL         string `json:"url"`
	Count       *Count `json:"count,omitempty"`
}

// IsPublic reports whether the tag may be shown to users.
func (t Tag) IsPublic() bool {
	return t.Visibility != "internal" && !strings.HasPrefix(t.Name, "#")
}

// Author is a Ghost staff user attached to posts and pages.
type Author struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profile_image"`
	CoverImage   string `json:"cover_image"`
	URL          string `json:"url"`
	Website      string `json:"website"`
	Twitter      string `json:"twitter"`
	Facebook     string `json:"facebook"`
	Count        *Count `json:"count,omitempty"`
}

// Post is a published Ghost post.
type Post struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	HTML         string     `json:"html"`
	Plaintext    string     `json:"plaintext"`
	Excerpt      string     `json:"excerpt"`
	URL          string     `json:"url"`
	FeatureImage string     `json:"feature_image"`
	PublishedAt  *time.Time `json:"published_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
	Tags         []Tag      `json:"tags,omitempty"`
	Authors      []Author   `json:"authors,omitempty"`
}

// PublicTags returns the post's tags with internal tags removed.
func (p Post) PublicTags() []Tag {
	var tags []Tag
	for _, t := range p.Tags {
		if t.IsPublic() {
			tags = append(tags, t)
		}
	}
	return tags
}

// Page is a static Ghost page. Pages share the post shape but are not
// part of the publishing feed.
type Page struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Slug         string     `json:"slug"`
	HTML         string     `json:"html"`
	Plaintext    string     `json:"plaintext"`
	Excerpt      string     `json:"excerpt"`
	URL          string     `json:"url"`
	FeatureImage string     `json:"feature_image"`
	UpdatedAt    *time.Time `json:"updated_at"`
	Authors      []Author   `json:"authors,omitempty"`
}

// Settings is the public site settings resource.
type Settings struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Logo        string `json:"logo"`
	Icon        string `json:"icon"`
	CoverImage  string `json:"cover_image"`
	Timezone    string `json:"timezone"`
}

// Pagination is Ghost's listing metadata.
type Pagination struct {
	Page  int  `json:"page"`
	Pages int  `json:"pages"`
	Total int  `json:"total"`
	Next  *int `json:"next"`
	Prev  *int `json:"prev"`
}

// Meta wraps pagination metadata on listing responses.
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

// PostsResponse is the envelope for posts listings.
type PostsResponse struct {
	Posts []Post `json:"posts"`
	Meta  *Meta  `json:"meta,omitempty"`
}

// PagesResponse is the envelope for pages listings.
type PagesResponse struct {
	Pages []Page `json:"pages"`
	Meta  *Meta  `json:"meta,omitempty"`
}

// TagsResponse is the envelope for tag listings.
type TagsResponse struct {
	Tags []Tag `json:"tags"`
	Meta *Meta `json:"meta,omitempty"`
}

// AuthorsResponse is the envelope for author listings.
type AuthorsResponse struct {
	Authors []Author `json:"authors"`
	Meta    *Meta    `json:"meta,omitempty"`
}

// SettingsResponse is the envelope for the settings resource.
type SettingsResponse struct {
	Settings Settings `json:"settings"`
}
