package cache

import "net/url"

// Cache key derivation. Listing keys are built from the request's query
// options with keys sorted lexicographically, so two logically identical
// requests map to the same slot regardless of option order.

func encodeOptions(options map[string]string) string {
	values := make(url.Values, len(options))
	for k, v := range options {
		if v != "" {
			values.Set(k, v)
		}
	}
	// url.Values.Encode sorts by key.
	return values.Encode()
}

// PostsKey derives the cache key for a posts listing query.
func PostsKey(options map[string]string) string {
	return "posts:" + encodeOptions(options)
}

// PagesKey derives the cache key for a pages listing query.
func PagesKey(options map[string]string) string {
	return "pages:" + encodeOptions(options)
}

// PostKey derives the cache key for a single post.
func PostKey(slug string) string { return "post:" + slug }

// PageKey derives the cache key for a single page.
func PageKey(slug string) string { return "page:" + slug }

// AuthorKey derives the cache key for a single author.
func AuthorKey(slug string) string { return "author:" + slug }

// TagsKey is the cache key for the full tag listing.
func TagsKey() string { return "tags:all" }

// AuthorsKey is the cache key for the full author listing.
func AuthorsKey() string { return "authors:all" }

// SettingsKey is the cache key for site settings.
func SettingsKey() string { return "settings:site" }

// SearchIndexKey is the cache key for the built search index.
func SearchIndexKey() string { return "search_index" }
