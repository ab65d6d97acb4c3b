// Package ghost is a typed read client for the Ghost Content API. Listing
// reads consult the short cache pool, unparameterized metadata reads the
// long pool, and single-entity reads the main pool; the cache is advisory
// only and every miss falls through to the remote API.
package ghost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twhitfield/ghost-discord-bot/internal/cache"
	"github.com/twhitfield/ghost-discord-bot/internal/metrics"
)

// Params holds free-form query options (filter, limit, order, include, ...).
type Params map[string]string

// Client talks to the Ghost Content API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *cache.Cache
}

const acceptVersion = "v5.0"

// New creates a Client for the given Ghost installation. apiURL is the
// site base URL; the content API path is appended here.
func New(apiURL, apiKey string, c *cache.Cache) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(apiURL, "/") + "/ghost/api/content",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   c,
	}
}

func (c *Client) get(ctx context.Context, resource, path string, params Params, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return &FetchError{Resource: resource, Err: err}
	}

	q := u.Query()
	q.Set("key", c.apiKey)
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &FetchError{Resource: resource, Err: err}
	}
	req.Header.Set("Accept-Version", acceptVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ContentFetches.WithLabelValues(resource, "error").Inc()
		return &FetchError{Resource: resource, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		metrics.ContentFetches.WithLabelValues(resource, "error").Inc()
		return &FetchError{
			Resource: resource,
			Err:      fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ContentFetches.WithLabelValues(resource, "error").Inc()
		return &FetchError{Resource: resource, Err: err}
	}
	metrics.ContentFetches.WithLabelValues(resource, "ok").Inc()
	return nil
}

func mergeParams(defaults Params, overrides Params) Params {
	merged := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Posts lists posts. Defaults match the original bot: tags and authors
// included, html+plaintext formats, limit 5.
func (c *Client) Posts(ctx context.Context, params Params) (*PostsResponse, error) {
	merged := mergeParams(Params{
		"include": "tags,authors",
		"formats": "html,plaintext",
		"limit":   "5",
	}, params)

	key := cache.PostsKey(merged)
	if v, ok := c.cache.Get(key, cache.PoolShort); ok {
		return v.(*PostsResponse), nil
	}

	var resp PostsResponse
	if err := c.get(ctx, "posts", "/posts/", merged, &resp); err != nil {
		return nil, err
	}
	c.cache.Set(key, &resp, cache.PoolShort)
	return &resp, nil
}

// Pages lists pages.
func (c *Client) Pages(ctx context.Context, params Params) (*PagesResponse, error) {
	merged := mergeParams(Params{
		"include": "authors",
		"formats": "html,plaintext",
	}, params)

	key := cache.PagesKey(merged)
	if v, ok := c.cache.Get(key, cache.PoolShort); ok {
		return v.(*PagesResponse), nil
	}

	var resp PagesResponse
	if err := c.get(ctx, "pages", "/pages/", merged, &resp); err != nil {
		return nil, err
	}
	c.cache.Set(key, &resp, cache.PoolShort)
	return &resp, nil
}

// Tags lists tags. The unparameterized call is served from the long cache
// pool; parameterized variants bypass caching.
func (c *Client) Tags(ctx context.Context, params Params) (*TagsResponse, error) {
	cacheable := len(params) == 0
	if cacheable {
		if v, ok := c.cache.Get(cache.TagsKey(), cache.PoolLong); ok {
			return v.(*TagsResponse), nil
		}
	}

	merged := mergeParams(Params{
		"include": "count.posts",
		"limit":   "all",
	}, params)

	var resp TagsResponse
	if err := c.get(ctx, "tags", "/tags/", merged, &resp); err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Set(cache.TagsKey(), &resp, cache.PoolLong)
	}
	return &resp, nil
}

// Authors lists authors with the same caching policy as Tags.
func (c *Client) Authors(ctx context.Context, params Params) (*AuthorsResponse, error) {
	cacheable := len(params) == 0
	if cacheable {
		if v, ok := c.cache.Get(cache.AuthorsKey(), cache.PoolLong); ok {
			return v.(*AuthorsResponse), nil
		}
	}

	merged := mergeParams(Params{
		"include": "count.posts",
		"limit":   "all",
	}, params)

	var resp AuthorsResponse
	if err := c.get(ctx, "authors", "/authors/", merged, &resp); err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Set(cache.AuthorsKey(), &resp, cache.PoolLong)
	}
	return &resp, nil
}

// Settings fetches the public site settings, cached in the long pool.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	if v, ok := c.cache.Get(cache.SettingsKey(), cache.PoolLong); ok {
		return v.(*Settings), nil
	}

	var resp SettingsResponse
	if err := c.get(ctx, "settings", "/settings/", nil, &resp); err != nil {
		return nil, err
	}
	c.cache.Set(cache.SettingsKey(), &resp.Settings, cache.PoolLong)
	return &resp.Settings, nil
}

// PostBySlug fetches a single post.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	key := cache.PostKey(slug)
	if v, ok := c.cache.Get(key, cache.PoolMain); ok {
		return v.(*Post), nil
	}

	var resp PostsResponse
	err := c.get(ctx, "post", "/posts/slug/"+url.PathEscape(slug)+"/", Params{
		"include": "tags,authors",
		"formats": "html,plaintext",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Posts) == 0 {
		return nil, &FetchError{Resource: "post", Err: fmt.Errorf("no post with slug %q", slug)}
	}

	post := &resp.Posts[0]
	c.cache.Set(key, post, cache.PoolMain)
	return post, nil
}

// PageBySlug fetches a single page.
func (c *Client) PageBySlug(ctx context.Context, slug string) (*Page, error) {
	key := cache.PageKey(slug)
	if v, ok := c.cache.Get(key, cache.PoolMain); ok {
		return v.(*Page), nil
	}

	var resp PagesResponse
	err := c.get(ctx, "page", "/pages/slug/"+url.PathEscape(slug)+"/", Params{
		"include": "authors",
		"formats": "html,plaintext",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Pages) == 0 {
		return nil, &FetchError{Resource: "page", Err: fmt.Errorf("no page with slug %q", slug)}
	}

	page := &resp.Pages[0]
	c.cache.Set(key, page, cache.PoolMain)
	return page, nil
}

// AuthorBySlug fetches a single author.
func (c *Client) AuthorBySlug(ctx context.Context, slug string) (*Author, error) {
	key := cache.AuthorKey(slug)
	if v, ok := c.cache.Get(key, cache.PoolMain); ok {
		return v.(*Author), nil
	}

	var resp AuthorsResponse
	err := c.get(ctx, "author", "/authors/slug/"+url.PathEscape(slug)+"/", Params{
		"include": "count.posts",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Authors) == 0 {
		return nil, &FetchError{Resource: "author", Err: fmt.Errorf("no author with slug %q", slug)}
	}

	author := &resp.Authors[0]
	c.cache.Set(key, author, cache.PoolMain)
	return author, nil
}

// LatestPosts returns the newest posts, newest first.
func (c *Client) LatestPosts(ctx context.Context, limit int) (*PostsResponse, error) {
	return c.Posts(ctx, Params{
		"limit": fmt.Sprintf("%d", limit),
		"order": "published_at DESC",
	})
}

// PostsByTag returns the newest posts carrying the given tag.
func (c *Client) PostsByTag(ctx context.Context, tagSlug string, limit int) (*PostsResponse, error) {
	return c.Posts(ctx, Params{
		"filter": "tag:" + tagSlug,
		"limit":  fmt.Sprintf("%d", limit),
		"order":  "published_at DESC",
	})
}
