package search

import (
	"context"

	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
)

// ContentSource abstracts the Ghost client calls the index builder needs.
type ContentSource interface {
	Posts(ctx context.Context, params ghost.Params) (*ghost.PostsResponse, error)
	Pages(ctx context.Context, params ghost.Params) (*ghost.PagesResponse, error)
	Tags(ctx context.Context, params ghost.Params) (*ghost.TagsResponse, error)
	Authors(ctx context.Context, params ghost.Params) (*ghost.AuthorsResponse, error)
}
