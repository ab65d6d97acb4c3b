package announcer

import (
	"context"

	"github.com/twhitfield/ghost-discord-bot/internal/ghost"
	"github.com/twhitfield/ghost-discord-bot/internal/store"
)

// ContentSource abstracts the Ghost client call the announcer needs.
type ContentSource interface {
	LatestPosts(ctx context.Context, limit int) (*ghost.PostsResponse, error)
}

// StateStore abstracts the durable state behind announcement idempotency.
type StateStore interface {
	GetLastPosted(ctx context.Context) (*store.LastPosted, error)
	SaveLastPosted(ctx context.Context, lp store.LastPosted) error
	GetSetting(ctx context.Context, key string) (string, error)
	Close() error
}

// PostNotifier abstracts the delivery sink.
type PostNotifier interface {
	AnnouncePost(ctx context.Context, channelID string, post ghost.Post) error
}
