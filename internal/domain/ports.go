package domain

import (
	"context"
	"time"
)

// FeedSource fetches a bounded list of feed items.
type FeedSource interface {
	// FetchFeed returns at most limit items. Items may be in any temporal
	// order.
	FetchFeed(ctx context.Context, limit int) ([]FeedItem, error)
}

// ActionClient performs actions on behalf of the logged-in account.
type ActionClient interface {
	// Repost creates an app.bsky.feed.repost record for ref.
	Repost(ctx context.Context, ref PostRef, createdAt time.Time) error

	// Like creates an app.bsky.feed.like record for ref.
	Like(ctx context.Context, ref PostRef, createdAt time.Time) error
}

// SeenStore persists the set of post URIs that have already been acted on.
type SeenStore interface {
	// Load reads the full set. A store that has never been written to
	// returns an empty set.
	Load(ctx context.Context) (SeenSet, error)

	// Add records a single URI. Adding a URI twice is not an error.
	Add(ctx context.Context, uri string) error

	// Close releases any resources held by the store.
	Close() error
}
