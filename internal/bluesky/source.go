package bluesky

import (
	"context"
	"log/slog"
	"time"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
)

// FeedSource reads a single feed generator through an authenticated Client.
type FeedSource struct {
	client  *Client
	feedURI string
}

var _ domain.FeedSource = (*FeedSource)(nil)

// NewFeedSource creates a FeedSource for the feed generator at feedURI.
func NewFeedSource(client *Client, feedURI string) *FeedSource {
	return &FeedSource{client: client, feedURI: feedURI}
}

// FetchFeed implements domain.FeedSource.
func (s *FeedSource) FetchFeed(ctx context.Context, limit int) ([]domain.FeedItem, error) {
	return s.client.GetFeed(ctx, s.feedURI, limit)
}

// DryRunClient logs the actions it would take instead of taking them.
type DryRunClient struct {
	logger *slog.Logger
}

var _ domain.ActionClient = (*DryRunClient)(nil)

// NewDryRunClient creates a DryRunClient.
func NewDryRunClient(logger *slog.Logger) *DryRunClient {
	return &DryRunClient{logger: logger}
}

func (c *DryRunClient) Repost(_ context.Context, ref domain.PostRef, createdAt time.Time) error {
	c.logger.Info("dry run: would repost", "uri", ref.URI, "cid", ref.CID, "created_at", createdAt)
	return nil
}

func (c *DryRunClient) Like(_ context.Context, ref domain.PostRef, createdAt time.Time) error {
	c.logger.Info("dry run: would like", "uri", ref.URI, "cid", ref.CID, "created_at", createdAt)
	return nil
}
