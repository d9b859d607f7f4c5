package firehose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/blackmichael/bluesky-autoposter/internal/bluesky"
	"github.com/blackmichael/bluesky-autoposter/internal/domain"
	"github.com/gorilla/websocket"
)

const collectionPost = "app.bsky.feed.post"

// DefaultIdleGap is how long the replay waits for another event before it
// treats the stream as caught up. Accounts that posted nothing since the
// cursor never produce an event at or past the live time.
const DefaultIdleGap = 3 * time.Second

// Collector replays the Jetstream firehose for a fixed set of accounts and
// returns their recent posts as feed items. It stands in for a feed
// generator when the accounts to boost are known up front.
type Collector struct {
	url     string
	dids    []string
	window  time.Duration
	timeout time.Duration
	idle    time.Duration
	logger  *slog.Logger
	dialer  *websocket.Dialer
	now     func() time.Time
}

var _ domain.FeedSource = (*Collector)(nil)

// NewCollector creates a Collector that replays the last window of posts by
// dids. timeout bounds a single FetchFeed call.
func NewCollector(jetstreamURL string, dids []string, window, timeout time.Duration, logger *slog.Logger) (*Collector, error) {
	if len(dids) == 0 {
		return nil, errors.New("at least one DID is required")
	}
	if _, err := url.Parse(jetstreamURL); err != nil {
		return nil, fmt.Errorf("parse jetstream url: %w", err)
	}
	return &Collector{
		url:     jetstreamURL,
		dids:    dids,
		window:  window,
		timeout: timeout,
		idle:    DefaultIdleGap,
		logger:  logger,
		dialer:  websocket.DefaultDialer,
		now:     time.Now,
	}, nil
}

func (c *Collector) buildURL(cursor int64) string {
	u, _ := url.Parse(c.url)
	q := u.Query()
	q.Add("wantedCollections", collectionPost)
	for _, did := range c.dids {
		q.Add("wantedDids", did)
	}
	q.Set("cursor", fmt.Sprintf("%d", cursor))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchFeed replays events from now-window until the stream reaches the time
// the call started, keeping the most recent limit posts. Posts deleted during
// the replay are dropped. The replay also ends when no event arrives within
// the idle gap or when the timeout passes; neither is an error and whatever
// was collected is returned. Cancelling ctx closes the connection and
// returns ctx.Err().
func (c *Collector) FetchFeed(ctx context.Context, limit int) ([]domain.FeedItem, error) {
	startedAt := c.now()
	liveUS := startedAt.UnixMicro()

	wsURL := c.buildURL(startedAt.Add(-c.window).UnixMicro())
	c.logger.Info("connecting to jetstream", "url", wsURL)

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial jetstream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	deadline := time.Now().Add(c.timeout)

	var (
		order  []string
		byURI  = make(map[string]domain.FeedItem)
		events int64
	)

	for {
		readBy := time.Now().Add(c.idle)
		if deadline.Before(readBy) {
			readBy = deadline
		}
		if err := conn.SetReadDeadline(readBy); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if time.Now().Before(deadline) {
					c.logger.Debug("jetstream idle, treating replay as caught up", "events", events, "idle", c.idle)
				} else {
					c.logger.Debug("jetstream replay timed out before catching up", "events", events, "posts", len(byURI))
				}
				break
			}
			return nil, fmt.Errorf("read message: %w", err)
		}

		event, err := parseEvent(message)
		if err != nil {
			c.logger.Error("failed to parse event", "error", err)
			continue
		}
		events++

		if event.TimeUS >= liveUS {
			c.logger.Debug("jetstream replay caught up", "events", events)
			break
		}
		if event.Kind != "commit" || event.Commit == nil || event.Commit.Collection != collectionPost {
			continue
		}

		uri := event.uri()
		switch event.Commit.Operation {
		case "create":
			item, err := toFeedItem(event, uri)
			if err != nil {
				c.logger.Warn("skipping undecodable post", "uri", uri, "error", err)
				continue
			}
			if _, exists := byURI[uri]; !exists {
				order = append(order, uri)
			}
			byURI[uri] = item

		case "delete":
			delete(byURI, uri)
		}
	}

	items := make([]domain.FeedItem, 0, len(byURI))
	for _, uri := range order {
		if item, ok := byURI[uri]; ok {
			items = append(items, item)
		}
	}
	if len(items) > limit {
		items = items[len(items)-limit:]
	}

	c.logger.Info("jetstream replay complete", "events", events, "posts", len(items))
	return items, nil
}

func toFeedItem(event *jetstreamEvent, uri string) (domain.FeedItem, error) {
	rec, err := bluesky.DecodePostRecord(event.Commit.Record)
	if err != nil {
		return domain.FeedItem{}, err
	}

	// Jetstream does not carry handles; the DID is just as stable for
	// per-author limits.
	return domain.FeedItem{
		Post: domain.Post{
			URI:          uri,
			CID:          event.Commit.CID,
			AuthorHandle: event.DID,
			Record:       rec.Fields,
			Fields:       map[string]string{"indexedAt": time.UnixMicro(event.TimeUS).UTC().Format(time.RFC3339Nano)},
			IsReply:      rec.IsReply,
			Embed:        rec.Embed,
		},
	}, nil
}
