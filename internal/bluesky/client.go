package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
)

const (
	defaultPDS = "https://bsky.social"

	// maxPageSize is the largest limit app.bsky.feed.getFeed accepts.
	maxPageSize = 100
)

// Client is a minimal BlueSky/AT Protocol API client covering what the
// autoposter needs: sessions, feed reads, reposts and likes.
type Client struct {
	pds        string
	httpClient *http.Client
	logger     *slog.Logger

	// populated after Login
	accessJwt string
	did       string
	handle    string
}

var _ domain.ActionClient = (*Client)(nil)

// NewClient creates a new BlueSky API client. If pds is empty, it defaults to
// https://bsky.social.
func NewClient(pds string, logger *slog.Logger) *Client {
	if pds == "" {
		pds = defaultPDS
	}
	return &Client{
		pds: pds,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Login authenticates with the PDS and stores the session token. Use an App
// Password, not your account password.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var resp createSessionResponse
	if err := c.post(ctx, "/xrpc/com.atproto.server.createSession", body, &resp); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.accessJwt = resp.AccessJwt
	c.did = resp.DID
	c.handle = resp.Handle
	return nil
}

// DID returns the authenticated user's DID. Only valid after Login.
func (c *Client) DID() string {
	return c.did
}

// Handle returns the authenticated user's handle. Only valid after Login.
func (c *Client) Handle() string {
	return c.handle
}

// GetFeed fetches up to limit items from a feed generator, following the
// cursor across pages of at most 100 items. Items that cannot be decoded are
// logged and skipped.
func (c *Client) GetFeed(ctx context.Context, feedURI string, limit int) ([]domain.FeedItem, error) {
	if c.accessJwt == "" {
		return nil, fmt.Errorf("not authenticated: call Login first")
	}

	var (
		items  []domain.FeedItem
		cursor string
	)
	for len(items) < limit {
		pageSize := min(limit-len(items), maxPageSize)

		q := url.Values{}
		q.Set("feed", feedURI)
		q.Set("limit", fmt.Sprintf("%d", pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page getFeedResponse
		if err := c.get(ctx, "/xrpc/app.bsky.feed.getFeed", q, &page); err != nil {
			return nil, fmt.Errorf("get feed: %w", err)
		}

		for _, raw := range page.Feed {
			item, err := parseFeedViewPost(raw)
			if err != nil {
				c.logger.Warn("skipping undecodable feed item", "uri", feedItemURI(raw), "error", err)
				continue
			}
			items = append(items, item)
		}

		if page.Cursor == "" || len(page.Feed) == 0 {
			break
		}
		cursor = page.Cursor
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Repost creates an app.bsky.feed.repost record in the authenticated user's
// repo.
func (c *Client) Repost(ctx context.Context, ref domain.PostRef, createdAt time.Time) error {
	if err := c.createSubjectRecord(ctx, collectionRepost, ref, createdAt); err != nil {
		return fmt.Errorf("create repost: %w", err)
	}
	return nil
}

// Like creates an app.bsky.feed.like record in the authenticated user's repo.
func (c *Client) Like(ctx context.Context, ref domain.PostRef, createdAt time.Time) error {
	if err := c.createSubjectRecord(ctx, collectionLike, ref, createdAt); err != nil {
		return fmt.Errorf("create like: %w", err)
	}
	return nil
}

func (c *Client) createSubjectRecord(ctx context.Context, collection string, ref domain.PostRef, createdAt time.Time) error {
	if c.accessJwt == "" {
		return fmt.Errorf("not authenticated: call Login first")
	}

	body := createRecordRequest{
		Repo:       c.did,
		Collection: collection,
		Record:     newSubjectRecord(collection, ref, createdAt),
	}

	var resp createRecordResponse
	return c.post(ctx, "/xrpc/com.atproto.repo.createRecord", body, &resp)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	u := c.pds + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pds+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// APIError is a non-2xx XRPC response.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("API error (status %d): %s: %s", e.Status, e.Name, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	var xrpcErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &xrpcErr); err == nil && xrpcErr.Error != "" {
		return &APIError{Status: status, Name: xrpcErr.Error, Message: xrpcErr.Message}
	}
	return &APIError{Status: status, Message: string(body)}
}

type createSessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

type createRecordRequest struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	Record     any    `json:"record"`
}

type createRecordResponse struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type getFeedResponse struct {
	Cursor string            `json:"cursor"`
	Feed   []json.RawMessage `json:"feed"`
}
