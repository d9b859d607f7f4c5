package domain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mediaPost builds an eligible post with one image, created age ago.
func mediaPost(uri, author string, age time.Duration) FeedItem {
	return FeedItem{
		Post: Post{
			URI:          uri,
			CID:          "cid-" + uri,
			AuthorHandle: author,
			Record:       map[string]string{"createdAt": testNow.Add(-age).Format(time.RFC3339)},
			Embed:        &Embed{Images: 1},
		},
	}
}

// MockActions is a testify mock of ActionClient.
type MockActions struct {
	mock.Mock
}

func (m *MockActions) Repost(ctx context.Context, ref PostRef, createdAt time.Time) error {
	args := m.Called(ctx, ref, createdAt)
	return args.Error(0)
}

func (m *MockActions) Like(ctx context.Context, ref PostRef, createdAt time.Time) error {
	args := m.Called(ctx, ref, createdAt)
	return args.Error(0)
}

// memSeenStore is an in-memory SeenStore that records Add calls.
type memSeenStore struct {
	initial []string
	added   []string
	addErr  error
	loadErr error
}

func (s *memSeenStore) Load(context.Context) (SeenSet, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return NewSeenSet(append(append([]string{}, s.initial...), s.added...)...), nil
}

func (s *memSeenStore) Add(_ context.Context, uri string) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, uri)
	return nil
}

func (s *memSeenStore) Close() error { return nil }

// fakeFeed is a FeedSource returning a fixed slice.
type fakeFeed struct {
	items []FeedItem
	err   error
	limit int
}

func (f *fakeFeed) FetchFeed(_ context.Context, limit int) ([]FeedItem, error) {
	f.limit = limit
	return f.items, f.err
}

// countingActions is a hand-rolled ActionClient for property tests, where
// mock expectations would get in the way.
type countingActions struct {
	failRepost map[string]bool
	reposts    []PostRef
	likes      []PostRef
}

func (a *countingActions) Repost(_ context.Context, ref PostRef, _ time.Time) error {
	if a.failRepost[ref.URI] {
		return fmt.Errorf("repost %s: upstream unavailable", ref.URI)
	}
	a.reposts = append(a.reposts, ref)
	return nil
}

func (a *countingActions) Like(_ context.Context, ref PostRef, _ time.Time) error {
	a.likes = append(a.likes, ref)
	return nil
}

var testAuthors = []interface{}{"alice.bsky.social", "bob.bsky.social", "carol.bsky.social", ""}

// genFeedItem generates feed items around testNow covering every exclusion
// rule.
func genFeedItem() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 30),
		gen.OneConstOf(testAuthors...),
		gen.IntRange(-48*60, 30),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(0, 5),
		gen.IntRange(0, 6),
	).Map(func(vals []interface{}) FeedItem {
		id := vals[0].(int)
		author := vals[1].(string)
		offset := time.Duration(vals[2].(int)) * time.Minute
		repost := vals[3].(bool)
		reply := vals[4].(bool)
		embedKind := vals[5].(int)
		stampKind := vals[6].(int)

		post := Post{
			URI:          fmt.Sprintf("at://did:plc:gen/app.bsky.feed.post/%d", id),
			CID:          fmt.Sprintf("cid%d", id),
			AuthorHandle: author,
			Record:       map[string]string{},
			Fields:       map[string]string{},
			IsReply:      reply,
		}

		created := testNow.Add(offset)
		switch stampKind {
		case 0:
			post.Record["createdAt"] = "not-a-time"
		case 1:
			// no timestamp anywhere
		case 2:
			post.Fields["indexedAt"] = created.Format(time.RFC3339Nano)
		default:
			post.Record["createdAt"] = created.Format(time.RFC3339)
		}

		switch embedKind {
		case 1:
			post.Embed = &Embed{Images: 2}
		case 2:
			post.Embed = &Embed{Video: true}
		case 3:
			post.Embed = &Embed{Quote: "at://did:plc:other/app.bsky.feed.post/q"}
		case 4:
			post.Embed = &Embed{Quote: "at://did:plc:other/app.bsky.feed.post/q", Media: &Embed{Images: 1}}
		case 5:
			post.Embed = &Embed{External: &External{URI: "https://example.com", HasThumb: true}}
		}

		item := FeedItem{Post: post}
		if repost {
			item.RepostReason = "app.bsky.feed.defs#reasonRepost"
		}
		return item
	})
}
