package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(actions ActionClient, seen SeenStore) *Dispatcher {
	d := NewDispatcher(actions, seen, discardLogger())
	d.now = func() time.Time { return testNow }
	d.sleep = func(context.Context, time.Duration) error { return nil }
	return d
}

func candidate(uri, author string, age time.Duration) Candidate {
	return Candidate{AuthorHandle: author, URI: uri, CID: "cid-" + uri, CreatedAt: testNow.Add(-age)}
}

// Scenario A: three eligible posts by one author, per-author cap 2.
func TestDispatch_PerAuthorCap(t *testing.T) {
	actions := new(MockActions)
	actions.On("Repost", mock.Anything, mock.Anything, testNow).Return(nil)
	actions.On("Like", mock.Anything, mock.Anything, testNow).Return(nil)
	seen := &memSeenStore{}

	items := []FeedItem{
		mediaPost("at://alice/1", "alice", 3*time.Minute),
		mediaPost("at://alice/2", "alice", 2*time.Minute),
		mediaPost("at://alice/3", "alice", time.Minute),
	}
	candidates := SelectCandidates(items, nil, testNow.Add(-3*time.Hour), strictMedia)
	require.Len(t, candidates, 3)

	summary, err := newTestDispatcher(actions, seen).Dispatch(context.Background(), candidates, NewSeenSet(), DispatchLimits{MaxPerRun: 100, MaxPerAuthor: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Reposted)
	assert.Equal(t, 2, summary.Liked)
	assert.Equal(t, 1, summary.SkippedAuthorCap)
	assert.Equal(t, []string{"at://alice/1", "at://alice/2"}, seen.added)
	actions.AssertNumberOfCalls(t, "Repost", 2)
	actions.AssertNumberOfCalls(t, "Like", 2)
	actions.AssertNotCalled(t, "Repost", mock.Anything, PostRef{URI: "at://alice/3", CID: "cid-at://alice/3"}, mock.Anything)
}

// Scenario D: a failed repost is not liked, not recorded and does not use
// up the per-run budget.
func TestDispatch_RepostFailureContinues(t *testing.T) {
	x := candidate("at://x", "xavier", 2*time.Minute)
	next := candidate("at://next", "nina", time.Minute)

	actions := new(MockActions)
	actions.On("Repost", mock.Anything, x.Ref(), mock.Anything).Return(errors.New("upstream 502"))
	actions.On("Repost", mock.Anything, next.Ref(), mock.Anything).Return(nil)
	actions.On("Like", mock.Anything, next.Ref(), mock.Anything).Return(nil)
	seen := &memSeenStore{}
	done := NewSeenSet()

	summary, err := newTestDispatcher(actions, seen).Dispatch(context.Background(), []Candidate{x, next}, done, DispatchLimits{MaxPerRun: 1, MaxPerAuthor: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Reposted)
	assert.Equal(t, 1, summary.RepostFailed)
	assert.False(t, done.Has(x.URI))
	assert.True(t, done.Has(next.URI))
	assert.Equal(t, []string{next.URI}, seen.added)
	actions.AssertNotCalled(t, "Like", mock.Anything, x.Ref(), mock.Anything)
	actions.AssertExpectations(t)
}

func TestDispatch_LikeFailureKeepsRepost(t *testing.T) {
	c := candidate("at://c", "carol", time.Minute)

	actions := new(MockActions)
	actions.On("Repost", mock.Anything, c.Ref(), mock.Anything).Return(nil)
	actions.On("Like", mock.Anything, c.Ref(), mock.Anything).Return(errors.New("rate limited"))
	seen := &memSeenStore{}

	summary, err := newTestDispatcher(actions, seen).Dispatch(context.Background(), []Candidate{c}, NewSeenSet(), DispatchLimits{MaxPerRun: 10, MaxPerAuthor: 5})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Reposted)
	assert.Equal(t, 0, summary.Liked)
	assert.Equal(t, 1, summary.LikeFailed)
	assert.Equal(t, []string{c.URI}, seen.added)
}

func TestDispatch_StopsAtGlobalCap(t *testing.T) {
	actions := new(MockActions)
	actions.On("Repost", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	actions.On("Like", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var candidates []Candidate
	for i := 0; i < 5; i++ {
		candidates = append(candidates, candidate(fmt.Sprintf("at://p/%d", i), fmt.Sprintf("author%d", i), time.Duration(5-i)*time.Minute))
	}

	summary, err := newTestDispatcher(actions, &memSeenStore{}).Dispatch(context.Background(), candidates, NewSeenSet(), DispatchLimits{MaxPerRun: 3, MaxPerAuthor: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Reposted)
	actions.AssertNumberOfCalls(t, "Repost", 3)
}

func TestDispatch_SeenStoreFailureStops(t *testing.T) {
	actions := new(MockActions)
	actions.On("Repost", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	seen := &memSeenStore{addErr: errors.New("disk full")}
	candidates := []Candidate{candidate("at://a", "a", 2*time.Minute), candidate("at://b", "b", time.Minute)}

	summary, err := newTestDispatcher(actions, seen).Dispatch(context.Background(), candidates, NewSeenSet(), DispatchLimits{MaxPerRun: 10, MaxPerAuthor: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, summary.Reposted)
	actions.AssertNumberOfCalls(t, "Repost", 1)
	actions.AssertNotCalled(t, "Like", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_DelayBetweenActions(t *testing.T) {
	actions := new(MockActions)
	actions.On("Repost", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	actions.On("Like", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	var slept []time.Duration
	d := newTestDispatcher(actions, &memSeenStore{})
	d.sleep = func(_ context.Context, delay time.Duration) error {
		slept = append(slept, delay)
		return nil
	}

	candidates := []Candidate{
		candidate("at://a", "a", 3*time.Minute),
		candidate("at://b", "b", 2*time.Minute),
		candidate("at://c", "c", time.Minute),
	}
	_, err := d.Dispatch(context.Background(), candidates, NewSeenSet(), DispatchLimits{MaxPerRun: 2, MaxPerAuthor: 5, Delay: 2 * time.Second})
	require.NoError(t, err)

	// No wait after the repost that exhausts the run budget.
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)
}

func TestDispatch_CancelledContext(t *testing.T) {
	actions := new(MockActions)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newTestDispatcher(actions, &memSeenStore{}).Dispatch(ctx, []Candidate{candidate("at://a", "a", time.Minute)}, NewSeenSet(), DispatchLimits{MaxPerRun: 10, MaxPerAuthor: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Reposted)
	actions.AssertNotCalled(t, "Repost", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchQuotaProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("reposts never exceed the run and author caps", prop.ForAll(
		func(items []FeedItem, maxPerRun, maxPerAuthor int, failMask uint8) bool {
			candidates := SelectCandidates(items, nil, testNow.Add(-3*time.Hour), SelectionPolicy{})

			actions := &countingActions{failRepost: map[string]bool{}}
			for i, c := range candidates {
				if failMask&(1<<(uint(i)%8)) != 0 {
					actions.failRepost[c.URI] = true
				}
			}

			byURI := make(map[string]string, len(candidates))
			for _, c := range candidates {
				byURI[c.URI] = c.AuthorHandle
			}

			summary, err := newTestDispatcher(actions, &memSeenStore{}).Dispatch(
				context.Background(), candidates, NewSeenSet(),
				DispatchLimits{MaxPerRun: maxPerRun, MaxPerAuthor: maxPerAuthor},
			)
			if err != nil || summary.Reposted != len(actions.reposts) || summary.Reposted > maxPerRun {
				return false
			}

			perAuthor := make(map[string]int)
			for _, ref := range actions.reposts {
				perAuthor[byURI[ref.URI]]++
				if perAuthor[byURI[ref.URI]] > maxPerAuthor {
					return false
				}
			}
			return len(actions.likes) == len(actions.reposts)
		},
		gen.SliceOf(genFeedItem()),
		gen.IntRange(1, 10),
		gen.IntRange(1, 4),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}
