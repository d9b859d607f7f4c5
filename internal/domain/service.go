package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RunOptions configures a single run.
type RunOptions struct {
	// FeedLimit is the number of feed items requested from the source.
	FeedLimit int

	// RecencyWindow is the maximum age of an eligible post.
	RecencyWindow time.Duration

	Policy SelectionPolicy
	Limits DispatchLimits
}

// Runner owns the control flow of one run: fetch the feed, load the seen
// set, select candidates and dispatch them.
type Runner struct {
	feed       FeedSource
	seen       SeenStore
	dispatcher *Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner creates a Runner. The dispatcher must persist to the same seen
// store.
func NewRunner(feed FeedSource, seen SeenStore, dispatcher *Dispatcher, logger *slog.Logger) *Runner {
	return &Runner{
		feed:       feed,
		seen:       seen,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run performs a single bounded pass. Feed and store load failures abort the
// run before any action is taken.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (RunSummary, error) {
	var summary RunSummary

	r.logger.Info("fetching feed", "limit", opts.FeedLimit)
	items, err := r.feed.FetchFeed(ctx, opts.FeedLimit)
	if err != nil {
		return summary, fmt.Errorf("fetch feed: %w", err)
	}
	summary.Fetched = len(items)
	r.logger.Info("feed fetched", "items", len(items))

	done, err := r.seen.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("load seen posts: %w", err)
	}
	r.logger.Debug("seen posts loaded", "count", len(done))

	cutoff := r.now().Add(-opts.RecencyWindow)
	candidates := SelectCandidates(items, done, cutoff, opts.Policy)
	summary.Candidates = len(candidates)
	r.logger.Info("candidates selected", "candidates", len(candidates), "cutoff", cutoff)

	if len(candidates) == 0 {
		return summary, nil
	}

	dispatched, err := r.dispatcher.Dispatch(ctx, candidates, done, opts.Limits)
	dispatched.Fetched = summary.Fetched
	dispatched.Candidates = summary.Candidates
	if err != nil {
		return dispatched, fmt.Errorf("dispatch: %w", err)
	}
	return dispatched, nil
}
