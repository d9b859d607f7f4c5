package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DispatchLimits bounds a single dispatch pass.
type DispatchLimits struct {
	// MaxPerRun is the maximum number of successful reposts in one pass.
	MaxPerRun int

	// MaxPerAuthor is the maximum number of successful reposts of any one
	// author in one pass.
	MaxPerAuthor int

	// Delay is waited after each successful repost. Zero disables it.
	Delay time.Duration
}

// Dispatcher reposts and likes candidates under per-run and per-author
// quotas, recording every successful repost in the seen store.
type Dispatcher struct {
	actions ActionClient
	seen    SeenStore
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewDispatcher creates a Dispatcher acting through actions and persisting to
// seen.
func NewDispatcher(actions ActionClient, seen SeenStore, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		actions: actions,
		seen:    seen,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		sleep:   sleepContext,
	}
}

// Dispatch processes candidates in order. Per-action failures are logged,
// counted and skipped. The returned error is non-nil only when ctx is
// cancelled or the seen store cannot be written; the summary is valid either
// way.
//
// done is updated in place with every successfully reposted URI.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []Candidate, done SeenSet, limits DispatchLimits) (RunSummary, error) {
	var summary RunSummary
	perAuthor := make(map[string]int)

	for _, c := range candidates {
		if summary.Reposted >= limits.MaxPerRun {
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if perAuthor[c.AuthorHandle] >= limits.MaxPerAuthor {
			summary.SkippedAuthorCap++
			d.logger.Debug("author limit reached, skipping", "author", c.AuthorHandle, "uri", c.URI)
			continue
		}
		// A URI already done this pass would double-act; the selector never
		// produces one, but callers may hand us their own list.
		if done.Has(c.URI) {
			continue
		}

		ref := c.Ref()
		if err := d.actions.Repost(ctx, ref, d.now()); err != nil {
			summary.RepostFailed++
			d.logger.Warn("repost failed", "author", c.AuthorHandle, "uri", c.URI, "error", err)
			continue
		}

		summary.Reposted++
		perAuthor[c.AuthorHandle]++
		done.Add(c.URI)
		d.logger.Info("reposted", "author", c.AuthorHandle, "uri", c.URI)

		if err := d.seen.Add(ctx, c.URI); err != nil {
			return summary, fmt.Errorf("record %s as seen: %w", c.URI, err)
		}

		if err := d.actions.Like(ctx, ref, d.now()); err != nil {
			summary.LikeFailed++
			d.logger.Warn("like failed", "author", c.AuthorHandle, "uri", c.URI, "error", err)
		} else {
			summary.Liked++
			d.logger.Info("liked", "author", c.AuthorHandle, "uri", c.URI)
		}

		if limits.Delay > 0 && summary.Reposted < limits.MaxPerRun {
			if err := d.sleep(ctx, limits.Delay); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
