package domain

import (
	"sort"
	"time"
)

// SelectionPolicy holds the per-profile eligibility switches.
type SelectionPolicy struct {
	// MediaOnly excludes posts without images or video.
	MediaOnly bool

	// AcceptLinkThumbnail makes a link card with a thumbnail count as media.
	AcceptLinkThumbnail bool

	// ExcludeQuotes excludes posts that embed another post.
	ExcludeQuotes bool

	// TimestampStrategies overrides DefaultTimestampStrategies when non-nil.
	TimestampStrategies []TimestampStrategy
}

// SelectCandidates filters feed items down to repost candidates, ordered
// oldest first. Items that are reposts, replies, already seen, older than
// cutoff or without a usable timestamp are dropped, as are quotes and
// text-only posts when the policy says so. The inputs are not modified.
func SelectCandidates(items []FeedItem, seen SeenSet, cutoff time.Time, policy SelectionPolicy) []Candidate {
	candidates := make([]Candidate, 0, len(items))
	picked := make(map[string]struct{}, len(items))

	for i := range items {
		item := &items[i]
		post := &item.Post

		if item.RepostReason != "" || post.IsReply {
			continue
		}
		if policy.ExcludeQuotes && post.Embed.quotes() {
			continue
		}
		if policy.MediaOnly && !post.Embed.hasMedia(policy.AcceptLinkThumbnail) {
			continue
		}
		if seen.Has(post.URI) {
			continue
		}
		if _, dup := picked[post.URI]; dup {
			continue
		}

		created, ok := ExtractTimestamp(post, policy.TimestampStrategies)
		if !ok || created.Before(cutoff) {
			continue
		}

		author := post.AuthorHandle
		if author == "" {
			author = UnknownAuthor
		}

		picked[post.URI] = struct{}{}
		candidates = append(candidates, Candidate{
			AuthorHandle: author,
			URI:          post.URI,
			CID:          post.CID,
			CreatedAt:    created,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates
}

func (e *Embed) quotes() bool {
	return e != nil && e.Quote != ""
}

// hasMedia reports whether the embed carries images or video, either directly
// or inside a record-with-media wrapper.
func (e *Embed) hasMedia(acceptLinkThumbnail bool) bool {
	if e == nil {
		return false
	}
	if e.Images > 0 || e.Video {
		return true
	}
	if e.Media != nil && (e.Media.Images > 0 || e.Media.Video) {
		return true
	}
	if acceptLinkThumbnail && e.External != nil && e.External.HasThumb {
		return true
	}
	return false
}
