package bluesky

import (
	"time"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
)

const (
	collectionRepost = "app.bsky.feed.repost"
	collectionLike   = "app.bsky.feed.like"
)

// strongRef is a reference to a specific version of a record.
type strongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// subjectRecord is the record body shared by app.bsky.feed.repost and
// app.bsky.feed.like.
type subjectRecord struct {
	Type      string    `json:"$type"`
	Subject   strongRef `json:"subject"`
	CreatedAt string    `json:"createdAt"`
}

func newSubjectRecord(collection string, ref domain.PostRef, createdAt time.Time) subjectRecord {
	return subjectRecord{
		Type:      collection,
		Subject:   strongRef{URI: ref.URI, CID: ref.CID},
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}
