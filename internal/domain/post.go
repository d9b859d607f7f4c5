package domain

import "time"

// UnknownAuthor is used when a post carries neither a handle nor a DID.
const UnknownAuthor = "unknown"

// Post represents a single BlueSky post as seen in a feed.
type Post struct {
	// URI is the AT-URI of the post (e.g. at://did:plc:abc/app.bsky.feed.post/3l3qo2vuowo2b).
	// It is the deduplication key.
	URI string

	// CID is the content identifier of the record.
	CID string

	// AuthorHandle identifies the author for per-author quotas. Sources fall
	// back to the author's DID when no handle is available.
	AuthorHandle string

	// Record holds the string-valued top-level fields of the post record
	// (createdAt and friends).
	Record map[string]string

	// Fields holds string-valued fields of the post view itself, such as
	// indexedAt.
	Fields map[string]string

	// IsReply is true when the record carries a reply reference.
	IsReply bool

	// Embed is the post's attachment, if any.
	Embed *Embed
}

// Ref returns the strong reference used when acting on the post.
func (p *Post) Ref() PostRef {
	return PostRef{URI: p.URI, CID: p.CID}
}

// Embed describes what a post has attached to it. Record-with-media embeds
// carry the quoted post in Quote and the attached media in Media.
type Embed struct {
	// Images is the number of directly attached images.
	Images int

	// Video is true when a video is directly attached.
	Video bool

	// External is set for link cards.
	External *External

	// Quote is the AT-URI of a referenced post. Empty when the embed does not
	// quote anything.
	Quote string

	// Media is the media half of a record-with-media embed.
	Media *Embed
}

// External is a link card.
type External struct {
	URI      string
	HasThumb bool
}

// FeedItem is one entry returned by a feed source.
type FeedItem struct {
	Post Post

	// RepostReason is non-empty when the item is itself a repost of Post.
	RepostReason string
}

// PostRef is a (uri, cid) strong reference.
type PostRef struct {
	URI string
	CID string
}

// Candidate is a post that survived selection and is eligible for dispatch.
type Candidate struct {
	AuthorHandle string
	URI          string
	CID          string
	CreatedAt    time.Time
}

// Ref returns the strong reference for the candidate's post.
func (c Candidate) Ref() PostRef {
	return PostRef{URI: c.URI, CID: c.CID}
}
