package bluesky

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackmichael/bluesky-autoposter/internal/domain"
)

// unresolvedQuote stands in for a quoted record whose URI could not be read.
const unresolvedQuote = "at://unresolved"

// feedViewPost is a single app.bsky.feed.defs#feedViewPost.
type feedViewPost struct {
	Post   json.RawMessage `json:"post"`
	Reason *struct {
		Type string `json:"$type"`
	} `json:"reason,omitempty"`
}

// postView is the subset of app.bsky.feed.defs#postView we read.
type postView struct {
	URI    string `json:"uri"`
	CID    string `json:"cid"`
	Author struct {
		DID    string `json:"did"`
		Handle string `json:"handle"`
	} `json:"author"`
	Record json.RawMessage `json:"record"`
	Embed  *embedJSON      `json:"embed,omitempty"`
}

// embedJSON covers both the hydrated view form (app.bsky.embed.*#view) and
// the raw record form of every embed type.
type embedJSON struct {
	Type     string            `json:"$type"`
	Images   []json.RawMessage `json:"images"`
	Video    json.RawMessage   `json:"video"`
	Playlist string            `json:"playlist"`
	External *struct {
		URI   string          `json:"uri"`
		Thumb json.RawMessage `json:"thumb"`
	} `json:"external"`
	Record json.RawMessage `json:"record"`
	Media  *embedJSON      `json:"media"`
}

// PostRecord is what the selector needs from an app.bsky.feed.post record.
type PostRecord struct {
	// Fields holds every top-level string field of the record.
	Fields  map[string]string
	IsReply bool
	Embed   *domain.Embed
}

// DecodePostRecord reads an app.bsky.feed.post record.
func DecodePostRecord(raw json.RawMessage) (PostRecord, error) {
	var rec PostRecord
	if isEmptyJSON(raw) {
		return rec, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return rec, fmt.Errorf("unmarshal record: %w", err)
	}

	rec.Fields = stringFields(top)
	rec.IsReply = !isEmptyJSON(top["reply"])

	if e, ok := top["embed"]; ok && !isEmptyJSON(e) {
		var ej embedJSON
		if err := json.Unmarshal(e, &ej); err != nil {
			return rec, fmt.Errorf("unmarshal record embed: %w", err)
		}
		rec.Embed = ej.toDomain()
	}
	return rec, nil
}

// feedItemURI digs the post URI out of a feed item for logging, even when
// the rest of the item does not decode.
func feedItemURI(raw json.RawMessage) string {
	var v struct {
		Post struct {
			URI string `json:"uri"`
		} `json:"post"`
	}
	_ = json.Unmarshal(raw, &v)
	return v.Post.URI
}

func parseFeedViewPost(raw json.RawMessage) (domain.FeedItem, error) {
	var item domain.FeedItem

	var fv feedViewPost
	if err := json.Unmarshal(raw, &fv); err != nil {
		return item, fmt.Errorf("unmarshal feed view: %w", err)
	}
	if fv.Reason != nil {
		item.RepostReason = fv.Reason.Type
		if item.RepostReason == "" {
			item.RepostReason = "reason"
		}
	}

	var pv postView
	if err := json.Unmarshal(fv.Post, &pv); err != nil {
		return item, fmt.Errorf("unmarshal post view: %w", err)
	}
	var viewFields map[string]json.RawMessage
	if err := json.Unmarshal(fv.Post, &viewFields); err != nil {
		return item, fmt.Errorf("unmarshal post view fields: %w", err)
	}

	rec, err := DecodePostRecord(pv.Record)
	if err != nil {
		return item, fmt.Errorf("post %s: %w", pv.URI, err)
	}

	author := pv.Author.Handle
	if author == "" {
		author = pv.Author.DID
	}

	item.Post = domain.Post{
		URI:          pv.URI,
		CID:          pv.CID,
		AuthorHandle: author,
		Record:       rec.Fields,
		Fields:       stringFields(viewFields),
		IsReply:      rec.IsReply,
		Embed:        rec.Embed,
	}
	// The hydrated view is authoritative when present.
	if pv.Embed != nil {
		item.Post.Embed = pv.Embed.toDomain()
	}
	return item, nil
}

func (e *embedJSON) toDomain() *domain.Embed {
	if e == nil {
		return nil
	}

	out := &domain.Embed{
		Images: len(e.Images),
		Video: strings.HasPrefix(e.Type, "app.bsky.embed.video") ||
			!isEmptyJSON(e.Video) || e.Playlist != "",
	}
	if e.External != nil {
		out.External = &domain.External{
			URI:      e.External.URI,
			HasThumb: !isEmptyJSON(e.External.Thumb),
		}
	}
	if !isEmptyJSON(e.Record) {
		out.Quote = quotedURI(e.Record)
	}
	if e.Media != nil {
		out.Media = e.Media.toDomain()
	}
	return out
}

// quotedURI digs the quoted post's URI out of either a record embed
// ({uri, cid} or a view record) or a record-with-media wrapper
// ({record: {...}}).
func quotedURI(raw json.RawMessage) string {
	var ref struct {
		URI    string          `json:"uri"`
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return unresolvedQuote
	}
	if ref.URI != "" {
		return ref.URI
	}
	if !isEmptyJSON(ref.Record) {
		return quotedURI(ref.Record)
	}
	return unresolvedQuote
}

func stringFields(fields map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		var s string
		if err := json.Unmarshal(v, &s); err == nil && s != "" {
			out[k] = s
		}
	}
	return out
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("null")) ||
		bytes.Equal(trimmed, []byte(`""`)) ||
		bytes.Equal(trimmed, []byte("{}"))
}
