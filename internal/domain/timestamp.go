package domain

import "time"

// TimestampStrategy extracts the creation time of a post. It returns false
// when the post does not carry a usable value.
type TimestampStrategy func(p *Post) (time.Time, bool)

// DefaultTimestampStrategies are tried in order; the first that yields a
// parseable time wins.
var DefaultTimestampStrategies = []TimestampStrategy{
	FieldTimestamp("createdAt"),
	FieldTimestamp("indexedAt"),
	FieldTimestamp("created_at"),
	FieldTimestamp("timestamp"),
}

// timestampLayouts are accepted in order. Layouts without a zone are read as
// UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// FieldTimestamp returns a strategy that reads the named field from the post
// record, falling back to the post view.
func FieldTimestamp(name string) TimestampStrategy {
	return func(p *Post) (time.Time, bool) {
		if t, ok := ParseTimestamp(p.Record[name]); ok {
			return t, true
		}
		return ParseTimestamp(p.Fields[name])
	}
}

// ExtractTimestamp runs the strategies in order. A nil slice means
// DefaultTimestampStrategies.
func ExtractTimestamp(p *Post, strategies []TimestampStrategy) (time.Time, bool) {
	if strategies == nil {
		strategies = DefaultTimestampStrategies
	}
	for _, strategy := range strategies {
		if t, ok := strategy(p); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTimestamp parses an ISO 8601 timestamp as written by BlueSky clients.
// Malformed values are reported as absent rather than as errors.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
