package domain

import "sort"

// SeenSet is the set of post URIs already reposted by this account.
type SeenSet map[string]struct{}

// NewSeenSet builds a set from the given URIs, ignoring empty strings.
func NewSeenSet(uris ...string) SeenSet {
	s := make(SeenSet, len(uris))
	for _, uri := range uris {
		s.Add(uri)
	}
	return s
}

// Has reports whether uri is in the set. A nil set is empty.
func (s SeenSet) Has(uri string) bool {
	_, ok := s[uri]
	return ok
}

// Add inserts uri into the set.
func (s SeenSet) Add(uri string) {
	if uri == "" {
		return
	}
	s[uri] = struct{}{}
}

// Sorted returns the URIs in lexical order.
func (s SeenSet) Sorted() []string {
	uris := make([]string, 0, len(s))
	for uri := range s {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// RunSummary reports what a single run did.
type RunSummary struct {
	Fetched          int
	Candidates       int
	Reposted         int
	Liked            int
	RepostFailed     int
	LikeFailed       int
	SkippedAuthorCap int
}
