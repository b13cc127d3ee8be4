package reconcile

import (
	"context"
	"strings"
)

// Fetcher issues one request to the remote search service.
// Implementations own the transport and must validate the entity id before
// any network round trip. Transport errors are returned as-is; the engine
// performs no retries.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*RawBatch, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (*RawBatch, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (*RawBatch, error) {
	return f(ctx, req)
}

// Qualifier decides whether an item with fully merged usage data counts as a result.
type Qualifier interface {
	Qualifies(item SearchItem) bool
}

// QualifierFunc adapts a function to the Qualifier interface.
type QualifierFunc func(item SearchItem) bool

// Qualifies implements Qualifier.
func (f QualifierFunc) Qualifies(item SearchItem) bool {
	return f(item)
}

// Excluder marks items already known to the caller.
type Excluder interface {
	Excluded(id string) bool
}

// ExcludeSet is an Excluder over a fixed set of identifiers.
type ExcludeSet struct {
	ids       map[string]struct{}
	normalize func(string) string
}

// NewExcludeSet builds a set; normalize (optional) is applied to both the
// stored and the queried identifiers.
func NewExcludeSet(ids []string, normalize func(string) string) *ExcludeSet {
	if normalize == nil {
		normalize = strings.TrimSpace
	}
	set := &ExcludeSet{ids: make(map[string]struct{}, len(ids)), normalize: normalize}
	for _, id := range ids {
		set.ids[normalize(id)] = struct{}{}
	}
	return set
}

// Excluded implements Excluder.
func (s *ExcludeSet) Excluded(id string) bool {
	_, ok := s.ids[s.normalize(id)]
	return ok
}

// Len returns the number of distinct identifiers.
func (s *ExcludeSet) Len() int {
	return len(s.ids)
}

// KeyFunc maps an item identifier into the key space of the alphabetical
// continuation cursors.
type KeyFunc func(id string) string

func identityKey(id string) string { return id }
