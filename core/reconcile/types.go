package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse marks a remote response missing expected fields or
	// carrying continuation state that cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed search response")

	// ErrInvalidQuery marks a query that cannot be run.
	ErrInvalidQuery = errors.New("invalid query")
)

// UsageEntry records one use of an item on a site.
type UsageEntry struct {
	// Title is the page on Site that uses the item.
	Title string `json:"title"`

	// Site is the host of the using site, e.g. "en.wikipedia.org".
	Site string `json:"wiki"`

	// URL links to the using page.
	URL string `json:"url,omitempty"`
}

// MetadataEntry records one revision's file information.
type MetadataEntry struct {
	// URL is the original file URL.
	URL string `json:"url"`

	// ThumbURL is a thumbnail URL at the requested width, if any.
	ThumbURL string `json:"thumburl,omitempty"`

	// ThumbWidth is the thumbnail width in pixels.
	ThumbWidth int `json:"thumbwidth,omitempty"`

	// ThumbHeight is the thumbnail height in pixels.
	ThumbHeight int `json:"thumbheight,omitempty"`
}

// SearchItem is one ranked search result and the sub-resource data known for it.
type SearchItem struct {
	// ID is the unique identifier of the item (its prefixed title).
	ID string `json:"id"`

	// RelevanceIndex is the authoritative rank assigned by the search service.
	RelevanceIndex int `json:"index"`

	// Label is the item's label in the requested language, if any.
	Label string `json:"label,omitempty"`

	// Usage is the merged usage sub-resource data.
	Usage []UsageEntry `json:"usage"`

	// Metadata is the merged metadata sub-resource data.
	Metadata []MetadataEntry `json:"metadata"`
}

// Request describes one round trip to the search service.
type Request struct {
	// EntityID is the subject the search is centered on.
	EntityID string

	// Language selects labels.
	Language string

	// Size is the number of ranked items requested.
	Size int

	// Offset is the rank of the first requested item.
	Offset int

	// Cursors holds the continuation state of both sub-resources.
	Cursors CursorPair
}

// Active lists the sub-resources still being continued or started.
func (r Request) Active() []SubResource {
	return r.Cursors.Active()
}

// RawBatch is the decoded response of one round trip.
type RawBatch struct {
	// Items are the ranked items; not guaranteed to be in relevance order.
	Items []SearchItem

	// Cursors is the continuation state reported by the service.
	Cursors CursorPair
}

// pendingFragments is the partial sub-resource data carried for a deferred item.
type pendingFragments struct {
	label    string
	usage    []UsageEntry
	metadata []MetadataEntry
}

// PendingStore holds the sub-resource data of deferred items by identifier.
type PendingStore struct {
	entries map[string]pendingFragments
}

// NewPendingStore creates an empty store.
func NewPendingStore() *PendingStore {
	return &PendingStore{entries: make(map[string]pendingFragments)}
}

// Put stores the currently known fragments of a deferred item.
func (p *PendingStore) Put(item SearchItem) {
	p.entries[item.ID] = pendingFragments{label: item.Label, usage: item.Usage, metadata: item.Metadata}
}

// MergeInto prepends the stored fragments of item and removes the entry.
// A stored label fills in for a missing one; continuation pages carry none.
func (p *PendingStore) MergeInto(item *SearchItem) {
	frag, ok := p.entries[item.ID]
	if !ok {
		return
	}
	delete(p.entries, item.ID)
	if item.Label == "" {
		item.Label = frag.label
	}
	item.Usage = append(append([]UsageEntry{}, frag.usage...), item.Usage...)
	item.Metadata = append(append([]MetadataEntry{}, frag.metadata...), item.Metadata...)
}

// Has reports whether id has a pending entry.
func (p *PendingStore) Has(id string) bool {
	_, ok := p.entries[id]
	return ok
}

// Len returns the number of deferred items.
func (p *PendingStore) Len() int {
	return len(p.entries)
}

// FetchBudget governs how many more items to request and how far to page.
type FetchBudget struct {
	// Offset is the rank of the first unresolved item.
	Offset int `json:"offset"`

	// RequestSize is the remaining over-fetch allowance.
	RequestSize int `json:"request_size"`

	// OffsetCeiling is the highest offset the engine may request.
	OffsetCeiling int `json:"offset_ceiling"`
}

// NewFetchBudget derives the initial budget for a query.
func NewFetchBudget(limit, excluded int, opts Options) FetchBudget {
	return FetchBudget{
		Offset:        0,
		RequestSize:   opts.OverFetchFactor*limit + excluded,
		OffsetCeiling: opts.CeilingFactor*limit + excluded,
	}
}

// Exceeded reports whether the offset passed the ceiling.
func (b FetchBudget) Exceeded() bool {
	return b.Offset > b.OffsetCeiling
}

// NextSize returns the size of the next request, capped at maxSize.
func (b FetchBudget) NextSize(maxSize int) int {
	size := min(b.RequestSize, maxSize)
	if size < 1 {
		size = 1
	}
	return size
}

// Query is a caller request for qualified items.
type Query struct {
	// EntityID is the subject to search media for.
	EntityID string `json:"entity_id"`

	// Language selects labels.
	Language string `json:"language"`

	// Limit is the target number of qualified items.
	Limit int `json:"limit"`

	// Exclude lists identifiers already known to the caller.
	Exclude []string `json:"exclude,omitempty"`
}

// Validate checks the parts of a query the engine relies on.
// Entity id grammar is the Fetcher's concern.
func (q Query) Validate() error {
	if q.EntityID == "" {
		return fmt.Errorf("%w: entity id is required", ErrInvalidQuery)
	}
	if q.Limit < 1 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidQuery, q.Limit)
	}
	return nil
}
