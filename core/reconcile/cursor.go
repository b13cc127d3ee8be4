package reconcile

import (
	"fmt"
	"regexp"
	"strings"
)

// SubResource names one of the auxiliary per-item data sets.
type SubResource string

const (
	// SubResourceUsage is the usage-across-sites sub-resource.
	SubResourceUsage SubResource = "usage"
	// SubResourceMetadata is the file metadata (thumbnail) sub-resource.
	SubResourceMetadata SubResource = "metadata"
)

type cursorState uint8

const (
	cursorFresh cursorState = iota
	cursorContinuing
	cursorExhausted
)

// Cursor is the continuation state of one sub-resource.
// The zero value is a fresh cursor.
type Cursor struct {
	state cursorState
	token string
}

// Fresh returns a cursor that starts the sub-resource from the beginning.
func Fresh() Cursor {
	return Cursor{}
}

// Continuing returns a cursor resuming the sub-resource at token.
func Continuing(token string) Cursor {
	return Cursor{state: cursorContinuing, token: token}
}

// Exhausted returns a cursor for a sub-resource that must not be restarted.
func Exhausted() Cursor {
	return Cursor{state: cursorExhausted}
}

// IsFresh reports whether nothing is outstanding for the sub-resource.
func (c Cursor) IsFresh() bool { return c.state == cursorFresh }

// IsContinuing reports whether the sub-resource resumes at Token.
func (c Cursor) IsContinuing() bool { return c.state == cursorContinuing }

// IsExhausted reports whether the sub-resource was declared done.
func (c Cursor) IsExhausted() bool { return c.state == cursorExhausted }

// Token returns the continuation token, or "" unless continuing.
func (c Cursor) Token() string { return c.token }

func (c Cursor) String() string {
	switch c.state {
	case cursorContinuing:
		return "continuing(" + c.token + ")"
	case cursorExhausted:
		return "exhausted"
	default:
		return "fresh"
	}
}

// apply folds a cursor update reported by the service into c.
// An exhausted cursor stays exhausted for the rest of its continuation sequence.
func (c Cursor) apply(update Cursor) (Cursor, error) {
	if !c.IsExhausted() {
		return update, nil
	}
	if update.IsContinuing() {
		return c, fmt.Errorf("%w: exhausted sub-resource resumed at %q", ErrMalformedResponse, update.token)
	}
	return c, nil
}

// CursorPair holds the cursors of both sub-resources.
type CursorPair struct {
	Usage    Cursor
	Metadata Cursor
}

// Apply returns the cursors for the next request given the update carried by a batch.
func (p CursorPair) Apply(update CursorPair) (CursorPair, error) {
	usage, err := p.Usage.apply(update.Usage)
	if err != nil {
		return p, fmt.Errorf("usage cursor: %w", err)
	}
	metadata, err := p.Metadata.apply(update.Metadata)
	if err != nil {
		return p, fmt.Errorf("metadata cursor: %w", err)
	}
	return CursorPair{Usage: usage, Metadata: metadata}, nil
}

// Reset ends the current continuation sequence.
func (p CursorPair) Reset() CursorPair {
	return CursorPair{}
}

// IsFresh reports whether no continuation sequence is open.
func (p CursorPair) IsFresh() bool {
	return p.Usage.IsFresh() && p.Metadata.IsFresh()
}

// Active lists the sub-resources that have not been declared exhausted.
func (p CursorPair) Active() []SubResource {
	active := make([]SubResource, 0, 2)
	if !p.Usage.IsExhausted() {
		active = append(active, SubResourceUsage)
	}
	if !p.Metadata.IsExhausted() {
		active = append(active, SubResourceMetadata)
	}
	return active
}

var (
	usageTokenPattern    = regexp.MustCompile(`^(.+?)\|([^|]*)\|([^|]*)$`)
	metadataTokenPattern = regexp.MustCompile(`^(.+?)\|([^|]+?)$`)
	trailingDigits       = regexp.MustCompile(`[0-9]+$`)
)

// fastForwardID sorts after any real page id within the same site bucket.
const fastForwardID = "999999999999999"

// UsageCursorKey extracts the item key from a usage token ("key|site|pageid").
func UsageCursorKey(token string) (string, error) {
	m := usageTokenPattern.FindStringSubmatch(token)
	if m == nil {
		return "", fmt.Errorf("%w: usage continuation %q", ErrMalformedResponse, token)
	}
	return m[1], nil
}

// MetadataCursorKey extracts the item key from a metadata token ("key|timestamp").
func MetadataCursorKey(token string) (string, error) {
	m := metadataTokenPattern.FindStringSubmatch(token)
	if m == nil {
		return "", fmt.Errorf("%w: metadata continuation %q", ErrMalformedResponse, token)
	}
	return m[1], nil
}

// FastForwardUsage moves a usage cursor past the remainder of the site bucket
// it points into. Only the site list matters for qualification, so the other
// pages of a heavily used site need not be fetched.
// Assumes the service groups usage entries contiguously per site.
func FastForwardUsage(c Cursor) Cursor {
	if !c.IsContinuing() || !strings.Contains(c.token, "|") {
		return c
	}
	return Continuing(trailingDigits.ReplaceAllString(c.token, fastForwardID))
}
