package media

import (
	"encoding/json"
	"fmt"
	"strings"

	"media-reconciler/core/reconcile"
	"media-reconciler/core/utils"
)

// APIError is an error reported in the body of an API response.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

// apiResponse is the formatversion=2 envelope of a query.
type apiResponse struct {
	BatchComplete bool           `json:"batchcomplete"`
	Continue      map[string]any `json:"continue"`
	Query         *apiQuery      `json:"query"`
	Error         *APIError      `json:"error"`
}

type apiQuery struct {
	Pages []apiPage `json:"pages"`
}

type apiPage struct {
	PageID      int              `json:"pageid"`
	Namespace   int              `json:"ns"`
	Title       string           `json:"title"`
	Index       *int             `json:"index"`
	Missing     bool             `json:"missing"`
	EntityTerms *apiEntityTerms  `json:"entityterms"`
	GlobalUsage []apiGlobalUsage `json:"globalusage"`
	ImageInfo   []apiImageInfo   `json:"imageinfo"`
	PageProps   map[string]any   `json:"pageprops"`
}

type apiEntityTerms struct {
	Label []string `json:"label"`
}

type apiGlobalUsage struct {
	Title string `json:"title"`
	Wiki  string `json:"wiki"`
	URL   string `json:"url"`
}

type apiImageInfo struct {
	URL         string `json:"url"`
	ThumbURL    string `json:"thumburl"`
	ThumbWidth  int    `json:"thumbwidth"`
	ThumbHeight int    `json:"thumbheight"`
}

// continuation props, as named by the API's continue marker
const (
	propEntityTerms = "entityterms"
	propGlobalUsage = "globalusage"
	propImageInfo   = "imageinfo"
)

// decodeSearch parses a search response body into a raw batch.
func decodeSearch(body []byte) (*reconcile.RawBatch, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", reconcile.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	batch := &reconcile.RawBatch{Cursors: decodeCursors(resp.Continue)}
	if resp.Query == nil {
		return batch, nil
	}

	for i, page := range resp.Query.Pages {
		if page.Title == "" || page.Index == nil {
			return nil, fmt.Errorf("%w: page %d lacks title or index", reconcile.ErrMalformedResponse, i)
		}
		item := reconcile.SearchItem{
			ID:             page.Title,
			RelevanceIndex: *page.Index,
		}
		if page.EntityTerms != nil && len(page.EntityTerms.Label) > 0 {
			item.Label = page.EntityTerms.Label[0]
		}
		for _, gu := range page.GlobalUsage {
			item.Usage = append(item.Usage, reconcile.UsageEntry{Title: gu.Title, Site: gu.Wiki, URL: gu.URL})
		}
		for _, ii := range page.ImageInfo {
			item.Metadata = append(item.Metadata, reconcile.MetadataEntry{
				URL:         ii.URL,
				ThumbURL:    ii.ThumbURL,
				ThumbWidth:  ii.ThumbWidth,
				ThumbHeight: ii.ThumbHeight,
			})
		}
		batch.Items = append(batch.Items, item)
	}
	return batch, nil
}

// decodeCursors reads the continue block. A prop with a token continues; a
// prop the marker lists as done without a token is exhausted; anything else
// starts fresh.
func decodeCursors(cont map[string]any) reconcile.CursorPair {
	if cont == nil {
		return reconcile.CursorPair{}
	}
	done := doneProps(continueValue(cont, "continue"))
	return reconcile.CursorPair{
		Usage:    cursorFrom(continueValue(cont, "gucontinue"), done[propGlobalUsage]),
		Metadata: cursorFrom(continueValue(cont, "iicontinue"), done[propImageInfo]),
	}
}

// continueValue reads a continue field; gsroffset and friends are numbers.
func continueValue(cont map[string]any, key string) string {
	v, ok := cont[key]
	if !ok || v == nil {
		return ""
	}
	return utils.ToString(v)
}

func cursorFrom(token string, done bool) reconcile.Cursor {
	switch {
	case token != "":
		return reconcile.Continuing(token)
	case done:
		return reconcile.Exhausted()
	default:
		return reconcile.Fresh()
	}
}

// doneProps parses a marker such as "gsroffset||entityterms|imageinfo".
func doneProps(marker string) map[string]bool {
	done := make(map[string]bool)
	_, props, ok := strings.Cut(marker, "||")
	if !ok {
		return done
	}
	for _, p := range strings.Split(props, "|") {
		if p != "" {
			done[p] = true
		}
	}
	return done
}

// continueMarker names the props a continuation request must not restart.
// Labels arrive with the first page of a sequence and are carried along.
func continueMarker(cursors reconcile.CursorPair) string {
	if cursors.IsFresh() {
		return ""
	}
	marker := "||" + propEntityTerms
	if cursors.Usage.IsExhausted() {
		marker += "|" + propGlobalUsage
	}
	if cursors.Metadata.IsExhausted() {
		marker += "|" + propImageInfo
	}
	return marker
}

// decodeEntityID reads the wikibase_item page property of the first page.
func decodeEntityID(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", reconcile.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return "", nil
	}
	page := resp.Query.Pages[0]
	if page.Missing {
		return "", nil
	}
	id, ok := page.PageProps["wikibase_item"]
	if !ok || id == nil {
		return "", nil
	}
	return utils.ToString(id), nil
}
