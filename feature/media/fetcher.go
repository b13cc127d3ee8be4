package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"media-reconciler/core/reconcile"

	"golang.org/x/time/rate"
)

var (
	// ErrUpstreamStatus marks a non-200 answer from the API.
	ErrUpstreamStatus = errors.New("unexpected api status")

	// ErrEntityNotFound marks a page without an associated entity.
	ErrEntityNotFound = errors.New("page has no entity")
)

// maxBodyBytes bounds a single API response body.
const maxBodyBytes = 16 << 20

// Doer executes HTTP requests. *http.Client satisfies it; the fixture
// archive provides recording and replaying implementations.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIFetcher issues search round trips against a MediaWiki Action API.
// It implements reconcile.Fetcher.
type APIFetcher struct {
	apiURL     string
	pageAPIURL string
	userAgent  string
	usageLimit int
	thumbWidth int
	doer       Doer
	limiter    *rate.Limiter
}

// NewAPIFetcher creates a fetcher. A nil doer gets a pooled http.Client
// bounded by the configured timeout.
func NewAPIFetcher(cfg Config, doer Doer) *APIFetcher {
	if doer == nil {
		doer = NewHTTPClient(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	usageLimit := cfg.UsageLimit
	if usageLimit <= 0 {
		usageLimit = 500
	}
	thumbWidth := cfg.ThumbWidth
	if thumbWidth <= 0 {
		thumbWidth = 300
	}

	return &APIFetcher{
		apiURL:     cfg.APIURL,
		pageAPIURL: cfg.PageAPIURL,
		userAgent:  cfg.UserAgent,
		usageLimit: usageLimit,
		thumbWidth: thumbWidth,
		doer:       doer,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// NewHTTPClient returns a pooled client bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Fetch implements reconcile.Fetcher.
func (f *APIFetcher) Fetch(ctx context.Context, req reconcile.Request) (*reconcile.RawBatch, error) {
	// the id is interpolated into the search string
	if err := ValidateEntityID(req.EntityID); err != nil {
		return nil, err
	}

	body, err := f.get(ctx, f.apiURL, f.SearchParams(req))
	if err != nil {
		return nil, err
	}
	return decodeSearch(body)
}

// SearchParams builds the query of one search round trip.
func (f *APIFetcher) SearchParams(req reconcile.Request) url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	params.Set("generator", "search")
	params.Set("gsrsearch", fmt.Sprintf("filetype:bitmap|drawing custommatch:linked_from=%s -fileres:0", req.EntityID))
	params.Set("gsrnamespace", "6")
	params.Set("gsroffset", strconv.Itoa(req.Offset))
	params.Set("gsrlimit", strconv.Itoa(req.Size))
	params.Set("gsrqiprofile", "popular_inclinks")

	params.Set("prop", "entityterms|globalusage|imageinfo")
	params.Set("wbetlanguage", req.Language)

	params.Set("gunamespace", "0")
	params.Set("gufilterlocal", "1")
	params.Set("gulimit", strconv.Itoa(f.usageLimit))
	if req.Cursors.Usage.IsContinuing() {
		params.Set("gucontinue", req.Cursors.Usage.Token())
	}

	params.Set("iiprop", "url")
	params.Set("iiurlwidth", strconv.Itoa(f.thumbWidth))
	params.Set("iilimit", "1")
	if req.Cursors.Metadata.IsContinuing() {
		params.Set("iicontinue", req.Cursors.Metadata.Token())
	}

	params.Set("continue", continueMarker(req.Cursors))
	return params
}

// ResolveEntityID looks up the entity associated with a page of the
// illustrated wiki.
func (f *APIFetcher) ResolveEntityID(ctx context.Context, pageTitle string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("prop", "pageprops")
	params.Set("titles", pageTitle)
	params.Set("ppprop", "wikibase_item")

	body, err := f.get(ctx, f.pageAPIURL, params)
	if err != nil {
		return "", err
	}
	id, err := decodeEntityID(body)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrEntityNotFound, pageTitle)
	}
	if err := ValidateEntityID(id); err != nil {
		return "", fmt.Errorf("%w: %v", reconcile.ErrMalformedResponse, err)
	}
	return id, nil
}

// Ping checks that the search API answers a trivial query.
func (f *APIFetcher) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("meta", "siteinfo")
	params.Set("siprop", "general")

	body, err := f.get(ctx, f.apiURL, params)
	if err != nil {
		return err
	}
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %v", reconcile.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	return nil
}

// Endpoint returns the search API URL.
func (f *APIFetcher) Endpoint() string {
	return f.apiURL
}

// get performs one rate limited GET and returns the body.
func (f *APIFetcher) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
