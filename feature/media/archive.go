package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"media-reconciler/core/storage"

	"github.com/minio/minio-go/v7"
)

// Hit is one recorded API round trip.
type Hit struct {
	// Request is the canonical query string (see CanonicalQuery).
	Request string `json:"request"`
	// Response is the raw response body.
	Response json.RawMessage `json:"response"`
}

// Archive is an ordered set of recorded round trips, keyed by request.
type Archive struct {
	mu   sync.Mutex
	hits []Hit
}

// CanonicalQuery renders query parameters sorted by key and unescaped, so
// recorded requests stay readable and diffable.
func CanonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range values[k] {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, "&")
}

// NewArchive creates an archive holding hits.
func NewArchive(hits ...Hit) *Archive {
	return &Archive{hits: hits}
}

// Add records a round trip, replacing an earlier one for the same request.
func (a *Archive) Add(hit Hit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.hits {
		if a.hits[i].Request == hit.Request {
			a.hits[i] = hit
			return
		}
	}
	a.hits = append(a.hits, hit)
}

// Lookup returns the response recorded for request.
func (a *Archive) Lookup(request string) (json.RawMessage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, h := range a.hits {
		if h.Request == request {
			return h.Response, true
		}
	}
	return nil, false
}

// Hits returns a copy of the recorded round trips.
func (a *Archive) Hits() []Hit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Hit(nil), a.hits...)
}

// MarshalJSON implements json.Marshaler.
func (a *Archive) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hits())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Archive) UnmarshalJSON(data []byte) error {
	var hits []Hit
	if err := json.Unmarshal(data, &hits); err != nil {
		return err
	}
	a.mu.Lock()
	a.hits = hits
	a.mu.Unlock()
	return nil
}

// Save uploads the archive as a JSON object.
func (a *Archive) Save(ctx context.Context, client storage.Client, bucket, objectName string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}
	_, err = client.PutObject(ctx, bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// LoadArchive downloads an archive stored by Save.
func LoadArchive(ctx context.Context, client storage.Client, bucket, objectName string) (*Archive, error) {
	obj, err := client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", objectName, err)
	}
	defer obj.Close()

	archive := &Archive{}
	if err := json.NewDecoder(obj).Decode(archive); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", objectName, err)
	}
	return archive, nil
}

// RecordingDoer passes requests through and records successful round trips.
type RecordingDoer struct {
	Next    Doer
	Archive *Archive
}

// Do implements Doer.
func (d *RecordingDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.Next.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if json.Valid(body) {
		d.Archive.Add(Hit{Request: CanonicalQuery(req.URL.Query()), Response: body})
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// ReplayDoer answers requests from an archive and fails on unknown ones.
type ReplayDoer struct {
	Archive *Archive
}

// Do implements Doer.
func (d *ReplayDoer) Do(req *http.Request) (*http.Response, error) {
	key := CanonicalQuery(req.URL.Query())
	body, ok := d.Archive.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("unexpected API request: %s", key)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}
