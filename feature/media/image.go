package media

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"media-reconciler/core/reconcile"
)

// Image is the presentation form of a qualified search result.
type Image struct {
	// Name is the file name parsed from the image URL.
	Name string `json:"name"`
	// Src is the thumbnail URL, or the original when no thumbnail exists.
	Src string `json:"src"`
	// Width is the thumbnail width in pixels.
	Width int `json:"width,omitempty"`
	// Height is the thumbnail height in pixels.
	Height int `json:"height,omitempty"`
	// Title is the prefixed file title.
	Title string `json:"title"`
	// Label is the depicted entity's label in the requested language.
	Label string `json:"label,omitempty"`
	// ExternalSources lists the counted sites the file is used on.
	ExternalSources []string `json:"external_sources"`
	// OriginalURL is the full resolution file URL.
	OriginalURL string `json:"original_url"`
	// Resizable reports whether ResizeURL can produce other widths.
	Resizable bool `json:"resizable"`
}

var (
	// .../thumb/a/ab/Name.jpg/300px-Name.jpg
	thumbURLPattern = regexp.MustCompile(`/thumb(?:/[0-9a-f])?/[0-9a-f]{2}/([^/]+)/([^/]*?)(\d+)px-[^/]*$`)
	// .../a/ab/Name.jpg
	originalURLPattern = regexp.MustCompile(`/[0-9a-f]/[0-9a-f]{2}/([^/]+)$`)
)

// ParseImageURL extracts the file name from an upload URL and reports
// whether the URL is a resizable thumbnail. Underscores become spaces.
func ParseImageURL(raw string) (name string, width int, resizable bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, false
	}
	p := u.EscapedPath()

	if m := thumbURLPattern.FindStringSubmatch(p); m != nil {
		width, _ = strconv.Atoi(m[3])
		return decodeName(m[1]), width, true
	}
	if m := originalURLPattern.FindStringSubmatch(p); m != nil {
		return decodeName(m[1]), 0, false
	}
	if base := path.Base(p); base != "/" && base != "." {
		return decodeName(base), 0, false
	}
	return "", 0, false
}

func decodeName(escaped string) string {
	name, err := url.PathUnescape(escaped)
	if err != nil {
		name = escaped
	}
	return strings.ReplaceAll(name, "_", " ")
}

// ResizeURL returns the image at another width. Originals cannot be
// resized and are returned unchanged.
func (img Image) ResizeURL(width int) string {
	if !img.Resizable || width <= 0 {
		return img.OriginalURL
	}
	i := strings.LastIndex(img.Src, "/")
	if i < 0 {
		return img.OriginalURL
	}
	last := img.Src[i+1:]
	px := strings.Index(last, "px-")
	if px < 0 {
		return img.OriginalURL
	}
	// keep any page/lang prefix such as "page1-" before the width digits
	start := px
	for start > 0 && last[start-1] >= '0' && last[start-1] <= '9' {
		start--
	}
	return img.Src[:i+1] + last[:start] + strconv.Itoa(width) + last[px:]
}

// ToImage projects a qualified item. Items without metadata or without a
// parseable file name yield false.
func ToImage(item reconcile.SearchItem, policy UsagePolicy) (Image, bool) {
	if len(item.Metadata) == 0 {
		return Image{}, false
	}
	info := item.Metadata[0]

	src := info.ThumbURL
	if src == "" {
		src = info.URL
	}
	name, _, resizable := ParseImageURL(src)
	if name == "" {
		return Image{}, false
	}

	return Image{
		Name:            name,
		Src:             src,
		Width:           info.ThumbWidth,
		Height:          info.ThumbHeight,
		Title:           item.ID,
		Label:           item.Label,
		ExternalSources: policy.ExternalSites(item.Usage),
		OriginalURL:     info.URL,
		Resizable:       resizable,
	}, true
}
