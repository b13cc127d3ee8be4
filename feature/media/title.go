package media

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const filePrefix = "File:"

// NormalizeTitle converts a file title to its prefixed display form, the
// form search results identify items by: "Big_Ben.jpg", "Image:Big Ben.jpg"
// and "File:big_Ben.jpg" all become "File:Big Ben.jpg". The first letter of
// the name is uppercased the way the wiki stores titles.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(strings.ReplaceAll(title, "_", " "))
	if title == "" {
		return ""
	}
	if ns, rest, ok := strings.Cut(title, ":"); ok {
		switch strings.ToLower(strings.TrimSpace(ns)) {
		case "file", "image":
			title = strings.TrimSpace(rest)
		}
	}
	if title == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(title)
	return filePrefix + string(unicode.ToUpper(r)) + title[size:]
}

// CursorKey maps a prefixed title to the key space of the continuation
// tokens: namespace stripped, spaces replaced by underscores.
func CursorKey(title string) string {
	if _, rest, ok := strings.Cut(title, ":"); ok {
		title = rest
	}
	return strings.ReplaceAll(title, " ", "_")
}
