package domain

import (
	"strings"
	"time"
)

// TableBookmarks is the relational table holding bookmarks. Change events
// and channel filters refer to it by this name.
const TableBookmarks = "bookmarks"

// Bookmark represents a user-owned link.
type Bookmark struct {
	// ID is server-assigned (UUID v4).
	ID string `json:"id"`

	// UserID is the owner. A bookmark is only ever visible to its owner.
	UserID string `json:"user_id"`

	// Title is never empty after trimming.
	Title string `json:"title"`

	// URL always carries a scheme prefix (see NormalizeURL).
	URL string `json:"url"`

	// CreatedAt is the server timestamp, UTC, millisecond precision.
	CreatedAt time.Time `json:"created_at"`
}

// Draft is the add-form input before it becomes a Bookmark.
type Draft struct {
	UserID string
	Title  string
	URL    string
}

// Trimmed returns the draft with surrounding whitespace removed.
func (d Draft) Trimmed() Draft {
	return Draft{
		UserID: d.UserID,
		Title:  strings.TrimSpace(d.Title),
		URL:    strings.TrimSpace(d.URL),
	}
}

// Complete reports whether both title and url are non-empty after trimming.
func (d Draft) Complete() bool {
	t := d.Trimmed()
	return t.Title != "" && t.URL != ""
}

// NormalizeURL trims raw and prefixes https:// unless it already starts
// with http:// or https://.
// Examples: "example.com" -> "https://example.com"
//
//	"http://example.com" -> "http://example.com"
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []Bookmark, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
