// Package track provides the Track domain entity.
package track

import (
	"net/url"
	"strings"
)

// Track represents a playable audio item published by a user.
// Tracks are immutable once fetched and compared by ID.
type Track struct {
	ID        string // Backend ID (decimal) or "spotify:<id>" for imported tracks
	Title     string // Track name
	Artist    string // Artist name
	Genre     string // Genre label
	Locator   string // Backend-relative file path or absolute URL
	SpotifyID string // Spotify track ID (optional)
	OwnerID   string // Publishing user ID (optional)
}

// Same reports whether both tracks carry the same identifier.
func (t Track) Same(other Track) bool {
	return t.ID == other.ID
}

// Playable reports whether the track has a resource locator.
func (t Track) Playable() bool {
	return strings.TrimSpace(t.Locator) != ""
}

// ResourceURL resolves the locator against the media base URL.
// Absolute locators are returned unchanged.
func (t Track) ResourceURL(base string) string {
	if u, err := url.Parse(t.Locator); err == nil && u.IsAbs() {
		return t.Locator
	}
	if base == "" {
		return t.Locator
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(t.Locator, "/")
}

// String returns "Artist - Title".
func (t Track) String() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
