package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/tunemap/internal/domain/track"
)

// DuplicateTrackFilter rejects tracks that are already known.
// Detects:
// - Exact track ID matches
// - Remasters (normalized track name + same artist)
// Excludes:
// - Cover songs (same track name but different artist)
type DuplicateTrackFilter struct {
	source TrackSource
}

// TrackSource provides tracks that candidates are compared against.
type TrackSource interface {
	Tracks() []track.Track
}

// NewDuplicateTrackFilter creates a new duplicate track filter. source may be nil.
func NewDuplicateTrackFilter(source TrackSource) *DuplicateTrackFilter {
	return &DuplicateTrackFilter{
		source: source,
	}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects tracks already selected or in the playlist, including remasters. Covers by other artists are allowed"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// Check checks if the track is a duplicate.
func (f *DuplicateTrackFilter) Check(ctx context.Context, c Candidate) Result {
	if f.source != nil && containsDuplicate(f.source.Tracks(), c.Track) {
		return Reject("duplicate_track")
	}
	if containsDuplicate(c.Selected, c.Track) {
		return Reject("duplicate_track")
	}
	return Accept()
}

func containsDuplicate(tracks []track.Track, t track.Track) bool {
	for _, existing := range tracks {
		if existing.ID == t.ID || isRemaster(existing, t) {
			return true
		}
	}
	return false
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s*-\s*live$`),             // "- Live"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	whitespace = regexp.MustCompile(`\s+`)
)

// isRemaster checks if two tracks are the same song in another version.
func isRemaster(a, b track.Track) bool {
	if normalizeTrackName(a.Title) != normalizeTrackName(b.Title) {
		return false
	}
	// Same normalized name by a different artist is a cover
	return isSameArtist(a, b)
}

// normalizeTrackName removes remaster information and version details.
func normalizeTrackName(name string) string {
	normalized := strings.ToLower(name)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = whitespace.ReplaceAllString(normalized, " ")
	return strings.TrimRight(normalized, " -")
}

// isSameArtist compares artists case-insensitively. Unknown artists never match.
func isSameArtist(a, b track.Track) bool {
	artistA := strings.TrimSpace(a.Artist)
	artistB := strings.TrimSpace(b.Artist)
	if artistA == "" || artistB == "" || strings.EqualFold(artistA, "Unknown Artist") {
		return false
	}
	return strings.EqualFold(artistA, artistB)
}
