// Package filter provides the filter chain that selects discovered tracks
// for playback.
package filter

import (
	"context"

	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
)

// Candidate represents a discovered track to be checked.
type Candidate struct {
	Track    track.Track
	Owner    *user.User    // Publishing user (may be nil)
	Selected []track.Track // Tracks accepted earlier in the same pass
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "no_locator", "genre_excluded", "own_track"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for candidate filters.
type Filter interface {
	// Name returns the filter name.
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// Check performs the filter check.
	Check(ctx context.Context, c Candidate) Result
}
