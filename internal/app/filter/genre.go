package filter

import (
	"context"
	"strings"
)

// GenreFilter accepts only tracks whose genre is in an allow-list.
// An empty list accepts everything.
type GenreFilter struct {
	genres map[string]struct{}
}

// NewGenreFilter creates a new GenreFilter. Matching is case-insensitive.
func NewGenreFilter(genres []string) *GenreFilter {
	set := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		if g = normalizeGenre(g); g != "" {
			set[g] = struct{}{}
		}
	}
	return &GenreFilter{genres: set}
}

func (f *GenreFilter) Name() string {
	return "genre_filter"
}

func (f *GenreFilter) Description() string {
	return "Accepts only tracks in the configured genres"
}

func (f *GenreFilter) ReturnCodes() []string {
	return []string{"genre_excluded"}
}

func (f *GenreFilter) Check(ctx context.Context, c Candidate) Result {
	if len(f.genres) == 0 {
		return Accept()
	}
	if _, ok := f.genres[normalizeGenre(c.Track.Genre)]; !ok {
		return Reject("genre_excluded")
	}
	return Accept()
}

func normalizeGenre(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}
