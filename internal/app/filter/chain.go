package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain(filters ...Filter) *Chain {
	c := &Chain{
		filters: make([]Filter, 0, len(filters)),
	}
	c.filters = append(c.filters, filters...)
	return c
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the candidate.
func (c *Chain) Execute(ctx context.Context, cand Candidate) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, cand)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Select runs the chain over every track published by users and returns the
// accepted tracks in user order.
func (c *Chain) Select(ctx context.Context, users []*user.User) []track.Track {
	selected := make([]track.Track, 0)
	for _, u := range users {
		for _, t := range u.Tracks {
			result := c.Execute(ctx, Candidate{Track: t, Owner: u, Selected: selected})
			if !result.Accepted {
				zlog.Debug().Msgf("track rejected: track=%s owner=%s code=%s", t.ID, u.Username, result.Code)
				continue
			}
			selected = append(selected, t)
		}
	}
	return selected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
