package filter

import "context"

// PlayableFilter rejects tracks without a resource locator.
type PlayableFilter struct{}

// NewPlayableFilter creates a new PlayableFilter.
func NewPlayableFilter() *PlayableFilter {
	return &PlayableFilter{}
}

func (f *PlayableFilter) Name() string {
	return "playable_filter"
}

func (f *PlayableFilter) Description() string {
	return "Rejects tracks that have no audio file or preview URL"
}

func (f *PlayableFilter) ReturnCodes() []string {
	return []string{"no_locator"}
}

func (f *PlayableFilter) Check(ctx context.Context, c Candidate) Result {
	if !c.Track.Playable() {
		return Reject("no_locator")
	}
	return Accept()
}
