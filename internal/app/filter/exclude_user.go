package filter

import "context"

// ExcludeUserFilter rejects tracks published by the given user, so that
// discovery does not return the listener's own uploads.
type ExcludeUserFilter struct {
	userID string
}

// NewExcludeUserFilter creates a new ExcludeUserFilter.
func NewExcludeUserFilter(userID string) *ExcludeUserFilter {
	return &ExcludeUserFilter{userID: userID}
}

func (f *ExcludeUserFilter) Name() string {
	return "exclude_user_filter"
}

func (f *ExcludeUserFilter) Description() string {
	return "Rejects tracks published by the current user"
}

func (f *ExcludeUserFilter) ReturnCodes() []string {
	return []string{"own_track"}
}

func (f *ExcludeUserFilter) Check(ctx context.Context, c Candidate) Result {
	if f.userID == "" {
		return Accept()
	}
	if c.Track.OwnerID == f.userID || (c.Owner != nil && c.Owner.ID == f.userID) {
		return Reject("own_track")
	}
	return Accept()
}
