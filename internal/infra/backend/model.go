package backend

import (
	"strconv"

	"github.com/osa030/tunemap/internal/domain/track"
	"github.com/osa030/tunemap/internal/domain/user"
)

// trackResponse is the backend's music preference representation.
type trackResponse struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	TrackName  string  `json:"track_name"`
	ArtistName string  `json:"artist_name"`
	Genre      string  `json:"genre"`
	SpotifyID  *string `json:"spotify_id"`
	FilePath   *string `json:"file_path"`
}

// userResponse is the backend's user representation.
type userResponse struct {
	ID               int64           `json:"id"`
	Username         string          `json:"username"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	MusicPreferences []trackResponse `json:"music_preferences"`
}

// trackRequest is the body of POST /users/music/.
type trackRequest struct {
	TrackName  string  `json:"track_name"`
	ArtistName string  `json:"artist_name"`
	Genre      string  `json:"genre"`
	SpotifyID  *string `json:"spotify_id,omitempty"`
	FilePath   *string `json:"file_path,omitempty"`
}

// registerRequest is the body of POST /users/.
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r trackResponse) toTrack() track.Track {
	t := track.Track{
		ID:     strconv.FormatInt(r.ID, 10),
		Title:  r.TrackName,
		Artist: r.ArtistName,
		Genre:  r.Genre,
	}
	if r.UserID != 0 {
		t.OwnerID = strconv.FormatInt(r.UserID, 10)
	}
	if r.FilePath != nil {
		t.Locator = *r.FilePath
	}
	if r.SpotifyID != nil {
		t.SpotifyID = *r.SpotifyID
	}
	return t
}

func (r userResponse) toUser() *user.User {
	u := &user.User{
		ID:       strconv.FormatInt(r.ID, 10),
		Username: r.Username,
		Tracks:   toTracks(r.MusicPreferences),
	}
	if r.Latitude != nil && r.Longitude != nil {
		u.Location = &user.Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return u
}

func toTracks(in []trackResponse) []track.Track {
	out := make([]track.Track, 0, len(in))
	for _, r := range in {
		out = append(out, r.toTrack())
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
