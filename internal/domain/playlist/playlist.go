// Package playlist provides the ordered track collections used by the player:
// the user-curated Playlist and the transient play-next Queue.
package playlist

import "github.com/osa030/tunemap/internal/domain/track"

// Playlist is an ordered track collection without duplicate IDs.
type Playlist struct {
	tracks []track.Track
}

// New creates a playlist holding the given tracks, skipping duplicate IDs.
func New(tracks ...track.Track) *Playlist {
	p := &Playlist{tracks: make([]track.Track, 0, len(tracks))}
	for _, t := range tracks {
		p.Add(t)
	}
	return p
}

// Add appends the track unless a track with the same ID is present.
// Returns true when the track was appended.
func (p *Playlist) Add(t track.Track) bool {
	if p.IndexOf(t.ID) >= 0 {
		return false
	}
	p.tracks = append(p.tracks, t)
	return true
}

// IndexOf returns the position of the track with the given ID, or -1.
func (p *Playlist) IndexOf(id string) int {
	for i, t := range p.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether a track with the given ID is present.
func (p *Playlist) Contains(id string) bool {
	return p.IndexOf(id) >= 0
}

// At returns the track at index i.
func (p *Playlist) At(i int) (track.Track, bool) {
	if i < 0 || i >= len(p.tracks) {
		return track.Track{}, false
	}
	return p.tracks[i], true
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// Tracks returns a copy of the tracks in order.
func (p *Playlist) Tracks() []track.Track {
	result := make([]track.Track, len(p.tracks))
	copy(result, p.tracks)
	return result
}

// TrackIDs returns all track IDs in order.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.tracks))
	for i, t := range p.tracks {
		ids[i] = t.ID
	}
	return ids
}

// Clear removes all tracks.
func (p *Playlist) Clear() {
	p.tracks = p.tracks[:0]
}
