package playlist

import "github.com/osa030/tunemap/internal/domain/track"

// Queue is the play-next list, consumed from the front.
type Queue struct {
	tracks []track.Track
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{tracks: make([]track.Track, 0)}
}

// Push appends the track unless a track with the same ID is already queued.
func (q *Queue) Push(t track.Track) bool {
	for _, queued := range q.tracks {
		if queued.ID == t.ID {
			return false
		}
	}
	q.tracks = append(q.tracks, t)
	return true
}

// Pop removes and returns the front track.
func (q *Queue) Pop() (track.Track, bool) {
	if len(q.tracks) == 0 {
		return track.Track{}, false
	}
	t := q.tracks[0]
	q.tracks = q.tracks[1:]
	return t, true
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Tracks returns a copy of the queued tracks, front first.
func (q *Queue) Tracks() []track.Track {
	result := make([]track.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Clear removes all queued tracks.
func (q *Queue) Clear() {
	q.tracks = make([]track.Track, 0)
}
