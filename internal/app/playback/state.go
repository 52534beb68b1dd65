// Package playback provides the playback/queue coordinator that owns the
// media engine and keeps the current track, playlist and play-next queue.
package playback

import (
	"time"

	"github.com/osa030/tunemap/internal/domain/track"
)

// State represents the transport state.
type State int

const (
	StateIdle    State = iota // No current track
	StatePlaying              // Current track is playing
	StatePaused               // Current track is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of the player state.
type Snapshot struct {
	Current      *track.Track
	CurrentIndex int // index of Current in Playlist, -1 when unknown
	Playing      bool
	Volume       int // 0-100
	Muted        bool
	Position     time.Duration
	Duration     time.Duration
	Playlist     []track.Track
	Queue        []track.Track
}

// State derives the transport state from the snapshot.
func (s Snapshot) State() State {
	switch {
	case s.Current == nil:
		return StateIdle
	case s.Playing:
		return StatePlaying
	default:
		return StatePaused
	}
}
