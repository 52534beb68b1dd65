package playback

import "github.com/osa030/tunemap/internal/domain/track"

// EventType represents a coordinator event type.
type EventType int

const (
	EventTrackStarted    EventType = iota // A new current track was loaded
	EventStateChanged                     // Transport state changed (pause/resume/stop)
	EventQueueChanged                     // Queue contents changed
	EventPlaylistChanged                  // Playlist contents changed
	EventProgress                         // Position or duration changed
	EventVolumeChanged                    // Volume or mute changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventStateChanged:
		return "state_changed"
	case EventQueueChanged:
		return "queue_changed"
	case EventPlaylistChanged:
		return "playlist_changed"
	case EventProgress:
		return "progress"
	case EventVolumeChanged:
		return "volume_changed"
	default:
		return "unknown"
	}
}

// Event represents a coordinator event.
type Event struct {
	Type  EventType
	Track *track.Track // Current track (nil when idle)
	State State
}
