package playback

import "time"

// Engine is the single media-playback resource driven by the coordinator.
// Implementations must not call back into the coordinator synchronously;
// feedback is delivered through Events.
type Engine interface {
	// Load replaces the current source with the given URL.
	Load(url string) error
	Play() error
	Pause() error
	Stop() error
	// Seek moves the playback position of the loaded source.
	Seek(position time.Duration) error
	// SetVolume sets the output gain in the range [0, 1].
	SetVolume(gain float64) error
	SetMuted(muted bool) error
	// Events returns the engine feedback channel. It is closed by Close.
	Events() <-chan EngineEvent
	Close() error
}

// EngineEventType represents an engine feedback type.
type EngineEventType int

const (
	EngineEnded           EngineEventType = iota // Source played to the end
	EngineDurationChanged                        // Duration became known or changed
	EngineTimeUpdate                             // Periodic position update
	EngineError                                  // Playback failure
)

// String returns the string representation of the engine event type.
func (e EngineEventType) String() string {
	switch e {
	case EngineEnded:
		return "ended"
	case EngineDurationChanged:
		return "durationchange"
	case EngineTimeUpdate:
		return "timeupdate"
	case EngineError:
		return "error"
	default:
		return "unknown"
	}
}

// EngineEvent is a feedback message from the engine.
type EngineEvent struct {
	Type     EngineEventType
	Position time.Duration // EngineTimeUpdate
	Duration time.Duration // EngineDurationChanged
	Err      error         // EngineError
}
