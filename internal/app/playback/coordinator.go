package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunemap/internal/domain/playlist"
	"github.com/osa030/tunemap/internal/domain/track"
)

// Errors
var (
	ErrNoTrack       = errors.New("no current track")
	ErrNothingToPlay = errors.New("queue and playlist have nothing to play")
)

const (
	// DefaultVolume is the volume applied when Config.InitialVolume is unset.
	DefaultVolume = 80
	// DefaultSeekSuppression is how long engine time updates are ignored after a seek.
	DefaultSeekSuppression = 100 * time.Millisecond

	eventBufferSize = 32
)

// Config holds coordinator configuration.
type Config struct {
	MediaBaseURL    string        // Base URL for backend-relative track locators
	InitialVolume   int           // 0-100; DefaultVolume when zero
	SeekSuppression time.Duration // DefaultSeekSuppression when zero
}

// Coordinator owns the engine and tracks the current track, the playlist
// and the play-next queue.
type Coordinator struct {
	mu sync.Mutex

	engine Engine
	config Config

	playlist     *playlist.Playlist
	queue        *playlist.Queue
	current      *track.Track
	currentIndex int

	playing  bool
	volume   int
	muted    bool
	position time.Duration
	duration time.Duration

	// Seek feedback suppression
	seeking bool
	seekGen uint64

	eventCh chan Event
	closed  bool
}

// NewCoordinator creates a coordinator driving the given engine.
func NewCoordinator(engine Engine, config Config) *Coordinator {
	if config.InitialVolume == 0 {
		config.InitialVolume = DefaultVolume
	}
	if config.SeekSuppression <= 0 {
		config.SeekSuppression = DefaultSeekSuppression
	}

	c := &Coordinator{
		engine:       engine,
		config:       config,
		playlist:     playlist.New(),
		queue:        playlist.NewQueue(),
		currentIndex: -1,
		volume:       clampVolume(config.InitialVolume),
		eventCh:      make(chan Event, eventBufferSize),
	}

	c.mu.Lock()
	c.applyOutputLocked()
	c.mu.Unlock()

	return c
}

// Events returns the event channel.
func (c *Coordinator) Events() <-chan Event {
	return c.eventCh
}

// Run consumes engine feedback until ctx is done or the engine closes its channel.
func (c *Coordinator) Run(ctx context.Context) {
	events := c.engine.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.HandleEngineEvent(ev)
		}
	}
}

// HandleEngineEvent applies one engine feedback message.
func (c *Coordinator) HandleEngineEvent(ev EngineEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case EngineEnded:
		if c.current == nil {
			return
		}
		if err := c.nextLocked(); err != nil {
			c.playing = false
			c.sendEventLocked(EventStateChanged)
		}
	case EngineDurationChanged:
		if ev.Duration > 0 {
			c.duration = ev.Duration
			c.sendEventLocked(EventProgress)
		}
	case EngineTimeUpdate:
		if c.seeking || ev.Position <= 0 {
			return
		}
		c.position = ev.Position
		c.sendEventLocked(EventProgress)
	case EngineError:
		zlog.Error().Err(ev.Err).Msgf("playback: engine error: track=%s", c.currentTitleLocked())
	}
}

// PlayTrack makes t the current track, adds it to the playlist when absent
// and starts playback.
func (c *Coordinator) PlayTrack(t track.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.playlist.Add(t) {
		c.sendEventLocked(EventPlaylistChanged)
	}
	c.currentIndex = c.playlist.IndexOf(t.ID)
	c.startLocked(t)
}

// PauseTrack pauses playback without changing the current track.
func (c *Coordinator) PauseTrack() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoTrack
	}
	c.pauseLocked()
	return nil
}

// ResumeTrack resumes playback of the current track.
func (c *Coordinator) ResumeTrack() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoTrack
	}
	if err := c.engine.Play(); err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to resume: track=%s", c.current.Title)
	}
	c.playing = true
	c.sendEventLocked(EventStateChanged)
	return nil
}

// NextTrack plays the front of the queue when it is non-empty, otherwise the
// playlist entry after the current one, wrapping around.
func (c *Coordinator) NextTrack() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nextLocked()
}

// PreviousTrack plays the playlist entry before the current one, wrapping
// around. The queue is not consulted.
func (c *Coordinator) PreviousTrack() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.playlist.Len()
	if n == 0 || c.currentIndex < 0 {
		return ErrNothingToPlay
	}
	c.moveToLocked((c.currentIndex - 1 + n) % n)
	return nil
}

// AddToPlaylist appends t unless a track with the same ID is present.
func (c *Coordinator) AddToPlaylist(t track.Track) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playlist.Add(t) {
		return false
	}
	c.sendEventLocked(EventPlaylistChanged)
	return true
}

// AddToQueue appends t to the play-next queue unless it is already queued.
func (c *Coordinator) AddToQueue(t track.Track) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.queue.Push(t) {
		return false
	}
	c.sendEventLocked(EventQueueChanged)
	return true
}

// ClearPlaylist empties the playlist, pauses playback and drops the current track.
func (c *Coordinator) ClearPlaylist() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.playlist.Clear()
	c.currentIndex = -1
	if c.playing {
		c.pauseLocked()
	}
	c.current = nil
	c.position = 0
	c.duration = 0
	c.sendEventLocked(EventPlaylistChanged)
	c.sendEventLocked(EventStateChanged)
}

// ClearQueue empties the play-next queue.
func (c *Coordinator) ClearQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.Clear()
	c.sendEventLocked(EventQueueChanged)
}

// SetVolume sets the volume, clamped to 0-100, and returns the applied value.
func (c *Coordinator) SetVolume(volume int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clampVolume(volume)
	c.applyOutputLocked()
	c.sendEventLocked(EventVolumeChanged)
	return c.volume
}

// ToggleMute flips the muted flag and returns the new value.
func (c *Coordinator) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.muted = !c.muted
	c.applyOutputLocked()
	c.sendEventLocked(EventVolumeChanged)
	return c.muted
}

// SeekTo moves playback to position. The reported position changes
// immediately and engine time updates are ignored for the suppression window.
func (c *Coordinator) SeekTo(position time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoTrack
	}
	if position < 0 {
		position = 0
	}
	if c.duration > 0 && position > c.duration {
		position = c.duration
	}

	c.seeking = true
	c.seekGen++
	gen := c.seekGen
	time.AfterFunc(c.config.SeekSuppression, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		// A later seek owns the flag.
		if c.seekGen == gen {
			c.seeking = false
		}
	})

	if err := c.engine.Seek(position); err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to seek: track=%s position=%v", c.current.Title, position)
	}
	c.position = position
	c.sendEventLocked(EventProgress)
	return nil
}

// Snapshot returns a copy of the current player state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var current *track.Track
	if c.current != nil {
		t := *c.current
		current = &t
	}
	return Snapshot{
		Current:      current,
		CurrentIndex: c.currentIndex,
		Playing:      c.playing,
		Volume:       c.volume,
		Muted:        c.muted,
		Position:     c.position,
		Duration:     c.duration,
		Playlist:     c.playlist.Tracks(),
		Queue:        c.queue.Tracks(),
	}
}

// Close stops the engine and closes the event channel.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if err := c.engine.Stop(); err != nil {
		zlog.Warn().Err(err).Msg("playback: failed to stop engine")
	}
	c.closed = true
	close(c.eventCh)
}

// nextLocked implements NextTrack. Must be called with lock held.
func (c *Coordinator) nextLocked() error {
	if queued, ok := c.queue.Pop(); ok {
		if c.current != nil {
			c.playlist.Add(*c.current)
		}
		c.playlist.Add(queued)
		c.currentIndex = c.playlist.IndexOf(queued.ID)
		c.sendEventLocked(EventQueueChanged)
		c.sendEventLocked(EventPlaylistChanged)
		c.startLocked(queued)
		return nil
	}

	n := c.playlist.Len()
	if n == 0 || c.currentIndex < 0 {
		return ErrNothingToPlay
	}
	c.moveToLocked((c.currentIndex + 1) % n)
	return nil
}

// moveToLocked starts the playlist entry at index. Must be called with lock held.
func (c *Coordinator) moveToLocked(index int) {
	t, ok := c.playlist.At(index)
	if !ok {
		return
	}
	c.currentIndex = index
	c.startLocked(t)
}

// startLocked loads t into the engine and starts it. Engine failures are
// logged only. Must be called with lock held.
func (c *Coordinator) startLocked(t track.Track) {
	c.current = &t
	c.playing = true
	c.position = 0
	c.duration = 0

	url := t.ResourceURL(c.config.MediaBaseURL)
	zlog.Debug().Msgf("playback: loading track: id=%s title=%s url=%s", t.ID, t.Title, url)

	if err := c.engine.Load(url); err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to load track: id=%s url=%s", t.ID, url)
	} else if err := c.engine.Play(); err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to play track: id=%s url=%s", t.ID, url)
	}

	c.sendEventLocked(EventTrackStarted)
}

// pauseLocked pauses the engine. Must be called with lock held.
func (c *Coordinator) pauseLocked() {
	if err := c.engine.Pause(); err != nil {
		zlog.Error().Err(err).Msg("playback: failed to pause")
	}
	c.playing = false
	c.sendEventLocked(EventStateChanged)
}

// applyOutputLocked pushes volume and mute to the engine. Must be called with lock held.
func (c *Coordinator) applyOutputLocked() {
	if err := c.engine.SetVolume(float64(c.volume) / 100); err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to set volume: volume=%d", c.volume)
	}
	if err := c.engine.SetMuted(c.muted); err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to set mute: muted=%v", c.muted)
	}
}

func (c *Coordinator) currentTitleLocked() string {
	if c.current == nil {
		return ""
	}
	return c.current.Title
}

// stateLocked derives the transport state. Must be called with lock held.
func (c *Coordinator) stateLocked() State {
	switch {
	case c.current == nil:
		return StateIdle
	case c.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Coordinator) sendEventLocked(t EventType) {
	if c.closed {
		return
	}

	var current *track.Track
	if c.current != nil {
		tr := *c.current
		current = &tr
	}

	select {
	case c.eventCh <- Event{Type: t, Track: current, State: c.stateLocked()}:
	default:
		// Channel full, drop event
	}
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
