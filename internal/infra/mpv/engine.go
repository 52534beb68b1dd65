// Package mpv provides a playback.Engine backed by libmpv.
package mpv

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/wildeyedskies/go-mpv/mpv"

	"github.com/osa030/tunemap/internal/app/playback"
)

// Config represents mpv engine configuration.
type Config struct {
	PollInterval time.Duration // time-pos/duration polling interval
	AudioDevice  string        // mpv audio-device option (empty for default)
}

// Engine drives a single mpv instance.
type Engine struct {
	mu       sync.Mutex
	mpv      *mpv.Mpv
	events   chan playback.EngineEvent
	cancel   context.CancelFunc
	done     chan struct{}
	config   Config
	source   string // URL passed to the last Load
	loading  bool   // set by Load until mpv reports the source as loaded
	duration time.Duration
}

// Ensure Engine implements playback.Engine.
var _ playback.Engine = (*Engine)(nil)

// New creates and initializes an mpv instance with video disabled.
func New(cfg Config) (*Engine, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}

	m := mpv.Create()
	if err := m.SetOptionString("audio-display", "no"); err != nil {
		m.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to set audio-display option")
	}
	if err := m.SetOptionString("video", "no"); err != nil {
		m.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to set video option")
	}
	if cfg.AudioDevice != "" {
		if err := m.SetOptionString("audio-device", cfg.AudioDevice); err != nil {
			m.TerminateDestroy()
			return nil, errors.Wrap(err, "failed to set audio-device option")
		}
	}
	if err := m.Initialize(); err != nil {
		m.TerminateDestroy()
		return nil, errors.Wrap(err, "failed to initialize mpv")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		mpv:    m,
		events: make(chan playback.EngineEvent, 16),
		cancel: cancel,
		done:   make(chan struct{}),
		config: cfg,
	}
	go e.loop(ctx)
	return e, nil
}

// Load replaces the current source.
func (e *Engine) Load(url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.source = url
	e.loading = true
	e.duration = 0
	return e.command("loadfile", url, "replace")
}

// Play unpauses playback.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.command("set", "pause", "no")
}

// Pause pauses playback.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.command("set", "pause", "yes")
}

// Stop unloads the current source.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.command("stop")
}

// Seek moves to an absolute position.
func (e *Engine) Seek(position time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.command("seek", strconv.FormatFloat(position.Seconds(), 'f', 3, 64), "absolute")
}

// SetVolume sets the gain in [0, 1]; mpv uses a 0-100 scale.
func (e *Engine) SetVolume(gain float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.command("set", "volume", strconv.FormatFloat(gain*100, 'f', 1, 64))
}

// SetMuted sets the mute flag.
func (e *Engine) SetMuted(muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	value := "no"
	if muted {
		value = "yes"
	}
	return e.command("set", "mute", value)
}

// Events returns the feedback channel.
func (e *Engine) Events() <-chan playback.EngineEvent {
	return e.events
}

// Close stops the event loop and destroys the mpv instance.
func (e *Engine) Close() error {
	e.cancel()
	<-e.done

	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.mpv.Command([]string{"quit"})
	e.mpv.TerminateDestroy()
	return nil
}

func (e *Engine) command(args ...string) error {
	if err := e.mpv.Command(args); err != nil {
		return errors.Wrapf(err, "mpv command %q failed", args[0])
	}
	return nil
}

// loadedLocked reports whether a source is loaded. Must be called with lock held.
func (e *Engine) loadedLocked() bool {
	idle, err := e.mpv.GetProperty("idle-active", mpv.FORMAT_FLAG)
	if err != nil {
		return false
	}
	active, ok := idle.(bool)
	return ok && !active
}

// loop waits for mpv events and polls the position until ctx is done.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)
	defer close(e.events)

	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		default:
			ev := e.mpv.WaitEvent(0.05)
			if ev == nil {
				continue
			}
			switch ev.Event_Id {
			case mpv.EVENT_FILE_LOADED:
				e.markLoaded()
			case mpv.EVENT_END_FILE:
				if out := endFileEvent(ev.Data); out != nil {
					e.emit(ctx, *out)
				}
			}
		}
	}
}

// markLoaded clears the loading flag once the file mpv reports is the last
// loaded source. A FILE_LOADED for a replaced source is ignored.
func (e *Engine) markLoaded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	path, err := e.mpv.GetProperty("path", mpv.FORMAT_STRING)
	if err != nil {
		e.loading = false
		return
	}
	if p, ok := path.(string); ok && p == e.source {
		e.loading = false
	}
}

// endFileEvent maps an END_FILE payload to engine feedback. Only a natural
// end and a failure are reported; STOP, QUIT and REDIRECT come from our own
// loadfile/stop commands or from shutdown.
func endFileEvent(data any) *playback.EngineEvent {
	ef, ok := data.(mpv.EventEndFile)
	if !ok {
		return nil
	}

	switch ef.Reason {
	case mpv.END_FILE_REASON_EOF:
		return &playback.EngineEvent{Type: playback.EngineEnded}
	case mpv.END_FILE_REASON_ERROR:
		var err error = ef.ErrCode
		if ef.ErrCode == 0 {
			err = errors.New("playback failed")
		}
		return &playback.EngineEvent{
			Type: playback.EngineError,
			Err:  errors.Wrap(err, "mpv end of file"),
		}
	default:
		return nil
	}
}

// timeUpdate converts a time-pos reading into feedback. Readings taken while
// a new source is loading may belong to the previous file and are dropped.
func timeUpdate(loading bool, pos any) *playback.EngineEvent {
	if loading {
		return nil
	}
	secs, ok := pos.(float64)
	if !ok {
		return nil
	}
	return &playback.EngineEvent{Type: playback.EngineTimeUpdate, Position: seconds(secs)}
}

// poll reads time-pos and duration and emits feedback.
func (e *Engine) poll(ctx context.Context) {
	e.mu.Lock()
	if !e.loadedLocked() {
		e.mu.Unlock()
		return
	}
	loading := e.loading
	pos, posErr := e.mpv.GetProperty("time-pos", mpv.FORMAT_DOUBLE)
	dur, durErr := e.mpv.GetProperty("duration", mpv.FORMAT_DOUBLE)

	var durationChanged bool
	var duration time.Duration
	if durErr == nil && !loading {
		if secs, ok := dur.(float64); ok {
			duration = seconds(secs)
			if duration > 0 && duration != e.duration {
				e.duration = duration
				durationChanged = true
			}
		}
	}
	e.mu.Unlock()

	if durationChanged {
		e.emit(ctx, playback.EngineEvent{Type: playback.EngineDurationChanged, Duration: duration})
	}
	if posErr != nil {
		zlog.Debug().Msgf("mpv: time-pos unavailable: %v", posErr)
		return
	}
	if ev := timeUpdate(loading, pos); ev != nil {
		e.emit(ctx, *ev)
	}
}

func (e *Engine) emit(ctx context.Context, ev playback.EngineEvent) {
	select {
	case e.events <- ev:
	case <-ctx.Done():
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
