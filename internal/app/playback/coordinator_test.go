package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunemap/internal/domain/track"
)

// fakeEngine records calls and lets tests inject feedback.
type fakeEngine struct {
	mu       sync.Mutex
	loaded   []string
	plays    int
	pauses   int
	stops    int
	seeks    []time.Duration
	gain     float64
	muted    bool
	loadErr  error
	playErr  error
	eventsCh chan EngineEvent
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{eventsCh: make(chan EngineEvent, 16)}
}

func (f *fakeEngine) Load(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = append(f.loaded, url)
	return f.loadErr
}

func (f *fakeEngine) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return f.playErr
}

func (f *fakeEngine) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeEngine) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeEngine) Seek(position time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, position)
	return nil
}

func (f *fakeEngine) SetVolume(gain float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gain = gain
	return nil
}

func (f *fakeEngine) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = muted
	return nil
}

func (f *fakeEngine) Events() <-chan EngineEvent { return f.eventsCh }

func (f *fakeEngine) Close() error {
	close(f.eventsCh)
	return nil
}

func (f *fakeEngine) lastLoaded() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loaded) == 0 {
		return ""
	}
	return f.loaded[len(f.loaded)-1]
}

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeEngine) {
	t.Helper()
	engine := newFakeEngine()
	c := NewCoordinator(engine, Config{MediaBaseURL: "http://media.test"})
	t.Cleanup(c.Close)
	return c, engine
}

func tr(id string) track.Track {
	return track.Track{ID: id, Title: "Track " + id, Artist: "Artist", Locator: "uploads/music/" + id + ".mp3"}
}

func ids(tracks []track.Track) []string {
	result := make([]string, len(tracks))
	for i, t := range tracks {
		result[i] = t.ID
	}
	return result
}

func TestNewCoordinator_AppliesInitialVolume(t *testing.T) {
	c, engine := newTestCoordinator(t)

	s := c.Snapshot()
	assert.Equal(t, DefaultVolume, s.Volume)
	assert.False(t, s.Muted)
	assert.InDelta(t, 0.8, engine.gain, 0.0001)
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, -1, s.CurrentIndex)
}

func TestPlayTrack_AddsToPlaylistAndStarts(t *testing.T) {
	c, engine := newTestCoordinator(t)

	c.PlayTrack(tr("1"))

	s := c.Snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, "1", s.Current.ID)
	assert.True(t, s.Playing)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, []string{"1"}, ids(s.Playlist))
	assert.Equal(t, "http://media.test/uploads/music/1.mp3", engine.lastLoaded())
	assert.Equal(t, 1, engine.plays)
}

func TestPlayTrack_ExistingTrackKeepsPlaylist(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.AddToPlaylist(tr("1"))
	c.AddToPlaylist(tr("2"))
	c.AddToPlaylist(tr("3"))

	c.PlayTrack(tr("2"))

	s := c.Snapshot()
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Playlist))
	assert.Equal(t, 1, s.CurrentIndex)
}

func TestPlayTrack_EngineFailureIsNotSurfaced(t *testing.T) {
	c, engine := newTestCoordinator(t)
	engine.loadErr = errors.New("unsupported format")

	c.PlayTrack(tr("1"))

	s := c.Snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, "1", s.Current.ID)
	assert.Equal(t, 0, engine.plays)
}

func TestPauseResume_KeepsTrackIdentity(t *testing.T) {
	c, engine := newTestCoordinator(t)
	c.PlayTrack(tr("1"))

	require.NoError(t, c.PauseTrack())
	s := c.Snapshot()
	assert.False(t, s.Playing)
	assert.Equal(t, StatePaused, s.State())
	assert.Equal(t, "1", s.Current.ID)
	assert.Equal(t, 1, engine.pauses)

	require.NoError(t, c.ResumeTrack())
	s = c.Snapshot()
	assert.True(t, s.Playing)
	assert.Equal(t, "1", s.Current.ID)
	assert.Equal(t, 2, engine.plays)
	assert.Len(t, engine.loaded, 1)
}

func TestPauseResume_WithoutTrack(t *testing.T) {
	c, engine := newTestCoordinator(t)

	assert.ErrorIs(t, c.PauseTrack(), ErrNoTrack)
	assert.ErrorIs(t, c.ResumeTrack(), ErrNoTrack)
	assert.Equal(t, 0, engine.plays)
	assert.Equal(t, 0, engine.pauses)
}

func TestNextTrack_DrainsQueueBeforePlaylist(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.AddToPlaylist(tr("p1"))
	c.AddToPlaylist(tr("p2"))
	c.PlayTrack(tr("p1"))
	c.AddToQueue(tr("q1"))
	c.AddToQueue(tr("q2"))

	require.NoError(t, c.NextTrack())
	s := c.Snapshot()
	assert.Equal(t, "q1", s.Current.ID)
	assert.Equal(t, []string{"q2"}, ids(s.Queue))

	require.NoError(t, c.NextTrack())
	s = c.Snapshot()
	assert.Equal(t, "q2", s.Current.ID)
	assert.Empty(t, s.Queue)

	// Queued tracks joined the playlist; advancement continues from q2.
	assert.Equal(t, []string{"p1", "p2", "q1", "q2"}, ids(s.Playlist))
	assert.Equal(t, 3, s.CurrentIndex)

	require.NoError(t, c.NextTrack())
	s = c.Snapshot()
	assert.Equal(t, "p1", s.Current.ID)
}

func TestNextTrack_QueuedTrackAlreadyInPlaylist(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.AddToPlaylist(tr("1"))
	c.AddToPlaylist(tr("2"))
	c.AddToPlaylist(tr("3"))
	c.PlayTrack(tr("1"))
	c.AddToQueue(tr("3"))

	require.NoError(t, c.NextTrack())

	s := c.Snapshot()
	assert.Equal(t, "3", s.Current.ID)
	assert.Equal(t, 2, s.CurrentIndex)
	assert.Equal(t, []string{"1", "2", "3"}, ids(s.Playlist))
}

func TestNextTrack_QueueWithoutCurrentTrack(t *testing.T) {
	c, engine := newTestCoordinator(t)
	c.AddToQueue(tr("q1"))

	require.NoError(t, c.NextTrack())

	s := c.Snapshot()
	assert.Equal(t, "q1", s.Current.ID)
	assert.True(t, s.Playing)
	assert.Equal(t, []string{"q1"}, ids(s.Playlist))
	assert.Equal(t, "http://media.test/uploads/music/q1.mp3", engine.lastLoaded())
}

func TestNextPrevious_WrapCircularly(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.AddToPlaylist(tr("1"))
	c.AddToPlaylist(tr("2"))
	c.AddToPlaylist(tr("3"))
	c.PlayTrack(tr("3"))

	require.NoError(t, c.NextTrack())
	assert.Equal(t, "1", c.Snapshot().Current.ID)

	require.NoError(t, c.PreviousTrack())
	assert.Equal(t, "3", c.Snapshot().Current.ID)

	require.NoError(t, c.PreviousTrack())
	assert.Equal(t, "2", c.Snapshot().Current.ID)
}

func TestPreviousTrack_IgnoresQueue(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.AddToPlaylist(tr("1"))
	c.AddToPlaylist(tr("2"))
	c.PlayTrack(tr("2"))
	c.AddToQueue(tr("q1"))

	require.NoError(t, c.PreviousTrack())

	s := c.Snapshot()
	assert.Equal(t, "1", s.Current.ID)
	assert.Equal(t, []string{"q1"}, ids(s.Queue))
}

func TestNextPrevious_NothingToPlay(t *testing.T) {
	c, engine := newTestCoordinator(t)

	assert.ErrorIs(t, c.NextTrack(), ErrNothingToPlay)
	assert.ErrorIs(t, c.PreviousTrack(), ErrNothingToPlay)

	// Playlist without a current index is also a no-op.
	c.AddToPlaylist(tr("1"))
	assert.ErrorIs(t, c.NextTrack(), ErrNothingToPlay)
	assert.ErrorIs(t, c.PreviousTrack(), ErrNothingToPlay)
	assert.Nil(t, c.Snapshot().Current)
	assert.Empty(t, engine.loaded)
}

func TestAddToPlaylistAndQueue_Idempotent(t *testing.T) {
	c, _ := newTestCoordinator(t)

	assert.True(t, c.AddToPlaylist(tr("1")))
	assert.False(t, c.AddToPlaylist(tr("1")))
	assert.True(t, c.AddToQueue(tr("1")))
	assert.False(t, c.AddToQueue(tr("1")))

	s := c.Snapshot()
	assert.Equal(t, []string{"1"}, ids(s.Playlist))
	assert.Equal(t, []string{"1"}, ids(s.Queue))
}

func TestClearPlaylist(t *testing.T) {
	c, engine := newTestCoordinator(t)
	c.PlayTrack(tr("1"))
	c.AddToQueue(tr("q1"))

	c.ClearPlaylist()

	s := c.Snapshot()
	assert.Nil(t, s.Current)
	assert.False(t, s.Playing)
	assert.Empty(t, s.Playlist)
	assert.Equal(t, -1, s.CurrentIndex)
	assert.Equal(t, []string{"q1"}, ids(s.Queue))
	assert.Equal(t, 1, engine.pauses)
}

func TestClearQueue(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.AddToQueue(tr("q1"))
	c.AddToQueue(tr("q2"))

	c.ClearQueue()

	assert.Empty(t, c.Snapshot().Queue)
}

func TestSetVolume_Clamps(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
		gain     float64
	}{
		{name: "in range", input: 50, expected: 50, gain: 0.5},
		{name: "negative", input: -10, expected: 0, gain: 0},
		{name: "above max", input: 150, expected: 100, gain: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, engine := newTestCoordinator(t)
			assert.Equal(t, tt.expected, c.SetVolume(tt.input))
			assert.Equal(t, tt.expected, c.Snapshot().Volume)
			assert.InDelta(t, tt.gain, engine.gain, 0.0001)
		})
	}
}

func TestToggleMute(t *testing.T) {
	c, engine := newTestCoordinator(t)

	assert.True(t, c.ToggleMute())
	assert.True(t, engine.muted)
	assert.True(t, c.Snapshot().Muted)

	assert.False(t, c.ToggleMute())
	assert.False(t, engine.muted)
}

func TestSeekTo_UpdatesPositionImmediately(t *testing.T) {
	c, engine := newTestCoordinator(t)
	c.PlayTrack(tr("1"))
	c.HandleEngineEvent(EngineEvent{Type: EngineDurationChanged, Duration: 3 * time.Minute})

	require.NoError(t, c.SeekTo(90*time.Second))

	assert.Equal(t, 90*time.Second, c.Snapshot().Position)
	assert.Equal(t, []time.Duration{90 * time.Second}, engine.seeks)
}

func TestSeekTo_ClampsToDuration(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.PlayTrack(tr("1"))
	c.HandleEngineEvent(EngineEvent{Type: EngineDurationChanged, Duration: time.Minute})

	require.NoError(t, c.SeekTo(5*time.Minute))
	assert.Equal(t, time.Minute, c.Snapshot().Position)

	require.NoError(t, c.SeekTo(-time.Second))
	assert.Equal(t, time.Duration(0), c.Snapshot().Position)
}

func TestSeekTo_WithoutTrack(t *testing.T) {
	c, engine := newTestCoordinator(t)

	assert.ErrorIs(t, c.SeekTo(time.Second), ErrNoTrack)
	assert.Empty(t, engine.seeks)
}

func TestSeekTo_SuppressesTimeUpdates(t *testing.T) {
	engine := newFakeEngine()
	c := NewCoordinator(engine, Config{SeekSuppression: 50 * time.Millisecond})
	t.Cleanup(c.Close)
	c.PlayTrack(tr("1"))

	require.NoError(t, c.SeekTo(60*time.Second))
	c.HandleEngineEvent(EngineEvent{Type: EngineTimeUpdate, Position: 12 * time.Second})
	assert.Equal(t, 60*time.Second, c.Snapshot().Position)

	assert.Eventually(t, func() bool {
		c.HandleEngineEvent(EngineEvent{Type: EngineTimeUpdate, Position: 61 * time.Second})
		return c.Snapshot().Position == 61*time.Second
	}, time.Second, 10*time.Millisecond)
}

func TestHandleEngineEvent_TimeUpdateAndDuration(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.PlayTrack(tr("1"))

	c.HandleEngineEvent(EngineEvent{Type: EngineDurationChanged, Duration: 0})
	assert.Equal(t, time.Duration(0), c.Snapshot().Duration)

	c.HandleEngineEvent(EngineEvent{Type: EngineDurationChanged, Duration: 200 * time.Second})
	c.HandleEngineEvent(EngineEvent{Type: EngineTimeUpdate, Position: 3 * time.Second})

	s := c.Snapshot()
	assert.Equal(t, 200*time.Second, s.Duration)
	assert.Equal(t, 3*time.Second, s.Position)
}

func TestHandleEngineEvent_NewTrackResetsProgress(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.PlayTrack(tr("1"))
	c.HandleEngineEvent(EngineEvent{Type: EngineDurationChanged, Duration: 200 * time.Second})
	c.HandleEngineEvent(EngineEvent{Type: EngineTimeUpdate, Position: 30 * time.Second})

	c.PlayTrack(tr("2"))

	s := c.Snapshot()
	assert.Equal(t, time.Duration(0), s.Position)
	assert.Equal(t, time.Duration(0), s.Duration)
}

func TestHandleEngineEvent_EndedAdvances(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.AddToPlaylist(tr("1"))
	c.AddToPlaylist(tr("2"))
	c.PlayTrack(tr("1"))

	c.HandleEngineEvent(EngineEvent{Type: EngineEnded})

	s := c.Snapshot()
	assert.Equal(t, "2", s.Current.ID)
	assert.True(t, s.Playing)
}

func TestHandleEngineEvent_EndedWhileIdle(t *testing.T) {
	c, engine := newTestCoordinator(t)
	c.AddToQueue(tr("q1"))

	c.HandleEngineEvent(EngineEvent{Type: EngineEnded})

	assert.Nil(t, c.Snapshot().Current)
	assert.Empty(t, engine.loaded)
}

func TestHandleEngineEvent_ErrorIsLoggedOnly(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.PlayTrack(tr("1"))

	c.HandleEngineEvent(EngineEvent{Type: EngineError, Err: errors.New("decode failed")})

	s := c.Snapshot()
	assert.Equal(t, "1", s.Current.ID)
	assert.True(t, s.Playing)
}

func TestRun_ConsumesEngineEvents(t *testing.T) {
	c, engine := newTestCoordinator(t)
	c.AddToPlaylist(tr("1"))
	c.AddToPlaylist(tr("2"))
	c.PlayTrack(tr("1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	engine.eventsCh <- EngineEvent{Type: EngineEnded}

	assert.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.Current != nil && s.Current.ID == "2"
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEvents_Published(t *testing.T) {
	c, _ := newTestCoordinator(t)

	c.PlayTrack(tr("1"))

	var types []EventType
	for len(c.Events()) > 0 {
		ev := <-c.Events()
		types = append(types, ev.Type)
	}
	assert.Equal(t, []EventType{EventPlaylistChanged, EventTrackStarted}, types)
}

func TestClose_Idempotent(t *testing.T) {
	engine := newFakeEngine()
	c := NewCoordinator(engine, Config{})

	c.Close()
	c.Close()
	c.AddToQueue(tr("1"))

	_, ok := <-c.Events()
	assert.False(t, ok)
	assert.Equal(t, 1, engine.stops)
}

func TestStateAndEventType_String(t *testing.T) {
	assert.Equal(t, "playing", StatePlaying.String())
	assert.Equal(t, "queue_changed", EventQueueChanged.String())
	assert.Equal(t, "timeupdate", EngineTimeUpdate.String())
}
