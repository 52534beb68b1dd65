package notification

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	playerv1 "github.com/osa030/tunemap/internal/api/playerv1"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*playerv1.Notification
	err   error
	delay time.Duration
}

func (s *recordingStream) Send(n *playerv1.Notification) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingStream) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.got))
	for _, n := range s.got {
		types = append(types, n.Type)
	}
	return types
}

func TestManager_SubscribeAndBroadcast(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{}

	idA := m.Subscribe(a, false)
	idB := m.Subscribe(b, true)
	assert.NotEqual(t, idA, idB)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeTrackStarted})
	m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeProgress})

	assert.Equal(t, []string{"track_started"}, a.types())
	assert.Equal(t, []string{"track_started", "progress"}, b.types())

	m.Unsubscribe(idA)
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_SequenceNumbers(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	m.Subscribe(s, false)

	first := m.NextSequenceNo()
	m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeStateChanged})
	m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeQueueChanged})

	assert.Equal(t, first+1, s.got[0].SequenceNo)
	assert.Equal(t, first+2, s.got[1].SequenceNo)
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 20 * time.Millisecond
	fast := &recordingStream{}
	m.Subscribe(&recordingStream{delay: time.Second}, false)
	m.Subscribe(fast, false)
	m.Subscribe(&recordingStream{err: errors.New("broken pipe")}, false)

	start := time.Now()
	m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeStateChanged})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, fast.types(), 1)
}

func TestManager_SendAndClose(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s, false)

	assert.NoError(t, m.Send(id, &playerv1.Notification{Type: playerv1.NotificationTypeInitialState}))
	assert.True(t, errors.Is(m.Send("missing", &playerv1.Notification{}), ErrUnknownSubscription))
	assert.Equal(t, []string{"initial_state"}, s.types())

	done := m.Done(id)
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
	assert.True(t, isClosed(done))
	assert.True(t, errors.Is(m.Send(id, &playerv1.Notification{}), ErrUnknownSubscription))
}

// overlapStream records how many Send calls run at the same time.
type overlapStream struct {
	delay    time.Duration
	started  chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
}

func (s *overlapStream) Send(*playerv1.Notification) error {
	s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	time.Sleep(s.delay)
	return nil
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestManager_StalledStreamNeverSendsConcurrently(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 5 * time.Millisecond
	s := &overlapStream{delay: 30 * time.Millisecond}
	id := m.Subscribe(s, true)
	done := m.Done(id)

	for i := 0; i < 3; i++ {
		m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeProgress})
	}

	// The timed out subscriber is dropped after the first send
	assert.Equal(t, 0, m.SubscriberCount())
	assert.True(t, isClosed(done))

	assert.Eventually(t, func() bool { return s.inFlight.Load() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), s.maxSeen.Load())
	assert.Equal(t, int32(1), s.calls.Load())
}

func TestManager_ConcurrentBroadcastsSerializePerStream(t *testing.T) {
	m := NewManager()
	m.sendTimeout = 5 * time.Millisecond
	s := &overlapStream{delay: 30 * time.Millisecond}
	m.Subscribe(s, true)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeProgress})
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return s.inFlight.Load() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), s.maxSeen.Load())
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_FailedStreamIsDropped(t *testing.T) {
	m := NewManager()
	id := m.Subscribe(&recordingStream{err: errors.New("broken pipe")}, false)

	m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeStateChanged})

	assert.Equal(t, 0, m.SubscriberCount())
	assert.True(t, isClosed(m.Done(id)))
}

func TestManager_UnsubscribeWaitsForInFlightSend(t *testing.T) {
	m := NewManager()
	s := &overlapStream{delay: 50 * time.Millisecond, started: make(chan struct{}, 1)}
	id := m.Subscribe(s, false)

	go func() {
		_ = m.Send(id, &playerv1.Notification{Type: playerv1.NotificationTypeInitialState})
	}()
	<-s.started

	m.Unsubscribe(id)
	assert.Equal(t, int32(0), s.inFlight.Load())

	m.Broadcast(&playerv1.Notification{Type: playerv1.NotificationTypeStateChanged})
	assert.Equal(t, int32(1), s.calls.Load())
}
