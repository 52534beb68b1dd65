// Package notification provides the notification manager for broadcasting player events.
package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	playerv1 "github.com/osa030/tunemap/internal/api/playerv1"
)

// DefaultSendTimeout bounds a single subscriber send during Broadcast.
const DefaultSendTimeout = 500 * time.Millisecond

// ErrUnknownSubscription is returned by Send when the subscription is gone.
var ErrUnknownSubscription = errors.New("unknown subscription")

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*playerv1.Notification) error
}

// subscription represents a subscriber's subscription.
// sending is a one-slot semaphore held for the whole duration of a stream
// send, so a stream never sees concurrent Send calls.
type subscription struct {
	id       string
	stream   Stream
	progress bool

	sending  chan struct{}
	closed   atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
}

func (s *subscription) close() {
	s.closed.Store(true)
	s.doneOnce.Do(func() { close(s.done) })
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   DefaultSendTimeout,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
// Progress notifications are only delivered when progress is true.
func (m *Manager) Subscribe(stream Stream, progress bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:       id,
		stream:   stream,
		progress: progress,
		sending:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	return id
}

// Done returns a channel that is closed when the subscription is dropped,
// either by Unsubscribe or because its stream failed or stalled.
func (m *Manager) Done(subscriptionID string) <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return sub.done
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription. It waits for an in-flight send to the
// stream to return; no send starts after Unsubscribe returns.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()

	if !ok {
		return
	}
	sub.sending <- struct{}{}
	sub.close()
	<-sub.sending
}

// drop removes a failed subscription without waiting for its stream.
func (m *Manager) drop(sub *subscription) {
	m.mu.Lock()
	if m.subscriptions[sub.id] == sub {
		delete(m.subscriptions, sub.id)
	}
	m.mu.Unlock()
	sub.close()
}

// Broadcast sends a notification to all subscribers.
// Each stream send is done in a goroutine with a timeout to prevent blocking.
// A subscriber whose send fails or times out is dropped.
func (m *Manager) Broadcast(notification *playerv1.Notification) {
	notification.SequenceNo = m.NextSequenceNo()
	progress := notification.Type == playerv1.NotificationTypeProgress

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		if progress && !sub.progress {
			continue
		}
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg conc.WaitGroup
	for _, sub := range subs {
		sub := sub
		wg.Go(func() {
			m.sendWithTimeout(sub, notification)
		})
	}
	wg.Wait()
}

func (m *Manager) sendWithTimeout(sub *subscription, notification *playerv1.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
	defer cancel()

	// The timeout covers waiting for an earlier send on the same stream
	select {
	case sub.sending <- struct{}{}:
	case <-ctx.Done():
		zlog.Debug().Msgf("notification stream busy: subscription=%s", sub.id)
		m.drop(sub)
		return
	}
	if sub.closed.Load() {
		<-sub.sending
		return
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-sub.sending }()
		done <- sub.stream.Send(notification)
	}()

	select {
	case err := <-done:
		if err != nil {
			zlog.Debug().Msgf("notification send failed: subscription=%s error=%v", sub.id, err)
			m.drop(sub)
		}
	case <-ctx.Done():
		zlog.Debug().Msgf("notification send timed out: subscription=%s", sub.id)
		m.drop(sub)
	}
}

// Send sends a notification to a specific subscriber, waiting for any
// broadcast send in progress on the same stream.
func (m *Manager) Send(subscriptionID string, notification *playerv1.Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return errors.Wrap(ErrUnknownSubscription, subscriptionID)
	}

	sub.sending <- struct{}{}
	defer func() { <-sub.sending }()
	if sub.closed.Load() {
		return errors.Wrap(ErrUnknownSubscription, subscriptionID)
	}
	return sub.stream.Send(notification)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	subs := m.subscriptions
	m.subscriptions = make(map[string]*subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}
