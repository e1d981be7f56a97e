package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// queueSize bounds the events waiting for delivery.
const queueSize = 256

// Broker fans session events out to its subscribers. Events reach every
// subscriber in publish order: an event is handed to all subscribers at once
// and the next one waits until each of them returned.
type Broker struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	events      chan Event
	register    chan Subscriber
	unregister  chan Subscriber
	done        chan struct{}
	logger      *zerolog.Logger
}

// NewBroker creates a broker. Call Run to start delivery.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		events:     make(chan Event, queueSize),
		register:   make(chan Subscriber, 16),
		unregister: make(chan Subscriber, 16),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run delivers events until ctx is done, then closes every subscriber.
// Run must be called at most once.
func (b *Broker) Run(ctx context.Context) {
	defer b.drain()
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for _, sub := range b.subscribers {
				_ = sub.Close()
			}
			b.subscribers = nil
			b.mu.Unlock()
			b.logger.Info().Msg("Event broker shut down")
			return

		case sub := <-b.register:
			b.mu.Lock()
			b.subscribers = append(b.subscribers, sub)
			total := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", total).Msg("Subscriber registered")

		case sub := <-b.unregister:
			b.mu.Lock()
			if i := slices.Index(b.subscribers, sub); i >= 0 {
				b.subscribers = slices.Delete(b.subscribers, i, i+1)
				_ = sub.Close()
			}
			total := len(b.subscribers)
			b.mu.Unlock()
			b.logger.Debug().Int("total_subscribers", total).Msg("Subscriber unregistered")

		case event := <-b.events:
			b.deliver(event)
		}
	}
}

// drain marks the broker stopped and closes subscribers still queued.
func (b *Broker) drain() {
	close(b.done)
	for {
		select {
		case sub := <-b.register:
			_ = sub.Close()
		case <-b.unregister:
		default:
			return
		}
	}
}

func (b *Broker) deliver(event Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subscribers)
	b.mu.RUnlock()

	var g errgroup.Group
	for _, sub := range subs {
		g.Go(func() error {
			if err := sub.Send(event); err != nil {
				b.logger.Warn().
					Err(err).
					Str("event_type", string(event.Type)).
					Str("session_id", event.SessionID).
					Msg("Failed to send event to subscriber")
			}
			return nil
		})
	}
	_ = g.Wait()

	b.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("session_id", event.SessionID).
		Int("subscribers", len(subs)).
		Msg("Event delivered")
}

// Publish queues an event of the given session. It never blocks; the event
// is dropped when the queue is full.
func (b *Broker) Publish(eventType EventType, sessionID string, data any) {
	event := Event{
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	select {
	case b.events <- event:
	default:
		b.logger.Warn().
			Str("event_type", string(eventType)).
			Str("session_id", sessionID).
			Msg("Event queue full, event dropped")
	}
}

// Subscribe adds sub once Run picks it up. After Run returned, sub is closed
// right away.
func (b *Broker) Subscribe(sub Subscriber) {
	select {
	case <-b.done:
		_ = sub.Close()
		return
	default:
	}
	select {
	case b.register <- sub:
	case <-b.done:
		_ = sub.Close()
	}
}

// Unsubscribe removes and closes sub. It is a no-op after Run returned.
func (b *Broker) Unsubscribe(sub Subscriber) {
	select {
	case b.unregister <- sub:
	case <-b.done:
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
