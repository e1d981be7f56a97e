// Package sse streams session events to browsers as Server-Sent Events.
// Events are numbered; a client reconnecting with Last-Event-ID receives the
// retained events it missed before live ones.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// historySize is the number of events kept for replay.
	historySize = 128
	// clientBuffer is the number of events a slow client may fall behind.
	clientBuffer = 256
	// keepAlive is the interval of comment lines on idle streams.
	keepAlive = 30 * time.Second
)

// Event is one SSE message.
type Event struct {
	Event   string `json:"event,omitempty"`
	ID      uint64 `json:"id,omitempty"`
	Session string `json:"-"`
	Data    any    `json:"data"`
}

// visibleTo reports whether a client of session receives e. An empty
// session on either side matches everything.
func (e Event) visibleTo(session string) bool {
	return session == "" || e.Session == "" || e.Session == session
}

type client struct {
	events  chan Event
	session string
}

// Broadcaster numbers events and fans them out to connected clients.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	history []Event
	lastID  uint64

	join   chan *client
	leave  chan *client
	events chan Event
	logger *zerolog.Logger
}

// NewBroadcaster creates a broadcaster. Call Run to start delivery.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
		join:    make(chan *client, 16),
		leave:   make(chan *client, 16),
		events:  make(chan Event, clientBuffer),
		logger:  logger,
	}
}

// Run delivers events until ctx is done, then ends every stream.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for c := range b.clients {
				close(c.events)
			}
			clear(b.clients)
			b.mu.Unlock()
			b.logger.Info().Msg("SSE broadcaster shut down")
			return

		case c := <-b.join:
			b.mu.Lock()
			b.clients[c] = struct{}{}
			total := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug().Str("session_id", c.session).Int("total_clients", total).Msg("SSE client connected")

		case c := <-b.leave:
			b.mu.Lock()
			if _, ok := b.clients[c]; ok {
				delete(b.clients, c)
				close(c.events)
			}
			total := len(b.clients)
			b.mu.Unlock()
			b.logger.Debug().Str("session_id", c.session).Int("total_clients", total).Msg("SSE client disconnected")

		case event := <-b.events:
			b.publish(event)
		}
	}
}

func (b *Broadcaster) publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	event.ID = b.lastID
	b.history = append(b.history, event)
	if len(b.history) > historySize {
		b.history = b.history[len(b.history)-historySize:]
	}

	for c := range b.clients {
		if !event.visibleTo(c.session) {
			continue
		}
		select {
		case c.events <- event:
		default:
			b.logger.Warn().Str("session_id", c.session).Uint64("event_id", event.ID).Msg("SSE client buffer full, event skipped")
		}
	}
}

// Broadcast queues an event. It never blocks; the event is dropped when the
// queue is full.
func (b *Broadcaster) Broadcast(event Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn().Str("event", event.Event).Msg("SSE queue full, event dropped")
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Since returns the retained events after id visible to session.
func (b *Broadcaster) Since(id uint64, session string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Event
	for _, e := range b.history {
		if e.ID > id && e.visibleTo(session) {
			out = append(out, e)
		}
	}
	return out
}

// ServeHTTP streams the events of every session.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.Serve(w, r, "")
}

// Serve streams the events of one session until the request ends.
func (b *Broadcaster) Serve(w http.ResponseWriter, r *http.Request, session string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	c := &client{events: make(chan Event, clientBuffer), session: session}
	b.join <- c
	defer func() { b.leave <- c }()

	b.write(w, Event{Event: "connected", Data: map[string]any{"session": session}})

	// Replayed events may also arrive live; ids let the loop skip them.
	var sent uint64
	if last, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, e := range b.Since(last, session) {
			b.write(w, e)
			sent = e.ID
		}
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return
			}
			if event.ID <= sent {
				continue
			}
			b.write(w, event)
			sent = event.ID
			flusher.Flush()

		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (b *Broadcaster) write(w http.ResponseWriter, event Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Str("event", event.Event).Msg("Failed to marshal SSE event data")
		return
	}
	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.ID)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
