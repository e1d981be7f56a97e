package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func running(t *testing.T) *Broadcaster {
	t.Helper()
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return b
}

func TestBroadcaster_Numbering(t *testing.T) {
	b := running(t)

	b.Broadcast(Event{Event: "a", Session: "s1", Data: 1})
	b.Broadcast(Event{Event: "b", Session: "s2", Data: 2})
	b.Broadcast(Event{Event: "c", Data: 3})

	require.Eventually(t, func() bool { return len(b.Since(0, "")) == 3 }, time.Second, 5*time.Millisecond)

	all := b.Since(0, "")
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	t.Run("session filter keeps unscoped events", func(t *testing.T) {
		got := b.Since(0, "s1")
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Event)
		assert.Equal(t, "c", got[1].Event)
	})

	t.Run("since skips acknowledged events", func(t *testing.T) {
		got := b.Since(2, "")
		require.Len(t, got, 1)
		assert.Equal(t, uint64(3), got[0].ID)
	})
}

func TestBroadcaster_HistoryIsBounded(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	for i := range historySize + 10 {
		b.publish(Event{Data: i})
	}
	got := b.Since(0, "")
	require.Len(t, got, historySize)
	assert.Equal(t, uint64(11), got[0].ID)
}

func TestBroadcaster_Clients(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	s1 := &client{events: make(chan Event, 4), session: "s1"}
	s2 := &client{events: make(chan Event, 4), session: "s2"}
	b.join <- s1
	b.join <- s2
	require.Eventually(t, func() bool { return b.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	b.Broadcast(Event{Event: "changed", Session: "s1"})
	select {
	case e := <-s1.events:
		assert.Equal(t, "changed", e.Event)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, s2.events)

	b.leave <- s2
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-s2.events
	assert.False(t, open)

	cancel()
	<-done
	_, open = <-s1.events
	assert.False(t, open)
	assert.Zero(t, b.ClientCount())
}

func TestBroadcaster_Serve(t *testing.T) {
	b := running(t)
	b.Broadcast(Event{Event: "old", Session: "s1", Data: "x"})
	b.Broadcast(Event{Event: "missed", Session: "s1", Data: "y"})
	require.Eventually(t, func() bool { return len(b.Since(0, "")) == 2 }, time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.Serve(w, r, "s1")
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	next := func() string {
		t.Helper()
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out reading stream")
			return ""
		}
	}

	assert.Equal(t, "event: connected", next())
	assert.Equal(t, `data: {"session":"s1"}`, next())
	assert.Empty(t, next())

	assert.Equal(t, "event: missed", next())
	assert.Equal(t, "id: 2", next())
	assert.Equal(t, `data: "y"`, next())
	assert.Empty(t, next())

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Broadcast(Event{Event: "live", Session: "s1", Data: "z"})
	assert.Equal(t, "event: live", next())
	assert.True(t, strings.HasPrefix(next(), "id: 3"))
}

func TestBroadcaster_BroadcastNeverBlocks(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroadcaster(&logger)
	done := make(chan struct{})
	go func() {
		for range clientBuffer + 10 {
			b.Broadcast(Event{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running broadcaster")
	}
}
