package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/matchrules/pkg/logging"
)

type recordingSubscriber struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

func (r *recordingSubscriber) Send(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSubscriber) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSubscriber) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recordingSubscriber) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func runBroker(t *testing.T) (*Broker, context.CancelFunc) {
	t.Helper()
	b := NewBroker(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
	return b, cancel
}

func TestBroker_DeliversInOrder(t *testing.T) {
	b, _ := runBroker(t)

	first, failing := &recordingSubscriber{}, &recordingSubscriber{err: fmt.Errorf("kafka unavailable")}
	b.Subscribe(first)
	b.Subscribe(failing)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 2 }, time.Second, 5*time.Millisecond)

	sequence := []EventType{MatchSetChanged, StateChanged, RulesApplied, StateChanged, ComparisonUpdated}
	for _, typ := range sequence {
		b.Publish(typ, "plant", nil)
	}

	require.Eventually(t, func() bool { return len(first.types()) == len(sequence) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, sequence, first.types())
	// a failing subscriber keeps receiving
	assert.Equal(t, sequence, failing.types())

	first.mu.Lock()
	event := first.events[0]
	first.mu.Unlock()
	assert.Equal(t, "plant", event.SessionID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestBroker_Unsubscribe(t *testing.T) {
	b, _ := runBroker(t)

	sub := &recordingSubscriber{}
	b.Subscribe(sub)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	b.Unsubscribe(sub)
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, sub.isClosed())

	b.Unsubscribe(&recordingSubscriber{})
	b.Publish(SessionDeleted, "plant", nil)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sub.types())
}

func TestBroker_ShutdownClosesSubscribers(t *testing.T) {
	b, cancel := runBroker(t)

	subs := []*recordingSubscriber{{}, {}, {}}
	for _, s := range subs {
		b.Subscribe(s)
	}
	require.Eventually(t, func() bool { return b.SubscriberCount() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return b.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
	for _, s := range subs {
		assert.True(t, s.isClosed())
	}
}

func TestBroker_PublishNeverBlocks(t *testing.T) {
	b := NewBroker(logging.NewNopLogger())

	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize+10; i++ {
			b.Publish(RuleStatusChanged, "plant", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running broker")
	}
	assert.Len(t, b.events, queueSize)
}

func TestBroker_SubscribeAfterShutdown(t *testing.T) {
	b := NewBroker(logging.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	subs := make([]*recordingSubscriber, 40)
	done := make(chan struct{})
	go func() {
		for i := range subs {
			subs[i] = &recordingSubscriber{}
			b.Subscribe(subs[i])
			b.Unsubscribe(subs[i])
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe blocked after the broker stopped")
	}
	for _, s := range subs {
		assert.True(t, s.isClosed())
	}
	assert.Zero(t, b.SubscriberCount())
}
