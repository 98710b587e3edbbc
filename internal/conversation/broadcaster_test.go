// ABOUTME: Tests for StateBroadcaster fan-out of session snapshots
// ABOUTME: Covers subscribe, publish, unsubscribe, context cancellation, concurrency

package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeState(phase Phase, title string) State {
	return State{Phase: phase, TitleDraft: title}
}

func TestBroadcaster_SingleSubscriberReceivesState(t *testing.T) {
	b := NewStateBroadcaster(nil)
	defer b.Close()

	ch, _ := b.Subscribe(testContext(t))

	b.Publish(makeState(PhaseDraft, "one"))

	select {
	case received := <-ch:
		assert.Equal(t, PhaseDraft, received.Phase)
		assert.Equal(t, "one", received.TitleDraft)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state")
	}
}

func TestBroadcaster_MultipleSubscribersReceiveSameState(t *testing.T) {
	b := NewStateBroadcaster(nil)
	defer b.Close()

	ctx := testContext(t)
	ch1, _ := b.Subscribe(ctx)
	ch2, _ := b.Subscribe(ctx)
	ch3, _ := b.Subscribe(ctx)

	b.Publish(makeState(PhaseSending, ""))

	for i, ch := range []<-chan State{ch1, ch2, ch3} {
		select {
		case received := <-ch:
			assert.Equal(t, PhaseSending, received.Phase, "subscriber %d got wrong state", i)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBroadcaster_SlowConsumerDoesNotBlockPublisher(t *testing.T) {
	b := NewStateBroadcaster(nil)
	defer b.Close()

	ctx := testContext(t)

	// Subscribe but never read from the first channel
	_, _ = b.Subscribe(ctx)
	ch2, _ := b.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBufferSize*2; i++ {
			b.Publish(makeState(PhaseActive, ""))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	assert.Len(t, ch2, subscriberBufferSize, "fast consumer buffer should be full, extras dropped")
}

func TestBroadcaster_ContextCancellationCleansUp(t *testing.T) {
	b := NewStateBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, subID := b.Subscribe(ctx)

	b.mu.RLock()
	_, exists := b.subscribers[subID]
	b.mu.RUnlock()
	assert.True(t, exists, "subscription should exist before cancel")

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after context cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}

	b.mu.RLock()
	_, exists = b.subscribers[subID]
	b.mu.RUnlock()
	assert.False(t, exists, "subscription should be removed after context cancel")
}

func TestBroadcaster_ManualUnsubscribe(t *testing.T) {
	b := NewStateBroadcaster(nil)
	defer b.Close()

	ch, subID := b.Subscribe(testContext(t))
	b.Unsubscribe(subID)

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	// Publishing and unsubscribing again should not panic
	b.Publish(makeState(PhaseActive, ""))
	b.Unsubscribe(subID)
}

func TestBroadcaster_CloseClosesAllSubscriptions(t *testing.T) {
	b := NewStateBroadcaster(nil)

	ch1, _ := b.Subscribe(testContext(t))
	ch2, _ := b.Subscribe(testContext(t))

	b.Close()

	for i, ch := range []<-chan State{ch1, ch2} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channel %d should be closed after Close()", i)
		case <-time.After(time.Second):
			t.Fatalf("channel %d not closed after Close()", i)
		}
	}

	// Subscribing after Close yields a closed channel
	ch3, _ := b.Subscribe(testContext(t))
	_, ok := <-ch3
	assert.False(t, ok)
}

func TestBroadcaster_ConcurrentPublishSubscribe(t *testing.T) {
	b := NewStateBroadcaster(nil)
	defer b.Close()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, subCancel := context.WithCancel(ctx)
			defer subCancel()
			ch, _ := b.Subscribe(subCtx)
			for j := 0; j < 5; j++ {
				select {
				case <-ch:
				case <-time.After(200 * time.Millisecond):
					return
				}
			}
		}()
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				b.Publish(makeState(PhaseActive, ""))
			}
		}()
	}

	wg.Wait()
}

func TestBroadcaster_SubscribeReturnsUniqueIDs(t *testing.T) {
	b := NewStateBroadcaster(nil)
	defer b.Close()

	_, id1 := b.Subscribe(testContext(t))
	_, id2 := b.Subscribe(testContext(t))

	require.NotEqual(t, id1, id2)
}

// testContext returns a context canceled when the test finishes,
// mirroring testing.T.Context for Go 1.21 toolchains.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
