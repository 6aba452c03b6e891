package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	var got []Status

	for i := 0; i < 2; i++ {
		bus.Subscribe(func(e PipelineEvent) {
			mu.Lock()
			got = append(got, e.Status)
			mu.Unlock()
			wg.Done()
		})
	}

	bus.Publish(PipelineEvent{Symbol: "BTCUSDT", Status: StatusExecuted})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscribers not notified in time")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, StatusExecuted, got[0])
}

func TestPublishStampsMissingTimestamp(t *testing.T) {
	bus := NewBus()
	ch := make(chan PipelineEvent, 1)
	bus.Subscribe(func(e PipelineEvent) { ch <- e })

	bus.Publish(PipelineEvent{Symbol: "BTCUSDT", Status: StatusWait})

	select {
	case e := <-ch:
		assert.False(t, e.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	release := make(chan struct{})
	bus.Subscribe(func(PipelineEvent) { <-release })

	start := time.Now()
	bus.Publish(PipelineEvent{Status: StatusWait})
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	close(release)
}
