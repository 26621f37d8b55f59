package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus(10)

	var mu sync.Mutex
	var got []Event
	bus.Subscribe(EventTypeTargetClicked, func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	bus.Publish(NewTargetClickedEvent(ClickDetails{Target: "ok_button", ScreenX: 10, ScreenY: 20}))
	bus.Publish(NewScanStoppedEvent("s", 1, 1, ""))
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "ok_button", got[0].Data["target"])
	assert.Equal(t, 10, got[0].Data["x"])
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestEventsArriveInPublishOrder(t *testing.T) {
	bus := NewEventBus(64)

	var got []int
	bus.Subscribe(EventTypeTargetClicked, func(e Event) {
		got = append(got, e.Data["x"].(int))
	})

	for i := 0; i < 50; i++ {
		bus.Publish(NewTargetClickedEvent(ClickDetails{Target: "t", ScreenX: i}))
	}
	bus.Stop()

	require.Len(t, got, 50)
	for i, x := range got {
		assert.Equal(t, i, x)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus(10)

	var calls int32
	ids := SubscribeMany(bus, func(Event) { atomic.AddInt32(&calls, 1) }, EventTypeError, EventTypeClickFailed)
	assert.Equal(t, 1, bus.SubscriberCount(EventTypeError))
	assert.Equal(t, 1, bus.SubscriberCount(EventTypeClickFailed))

	UnsubscribeAll(bus, ids)
	assert.Equal(t, 0, bus.SubscriberCount(EventTypeError))
	assert.Equal(t, 0, bus.SubscriberCount(EventTypeClickFailed))

	bus.Publish(NewErrorEvent("scanner", "capture", assert.AnError, nil))
	bus.Stop()
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	bus := NewEventBus(10)

	var calls int32
	bus.Subscribe(EventTypeClickFailed, func(Event) { panic("boom") })
	bus.Subscribe(EventTypeClickFailed, func(Event) { atomic.AddInt32(&calls, 1) })

	bus.Publish(NewClickFailedEvent("s", "ok_button", 1, 2, assert.AnError))
	bus.Stop()
	bus.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPublishAfterStopIsDropped(t *testing.T) {
	bus := NewEventBus(1)

	var calls int32
	bus.Subscribe(EventTypeError, func(Event) { atomic.AddInt32(&calls, 1) })
	bus.Stop()

	bus.Publish(NewErrorEvent("scanner", "capture", assert.AnError, nil))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	bus := NewEventBus(1)

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var got []int
	bus.Subscribe(EventTypeTargetClicked, func(e Event) {
		x := e.Data["x"].(int)
		if x == 0 {
			close(started)
			<-release
		}
		mu.Lock()
		got = append(got, x)
		mu.Unlock()
	})

	bus.Publish(NewTargetClickedEvent(ClickDetails{Target: "t", ScreenX: 0}))
	<-started

	// The handler is busy, so one event fits in the queue and the next is dropped
	bus.Publish(NewTargetClickedEvent(ClickDetails{Target: "t", ScreenX: 1}))
	bus.Publish(NewTargetClickedEvent(ClickDetails{Target: "t", ScreenX: 2}))
	assert.Equal(t, int64(1), bus.Dropped())

	close(release)
	bus.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1}, got)
}
