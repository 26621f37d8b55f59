package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type subscription struct {
	id      SubscriptionID
	handler EventHandler
}

// DefaultEventBus delivers events from a single dispatcher goroutine.
// Handlers of one event run one after another in subscription order, and
// events reach each handler in publish order.
type DefaultEventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscription
	nextSubID   atomic.Int64

	queue    chan Event
	dropped  atomic.Int64
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	log *logrus.Entry
}

// NewEventBus creates a bus whose queue holds bufferSize events. Events
// published while the queue is full are dropped.
func NewEventBus(bufferSize int) *DefaultEventBus {
	if bufferSize < 0 {
		bufferSize = 0
	}

	bus := &DefaultEventBus{
		subscribers: make(map[EventType][]subscription),
		queue:       make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
		log:         logrus.WithField("component", "EventBus"),
	}
	go bus.run()

	return bus
}

// Subscribe registers a handler for a specific event type
func (eb *DefaultEventBus) Subscribe(eventType EventType, handler EventHandler) SubscriptionID {
	id := SubscriptionID(eb.nextSubID.Add(1))

	eb.mu.Lock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscription{id: id, handler: handler})
	eb.mu.Unlock()

	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (eb *DefaultEventBus) Unsubscribe(id SubscriptionID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for eventType, subs := range eb.subscribers {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			// Copy so a dispatch holding the old slice is unaffected
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			rest = append(rest, subs[i+1:]...)
			eb.subscribers[eventType] = rest
			return
		}
	}
}

// Publish queues an event without waiting. Events published after Stop
// or while the queue is full are dropped.
func (eb *DefaultEventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case <-eb.stopCh:
		eb.log.Warnf("Dropped event (bus stopped): %v", event.Type)
		return
	default:
	}

	select {
	case eb.queue <- event:
	default:
		n := eb.dropped.Add(1)
		eb.log.WithField("dropped_total", n).Warnf("Dropped event (queue full): %v", event.Type)
	}
}

// Dropped returns how many events were discarded because the queue was full
func (eb *DefaultEventBus) Dropped() int64 {
	return eb.dropped.Load()
}

// Stop delivers what is already queued and returns once the last handler
// has finished. Safe to call more than once.
func (eb *DefaultEventBus) Stop() {
	eb.stopOnce.Do(func() {
		close(eb.stopCh)
	})
	<-eb.done
}

// SubscriberCount returns the number of handlers for eventType
func (eb *DefaultEventBus) SubscriberCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers[eventType])
}

func (eb *DefaultEventBus) run() {
	defer close(eb.done)

	for {
		select {
		case event := <-eb.queue:
			eb.dispatch(event)

		case <-eb.stopCh:
			for {
				select {
				case event := <-eb.queue:
					eb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (eb *DefaultEventBus) dispatch(event Event) {
	eb.mu.RLock()
	subs := eb.subscribers[event.Type]
	eb.mu.RUnlock()

	for _, sub := range subs {
		eb.call(sub, event)
	}
}

func (eb *DefaultEventBus) call(sub subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.log.WithField("subscription", sub.id).Errorf("Handler panic for event %v: %v", event.Type, r)
		}
	}()
	sub.handler(event)
}

// SubscribeMany registers one handler for several event types
func SubscribeMany(bus EventBus, handler EventHandler, eventTypes ...EventType) []SubscriptionID {
	ids := make([]SubscriptionID, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		ids = append(ids, bus.Subscribe(eventType, handler))
	}
	return ids
}

// UnsubscribeAll removes every listed subscription
func UnsubscribeAll(bus EventBus, ids []SubscriptionID) {
	for _, id := range ids {
		bus.Unsubscribe(id)
	}
}
