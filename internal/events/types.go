package events

import (
	"image"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	// Scan lifecycle events
	EventTypeScanStarted EventType = "scan.started"
	EventTypeScanStopped EventType = "scan.stopped"

	// Click events
	EventTypeTargetClicked EventType = "target.clicked"
	EventTypeClickFailed   EventType = "click.failed"

	// Error events
	EventTypeError EventType = "error"
)

// AllEventTypes lists every event type the scanner emits
var AllEventTypes = []EventType{
	EventTypeScanStarted,
	EventTypeScanStopped,
	EventTypeTargetClicked,
	EventTypeClickFailed,
	EventTypeError,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "scanner")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish queues an event for all subscribers without waiting
	Publish(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

// NewScanStartedEvent creates a scan started event
func NewScanStartedEvent(sessionID string, targets []string) Event {
	return Event{
		Type:      EventTypeScanStarted,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"targets":    targets,
		},
	}
}

// NewScanStoppedEvent creates a scan stopped event. reason is empty on
// a clean stop.
func NewScanStoppedEvent(sessionID string, cycles, clicks int, reason string) Event {
	return Event{
		Type:      EventTypeScanStopped,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"cycles":     cycles,
			"clicks":     clicks,
			"reason":     reason,
		},
	}
}

// DataKeyFrame holds the captured frame in click events. Subscribers
// must not modify it.
const DataKeyFrame = "frame"

// ClickDetails carries everything known about a successful click
type ClickDetails struct {
	SessionID string
	Target    string
	Scale     float64
	Score     float64
	ScreenX   int
	ScreenY   int

	// Desktop geometry of the frame the match came from
	DesktopLeft, DesktopTop, DesktopWidth, DesktopHeight int

	Compensated    bool
	RatioX, RatioY float64
	Backend        string
	Frame          *image.RGBA
}

// NewTargetClickedEvent creates a target clicked event
func NewTargetClickedEvent(d ClickDetails) Event {
	return Event{
		Type:      EventTypeTargetClicked,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id":     d.SessionID,
			"target":         d.Target,
			"scale":          d.Scale,
			"score":          d.Score,
			"x":              d.ScreenX,
			"y":              d.ScreenY,
			"desktop_left":   d.DesktopLeft,
			"desktop_top":    d.DesktopTop,
			"desktop_width":  d.DesktopWidth,
			"desktop_height": d.DesktopHeight,
			"compensated":    d.Compensated,
			"ratio_x":        d.RatioX,
			"ratio_y":        d.RatioY,
			"backend":        d.Backend,
			DataKeyFrame:     d.Frame,
		},
	}
}

// NewClickFailedEvent creates a click failed event
func NewClickFailedEvent(sessionID, target string, x, y int, err error) Event {
	return Event{
		Type:      EventTypeClickFailed,
		Source:    "scanner",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"session_id": sessionID,
			"target":     target,
			"x":          x,
			"y":          y,
			"error":      err.Error(),
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source, component string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"source":    source,
		"component": component,
		"error":     err.Error(),
	}

	// Merge metadata
	for k, v := range metadata {
		data[k] = v
	}

	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
