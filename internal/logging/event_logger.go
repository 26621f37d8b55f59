package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/auto-clicker/internal/events"
)

// EventLogger subscribes to the event bus and writes every event to a
// per-run log file.
type EventLogger struct {
	logger          *Logger
	eventBus        events.EventBus
	subscriptionIDs []events.SubscriptionID
	logFile         *os.File
}

// NewEventLogger creates a new event logger writing events_<ts>.log in logDir
func NewEventLogger(eventBus events.EventBus, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("events_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	el := &EventLogger{
		logger:   NewLoggerWithOutput("EventLogger", logFile),
		eventBus: eventBus,
		logFile:  logFile,
	}

	el.subscriptionIDs = events.SubscribeMany(eventBus, el.handleEvent, events.AllEventTypes...)

	return el, nil
}

// Path returns the log file location
func (el *EventLogger) Path() string {
	return el.logFile.Name()
}

// handleEvent handles incoming events and logs them
func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"event_type": string(event.Type),
		"source":     event.Source,
	}

	for k, v := range event.Data {
		if k == events.DataKeyFrame {
			continue
		}
		context[k] = v
	}

	el.logger.InfoWithContext(fmt.Sprintf("Event: %s", event.Type), context)
}

// Close unsubscribes and closes the log file
func (el *EventLogger) Close() error {
	events.UnsubscribeAll(el.eventBus, el.subscriptionIDs)
	el.subscriptionIDs = nil

	if el.logFile != nil {
		return el.logFile.Close()
	}
	return nil
}
