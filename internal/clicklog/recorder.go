package clicklog

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/auto-clicker/internal/events"
	"jordanella.com/auto-clicker/internal/geometry"
	"jordanella.com/auto-clicker/internal/logging"
)

// Recorder saves an annotated screenshot for every click event
type Recorder struct {
	logDir         string
	eventBus       events.EventBus
	subscriptionID events.SubscriptionID
	logger         *logging.Logger
	reporter       *logging.ErrorReporter
	now            func() time.Time
}

// NewRecorder subscribes to click events and writes screenshots to logDir
func NewRecorder(eventBus events.EventBus, logDir string, reporter *logging.ErrorReporter) (*Recorder, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create click log directory: %w", err)
	}
	if reporter == nil {
		reporter = logging.NewErrorReporter()
	}

	r := &Recorder{
		logDir:   logDir,
		eventBus: eventBus,
		logger:   logging.NewLogger("ClickLog"),
		reporter: reporter,
		now:      time.Now,
	}
	r.subscriptionID = eventBus.Subscribe(events.EventTypeTargetClicked, r.handleEvent)
	return r, nil
}

// Save writes an annotated copy of frame and returns its absolute path
func (r *Recorder) Save(frame *image.RGBA, geom geometry.VirtualDesktopGeometry, info ClickInfo) (string, error) {
	path, err := filepath.Abs(filepath.Join(r.logDir, FileName(r.now(), info.Target, info.Scale)))
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, Annotate(frame, geom, info)); err != nil {
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return path, nil
}

func (r *Recorder) handleEvent(event events.Event) {
	frame, ok := event.Data[events.DataKeyFrame].(*image.RGBA)
	if !ok || frame == nil {
		return
	}

	target, _ := event.Data["target"].(string)
	x, _ := event.Data["x"].(int)
	y, _ := event.Data["y"].(int)
	scale, _ := event.Data["scale"].(float64)
	geom := geometry.VirtualDesktopGeometry{}
	geom.Left, _ = event.Data["desktop_left"].(int)
	geom.Top, _ = event.Data["desktop_top"].(int)
	geom.Width, _ = event.Data["desktop_width"].(int)
	geom.Height, _ = event.Data["desktop_height"].(int)

	path, err := r.Save(frame, geom, ClickInfo{Target: target, Screen: geometry.Point{X: x, Y: y}, Scale: scale})
	if err != nil {
		r.reporter.ReportError(logging.ErrorCategoryAnnotate, logging.ErrorSeverityLow, "ClickLog", "Failed to save click screenshot", err)
		return
	}
	r.logger.InfoWithContext("Saved click screenshot", map[string]interface{}{"path": path})
}

// Close stops listening for click events
func (r *Recorder) Close() {
	r.eventBus.Unsubscribe(r.subscriptionID)
}
