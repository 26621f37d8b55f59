package database

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"

	"jordanella.com/auto-clicker/internal/events"
	"jordanella.com/auto-clicker/internal/logging"
)

// regionSize is the side of the square hashed around a click
const regionSize = 64

// Journal records scanner events of one session into the database
type Journal struct {
	db            *DB
	eventBus      events.EventBus
	sessionID     string
	subscriptions []events.SubscriptionID
	logger        *logging.Logger
	reporter      *logging.ErrorReporter
}

// NewJournal subscribes to click events of sessionID. The session row
// must already exist.
func NewJournal(db *DB, eventBus events.EventBus, sessionID string, reporter *logging.ErrorReporter) *Journal {
	if reporter == nil {
		reporter = logging.NewErrorReporter()
	}

	j := &Journal{
		db:        db,
		eventBus:  eventBus,
		sessionID: sessionID,
		logger:    logging.NewLogger("Journal"),
		reporter:  reporter,
	}
	j.subscriptions = events.SubscribeMany(eventBus, j.handleEvent,
		events.EventTypeTargetClicked, events.EventTypeClickFailed, events.EventTypeError)
	return j
}

// SessionID returns the journaled session
func (j *Journal) SessionID() string {
	return j.sessionID
}

// Close stops listening for events
func (j *Journal) Close() {
	events.UnsubscribeAll(j.eventBus, j.subscriptions)
	j.subscriptions = nil
}

func (j *Journal) handleEvent(event events.Event) {
	switch event.Type {
	case events.EventTypeTargetClicked:
		j.handleClick(event)
	case events.EventTypeClickFailed:
		j.handleClickFailed(event)
	case events.EventTypeError:
		j.handleError(event)
	}
}

func (j *Journal) handleClick(event events.Event) {
	if !j.ownEvent(event) {
		return
	}

	click := &ClickRecord{SessionID: j.sessionID, ClickedAt: event.Timestamp}
	click.Target, _ = event.Data["target"].(string)
	click.ScreenX, _ = event.Data["x"].(int)
	click.ScreenY, _ = event.Data["y"].(int)
	click.Scale, _ = event.Data["scale"].(float64)
	click.Score, _ = event.Data["score"].(float64)
	click.DesktopLeft, _ = event.Data["desktop_left"].(int)
	click.DesktopTop, _ = event.Data["desktop_top"].(int)
	click.DesktopWidth, _ = event.Data["desktop_width"].(int)
	click.DesktopHeight, _ = event.Data["desktop_height"].(int)
	click.Backend, _ = event.Data["backend"].(string)
	click.Compensated, _ = event.Data["compensated"].(bool)
	click.RatioX, _ = event.Data["ratio_x"].(float64)
	click.RatioY, _ = event.Data["ratio_y"].(float64)

	if frame, ok := event.Data[events.DataKeyFrame].(*image.RGBA); ok && frame != nil {
		local := image.Pt(click.ScreenX-click.DesktopLeft, click.ScreenY-click.DesktopTop)
		hash, err := RegionHash(frame, local)
		if err != nil {
			j.logger.Debug(fmt.Sprintf("Region hash skipped: %v", err))
		}
		click.RegionHash = hash
	}

	if _, err := j.db.RecordClick(click); err != nil {
		j.reporter.ReportError(logging.ErrorCategoryJournal, logging.ErrorSeverityMedium, "Journal", "Failed to record click", err)
	}
}

func (j *Journal) handleClickFailed(event events.Event) {
	if !j.ownEvent(event) {
		return
	}

	message, _ := event.Data["error"].(string)
	var target *string
	if t, ok := event.Data["target"].(string); ok && t != "" {
		target = &t
	}
	j.logError("click_failed", message, target)
}

func (j *Journal) handleError(event events.Event) {
	message, _ := event.Data["error"].(string)
	errorType, _ := event.Data["component"].(string)
	if errorType == "" {
		errorType = "error"
	}
	j.logError(errorType, message, nil)
}

func (j *Journal) logError(errorType, message string, target *string) {
	sessionID := j.sessionID
	if _, err := j.db.LogError(&sessionID, errorType, message, target); err != nil {
		j.reporter.ReportError(logging.ErrorCategoryJournal, logging.ErrorSeverityMedium, "Journal", "Failed to record error", err)
	}
}

func (j *Journal) ownEvent(event events.Event) bool {
	id, _ := event.Data["session_id"].(string)
	return id == "" || id == j.sessionID
}

// RegionHash returns the difference hash of the square around p in
// frame-local coordinates. The square is clipped to the frame.
func RegionHash(frame *image.RGBA, p image.Point) (string, error) {
	half := regionSize / 2
	p = p.Add(frame.Bounds().Min)
	region := image.Rect(p.X-half, p.Y-half, p.X+half, p.Y+half).Intersect(frame.Bounds())
	if region.Empty() {
		return "", fmt.Errorf("click point %v outside frame %v", p, frame.Bounds())
	}

	hash, err := goimagehash.DifferenceHash(frame.SubImage(region))
	if err != nil {
		return "", err
	}
	return hash.ToString(), nil
}
