package bot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"jordanella.com/auto-clicker/internal/capture"
	"jordanella.com/auto-clicker/internal/cv"
	"jordanella.com/auto-clicker/internal/events"
	"jordanella.com/auto-clicker/internal/geometry"
	"jordanella.com/auto-clicker/internal/input"
	"jordanella.com/auto-clicker/internal/logging"
)

// ErrNoTargets is returned by Run when given nothing to look for
var ErrNoTargets = errors.New("no targets to scan for")

// Capturer grabs one desktop frame
type Capturer interface {
	Capture(ctx context.Context) (*capture.CaptureResult, error)
}

// Locator finds a template in a frame. (nil, nil) means not found.
type Locator interface {
	Locate(templateID string, haystack *image.RGBA) (*cv.MatchResult, error)
}

// Clicker clicks a capture-space point
type Clicker interface {
	Click(ctx context.Context, point geometry.Point, source geometry.VirtualDesktopGeometry) (*input.ClickReport, error)
}

// Heartbeat is told about every finished cycle
type Heartbeat interface {
	RecordActivity()
}

// Target is one template the scanner looks for
type Target struct {
	Name       string
	TemplateID string
}

// ScanConfig holds loop timing
type ScanConfig struct {
	ScanInterval time.Duration // pause after every cycle
	ClickDelay   time.Duration // pause after a click
}

// ScanStats counts what the loop has done so far
type ScanStats struct {
	Cycles        int
	Clicks        int
	ClickFailures int
	MatchErrors   int
}

// Scanner repeatedly captures the desktop, looks for targets in order and
// clicks the first one found. It is not safe for concurrent use.
type Scanner struct {
	capturer Capturer
	matcher  Locator
	clicker  Clicker
	config   ScanConfig

	bus       events.EventBus
	reporter  *logging.ErrorReporter
	logger    *logging.Logger
	sessionID string
	heartbeat Heartbeat

	stats      ScanStats
	hintLogged bool
}

// Option configures a Scanner
type Option func(*Scanner)

// WithEventBus publishes scan and click events to bus
func WithEventBus(bus events.EventBus) Option {
	return func(s *Scanner) { s.bus = bus }
}

// WithErrorReporter shares an error reporter with other components
func WithErrorReporter(reporter *logging.ErrorReporter) Option {
	return func(s *Scanner) { s.reporter = reporter }
}

// WithLogger replaces the default component logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// WithSessionID tags events with a scan session id
func WithSessionID(id string) Option {
	return func(s *Scanner) { s.sessionID = id }
}

// WithHeartbeat reports loop progress to a watchdog
func WithHeartbeat(h Heartbeat) Option {
	return func(s *Scanner) { s.heartbeat = h }
}

// NewScanner creates a scanner
func NewScanner(capturer Capturer, matcher Locator, clicker Clicker, config ScanConfig, opts ...Option) *Scanner {
	s := &Scanner{
		capturer: capturer,
		matcher:  matcher,
		clicker:  clicker,
		config:   config,
		logger:   logging.NewLogger("Scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = logging.NewErrorReporter()
		s.reporter.SetLogger(s.logger)
	}
	if s.config.ScanInterval < 0 {
		s.config.ScanInterval = 0
	}
	if s.config.ClickDelay < 0 {
		s.config.ClickDelay = 0
	}
	return s
}

// Stats returns loop counters
func (s *Scanner) Stats() ScanStats {
	return s.stats
}

// Run scans until ctx is cancelled or capture fails. It returns ctx.Err()
// on cancellation and a capture.ErrCaptureUnavailable error when the
// screen can no longer be read.
func (s *Scanner) Run(ctx context.Context, targets []Target) error {
	if len(targets) == 0 {
		return ErrNoTargets
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	s.publish(events.NewScanStartedEvent(s.sessionID, names))
	s.logger.InfoWithContext("Scanning", map[string]interface{}{
		"targets":       len(targets),
		"scan_interval": s.config.ScanInterval,
		"click_delay":   s.config.ClickDelay,
	})

	err := s.loop(ctx, targets)

	reason := ""
	if err != nil {
		reason = err.Error()
	}
	s.publish(events.NewScanStoppedEvent(s.sessionID, s.stats.Cycles, s.stats.Clicks, reason))
	return err
}

func (s *Scanner) loop(ctx context.Context, targets []Target) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := s.capturer.Capture(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.reporter.ReportCriticalError(logging.ErrorCategoryCapture, "Scanner", "Screen capture failed", err, nil)
			s.publish(events.NewErrorEvent("scanner", "capture", err, nil))
			return fmt.Errorf("capture: %w", err)
		}

		clicked, err := s.scanFrame(ctx, frame, targets)
		if err != nil {
			return err
		}
		s.stats.Cycles++
		if s.heartbeat != nil {
			s.heartbeat.RecordActivity()
		}

		if !clicked && !s.hintLogged {
			s.hintLogged = true
			s.logger.Info("No target matched yet. If a target is visible, try lowering confidence, toggling grayscale or adding scales")
		}

		if err := wait(ctx, s.config.ScanInterval); err != nil {
			return err
		}
	}
}

// scanFrame checks targets in order against one frame and clicks the
// first hit. Only context cancellation is returned as an error.
func (s *Scanner) scanFrame(ctx context.Context, frame *capture.CaptureResult, targets []Target) (bool, error) {
	for _, target := range targets {
		match, err := s.matcher.Locate(target.TemplateID, frame.Image)
		if err != nil {
			s.stats.MatchErrors++
			first := s.reporter.ReportOnce("match-engine", &logging.ErrorReport{
				Category:    logging.ErrorCategoryMatch,
				Severity:    logging.ErrorSeverityMedium,
				Component:   "Scanner",
				Message:     "Template match failed, further match errors are suppressed",
				Error:       err,
				Context:     map[string]interface{}{"target": target.Name},
				Recoverable: true,
			})
			if first {
				s.publish(events.NewErrorEvent("scanner", "match", err, map[string]interface{}{"target": target.Name}))
			}
			continue
		}
		if match == nil {
			continue
		}

		point := frame.Geometry.Origin().Add(match.Center)
		report, err := s.clicker.Click(ctx, point, frame.Geometry)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			s.stats.ClickFailures++
			s.reporter.ReportErrorWithContext(logging.ErrorCategoryClick, logging.ErrorSeverityMedium, "Scanner",
				"Click failed", err, map[string]interface{}{"target": target.Name, "point": point.String()})
			s.publish(events.NewClickFailedEvent(s.sessionID, target.Name, point.X, point.Y, err))
			// A missed click counts as no match, later targets still get a turn
			continue
		}

		s.stats.Clicks++
		s.logger.InfoWithContext(fmt.Sprintf("Clicked %s", target.Name), map[string]interface{}{
			"point": point.String(),
			"scale": match.Scale,
		})
		s.publish(events.NewTargetClickedEvent(s.clickDetails(target, match, point, frame, report)))

		return true, wait(ctx, s.config.ClickDelay)
	}

	return false, nil
}

func (s *Scanner) clickDetails(target Target, match *cv.MatchResult, point geometry.Point, frame *capture.CaptureResult, report *input.ClickReport) events.ClickDetails {
	if report == nil {
		report = &input.ClickReport{}
	}
	return events.ClickDetails{
		SessionID:     s.sessionID,
		Target:        target.Name,
		Scale:         match.Scale,
		Score:         match.Score,
		ScreenX:       point.X,
		ScreenY:       point.Y,
		DesktopLeft:   frame.Geometry.Left,
		DesktopTop:    frame.Geometry.Top,
		DesktopWidth:  frame.Geometry.Width,
		DesktopHeight: frame.Geometry.Height,
		Compensated:   report.Compensation.Applied,
		RatioX:        report.Compensation.RatioX,
		RatioY:        report.Compensation.RatioY,
		Backend:       frame.Backend,
		Frame:         frame.Image,
	}
}

func (s *Scanner) publish(event events.Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

// wait sleeps for d or until ctx is done
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
