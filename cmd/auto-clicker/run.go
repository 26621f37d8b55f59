package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"jordanella.com/auto-clicker/internal/bot"
	"jordanella.com/auto-clicker/internal/capture"
	"jordanella.com/auto-clicker/internal/clicklog"
	"jordanella.com/auto-clicker/internal/config"
	"jordanella.com/auto-clicker/internal/cv"
	"jordanella.com/auto-clicker/internal/database"
	"jordanella.com/auto-clicker/internal/dpi"
	"jordanella.com/auto-clicker/internal/events"
	"jordanella.com/auto-clicker/internal/input"
	"jordanella.com/auto-clicker/internal/logging"
	"jordanella.com/auto-clicker/internal/monitor"
	"jordanella.com/auto-clicker/pkg/templates"
)

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.NewLogger("AutoClicker")

	// Must happen before the first capture or cursor call
	mode, err := dpi.Enable()
	if err != nil {
		logger.Warn(fmt.Sprintf("DPI awareness not enabled: %v", err))
	}
	logger.Debug(fmt.Sprintf("DPI awareness: %s", mode))

	entries, err := templates.LoadFromDirectory(cfg.TargetsDir)
	if err != nil {
		return err
	}
	printTargets(cmd, cfg.TargetsDir, entries)

	targets := make([]bot.Target, len(entries))
	names := make([]string, len(entries))
	for i, e := range entries {
		targets[i] = bot.Target{Name: e.Name, TemplateID: e.ID}
		names[i] = e.Name
	}

	matcher := cv.NewMatcher(templates.NewImageCache(entries...), cv.Options{
		Confidence: cfg.Confidence,
		Grayscale:  cfg.Grayscale,
		Scales:     cfg.Scales,
	})
	chain := capture.NewDesktopCapture()
	platform := input.NewPlatform()
	injector := input.NewInjector(platform, cfg.Compensation)

	logger.InfoWithContext("Matcher ready", map[string]interface{}{
		"confidence": matcher.Confidence(),
		"grayscale":  matcher.Grayscale(),
		"scales":     config.FormatScales(matcher.Scales()),
		"backends":   chain.Names(),
	})

	reporter := logging.NewErrorReporter()
	reporter.SetLogger(logger)
	bus := events.NewEventBus(100)

	eventLogger, err := logging.NewEventLogger(bus, cfg.LogDir)
	if err != nil {
		bus.Stop()
		return err
	}
	defer eventLogger.Close()

	if cfg.LogClicks {
		recorder, err := clicklog.NewRecorder(bus, cfg.LogDir, reporter)
		if err != nil {
			bus.Stop()
			return err
		}
		defer recorder.Close()
	}

	sessionID := uuid.NewString()
	var db *database.DB
	if !noJournal {
		db, err = openJournal(cfg.DBPath)
		if err != nil {
			bus.Stop()
			return err
		}
		defer db.Close()

		session, err := db.StartSession(names, database.SessionSettings{
			Confidence: matcher.Confidence(),
			Grayscale:  matcher.Grayscale(),
			Scales:     matcher.Scales(),
		})
		if err != nil {
			bus.Stop()
			return err
		}
		sessionID = session.ID

		journal := database.NewJournal(db, bus, sessionID, reporter)
		defer journal.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := monitor.NewHealthChecker(stuckTimeout(cfg)).
		WithUnhealthyCallback(func(reason string, err error) {
			reporter.ReportErrorWithContext(logging.ErrorCategoryCapture, logging.ErrorSeverityHigh,
				"HealthChecker", "Scanner unhealthy", err, map[string]interface{}{"reason": reason})
			bus.Publish(events.NewErrorEvent("monitor", reason, err, nil))
		})
	if platform.Native() {
		health.WithProbe(func(context.Context) error {
			geom, err := platform.SystemGeometry()
			if err != nil {
				return err
			}
			if geom.Degenerate() {
				return fmt.Errorf("virtual desktop is %s", geom)
			}
			return nil
		})
	}

	scanner := bot.NewScanner(chain, matcher, injector,
		bot.ScanConfig{ScanInterval: cfg.ScanInterval, ClickDelay: cfg.ClickDelay},
		bot.WithEventBus(bus),
		bot.WithErrorReporter(reporter),
		bot.WithLogger(logger),
		bot.WithSessionID(sessionID),
		bot.WithHeartbeat(health),
	)

	health.Start()
	runErr := scanner.Run(ctx, targets)
	health.Stop()
	stopped := errors.Is(runErr, context.Canceled)

	// Let subscribers finish before the journal closes
	bus.Stop()

	if db != nil {
		reason := ""
		if !stopped && runErr != nil {
			reason = runErr.Error()
		}
		stats := scanner.Stats()
		if err := db.EndSession(sessionID, stats.Cycles, stats.Clicks, reason); err != nil {
			logger.Error("Failed to close journal session", err)
		}
	}

	if stopped {
		fmt.Fprintln(cmd.OutOrStdout(), "Stopped by user.")
		return nil
	}
	return runErr
}

// stuckTimeout allows a few slow cycles before the watchdog complains
func stuckTimeout(cfg *config.Config) time.Duration {
	timeout := 3 * (cfg.ScanInterval + cfg.ClickDelay)
	if timeout < 30*time.Second {
		timeout = 30 * time.Second
	}
	return timeout
}

func openJournal(path string) (*database.DB, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return db, nil
}

func printTargets(cmd *cobra.Command, dir string, entries []templates.Entry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d target(s) in %s:\n", len(entries), dir)
	for _, e := range entries {
		fmt.Fprintf(out, "  - %s\n", e.Name)
	}
}
