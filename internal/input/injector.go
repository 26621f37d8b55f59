package input

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"jordanella.com/auto-clicker/internal/geometry"
)

// ErrClickInjection means the OS rejected a cursor move or button event.
// Imprecise placement is reported in the ClickReport, never as an error.
var ErrClickInjection = errors.New("click injection failed")

// Platform is the OS pointer capability set the injector drives
type Platform interface {
	// SystemGeometry returns the OS virtual-screen bounds right now
	SystemGeometry() (geometry.VirtualDesktopGeometry, error)
	MoveCursor(p geometry.Point) error
	CursorPosition() (geometry.Point, error)
	// InjectAbsoluteMove sends a move scoped to the whole virtual desktop
	InjectAbsoluteMove(p geometry.Point, system geometry.VirtualDesktopGeometry) error
	// InjectButtons sends a left press and release at p
	InjectButtons(p geometry.Point, system geometry.VirtualDesktopGeometry) error
	// GenericClick clicks at raw coordinates with no geometry handling
	GenericClick(p geometry.Point) error
	// Native reports whether the geometry-aware path is available
	Native() bool
}

// Compensation tunes the post-move placement check
type Compensation struct {
	Tolerance   int           // allowed readback error in pixels per axis
	RatioMin    float64       // lower bound for the per-axis correction ratio
	RatioMax    float64       // upper bound for the per-axis correction ratio
	SettleDelay time.Duration // wait between move and readback
}

// DefaultCompensation returns the standard tuning
func DefaultCompensation() Compensation {
	return Compensation{
		Tolerance:   2,
		RatioMin:    0.5,
		RatioMax:    2.0,
		SettleDelay: 10 * time.Millisecond,
	}
}

// CompensationState records what the placement check saw on one click
type CompensationState struct {
	Requested geometry.Point
	Observed  geometry.Point
	Corrected geometry.Point
	RatioX    float64
	RatioY    float64
	Checked   bool // readback succeeded
	Applied   bool // a corrective move was issued
}

// ClickReport describes how a click was delivered
type ClickReport struct {
	Point        geometry.Point // as requested, in capture space
	Target       geometry.Point // remapped and clamped, in system space
	System       geometry.VirtualDesktopGeometry
	Remapped     bool
	Generic      bool // delivered through GenericClick
	Compensation CompensationState
}

// Injector turns capture-space points into clicks
type Injector struct {
	platform     Platform
	compensation Compensation
}

// NewInjector creates an injector over platform
func NewInjector(platform Platform, compensation Compensation) *Injector {
	if compensation.RatioMin <= 0 || compensation.RatioMax < compensation.RatioMin {
		d := DefaultCompensation()
		compensation.RatioMin, compensation.RatioMax = d.RatioMin, d.RatioMax
	}
	if compensation.Tolerance < 0 {
		compensation.Tolerance = 0
	}
	return &Injector{platform: platform, compensation: compensation}
}

// Click moves the pointer to point, given in the source capture frame,
// and clicks there.
func (i *Injector) Click(ctx context.Context, point geometry.Point, source geometry.VirtualDesktopGeometry) (*ClickReport, error) {
	report := &ClickReport{Point: point, Target: point}

	if !i.platform.Native() {
		return report, i.generic(report, point)
	}

	system, err := i.platform.SystemGeometry()
	if err != nil || system.Degenerate() {
		return report, i.generic(report, point)
	}
	report.System = system

	target := point
	if source != system {
		target = Remap(point, source, system)
		report.Remapped = true
	}
	target = system.Clamp(target)
	report.Target = target

	if err := i.platform.MoveCursor(target); err != nil {
		return report, fmt.Errorf("%w: move cursor to %s: %v", ErrClickInjection, target, err)
	}

	if err := sleep(ctx, i.compensation.SettleDelay); err != nil {
		return report, err
	}

	report.Compensation = CompensationState{Requested: target, RatioX: 1, RatioY: 1}
	if observed, err := i.platform.CursorPosition(); err == nil {
		if err := i.compensate(&report.Compensation, observed, system); err != nil {
			return report, err
		}
	}

	if err := i.platform.InjectAbsoluteMove(target, system); err != nil {
		return report, fmt.Errorf("%w: absolute move to %s: %v", ErrClickInjection, target, err)
	}
	if err := i.platform.InjectButtons(target, system); err != nil {
		return report, fmt.Errorf("%w: button events at %s: %v", ErrClickInjection, target, err)
	}

	return report, nil
}

func (i *Injector) generic(report *ClickReport, point geometry.Point) error {
	report.Generic = true
	if err := i.platform.GenericClick(point); err != nil {
		return fmt.Errorf("%w: generic click at %s: %v", ErrClickInjection, point, err)
	}
	return nil
}

// compensate corrects a cursor that landed away from the requested point,
// as happens when the OS silently rescales input. At most one corrective
// move is made.
func (i *Injector) compensate(state *CompensationState, observed geometry.Point, system geometry.VirtualDesktopGeometry) error {
	state.Checked = true
	state.Observed = observed
	state.Corrected = state.Requested

	req := state.Requested
	if abs(observed.X-req.X) <= i.compensation.Tolerance && abs(observed.Y-req.Y) <= i.compensation.Tolerance {
		return nil
	}

	state.RatioX = i.ratio(req.X, observed.X, system.Left)
	state.RatioY = i.ratio(req.Y, observed.Y, system.Top)

	corrected := geometry.Point{
		X: int(math.Round(float64(system.Left) + float64(req.X-system.Left)*state.RatioX)),
		Y: int(math.Round(float64(system.Top) + float64(req.Y-system.Top)*state.RatioY)),
	}
	state.Corrected = system.Clamp(corrected)
	state.Applied = true

	if err := i.platform.MoveCursor(state.Corrected); err != nil {
		return fmt.Errorf("%w: corrective move to %s: %v", ErrClickInjection, state.Corrected, err)
	}
	return nil
}

// ratio is how far the requested offset overshoots the observed one,
// clamped to the configured bounds. An axis observed at the origin keeps 1.
func (i *Injector) ratio(requested, observed, origin int) float64 {
	obsOffset := float64(observed - origin)
	if math.Abs(obsOffset) < 1 {
		return 1
	}
	r := float64(requested-origin) / obsOffset
	return math.Min(math.Max(r, i.compensation.RatioMin), i.compensation.RatioMax)
}

func sleep(ctx context.Context, d time.Duration) error {
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

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
