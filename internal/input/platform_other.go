//go:build !windows
// +build !windows

package input

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"jordanella.com/auto-clicker/internal/geometry"
)

// XdotoolPlatform clicks through the xdotool command. It has no view of
// the virtual-screen metrics, so every click takes the generic path.
type XdotoolPlatform struct {
	binary  string
	timeout time.Duration
}

// NewPlatform returns the fallback pointer platform
func NewPlatform() *XdotoolPlatform {
	return &XdotoolPlatform{binary: "xdotool", timeout: 5 * time.Second}
}

func (p *XdotoolPlatform) Native() bool { return false }

func (p *XdotoolPlatform) SystemGeometry() (geometry.VirtualDesktopGeometry, error) {
	return geometry.VirtualDesktopGeometry{}, fmt.Errorf("virtual screen metrics not available")
}

func (p *XdotoolPlatform) MoveCursor(pt geometry.Point) error {
	return p.run("mousemove", "--sync", strconv.Itoa(pt.X), strconv.Itoa(pt.Y))
}

func (p *XdotoolPlatform) CursorPosition() (geometry.Point, error) {
	return geometry.Point{}, fmt.Errorf("cursor readback not supported")
}

func (p *XdotoolPlatform) InjectAbsoluteMove(pt geometry.Point, _ geometry.VirtualDesktopGeometry) error {
	return p.MoveCursor(pt)
}

func (p *XdotoolPlatform) InjectButtons(_ geometry.Point, _ geometry.VirtualDesktopGeometry) error {
	return p.run("click", "1")
}

func (p *XdotoolPlatform) GenericClick(pt geometry.Point) error {
	return p.run("mousemove", "--sync", strconv.Itoa(pt.X), strconv.Itoa(pt.Y), "click", "1")
}

func (p *XdotoolPlatform) run(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.binary, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (%s)", p.binary, args, err, out)
	}
	return nil
}
