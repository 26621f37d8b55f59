package testutil

import (
	"errors"

	"jordanella.com/auto-clicker/internal/geometry"
	"jordanella.com/auto-clicker/internal/input"
)

// Call records a single pointer action.
type Call struct {
	Name string
	X    int
	Y    int
}

// FakePlatform implements input.Platform and records calls for tests.
type FakePlatform struct {
	System    geometry.VirtualDesktopGeometry
	SystemErr error
	NonNative bool

	// Readback maps the last move target to the reported cursor position.
	// nil reports the target unchanged.
	Readback    func(moved geometry.Point) geometry.Point
	ReadbackErr error

	// Fail makes the named call return an error
	Fail map[string]error

	Calls  []Call
	cursor geometry.Point
}

// Ensure FakePlatform implements the interface.
var _ input.Platform = (*FakePlatform)(nil)

// NewFakePlatform returns a native fake with the given system geometry.
func NewFakePlatform(system geometry.VirtualDesktopGeometry) *FakePlatform {
	return &FakePlatform{System: system}
}

func (f *FakePlatform) record(name string, p geometry.Point) error {
	f.Calls = append(f.Calls, Call{Name: name, X: p.X, Y: p.Y})
	if err, ok := f.Fail[name]; ok {
		return err
	}
	return nil
}

// Native reports whether the geometry-aware path is used.
func (f *FakePlatform) Native() bool { return !f.NonNative }

// SystemGeometry returns the configured system geometry.
func (f *FakePlatform) SystemGeometry() (geometry.VirtualDesktopGeometry, error) {
	return f.System, f.SystemErr
}

// MoveCursor records a move and updates the cursor.
func (f *FakePlatform) MoveCursor(p geometry.Point) error {
	if err := f.record("MoveCursor", p); err != nil {
		return err
	}
	f.cursor = p
	if f.Readback != nil {
		f.cursor = f.Readback(p)
	}
	return nil
}

// CursorPosition returns the scripted cursor position.
func (f *FakePlatform) CursorPosition() (geometry.Point, error) {
	if f.ReadbackErr != nil {
		return geometry.Point{}, f.ReadbackErr
	}
	return f.cursor, nil
}

// InjectAbsoluteMove records an absolute move.
func (f *FakePlatform) InjectAbsoluteMove(p geometry.Point, _ geometry.VirtualDesktopGeometry) error {
	return f.record("InjectAbsoluteMove", p)
}

// InjectButtons records a press and release.
func (f *FakePlatform) InjectButtons(p geometry.Point, _ geometry.VirtualDesktopGeometry) error {
	return f.record("InjectButtons", p)
}

// GenericClick records a raw click.
func (f *FakePlatform) GenericClick(p geometry.Point) error {
	return f.record("GenericClick", p)
}

// Named returns the recorded calls with the given name.
func (f *FakePlatform) Named(name string) []Call {
	var out []Call
	for _, c := range f.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// ErrInjected is a canned failure for Fail.
var ErrInjected = errors.New("injected failure")
