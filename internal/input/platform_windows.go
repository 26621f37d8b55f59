//go:build windows
// +build windows

package input

import (
	"fmt"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"jordanella.com/auto-clicker/internal/geometry"
)

// Physical cursor calls bypass DPI virtualization; absent before Vista
var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procSetPhysicalCursorPos = user32.NewProc("SetPhysicalCursorPos")
	procGetPhysicalCursorPos = user32.NewProc("GetPhysicalCursorPos")
)

// WindowsPlatform injects input through user32
type WindowsPlatform struct {
	physical bool
}

// NewPlatform returns the Windows pointer platform
func NewPlatform() *WindowsPlatform {
	return &WindowsPlatform{
		physical: procSetPhysicalCursorPos.Find() == nil && procGetPhysicalCursorPos.Find() == nil,
	}
}

func (p *WindowsPlatform) Native() bool { return true }

func (p *WindowsPlatform) SystemGeometry() (geometry.VirtualDesktopGeometry, error) {
	return geometry.VirtualDesktopGeometry{
		Left:   int(win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)),
		Top:    int(win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)),
		Width:  int(win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)),
		Height: int(win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)),
	}, nil
}

func (p *WindowsPlatform) MoveCursor(pt geometry.Point) error {
	if p.physical {
		if ret, _, _ := procSetPhysicalCursorPos.Call(uintptr(int32(pt.X)), uintptr(int32(pt.Y))); ret != 0 {
			return nil
		}
	}
	if !win.SetCursorPos(int32(pt.X), int32(pt.Y)) {
		return fmt.Errorf("SetCursorPos(%d, %d) failed", pt.X, pt.Y)
	}
	return nil
}

func (p *WindowsPlatform) CursorPosition() (geometry.Point, error) {
	var pt win.POINT
	if p.physical {
		ret, _, _ := procGetPhysicalCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
		if ret != 0 {
			return geometry.Point{X: int(pt.X), Y: int(pt.Y)}, nil
		}
	}
	if !win.GetCursorPos(&pt) {
		return geometry.Point{}, fmt.Errorf("GetCursorPos failed")
	}
	return geometry.Point{X: int(pt.X), Y: int(pt.Y)}, nil
}

func (p *WindowsPlatform) InjectAbsoluteMove(pt geometry.Point, system geometry.VirtualDesktopGeometry) error {
	dx, dy := Normalize(pt, system)
	return sendMouse(
		mouseInput(dx, dy, win.MOUSEEVENTF_MOVE|win.MOUSEEVENTF_ABSOLUTE|win.MOUSEEVENTF_VIRTUALDESK),
	)
}

func (p *WindowsPlatform) InjectButtons(pt geometry.Point, system geometry.VirtualDesktopGeometry) error {
	dx, dy := Normalize(pt, system)
	flags := uint32(win.MOUSEEVENTF_MOVE | win.MOUSEEVENTF_ABSOLUTE | win.MOUSEEVENTF_VIRTUALDESK)
	return sendMouse(
		mouseInput(dx, dy, flags|win.MOUSEEVENTF_LEFTDOWN),
		mouseInput(dx, dy, flags|win.MOUSEEVENTF_LEFTUP),
	)
}

func (p *WindowsPlatform) GenericClick(pt geometry.Point) error {
	if !win.SetCursorPos(int32(pt.X), int32(pt.Y)) {
		return fmt.Errorf("SetCursorPos(%d, %d) failed", pt.X, pt.Y)
	}
	return sendMouse(
		mouseInput(0, 0, win.MOUSEEVENTF_LEFTDOWN),
		mouseInput(0, 0, win.MOUSEEVENTF_LEFTUP),
	)
}

func mouseInput(dx, dy int32, flags uint32) win.MOUSE_INPUT {
	return win.MOUSE_INPUT{
		Type: win.INPUT_MOUSE,
		Mi: win.MOUSEINPUT{
			Dx:      dx,
			Dy:      dy,
			DwFlags: flags,
		},
	}
}

func sendMouse(inputs ...win.MOUSE_INPUT) error {
	n := win.SendInput(uint32(len(inputs)), unsafe.Pointer(&inputs[0]), int32(unsafe.Sizeof(inputs[0])))
	if int(n) != len(inputs) {
		return fmt.Errorf("SendInput sent %d of %d events", n, len(inputs))
	}
	return nil
}
