//go:build windows
// +build windows

package dpi

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	shcore = windows.NewLazySystemDLL("shcore.dll")

	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")
	procSetProcessDPIAware            = user32.NewProc("SetProcessDPIAware")
	procSetProcessDpiAwareness        = shcore.NewProc("SetProcessDpiAwareness")
)

// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2 is (HANDLE)(-4)
var awarenessPerMonitorV2 = ^uintptr(3)

// PROCESS_PER_MONITOR_DPI_AWARE
const processPerMonitorAware = 2

// Enable requests the strongest DPI awareness the OS offers, trying
// per-monitor v2, then per-monitor, then system awareness. Failing every
// call leaves the process unchanged and returns the collected errors.
func Enable() (Mode, error) {
	var failures []string

	if err := procSetProcessDpiAwarenessContext.Find(); err == nil {
		r, _, callErr := procSetProcessDpiAwarenessContext.Call(awarenessPerMonitorV2)
		if r != 0 {
			return ModePerMonitorV2, nil
		}
		failures = append(failures, fmt.Sprintf("SetProcessDpiAwarenessContext: %v", callErr))
	}

	if err := procSetProcessDpiAwareness.Find(); err == nil {
		// Returns an HRESULT, S_OK is 0
		r, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorAware)
		if r == 0 {
			return ModePerMonitor, nil
		}
		failures = append(failures, fmt.Sprintf("SetProcessDpiAwareness: HRESULT 0x%x", r))
	}

	if err := procSetProcessDPIAware.Find(); err == nil {
		r, _, callErr := procSetProcessDPIAware.Call()
		if r != 0 {
			return ModeSystem, nil
		}
		failures = append(failures, fmt.Sprintf("SetProcessDPIAware: %v", callErr))
	}

	if len(failures) == 0 {
		return ModeUnchanged, errors.New("no DPI awareness API available")
	}
	return ModeUnchanged, errors.New(strings.Join(failures, "; "))
}
