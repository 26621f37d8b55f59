// Package dpi opts the process out of DPI virtualization so capture and
// cursor coordinates share one pixel space.
package dpi

// Mode is the awareness level the process ended up with
type Mode string

const (
	ModePerMonitorV2 Mode = "per-monitor-v2"
	ModePerMonitor   Mode = "per-monitor"
	ModeSystem       Mode = "system"
	ModeUnchanged    Mode = "unchanged"
)
