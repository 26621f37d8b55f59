//go:build !windows
// +build !windows

package dpi

// Enable is a no-op outside Windows
func Enable() (Mode, error) {
	return ModeUnchanged, nil
}
