//go:build !windows
// +build !windows

package dpi

import "testing"

func TestEnableIsNoOp(t *testing.T) {
	mode, err := Enable()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mode != ModeUnchanged {
		t.Errorf("Expected %s, got %s", ModeUnchanged, mode)
	}
}
