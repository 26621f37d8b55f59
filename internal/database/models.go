package database

import (
	"time"
)

// ScanSession represents one scanner run
type ScanSession struct {
	ID         string     `db:"id"`
	StartedAt  time.Time  `db:"started_at"`
	StoppedAt  *time.Time `db:"stopped_at"`
	Targets    []string   `db:"targets"`
	Confidence float64    `db:"confidence"`
	Grayscale  bool       `db:"grayscale"`
	Scales     []float64  `db:"scales"`
	Cycles     int        `db:"cycles"`
	Clicks     int        `db:"clicks"`
	StopReason *string    `db:"stop_reason"`
}

// SessionSettings are the matcher settings recorded with a session
type SessionSettings struct {
	Confidence float64
	Grayscale  bool
	Scales     []float64
}

// ClickRecord represents one delivered click
type ClickRecord struct {
	ID        int64   `db:"id"`
	SessionID string  `db:"session_id"`
	Target    string  `db:"target"`
	ScreenX   int     `db:"screen_x"`
	ScreenY   int     `db:"screen_y"`
	Scale     float64 `db:"scale"`
	Score     float64 `db:"score"`

	// Capture frame
	DesktopLeft   int    `db:"desktop_left"`
	DesktopTop    int    `db:"desktop_top"`
	DesktopWidth  int    `db:"desktop_width"`
	DesktopHeight int    `db:"desktop_height"`
	Backend       string `db:"backend"`

	// Placement check
	Compensated bool    `db:"compensated"`
	RatioX      float64 `db:"ratio_x"`
	RatioY      float64 `db:"ratio_y"`

	RegionHash string    `db:"region_hash"`
	ClickedAt  time.Time `db:"clicked_at"`
}

// ErrorLog represents a scanner error record
type ErrorLog struct {
	ID           int64     `db:"id"`
	SessionID    *string   `db:"session_id"`
	ErrorType    string    `db:"error_type"`
	ErrorMessage string    `db:"error_message"`
	Target       *string   `db:"target"`
	OccurredAt   time.Time `db:"occurred_at"`
}

// TargetClickCount summarizes clicks per target
type TargetClickCount struct {
	Target string
	Clicks int
}
