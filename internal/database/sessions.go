package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StartSession records the start of a scanner run under a new id
func (db *DB) StartSession(targets []string, settings SessionSettings) (*ScanSession, error) {
	session := &ScanSession{
		ID:         uuid.NewString(),
		StartedAt:  time.Now(),
		Targets:    targets,
		Confidence: settings.Confidence,
		Grayscale:  settings.Grayscale,
		Scales:     settings.Scales,
	}

	_, err := db.conn.Exec(`
		INSERT INTO scan_sessions (id, started_at, targets, confidence, grayscale, scales)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.ID, session.StartedAt, strings.Join(targets, "\n"),
		session.Confidence, session.Grayscale, formatScales(session.Scales))
	if err != nil {
		return nil, fmt.Errorf("failed to insert scan session: %w", err)
	}

	return session, nil
}

// EndSession records how a run ended. An empty reason means a clean stop.
func (db *DB) EndSession(id string, cycles, clicks int, reason string) error {
	var stopReason *string
	if reason != "" {
		stopReason = &reason
	}

	result, err := db.conn.Exec(`
		UPDATE scan_sessions
		SET stopped_at = ?,
			cycles = ?,
			clicks = ?,
			stop_reason = ?
		WHERE id = ?
	`, time.Now(), cycles, clicks, stopReason, id)
	if err != nil {
		return fmt.Errorf("failed to update scan session: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("scan session %s not found", id)
	}
	return nil
}

// GetSession retrieves a scan session by id
func (db *DB) GetSession(id string) (*ScanSession, error) {
	var (
		session ScanSession
		targets string
		scales  string
	)

	err := db.conn.QueryRow(`
		SELECT id, started_at, stopped_at, targets, confidence, grayscale,
			scales, cycles, clicks, stop_reason
		FROM scan_sessions
		WHERE id = ?
	`, id).Scan(
		&session.ID, &session.StartedAt, &session.StoppedAt, &targets,
		&session.Confidence, &session.Grayscale, &scales,
		&session.Cycles, &session.Clicks, &session.StopReason,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scan session %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan session: %w", err)
	}

	if targets != "" {
		session.Targets = strings.Split(targets, "\n")
	}
	session.Scales = parseScales(scales)
	return &session, nil
}

func formatScales(scales []float64) string {
	parts := make([]string, len(scales))
	for i, s := range scales {
		parts[i] = strconv.FormatFloat(s, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func parseScales(raw string) []float64 {
	var scales []float64
	for _, part := range strings.Split(raw, ",") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			scales = append(scales, v)
		}
	}
	return scales
}
