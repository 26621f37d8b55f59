package database

import (
	"fmt"
	"time"
)

// Click journal operations

// RecordClick inserts a click row and returns its id
func (db *DB) RecordClick(click *ClickRecord) (int64, error) {
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}

	result, err := db.conn.Exec(`
		INSERT INTO click_log (
			session_id, target, screen_x, screen_y, scale, score,
			desktop_left, desktop_top, desktop_width, desktop_height, backend,
			compensated, ratio_x, ratio_y, region_hash, clicked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, click.SessionID, click.Target, click.ScreenX, click.ScreenY, click.Scale, click.Score,
		click.DesktopLeft, click.DesktopTop, click.DesktopWidth, click.DesktopHeight, click.Backend,
		click.Compensated, click.RatioX, click.RatioY, click.RegionHash, click.ClickedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert click: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	click.ID = id
	return id, nil
}

// GetSessionClicks returns clicks of a session in insertion order
func (db *DB) GetSessionClicks(sessionID string) ([]*ClickRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, target, screen_x, screen_y, scale, COALESCE(score, 0),
			desktop_left, desktop_top, desktop_width, desktop_height, COALESCE(backend, ''),
			compensated, COALESCE(ratio_x, 1), COALESCE(ratio_y, 1), COALESCE(region_hash, ''), clicked_at
		FROM click_log
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clicks: %w", err)
	}
	defer rows.Close()

	var clicks []*ClickRecord
	for rows.Next() {
		var c ClickRecord
		err := rows.Scan(
			&c.ID, &c.SessionID, &c.Target, &c.ScreenX, &c.ScreenY, &c.Scale, &c.Score,
			&c.DesktopLeft, &c.DesktopTop, &c.DesktopWidth, &c.DesktopHeight, &c.Backend,
			&c.Compensated, &c.RatioX, &c.RatioY, &c.RegionHash, &c.ClickedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, &c)
	}

	return clicks, rows.Err()
}

// GetClickCountsByTarget returns clicks per target since a point in time,
// most clicked first
func (db *DB) GetClickCountsByTarget(since time.Time) ([]TargetClickCount, error) {
	rows, err := db.conn.Query(`
		SELECT target, COUNT(*) AS clicks
		FROM click_log
		WHERE clicked_at >= ?
		GROUP BY target
		ORDER BY clicks DESC, target
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query click counts: %w", err)
	}
	defer rows.Close()

	var counts []TargetClickCount
	for rows.Next() {
		var c TargetClickCount
		if err := rows.Scan(&c.Target, &c.Clicks); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

// DeleteOldSessions removes sessions started before olderThan together
// with their clicks and errors
func (db *DB) DeleteOldSessions(olderThan time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM scan_sessions WHERE started_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}
	return result.RowsAffected()
}
