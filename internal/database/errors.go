package database

import (
	"fmt"
	"time"
)

// Error logging operations

// LogError creates a new error log entry
func (db *DB) LogError(sessionID *string, errorType, errorMessage string, target *string) (int64, error) {
	result, err := db.conn.Exec(`
		INSERT INTO error_log (session_id, error_type, error_message, target, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, errorType, errorMessage, target, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to insert error log: %w", err)
	}

	return result.LastInsertId()
}

// GetRecentErrors retrieves the most recent errors
func (db *DB) GetRecentErrors(limit int) ([]*ErrorLog, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, error_type, error_message, target, occurred_at
		FROM error_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer rows.Close()

	var errs []*ErrorLog
	for rows.Next() {
		var e ErrorLog
		if err := rows.Scan(&e.ID, &e.SessionID, &e.ErrorType, &e.ErrorMessage, &e.Target, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		errs = append(errs, &e)
	}

	return errs, rows.Err()
}
