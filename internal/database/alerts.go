package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// CreateAlertHistory records a triggered alert
func (db *DB) CreateAlertHistory(h *models.AlertHistory) error {
	query := `
		INSERT INTO alert_history (
			user_id, alert_id, commodity, location, condition,
			target_price, triggered_price, message, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if h.TriggeredAt.IsZero() {
		h.TriggeredAt = time.Now()
	}

	err := db.conn.QueryRow(query,
		h.UserID, h.AlertID, h.Commodity, h.Location, h.Condition,
		h.TargetPrice, h.TriggeredPrice, h.Message, h.TriggeredAt,
	).Scan(&h.ID)

	if err != nil {
		return fmt.Errorf("failed to create alert history: %w", err)
	}
	return nil
}

// GetAlertHistoryByUser retrieves a user's alert history, newest first
func (db *DB) GetAlertHistoryByUser(userID string, limit int) ([]*models.AlertHistory, error) {
	query := `
		SELECT id, user_id, alert_id, commodity, location, condition,
		       target_price, triggered_price, message, triggered_at
		FROM alert_history
		WHERE user_id = $1
		ORDER BY triggered_at DESC
		LIMIT $2
	`
	return db.scanAlertHistory(db.conn.Query(query, userID, limit))
}

// GetRecentAlertHistory retrieves recent alert history across all users
func (db *DB) GetRecentAlertHistory(limit int) ([]*models.AlertHistory, error) {
	query := `
		SELECT id, user_id, alert_id, commodity, location, condition,
		       target_price, triggered_price, message, triggered_at
		FROM alert_history
		ORDER BY triggered_at DESC
		LIMIT $1
	`
	return db.scanAlertHistory(db.conn.Query(query, limit))
}

func (db *DB) scanAlertHistory(rows *sql.Rows, err error) ([]*models.AlertHistory, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	defer rows.Close()

	var history []*models.AlertHistory
	for rows.Next() {
		var h models.AlertHistory
		var message sql.NullString

		err := rows.Scan(
			&h.ID, &h.UserID, &h.AlertID, &h.Commodity, &h.Location, &h.Condition,
			&h.TargetPrice, &h.TriggeredPrice, &message, &h.TriggeredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert history: %w", err)
		}

		if message.Valid {
			h.Message = message.String
		}
		history = append(history, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert history: %w", err)
	}

	return history, nil
}

// DeleteAlertHistoryOlderThan removes alert history older than a specified time
func (db *DB) DeleteAlertHistoryOlderThan(t time.Time) (int64, error) {
	query := `DELETE FROM alert_history WHERE triggered_at < $1`
	result, err := db.conn.Exec(query, t)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alert history: %w", err)
	}
	return result.RowsAffected()
}
