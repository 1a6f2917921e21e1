package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"training-launcher/core/models"
)

// EventRepository handles database operations for run events
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetRunEvents retrieves the events of a run, oldest first
func (r *EventRepository) GetRunEvents(ctx context.Context, runID string, limit int) ([]models.JobEvent, error) {
	query := `
		SELECT id, run_id, at, from_status, to_status, reason, meta_json
		FROM run_events
		WHERE run_id = $1
		ORDER BY at ASC, id ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events of run %s: %w", runID, err)
	}
	defer rows.Close()

	var events []models.JobEvent
	for rows.Next() {
		var event models.JobEvent
		var fromStatus sql.NullString
		var metaJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.RunID,
			&event.At,
			&fromStatus,
			&event.ToStatus,
			&event.Reason,
			&metaJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		if fromStatus.Valid {
			status := models.JobStatus(fromStatus.String)
			event.FromStatus = &status
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &event.MetaJSON); err != nil {
				return nil, fmt.Errorf("failed to decode meta of event %d: %w", event.ID, err)
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func createRunEventTx(ctx context.Context, tx *sql.Tx, runID string, fromStatus *models.JobStatus, toStatus models.JobStatus, reason string, meta map[string]interface{}) error {
	query := `
		INSERT INTO run_events (run_id, from_status, to_status, reason, meta_json)
		VALUES ($1, $2, $3, $4, $5)
	`

	var fromStatusStr *string
	if fromStatus != nil {
		s := string(*fromStatus)
		fromStatusStr = &s
	}

	metaJSON := "{}"
	if meta != nil {
		metaBytes, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to encode event meta: %w", err)
		}
		metaJSON = string(metaBytes)
	}

	_, err := tx.ExecContext(ctx, query, runID, fromStatusStr, toStatus, reason, metaJSON)
	return err
}
