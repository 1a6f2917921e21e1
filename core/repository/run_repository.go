package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"training-launcher/core/models"

	"github.com/google/uuid"
)

// RunRepository handles database operations for launcher runs
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, job_name, dataset_id, model_name, status, checkpoint_uri, failure_reason,
	price_per_hour_usd, instance_type, instance_count, created_at, updated_at`

// CreateRun inserts a run together with its initial event
func (r *RunRepository) CreateRun(ctx context.Context, run *models.Run) error {
	runID := uuid.New()
	if run.ID != "" {
		var err error
		runID, err = uuid.Parse(run.ID)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", run.ID, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.ExecContext(ctx, query,
		runID.String(),
		run.JobName,
		run.DatasetID,
		run.ModelName,
		run.Status,
		run.CheckpointURI,
		run.FailureReason,
		run.PricePerHourUSD,
		run.InstanceType,
		run.InstanceCount,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.JobName, err)
	}

	if err := createRunEventTx(ctx, tx, runID.String(), nil, run.Status, "run_created", nil); err != nil {
		return fmt.Errorf("failed to insert initial event for %s: %w", run.JobName, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	run.ID = runID.String()
	run.CreatedAt = now
	run.UpdatedAt = now
	return nil
}

// GetRun retrieves a run by ID
func (r *RunRepository) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, id)
	}
	return run, err
}

// GetRunByJobName retrieves the run that submitted a training job
func (r *RunRepository) GetRunByJobName(ctx context.Context, jobName string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE job_name = $1`, jobName)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", models.ErrRunNotFound, jobName)
	}
	return run, err
}

// ListRuns lists the newest runs, optionally filtered by status
func (r *RunRepository) ListRuns(ctx context.Context, status *models.JobStatus, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := []interface{}{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpdateRunStatus updates run status atomically with event logging
func (r *RunRepository) UpdateRunStatus(ctx context.Context, runID string, fromStatus, toStatus models.JobStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	updateQuery := `UPDATE runs SET status = $1, failure_reason = $2, updated_at = NOW() WHERE id = $3`
	res, err := tx.ExecContext(ctx, updateQuery, toStatus, reason, runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", models.ErrRunNotFound, runID)
	}

	if err := createRunEventTx(ctx, tx, runID, &fromStatus, toStatus, reason, meta); err != nil {
		return fmt.Errorf("failed to insert event for run %s: %w", runID, err)
	}

	return tx.Commit()
}

// RecordTransition records an observed job transition against the run that
// submitted the job
func (r *RunRepository) RecordTransition(ctx context.Context, jobName string, from, to models.JobStatus, reason string, meta map[string]interface{}) error {
	var runID string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM runs WHERE job_name = $1`, jobName).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: job %s", models.ErrRunNotFound, jobName)
	}
	if err != nil {
		return err
	}

	return r.UpdateRunStatus(ctx, runID, from, to, reason, meta)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var price sql.NullFloat64

	err := row.Scan(
		&run.ID,
		&run.JobName,
		&run.DatasetID,
		&run.ModelName,
		&run.Status,
		&run.CheckpointURI,
		&run.FailureReason,
		&price,
		&run.InstanceType,
		&run.InstanceCount,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if price.Valid {
		run.PricePerHourUSD = &price.Float64
	}
	return &run, nil
}
