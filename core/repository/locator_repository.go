package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"training-launcher/core/models"
)

// LocatorRepository stores named locators in Postgres. It satisfies
// storage.LocatorStore.
type LocatorRepository struct {
	db *DB
}

// NewLocatorRepository creates a new locator repository
func NewLocatorRepository(db *DB) *LocatorRepository {
	return &LocatorRepository{db: db}
}

// PutLocator inserts or replaces the value stored under loc.Name
func (r *LocatorRepository) PutLocator(ctx context.Context, loc models.Locator) error {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO locators (name, value, job_name, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, job_name = EXCLUDED.job_name, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, loc.Name, loc.Value, loc.JobName, loc.UpdatedAt); err != nil {
		return fmt.Errorf("failed to store locator %s: %w", loc.Name, err)
	}
	return nil
}

// GetLocator retrieves a locator by name
func (r *LocatorRepository) GetLocator(ctx context.Context, name string) (*models.Locator, error) {
	query := `SELECT name, value, job_name, updated_at FROM locators WHERE name = $1`

	var loc models.Locator
	err := r.db.QueryRowContext(ctx, query, name).Scan(&loc.Name, &loc.Value, &loc.JobName, &loc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrLocatorNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read locator %s: %w", name, err)
	}
	return &loc, nil
}
