package storage

import (
	"context"
	"fmt"
	"time"

	"training-launcher/core/logger"
	"training-launcher/core/models"
)

// CheckpointManager records where a finished job left its checkpoints
type CheckpointManager struct {
	store LocatorStore
	name  string
}

// NewCheckpointManager creates a checkpoint manager writing under locatorName
func NewCheckpointManager(store LocatorStore, locatorName string) *CheckpointManager {
	if locatorName == "" {
		locatorName = models.DefaultLocatorName
	}
	return &CheckpointManager{
		store: store,
		name:  locatorName,
	}
}

// SaveCheckpoint persists the checkpoint address of a job. The address is not
// checked for reachability.
func (cm *CheckpointManager) SaveCheckpoint(ctx context.Context, jobName, checkpointURI string) error {
	if checkpointURI == "" {
		return fmt.Errorf("empty checkpoint uri for job %s", jobName)
	}

	err := cm.store.PutLocator(ctx, models.Locator{
		Name:      cm.name,
		Value:     checkpointURI,
		JobName:   jobName,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to store checkpoint locator %s: %w", cm.name, err)
	}

	logger.WithField("name", cm.name).WithField("uri", checkpointURI).Info("Checkpoint locator stored")
	return nil
}

// GetLatestCheckpoint returns the last stored checkpoint address
func (cm *CheckpointManager) GetLatestCheckpoint(ctx context.Context) (string, error) {
	loc, err := cm.store.GetLocator(ctx, cm.name)
	if err != nil {
		return "", err
	}
	return loc.Value, nil
}
