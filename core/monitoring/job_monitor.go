package monitoring

import (
	"context"
	"fmt"
	"time"

	"training-launcher/core/logger"
	"training-launcher/core/models"
	"training-launcher/core/optimizer"
	awsprovider "training-launcher/providers/aws"

	"github.com/sirupsen/logrus"
)

// Recorder is notified of every observed status change
type Recorder interface {
	RecordTransition(ctx context.Context, jobName string, from, to models.JobStatus, reason string, meta map[string]interface{}) error
}

// JobMonitor follows a submitted training job until it terminates
type JobMonitor struct {
	sagemaker    awsprovider.SageMakerAPI
	pollInterval time.Duration
	costTracker  *CostTracker
	recorder     Recorder
	now          func() time.Time
}

// NewJobMonitor creates a new job monitor. costTracker and recorder may be nil.
func NewJobMonitor(
	sm awsprovider.SageMakerAPI,
	pollInterval time.Duration,
	costTracker *CostTracker,
	recorder Recorder,
) *JobMonitor {
	return &JobMonitor{
		sagemaker:    sm,
		pollInterval: pollInterval,
		costTracker:  costTracker,
		recorder:     recorder,
		now:          time.Now,
	}
}

// Wait polls the job every poll interval until it succeeds or fails. A failed
// job returns an error wrapping models.ErrJobFailed. Wait has no timeout of
// its own; cancelling ctx stops waiting but leaves the remote job running.
func (jm *JobMonitor) Wait(ctx context.Context, handle *models.JobHandle) error {
	ticker := time.NewTicker(jm.pollInterval)
	defer ticker.Stop()

	var secondary string
	for {
		desc, err := awsprovider.DescribeTrainingJob(ctx, jm.sagemaker, handle.Name)
		if err != nil {
			return err
		}

		if desc.SecondaryStatus != secondary {
			secondary = desc.SecondaryStatus
			logger.WithFields(logrus.Fields{
				"job":              handle.Name,
				"status":           desc.ServiceStatus,
				"secondary_status": secondary,
			}).Info("Training job status")
		}

		if err := jm.observe(ctx, handle, desc); err != nil {
			return err
		}
		if handle.Status.Terminal() {
			return jm.finish(handle, desc)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("stopped waiting for %s in state %s: %w", handle.Name, handle.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

// observe applies the described status to the handle
func (jm *JobMonitor) observe(ctx context.Context, handle *models.JobHandle, desc *awsprovider.JobDescription) error {
	from := handle.Status
	changed, err := handle.Transition(desc.Status, desc.FailureReason, jm.now().UTC())
	if err != nil {
		return err
	}
	if handle.CheckpointURI == "" {
		handle.CheckpointURI = desc.CheckpointURI
	}

	if handle.Status == models.JobStatusRunning && jm.costTracker != nil && jm.costTracker.IsTracking(handle.Name) {
		cost := jm.costTracker.Update(handle.Name)
		logger.WithField("job", handle.Name).WithField("running_cost_usd", fmt.Sprintf("%.2f", cost)).Debug("Running cost")
	}

	if !changed {
		return nil
	}

	logger.WithFields(logrus.Fields{
		"job":  handle.Name,
		"from": from,
		"to":   handle.Status,
	}).Info("Training job transitioned")

	if jm.recorder == nil {
		return nil
	}
	meta := map[string]interface{}{
		"service_status":   desc.ServiceStatus,
		"secondary_status": desc.SecondaryStatus,
	}
	if desc.ModelArtifacts != "" {
		meta["model_artifacts"] = desc.ModelArtifacts
	}
	if desc.BillableSeconds > 0 {
		meta["billable_seconds"] = desc.BillableSeconds
	}
	// Run history is best effort; the job keeps being followed without it.
	if err := jm.recorder.RecordTransition(ctx, handle.Name, from, handle.Status, desc.FailureReason, meta); err != nil {
		logger.WithField("job", handle.Name).WithError(err).Warn("Failed to record transition")
	}
	return nil
}

func (jm *JobMonitor) finish(handle *models.JobHandle, desc *awsprovider.JobDescription) error {
	fields := logrus.Fields{
		"job":    handle.Name,
		"status": handle.Status,
	}
	if desc.BillableSeconds > 0 {
		fields["billable_seconds"] = desc.BillableSeconds
	}
	if jm.costTracker != nil && jm.costTracker.IsTracking(handle.Name) {
		fields["running_cost_usd"] = fmt.Sprintf("%.2f", jm.costTracker.Update(handle.Name))
		if price, count, ok := jm.costTracker.Rate(handle.Name); ok && desc.BillableSeconds > 0 {
			fields["billed_cost_usd"] = fmt.Sprintf("%.2f", optimizer.BilledCost(price, count, desc.BillableSeconds))
		}
		jm.costTracker.StopTracking(handle.Name)
	}

	if err := handle.Err(); err != nil {
		fields["reason"] = handle.FailureReason
		logger.WithFields(fields).Error("Training job failed")
		return err
	}

	logger.WithFields(fields).Info("Training job completed")
	return nil
}
