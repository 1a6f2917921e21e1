package executor

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"training-launcher/core/logger"
	"training-launcher/core/models"
	awsprovider "training-launcher/providers/aws"
	"training-launcher/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/afero"
)

// TrainingExecutor submits training jobs to SageMaker
type TrainingExecutor struct {
	sagemaker awsprovider.SageMakerAPI
	store     storage.ObjectStore
	fs        afero.Fs
	now       func() time.Time
}

// NewTrainingExecutor creates a new training executor. Source bundles are
// read from fs and uploaded through store.
func NewTrainingExecutor(sm awsprovider.SageMakerAPI, store storage.ObjectStore, fs afero.Fs) *TrainingExecutor {
	return &TrainingExecutor{
		sagemaker: sm,
		store:     store,
		fs:        fs,
		now:       time.Now,
	}
}

// Submit uploads the job's source bundle and creates the training job. It
// returns as soon as the service accepted the job; use JobMonitor to wait.
func (e *TrainingExecutor) Submit(ctx context.Context, job *models.TrainingJob) (*models.JobHandle, error) {
	logger.WithField("job", job.Name).WithField("instance_type", job.InstanceType).Info("Submitting training job")

	if job.SourceURI == "" {
		uri, err := e.uploadSource(ctx, job)
		if err != nil {
			return nil, err
		}
		job.SourceURI = uri
	}

	input, err := awsprovider.BuildCreateTrainingJobInput(job)
	if err != nil {
		return nil, fmt.Errorf("failed to build training job %s: %w", job.Name, err)
	}

	out, err := e.sagemaker.CreateTrainingJob(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create training job %s: %w", job.Name, err)
	}

	handle := models.NewJobHandle(job.Name, aws.ToString(out.TrainingJobArn), job.CheckpointURI, e.now().UTC())
	logger.WithField("job", job.Name).WithField("arn", handle.ARN).Info("Training job submitted")

	return handle, nil
}

// uploadSource packages the local source dir next to the job's output.
// Remote bundles are referenced as is.
func (e *TrainingExecutor) uploadSource(ctx context.Context, job *models.TrainingJob) (string, error) {
	if strings.HasPrefix(job.SourceDir, "s3://") {
		return job.SourceDir, nil
	}

	bucket, _, err := storage.ParseS3URI(job.OutputPath)
	if err != nil {
		return "", fmt.Errorf("cannot place source bundle for %s: %w", job.Name, err)
	}

	var buf bytes.Buffer
	if err := PackageSourceDir(e.fs, job.SourceDir, &buf); err != nil {
		return "", err
	}

	uri, err := e.store.PutObject(ctx, bucket, storage.JoinKey(job.Name, "source", SourceBundleName), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to upload source bundle for %s: %w", job.Name, err)
	}
	return uri, nil
}
