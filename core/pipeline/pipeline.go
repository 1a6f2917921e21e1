package pipeline

import (
	"context"
	"fmt"
	"time"

	"training-launcher/core/dataset"
	"training-launcher/core/executor"
	"training-launcher/core/logger"
	"training-launcher/core/models"
	"training-launcher/core/monitoring"
	"training-launcher/core/optimizer"
	"training-launcher/core/session"
	"training-launcher/core/spec"
	"training-launcher/storage"

	"github.com/spf13/afero"
)

// SessionInitializer resolves the account, role and bucket a run uses
type SessionInitializer interface {
	Init(ctx context.Context, opts session.Options) (*session.Session, error)
}

// RunRecorder keeps run history
type RunRecorder interface {
	CreateRun(ctx context.Context, run *models.Run) error
}

// Deps are the collaborators of a Pipeline. Runs, Estimator and Costs are optional.
type Deps struct {
	Sessions       SessionInitializer
	SessionOptions session.Options
	Hub            dataset.Source
	Fs             afero.Fs
	Store          storage.ObjectStore
	Executor       *executor.TrainingExecutor
	Monitor        *monitoring.JobMonitor
	Locators       storage.LocatorStore

	Runs      RunRecorder
	Estimator *optimizer.CostEstimator
	Costs     *monitoring.CostTracker
}

// Pipeline runs one launcher invocation: session, dataset preparation,
// upload, job build, submission, wait and checkpoint locator storage. Steps
// run strictly in order and the first error stops it.
type Pipeline struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps, now: time.Now}
}

// Submission is a submitted job and the session it was submitted in
type Submission struct {
	Session *session.Session
	Job     *models.TrainingJob
	Handle  *models.JobHandle
	Files   *models.DatasetFiles
}

// Run executes the whole workflow and returns the stored checkpoint locator.
// A job that does not succeed returns its error and nothing is stored.
func (p *Pipeline) Run(ctx context.Context, run *spec.RunSpec) (string, error) {
	sub, err := p.Submit(ctx, run)
	if err != nil {
		return "", err
	}

	if err := p.deps.Monitor.Wait(ctx, sub.Handle); err != nil {
		return "", err
	}

	checkpoints := storage.NewCheckpointManager(p.deps.Locators, run.Checkpoint.LocatorName)
	if err := checkpoints.SaveCheckpoint(ctx, sub.Handle.Name, sub.Handle.CheckpointURI); err != nil {
		return "", err
	}

	return sub.Handle.CheckpointURI, nil
}

// Submit runs every step up to and including job submission
func (p *Pipeline) Submit(ctx context.Context, run *spec.RunSpec) (*Submission, error) {
	sess, err := p.deps.Sessions.Init(ctx, p.deps.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	files, err := p.Prepare(ctx, run)
	if err != nil {
		return nil, err
	}

	uploader := storage.NewUploader(p.deps.Store, p.deps.Fs)
	locations, err := uploader.UploadDataset(ctx, sess.Bucket, run.Dataset.S3Prefix, *files)
	if err != nil {
		return nil, err
	}

	job := spec.BuildTrainingJob(run, spec.Target{
		JobName:       spec.JobName(run.Job.BaseName, p.now()),
		Region:        sess.Region,
		RoleARN:       sess.RoleARN,
		Bucket:        sess.Bucket,
		TrainURI:      locations.TrainURI,
		ValidationURI: locations.ValidationURI,
	}, *files)

	estimate := p.estimate(ctx, job)

	handle, err := p.deps.Executor.Submit(ctx, job)
	if err != nil {
		return nil, err
	}

	p.record(ctx, run, job, handle, estimate)
	if estimate != nil && p.deps.Costs != nil {
		p.deps.Costs.TrackJob(job.Name, estimate.Price.PricePerHour, job.InstanceCount, handle.SubmittedAt)
	}

	return &Submission{Session: sess, Job: job, Handle: handle, Files: files}, nil
}

// Prepare loads the run's dataset and writes both slices locally
func (p *Pipeline) Prepare(ctx context.Context, run *spec.RunSpec) (*models.DatasetFiles, error) {
	source := p.deps.Hub
	if run.Dataset.Source == spec.SourceCSV {
		source = dataset.NewCSVSource(p.deps.Fs)
	}

	preparer := dataset.NewPreparer(source, p.deps.Fs)
	return preparer.Prepare(ctx, dataset.Request{
		Dataset: dataset.Ref{
			ID:     run.Dataset.ID,
			Config: run.Dataset.Config,
			Split:  run.Dataset.Split,
		},
		Train:      run.Dataset.Train,
		Validation: run.Dataset.Validation,
		OutputDir:  run.Dataset.LocalDir,
	})
}

// estimate is best effort; a run proceeds without a price
func (p *Pipeline) estimate(ctx context.Context, job *models.TrainingJob) *optimizer.Estimate {
	if p.deps.Estimator == nil {
		return nil
	}

	estimate, err := p.deps.Estimator.EstimateJob(ctx, job)
	if err != nil {
		logger.WithField("instance_type", job.InstanceType).WithError(err).Warn("No price for instance type")
		return nil
	}

	logger.WithFields(map[string]interface{}{
		"instance_type":  job.InstanceType,
		"instance_count": job.InstanceCount,
		"usd_per_hour":   estimate.HourlyUSD,
		"usd_max_run":    estimate.MaxRunUSD,
	}).Info("Estimated on-demand price")
	return estimate
}

// record writes the run to history. History is best effort.
func (p *Pipeline) record(ctx context.Context, run *spec.RunSpec, job *models.TrainingJob, handle *models.JobHandle, estimate *optimizer.Estimate) {
	if p.deps.Runs == nil {
		return
	}

	r := &models.Run{
		JobName:       job.Name,
		DatasetID:     run.Dataset.ID,
		ModelName:     run.Hyperparameters.ModelName,
		Status:        handle.Status,
		CheckpointURI: job.CheckpointURI,
		InstanceType:  job.InstanceType,
		InstanceCount: job.InstanceCount,
	}
	if estimate != nil {
		price := estimate.Price.PricePerHour
		r.PricePerHourUSD = &price
	}

	if err := p.deps.Runs.CreateRun(ctx, r); err != nil {
		logger.WithField("job", job.Name).WithError(err).Warn("Failed to record run")
	}
}
