package spec

import (
	"path"
	"path/filepath"
	"strings"
	"time"

	"training-launcher/core/models"
	"training-launcher/storage"
)

// Training job names are limited to 63 characters; the timestamp suffix
// takes 24 of them.
const (
	jobNameTimeFormat = "2006-01-02-15-04-05.000"
	maxBaseNameLength = 63 - 1 - len(jobNameTimeFormat)
)

// Where the training containers mount input channels
const channelMountRoot = "/opt/ml/input/data"

// MountPath returns the path a file uploaded to channel is visible at inside
// the training container
func MountPath(channel, file string) string {
	return path.Join(channelMountRoot, channel, filepath.Base(file))
}

// BuildHyperparameters assembles the script arguments. It does no I/O and
// no range checks; the same inputs always give an equal mapping.
func BuildHyperparameters(run *RunSpec, files models.DatasetFiles) models.Hyperparameters {
	hp := models.Hyperparameters{}
	for k, v := range run.Hyperparameters.Extra {
		hp[k] = v
	}

	h := run.Hyperparameters
	hp["model_name_or_path"] = h.ModelName
	hp["checkpoint_dir"] = h.CheckpointDir
	hp["train_file"] = MountPath(storage.TrainChannel, files.TrainPath)
	hp["validation_file"] = MountPath(storage.ValidationChannel, files.ValidationPath)
	hp["per_device_train_batch_size"] = h.PerDeviceTrainBatch
	hp["per_device_eval_batch_size"] = h.PerDeviceEvalBatch
	hp["block_size"] = h.BlockSize
	hp["num_train_epochs"] = h.NumTrainEpochs

	return hp
}

// BuildDistribution enables the model parallel library with the run's
// parameters, launched through MPI.
func BuildDistribution(run *RunSpec) models.Distribution {
	return models.Distribution{
		ModelParallel: models.ModelParallelConfig{
			Enabled:    true,
			Parameters: run.Distribution.Parameters,
		},
		MPI: models.MPIConfig{
			Enabled:          true,
			ProcessesPerHost: run.Distribution.ProcessesPerHost,
			CustomMPIOptions: run.Distribution.CustomMPIOptions,
		},
	}
}

// JobName appends a millisecond timestamp to base
func JobName(base string, at time.Time) string {
	// Milliseconds only format after a '.', which job names do not allow
	return base + "-" + strings.Replace(at.UTC().Format(jobNameTimeFormat), ".", "-", 1)
}

// Target is where and as whom the job runs, plus the uploaded inputs
type Target struct {
	JobName       string
	Region        string
	RoleARN       string
	Bucket        string
	TrainURI      string
	ValidationURI string
}

// CheckpointURI is the remote checkpoint prefix of a run in bucket
func CheckpointURI(run *RunSpec, bucket string) string {
	return storage.S3URI(bucket, run.Checkpoint.S3Prefix)
}

// BuildTrainingJob assembles the full job descriptor
func BuildTrainingJob(run *RunSpec, target Target, files models.DatasetFiles) *models.TrainingJob {
	tags := map[string]string{}
	for k, v := range run.Job.Tags {
		tags[k] = v
	}

	return &models.TrainingJob{
		Name:            target.JobName,
		Region:          target.Region,
		Image:           strings.ReplaceAll(run.Job.Image, "{region}", target.Region),
		RoleARN:         target.RoleARN,
		EntryPoint:      run.Job.EntryPoint,
		SourceDir:       run.Job.SourceDir,
		Hyperparameters: BuildHyperparameters(run, files),
		Distribution:    BuildDistribution(run),
		Channels: map[string]string{
			storage.TrainChannel:      target.TrainURI,
			storage.ValidationChannel: target.ValidationURI,
		},
		OutputPath:          storage.S3URI(target.Bucket, run.Job.OutputPrefix),
		CheckpointURI:       CheckpointURI(run, target.Bucket),
		CheckpointLocalPath: run.Checkpoint.LocalPath,
		InstanceType:        run.Job.InstanceType,
		InstanceCount:       run.Job.InstanceCount,
		VolumeSizeGB:        run.Job.VolumeSizeGB,
		MaxRuntime:          run.Job.MaxRuntime,
		ContainerDebug:      run.Job.Debug,
		Tags:                tags,
	}
}
