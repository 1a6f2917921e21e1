package models

import (
	"errors"
	"fmt"
	"time"
)

// TrainingJob is the descriptor of one managed training execution. It is
// assembled once by the pipeline and not modified after submission.
type TrainingJob struct {
	Name       string
	Region     string
	Image      string // ECR training image URI
	RoleARN    string
	EntryPoint string // script inside the source bundle, e.g. "train.py"
	SourceDir  string // local directory or an s3:// sourcedir.tar.gz
	SourceURI  string // set by the executor after the bundle is uploaded

	Hyperparameters Hyperparameters
	Distribution    Distribution

	// Channels maps channel name (e.g. "train") to an s3:// URI
	Channels            map[string]string
	OutputPath          string
	CheckpointURI       string
	CheckpointLocalPath string

	InstanceType   string
	InstanceCount  int
	VolumeSizeGB   int
	MaxRuntime     time.Duration
	ContainerDebug bool
	Tags           map[string]string
}

// Hyperparameters are the named values passed to the entry-point script
type Hyperparameters map[string]interface{}

// Distribution describes how the entry point is launched across GPUs
type Distribution struct {
	ModelParallel ModelParallelConfig
	MPI           MPIConfig
}

// ModelParallelConfig enables the model parallel library and carries its parameters
type ModelParallelConfig struct {
	Enabled    bool
	Parameters ModelParallelParameters
}

// ModelParallelParameters is serialized as the library's parameter mapping.
// Field order is the serialization order.
type ModelParallelParameters struct {
	PipelineParallelDegree     int    `json:"pipeline_parallel_degree" yaml:"pipeline_parallel_degree"`
	ShardedDataParallelDegree  int    `json:"sharded_data_parallel_degree" yaml:"sharded_data_parallel_degree"`
	Partitions                 int    `json:"partitions" yaml:"partitions"`
	DDP                        bool   `json:"ddp" yaml:"ddp"`
	DDPDistBackend             string `json:"ddp_dist_backend,omitempty" yaml:"ddp_dist_backend"`
	OffloadActivations         bool   `json:"offload_activations" yaml:"offload_activations"`
	FP16                       bool   `json:"fp16,omitempty" yaml:"fp16"`
	BF16                       bool   `json:"bf16,omitempty" yaml:"bf16"`
	ActivationLoadingHorizon   int    `json:"activation_loading_horizon,omitempty" yaml:"activation_loading_horizon"`
	DelayedParameterInitialize bool   `json:"delayed_parameter_initialization,omitempty" yaml:"delayed_parameter_initialization"`
}

// MPIConfig configures the multi-process launcher
type MPIConfig struct {
	Enabled          bool
	ProcessesPerHost int
	CustomMPIOptions string
}

// JobStatus represents the observed status of a remote training job
type JobStatus string

const (
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is possible
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

var (
	// ErrInvalidTransition is returned when an observed status would move a handle backwards
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrJobFailed is returned when the remote job reaches the failed state
	ErrJobFailed = errors.New("training job failed")
)

// JobHandle represents one submitted remote execution. Its status only moves
// forward: submitted -> running -> {succeeded, failed}. Submitted may also go
// straight to a terminal state when the job finishes between two polls.
type JobHandle struct {
	Name          string
	ARN           string
	Status        JobStatus
	FailureReason string
	CheckpointURI string
	SubmittedAt   time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// NewJobHandle returns a handle in the submitted state
func NewJobHandle(name, arn, checkpointURI string, at time.Time) *JobHandle {
	return &JobHandle{
		Name:          name,
		ARN:           arn,
		Status:        JobStatusSubmitted,
		CheckpointURI: checkpointURI,
		SubmittedAt:   at,
	}
}

// Transition applies an observed status. Observing the current status again is
// a no-op and returns changed=false.
func (h *JobHandle) Transition(to JobStatus, reason string, at time.Time) (changed bool, err error) {
	if to == h.Status {
		return false, nil
	}
	if !validTransition(h.Status, to) {
		return false, fmt.Errorf("%w: %s -> %s for job %s", ErrInvalidTransition, h.Status, to, h.Name)
	}

	h.Status = to
	switch to {
	case JobStatusRunning:
		h.StartedAt = &at
	case JobStatusFailed:
		h.FailureReason = reason
		h.CompletedAt = &at
	case JobStatusSucceeded:
		h.CompletedAt = &at
	}
	return true, nil
}

// Err returns ErrJobFailed wrapped with the failure reason for a failed handle, nil otherwise
func (h *JobHandle) Err() error {
	if h.Status != JobStatusFailed {
		return nil
	}
	if h.FailureReason == "" {
		return fmt.Errorf("%w: %s", ErrJobFailed, h.Name)
	}
	return fmt.Errorf("%w: %s: %s", ErrJobFailed, h.Name, h.FailureReason)
}

func validTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusSubmitted:
		return to == JobStatusRunning || to.Terminal()
	case JobStatusRunning:
		return to.Terminal()
	default:
		return false
	}
}
