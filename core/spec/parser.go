package spec

import (
	"fmt"
	"strings"
	"time"

	"training-launcher/core/models"

	"gopkg.in/yaml.v3"
)

// RunSpec is the YAML run file. Every field has a default, so an empty file
// describes the reference GPT-Neo fine-tuning run.
type RunSpec struct {
	Job             JobSection            `yaml:"job"`
	Dataset         DatasetSection        `yaml:"dataset"`
	Hyperparameters HyperparameterSection `yaml:"hyperparameters"`
	Distribution    DistributionSection   `yaml:"distribution"`
	Checkpoint      CheckpointSection     `yaml:"checkpoint"`
}

// JobSection describes the training job itself
type JobSection struct {
	BaseName      string            `yaml:"base_name"`
	Image         string            `yaml:"image"` // "{region}" is replaced with the session region
	EntryPoint    string            `yaml:"entry_point"`
	SourceDir     string            `yaml:"source_dir"` // local directory or s3:// sourcedir.tar.gz
	InstanceType  string            `yaml:"instance_type"`
	InstanceCount int               `yaml:"instance_count"`
	VolumeSizeGB  int               `yaml:"volume_size_gb"`
	MaxRuntime    time.Duration     `yaml:"max_runtime"`
	OutputPrefix  string            `yaml:"output_prefix"`
	Debug         bool              `yaml:"debug"`
	Tags          map[string]string `yaml:"tags"`
}

// DatasetSection selects the dataset and the two row ranges
type DatasetSection struct {
	ID         string          `yaml:"id"`
	Config     string          `yaml:"config"`
	Split      string          `yaml:"split"`
	Source     string          `yaml:"source"` // hub | csv
	Train      models.RowRange `yaml:"train_rows"`
	Validation models.RowRange `yaml:"validation_rows"`
	LocalDir   string          `yaml:"local_dir"`
	S3Prefix   string          `yaml:"s3_prefix"`
}

// Dataset sources
const (
	SourceHub = "hub"
	SourceCSV = "csv"
)

// HyperparameterSection holds the script arguments the launcher knows about.
// Extra is passed through unchanged.
type HyperparameterSection struct {
	ModelName           string                 `yaml:"model_name_or_path"`
	CheckpointDir       string                 `yaml:"checkpoint_dir"`
	PerDeviceTrainBatch int                    `yaml:"per_device_train_batch_size"`
	PerDeviceEvalBatch  int                    `yaml:"per_device_eval_batch_size"`
	BlockSize           int                    `yaml:"block_size"`
	NumTrainEpochs      int                    `yaml:"num_train_epochs"`
	Extra               map[string]interface{} `yaml:"extra"`
}

// DistributionSection configures the model parallel library and MPI launcher
type DistributionSection struct {
	ProcessesPerHost int                            `yaml:"processes_per_host"`
	CustomMPIOptions string                         `yaml:"custom_mpi_options"`
	Parameters       models.ModelParallelParameters `yaml:"parameters"`
}

// CheckpointSection places checkpoints and names the stored locator
type CheckpointSection struct {
	S3Prefix    string `yaml:"s3_prefix"`
	LocalPath   string `yaml:"local_path"`
	LocatorName string `yaml:"locator_name"`
}

// DefaultRunSpec returns the reference run: GPT-Neo 2.7B on 5000/2000 rows of
// alpaca, 4-way sharded data parallelism on one p4d node.
func DefaultRunSpec() *RunSpec {
	return &RunSpec{
		Job: JobSection{
			BaseName:      "smp-gptneo",
			Image:         "763104351884.dkr.ecr.{region}.amazonaws.com/pytorch-training:1.12.1-gpu-py38-cu113-ubuntu20.04-sagemaker",
			EntryPoint:    "train.py",
			SourceDir:     "scripts",
			InstanceType:  "ml.p4d.24xlarge",
			InstanceCount: 1,
			VolumeSizeGB:  500,
			MaxRuntime:    24 * time.Hour,
		},
		Dataset: DatasetSection{
			ID:         "tatsu-lab/alpaca",
			Config:     "default",
			Split:      "train",
			Source:     SourceHub,
			Train:      models.RowRange{Start: 0, End: 5000},
			Validation: models.RowRange{Start: 5000, End: 7000},
			LocalDir:   "data",
			S3Prefix:   "datasets/alpaca",
		},
		Hyperparameters: HyperparameterSection{
			ModelName:           "EleutherAI/gpt-neo-2.7B",
			CheckpointDir:       "/opt/ml/checkpoints",
			PerDeviceTrainBatch: 1,
			PerDeviceEvalBatch:  1,
			BlockSize:           2048,
			NumTrainEpochs:      2,
		},
		Distribution: DistributionSection{
			ProcessesPerHost: 8,
			Parameters: models.ModelParallelParameters{
				PipelineParallelDegree:    1,
				ShardedDataParallelDegree: 4,
				Partitions:                1,
				DDP:                       true,
				DDPDistBackend:            "auto",
				OffloadActivations:        true,
				FP16:                      true,
			},
		},
		Checkpoint: CheckpointSection{
			S3Prefix:    "gptneo-checkpoints",
			LocalPath:   "/opt/ml/checkpoints",
			LocatorName: models.DefaultLocatorName,
		},
	}
}

// ParseRunSpec overlays a YAML run file on the defaults and validates it
func ParseRunSpec(data []byte) (*RunSpec, error) {
	run := DefaultRunSpec()
	if err := yaml.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}
	return run, nil
}

// Validate checks the fields the launcher depends on. Hyperparameter and
// parallelism values are passed to the script uncritically.
func (r *RunSpec) Validate() error {
	for _, req := range []struct{ name, value string }{
		{"job.base_name", r.Job.BaseName},
		{"job.image", r.Job.Image},
		{"job.entry_point", r.Job.EntryPoint},
		{"job.source_dir", r.Job.SourceDir},
		{"job.instance_type", r.Job.InstanceType},
		{"dataset.id", r.Dataset.ID},
		{"hyperparameters.model_name_or_path", r.Hyperparameters.ModelName},
		{"checkpoint.s3_prefix", r.Checkpoint.S3Prefix},
	} {
		if strings.TrimSpace(req.value) == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}

	if r.Job.InstanceCount < 1 {
		return fmt.Errorf("job.instance_count must be at least 1, got %d", r.Job.InstanceCount)
	}
	if r.Job.MaxRuntime <= 0 {
		return fmt.Errorf("job.max_runtime must be positive, got %s", r.Job.MaxRuntime)
	}
	if len(r.Job.BaseName) > maxBaseNameLength {
		return fmt.Errorf("job.base_name must be at most %d characters", maxBaseNameLength)
	}

	switch r.Dataset.Source {
	case SourceHub, SourceCSV:
	default:
		return fmt.Errorf("dataset.source must be %q or %q, got %q", SourceHub, SourceCSV, r.Dataset.Source)
	}

	for _, rr := range []struct {
		name string
		r    models.RowRange
	}{{"dataset.train_rows", r.Dataset.Train}, {"dataset.validation_rows", r.Dataset.Validation}} {
		if rr.r.Start < 0 {
			return fmt.Errorf("%s start must not be negative, got %d", rr.name, rr.r.Start)
		}
		if rr.r.End < rr.r.Start {
			return fmt.Errorf("%s end %d is before start %d", rr.name, rr.r.End, rr.r.Start)
		}
	}
	if p := r.Distribution.Parameters; p.FP16 && p.BF16 {
		return fmt.Errorf("distribution.parameters fp16 and bf16 are mutually exclusive; set fp16: false to use bf16")
	}

	if r.Dataset.Train.Overlaps(r.Dataset.Validation) {
		return fmt.Errorf("train rows %s and validation rows %s overlap", r.Dataset.Train, r.Dataset.Validation)
	}

	return nil
}
