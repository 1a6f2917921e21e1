package aws

import (
	"context"
	"testing"
	"time"

	"training-launcher/core/models"
	"training-launcher/providers/aws/awstest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob() *models.TrainingJob {
	return &models.TrainingJob{
		Name:       "smp-gptneo-2024-01-01-00-00-00",
		Region:     "us-west-2",
		Image:      "763104351884.dkr.ecr.us-west-2.amazonaws.com/pytorch-training:1.12.1-gpu-py38-cu113-ubuntu20.04-sagemaker",
		RoleARN:    "arn:aws:iam::111122223333:role/SageMakerRole",
		EntryPoint: "train.py",
		SourceURI:  "s3://bucket/smp-gptneo-2024-01-01-00-00-00/source/sourcedir.tar.gz",
		Hyperparameters: models.Hyperparameters{
			"model_name_or_path": "EleutherAI/gpt-neo-2.7B",
			"num_train_epochs":   2,
			"fp16":               true,
		},
		Distribution: models.Distribution{
			ModelParallel: models.ModelParallelConfig{
				Enabled: true,
				Parameters: models.ModelParallelParameters{
					PipelineParallelDegree:    1,
					ShardedDataParallelDegree: 4,
					Partitions:                1,
					DDP:                       true,
					OffloadActivations:        true,
				},
			},
			MPI: models.MPIConfig{Enabled: true, ProcessesPerHost: 8},
		},
		Channels: map[string]string{
			"train": "s3://bucket/datasets/train/train.csv",
			"test":  "s3://bucket/datasets/test/validation.csv",
		},
		OutputPath:          "s3://bucket/output",
		CheckpointURI:       "s3://bucket/gptneo-checkpoints",
		CheckpointLocalPath: "/opt/ml/checkpoints",
		InstanceType:        "ml.p4d.24xlarge",
		InstanceCount:       1,
		VolumeSizeGB:        500,
		MaxRuntime:          24 * time.Hour,
		Tags:                map[string]string{"project": "gptneo"},
	}
}

func TestBuildCreateTrainingJobInput(t *testing.T) {
	input, err := BuildCreateTrainingJobInput(testJob())
	require.NoError(t, err)

	assert.Equal(t, "smp-gptneo-2024-01-01-00-00-00", aws.ToString(input.TrainingJobName))
	assert.Equal(t, types.TrainingInstanceType("ml.p4d.24xlarge"), input.ResourceConfig.InstanceType)
	assert.Equal(t, int32(1), aws.ToInt32(input.ResourceConfig.InstanceCount))
	assert.Equal(t, int32(86400), aws.ToInt32(input.StoppingCondition.MaxRuntimeInSeconds))

	require.NotNil(t, input.CheckpointConfig)
	assert.Equal(t, "s3://bucket/gptneo-checkpoints", aws.ToString(input.CheckpointConfig.S3Uri))
	assert.Equal(t, "/opt/ml/checkpoints", aws.ToString(input.CheckpointConfig.LocalPath))

	require.Len(t, input.InputDataConfig, 2)
	assert.Equal(t, "test", aws.ToString(input.InputDataConfig[0].ChannelName))
	assert.Equal(t, "train", aws.ToString(input.InputDataConfig[1].ChannelName))
	assert.Equal(t, "s3://bucket/datasets/train/train.csv", aws.ToString(input.InputDataConfig[1].DataSource.S3DataSource.S3Uri))

	hp := input.HyperParameters
	assert.Equal(t, `"EleutherAI/gpt-neo-2.7B"`, hp["model_name_or_path"])
	assert.Equal(t, "2", hp["num_train_epochs"])
	assert.Equal(t, "true", hp["fp16"])
	assert.Equal(t, `"train.py"`, hp["sagemaker_program"])
	assert.Equal(t, `"s3://bucket/smp-gptneo-2024-01-01-00-00-00/source/sourcedir.tar.gz"`, hp["sagemaker_submit_directory"])
	assert.Equal(t, `"us-west-2"`, hp["sagemaker_region"])
	assert.Equal(t, "20", hp["sagemaker_container_log_level"])
	assert.Equal(t, "true", hp["sagemaker_mpi_enabled"])
	assert.Equal(t, "8", hp["sagemaker_mpi_num_of_processes_per_host"])
	assert.Contains(t, hp["mp_parameters"], `"sharded_data_parallel_degree":4`)

	require.Len(t, input.Tags, 1)
	assert.Equal(t, "project", aws.ToString(input.Tags[0].Key))
}

func TestBuildCreateTrainingJobInput_RequiresSourceBundle(t *testing.T) {
	job := testJob()
	job.SourceURI = ""

	_, err := BuildCreateTrainingJobInput(job)
	assert.Error(t, err)
}

func TestBuildCreateTrainingJobInput_DebugLogLevel(t *testing.T) {
	job := testJob()
	job.ContainerDebug = true

	input, err := BuildCreateTrainingJobInput(job)
	require.NoError(t, err)
	assert.Equal(t, "10", input.HyperParameters["sagemaker_container_log_level"])
}

func TestMapTrainingJobStatus(t *testing.T) {
	cases := map[types.TrainingJobStatus]models.JobStatus{
		types.TrainingJobStatusInProgress: models.JobStatusRunning,
		types.TrainingJobStatusStopping:   models.JobStatusRunning,
		types.TrainingJobStatusCompleted:  models.JobStatusSucceeded,
		types.TrainingJobStatusFailed:     models.JobStatusFailed,
		types.TrainingJobStatusStopped:    models.JobStatusFailed,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapTrainingJobStatus(in), string(in))
	}
	assert.Equal(t, models.JobStatusSubmitted, MapTrainingJobStatus(types.TrainingJobStatus("Pending")))
}

func TestDescribeTrainingJob(t *testing.T) {
	ctx := context.Background()
	fake := awstest.NewFakeSageMaker(types.TrainingJobStatusInProgress, types.TrainingJobStatusFailed)
	fake.FailureReason = "AlgorithmError: CUDA out of memory"

	input, err := BuildCreateTrainingJobInput(testJob())
	require.NoError(t, err)
	_, err = fake.CreateTrainingJob(ctx, input)
	require.NoError(t, err)

	desc, err := DescribeTrainingJob(ctx, fake, "smp-gptneo-2024-01-01-00-00-00")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, desc.Status)
	assert.Equal(t, "InProgress", desc.ServiceStatus)
	assert.Equal(t, "s3://bucket/gptneo-checkpoints", desc.CheckpointURI)

	desc, err = DescribeTrainingJob(ctx, fake, "smp-gptneo-2024-01-01-00-00-00")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, desc.Status)
	assert.Equal(t, "AlgorithmError: CUDA out of memory", desc.FailureReason)
}

func TestDescribeTrainingJob_UnknownJob(t *testing.T) {
	fake := awstest.NewFakeSageMaker(types.TrainingJobStatusInProgress)

	_, err := DescribeTrainingJob(context.Background(), fake, "missing")
	assert.Error(t, err)
}
