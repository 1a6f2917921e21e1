package aws

import (
	"context"
	"fmt"
	"sort"
	"time"

	"training-launcher/core/models"
	"training-launcher/training/frameworks"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// SageMakerAPI is the subset of the SageMaker client used to run training jobs
type SageMakerAPI interface {
	CreateTrainingJob(ctx context.Context, params *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)
	DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)
}

// BuildCreateTrainingJobInput assembles the request for one training job. The
// job's SourceURI must already point at an uploaded source bundle.
func BuildCreateTrainingJobInput(job *models.TrainingJob) (*sagemaker.CreateTrainingJobInput, error) {
	if job.SourceURI == "" {
		return nil, fmt.Errorf("job %s has no uploaded source bundle", job.Name)
	}

	hyperparameters, err := containerHyperparameters(job)
	if err != nil {
		return nil, err
	}

	input := &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(job.Name),
		RoleArn:         aws.String(job.RoleARN),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(job.Image),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		HyperParameters: hyperparameters,
		InputDataConfig: channels(job.Channels),
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(job.OutputPath),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(job.InstanceType),
			InstanceCount:  aws.Int32(int32(job.InstanceCount)),
			VolumeSizeInGB: aws.Int32(int32(job.VolumeSizeGB)),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(job.MaxRuntime / time.Second)),
		},
		Tags: tags(job.Tags),
	}

	if job.CheckpointURI != "" {
		input.CheckpointConfig = &types.CheckpointConfig{
			S3Uri:     aws.String(job.CheckpointURI),
			LocalPath: aws.String(job.CheckpointLocalPath),
		}
	}

	return input, nil
}

// containerHyperparameters merges the script's hyperparameters with the
// distribution and framework-container keys, then encodes them
func containerHyperparameters(job *models.TrainingJob) (map[string]string, error) {
	setup := &frameworks.ModelParallelSetup{}
	distribution, err := setup.Hyperparameters(job.Distribution)
	if err != nil {
		return nil, err
	}

	logLevel := frameworks.LogLevelInfo
	if job.ContainerDebug {
		logLevel = frameworks.LogLevelDebug
	}

	merged := models.Hyperparameters{}
	for k, v := range job.Hyperparameters {
		merged[k] = v
	}
	for k, v := range distribution {
		merged[k] = v
	}
	merged[frameworks.KeyProgram] = job.EntryPoint
	merged[frameworks.KeySubmitDirectory] = job.SourceURI
	merged[frameworks.KeyRegion] = job.Region
	merged[frameworks.KeyContainerLogLevel] = logLevel
	merged[frameworks.KeyJobName] = job.Name

	return frameworks.EncodeHyperparameters(merged)
}

func channels(in map[string]string) []types.Channel {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]types.Channel, 0, len(names))
	for _, name := range names {
		out = append(out, types.Channel{
			ChannelName: aws.String(name),
			DataSource: &types.DataSource{
				S3DataSource: &types.S3DataSource{
					S3DataType:             types.S3DataTypeS3Prefix,
					S3Uri:                  aws.String(in[name]),
					S3DataDistributionType: types.S3DataDistributionFullyReplicated,
				},
			},
		})
	}
	return out
}

func tags(in map[string]string) []types.Tag {
	if len(in) == 0 {
		return nil
	}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(in[k])})
	}
	return out
}

// JobDescription is the observed state of a training job
type JobDescription struct {
	Name            string
	Status          models.JobStatus
	ServiceStatus   string
	SecondaryStatus string
	FailureReason   string
	StartedAt       *time.Time
	BillableSeconds int
	CheckpointURI   string
	ModelArtifacts  string
}

// DescribeTrainingJob fetches and maps the current state of a job
func DescribeTrainingJob(ctx context.Context, api SageMakerAPI, name string) (*JobDescription, error) {
	out, err := api.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe training job %s: %w", name, err)
	}

	desc := &JobDescription{
		Name:            name,
		Status:          MapTrainingJobStatus(out.TrainingJobStatus),
		ServiceStatus:   string(out.TrainingJobStatus),
		SecondaryStatus: string(out.SecondaryStatus),
		FailureReason:   aws.ToString(out.FailureReason),
		StartedAt:       out.TrainingStartTime,
		BillableSeconds: int(aws.ToInt32(out.BillableTimeInSeconds)),
	}
	if out.CheckpointConfig != nil {
		desc.CheckpointURI = aws.ToString(out.CheckpointConfig.S3Uri)
	}
	if out.ModelArtifacts != nil {
		desc.ModelArtifacts = aws.ToString(out.ModelArtifacts.S3ModelArtifacts)
	}

	return desc, nil
}

// MapTrainingJobStatus maps service statuses onto the handle's states. A
// stopped job did not produce a usable result and counts as failed.
func MapTrainingJobStatus(status types.TrainingJobStatus) models.JobStatus {
	switch status {
	case types.TrainingJobStatusInProgress, types.TrainingJobStatusStopping:
		return models.JobStatusRunning
	case types.TrainingJobStatusCompleted:
		return models.JobStatusSucceeded
	case types.TrainingJobStatusFailed, types.TrainingJobStatusStopped:
		return models.JobStatusFailed
	default:
		return models.JobStatusSubmitted
	}
}
