package awstest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// FakeSageMaker records created jobs and replays a scripted sequence of
// statuses, advancing one step per DescribeTrainingJob call. The last status
// repeats once the script is exhausted.
type FakeSageMaker struct {
	mu            sync.Mutex
	Statuses      []types.TrainingJobStatus
	FailureReason string
	CreateErr     error

	Created   []*sagemaker.CreateTrainingJobInput
	describes map[string]int
}

func NewFakeSageMaker(statuses ...types.TrainingJobStatus) *FakeSageMaker {
	return &FakeSageMaker{Statuses: statuses, describes: map[string]int{}}
}

func (f *FakeSageMaker) CreateTrainingJob(_ context.Context, in *sagemaker.CreateTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.Created = append(f.Created, in)
	return &sagemaker.CreateTrainingJobOutput{
		TrainingJobArn: aws.String("arn:aws:sagemaker:us-east-1:111122223333:training-job/" + aws.ToString(in.TrainingJobName)),
	}, nil
}

func (f *FakeSageMaker) DescribeTrainingJob(_ context.Context, in *sagemaker.DescribeTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(in.TrainingJobName)
	var created *sagemaker.CreateTrainingJobInput
	for _, c := range f.Created {
		if aws.ToString(c.TrainingJobName) == name {
			created = c
		}
	}
	if created == nil {
		return nil, fmt.Errorf("ValidationException: Requested resource not found: %s", name)
	}
	if len(f.Statuses) == 0 {
		return nil, fmt.Errorf("no scripted statuses for %s", name)
	}

	idx := f.describes[name]
	if idx >= len(f.Statuses) {
		idx = len(f.Statuses) - 1
	}
	f.describes[name]++
	status := f.Statuses[idx]

	out := &sagemaker.DescribeTrainingJobOutput{
		TrainingJobName:   in.TrainingJobName,
		TrainingJobStatus: status,
		SecondaryStatus:   secondaryFor(status),
		CheckpointConfig:  created.CheckpointConfig,
	}
	if status != types.TrainingJobStatusInProgress || idx > 0 {
		start := time.Now().Add(-time.Hour)
		out.TrainingStartTime = &start
	}
	if status == types.TrainingJobStatusFailed {
		out.FailureReason = aws.String(f.FailureReason)
	}
	if status == types.TrainingJobStatusCompleted {
		var outputPath string
		if created.OutputDataConfig != nil {
			outputPath = strings.TrimSuffix(aws.ToString(created.OutputDataConfig.S3OutputPath), "/")
		}
		out.ModelArtifacts = &types.ModelArtifacts{
			S3ModelArtifacts: aws.String(outputPath + "/" + name + "/output/model.tar.gz"),
		}
		out.BillableTimeInSeconds = aws.Int32(3600)
	}
	return out, nil
}

// Describes returns how many times a job was described
func (f *FakeSageMaker) Describes(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.describes[name]
}

func secondaryFor(status types.TrainingJobStatus) types.SecondaryStatus {
	switch status {
	case types.TrainingJobStatusCompleted:
		return types.SecondaryStatusCompleted
	case types.TrainingJobStatusFailed:
		return types.SecondaryStatusFailed
	case types.TrainingJobStatusStopped:
		return types.SecondaryStatusStopped
	default:
		return types.SecondaryStatusTraining
	}
}
