package executor

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"training-launcher/core/models"
	"training-launcher/providers/aws/awstest"
	"training-launcher/storage"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/scripts/train.py", []byte("print('train')\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/scripts/requirements.txt", []byte("transformers==4.21.0\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/src/scripts/lib/utils.py", []byte("def f(): pass\n"), 0o644))
	return fs
}

func untar(t *testing.T, data []byte) map[string]string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := map[string]string{}
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = string(body)
	}
	return files
}

func testJob() *models.TrainingJob {
	return &models.TrainingJob{
		Name:       "smp-gptneo-2024-03-01-12-30-45-123",
		Region:     "us-east-1",
		Image:      "763104351884.dkr.ecr.us-east-1.amazonaws.com/pytorch-training:1.12.1-gpu-py38-cu113-ubuntu20.04-sagemaker",
		RoleARN:    "arn:aws:iam::111122223333:role/SageMakerRole",
		EntryPoint: "train.py",
		SourceDir:  "/src/scripts",
		Hyperparameters: models.Hyperparameters{
			"block_size": 2048,
		},
		Distribution: models.Distribution{
			ModelParallel: models.ModelParallelConfig{Enabled: true},
			MPI:           models.MPIConfig{Enabled: true, ProcessesPerHost: 8},
		},
		Channels:            map[string]string{"train": "s3://bucket/datasets/train/train.csv"},
		OutputPath:          "s3://bucket/",
		CheckpointURI:       "s3://bucket/gptneo-checkpoints",
		CheckpointLocalPath: "/opt/ml/checkpoints",
		InstanceType:        "ml.p4d.24xlarge",
		InstanceCount:       1,
		VolumeSizeGB:        500,
		MaxRuntime:          time.Hour,
	}
}

func TestPackageSourceDir(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PackageSourceDir(sourceFs(t), "/src/scripts", &buf))

	files := untar(t, buf.Bytes())
	assert.Equal(t, "print('train')\n", files["train.py"])
	assert.Equal(t, "transformers==4.21.0\n", files["requirements.txt"])
	assert.Equal(t, "def f(): pass\n", files["lib/utils.py"])
	assert.Contains(t, files, "lib/")
}

func TestPackageSourceDir_Missing(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, PackageSourceDir(afero.NewMemMapFs(), "/nope", &buf))

	fs := sourceFs(t)
	assert.Error(t, PackageSourceDir(fs, "/src/scripts/train.py", &buf))
}

func TestTrainingExecutor_Submit(t *testing.T) {
	s3 := awstest.NewFakeS3("bucket")
	sm := awstest.NewFakeSageMaker(types.TrainingJobStatusInProgress)
	exec := NewTrainingExecutor(sm, storage.NewS3ObjectStore(s3, "us-east-1"), sourceFs(t))

	job := testJob()
	handle, err := exec.Submit(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusSubmitted, handle.Status)
	assert.Equal(t, job.Name, handle.Name)
	assert.Equal(t, "s3://bucket/gptneo-checkpoints", handle.CheckpointURI)
	assert.Contains(t, handle.ARN, job.Name)

	const bundleKey = "smp-gptneo-2024-03-01-12-30-45-123/source/sourcedir.tar.gz"
	assert.Equal(t, "s3://bucket/"+bundleKey, job.SourceURI)
	bundle, ok := s3.Object("bucket", bundleKey)
	require.True(t, ok)
	assert.Equal(t, "print('train')\n", untar(t, bundle)["train.py"])

	require.Len(t, sm.Created, 1)
	input := sm.Created[0]
	assert.Equal(t, `"s3://bucket/`+bundleKey+`"`, input.HyperParameters["sagemaker_submit_directory"])
	assert.Equal(t, "2048", input.HyperParameters["block_size"])
	assert.Equal(t, "s3://bucket/gptneo-checkpoints", aws.ToString(input.CheckpointConfig.S3Uri))
}

func TestTrainingExecutor_RemoteSource(t *testing.T) {
	s3 := awstest.NewFakeS3("bucket")
	sm := awstest.NewFakeSageMaker(types.TrainingJobStatusInProgress)
	exec := NewTrainingExecutor(sm, storage.NewS3ObjectStore(s3, "us-east-1"), afero.NewMemMapFs())

	job := testJob()
	job.SourceDir = "s3://artifacts/gptneo/sourcedir.tar.gz"
	_, err := exec.Submit(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, "s3://artifacts/gptneo/sourcedir.tar.gz", job.SourceURI)
	assert.Empty(t, s3.Keys("bucket"))
}

func TestTrainingExecutor_CreateError(t *testing.T) {
	sm := awstest.NewFakeSageMaker()
	sm.CreateErr = errors.New("ResourceLimitExceeded: account-level service limit")
	exec := NewTrainingExecutor(sm, storage.NewS3ObjectStore(awstest.NewFakeS3("bucket"), "us-east-1"), sourceFs(t))

	_, err := exec.Submit(context.Background(), testJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ResourceLimitExceeded")
}

func TestTrainingExecutor_InvalidDistribution(t *testing.T) {
	sm := awstest.NewFakeSageMaker()
	exec := NewTrainingExecutor(sm, storage.NewS3ObjectStore(awstest.NewFakeS3("bucket"), "us-east-1"), sourceFs(t))

	job := testJob()
	job.Distribution.MPI.Enabled = false
	_, err := exec.Submit(context.Background(), job)
	assert.Error(t, err)
	assert.Empty(t, sm.Created)
}
