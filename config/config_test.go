package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"AWS_REGION", "JOB_POLL_INTERVAL", "LOCATOR_STORE_PATH", "HF_DATASETS_SERVER_URL", "SERVER_PORT"} {
		// Setenv restores the original value when the test ends
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, ".launcher/store.yaml", cfg.LocatorStorePath)
	assert.Equal(t, "https://datasets-server.huggingface.co", cfg.DatasetsServerURL)
	assert.Equal(t, "8080", cfg.ServerPort)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("SAGEMAKER_ROLE_ARN", "arn:aws:iam::111122223333:role/SageMakerRole")
	t.Setenv("JOB_POLL_INTERVAL", "5s")
	t.Setenv("DATABASE_URL", "postgres://localhost/launcher?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.AWSRegion)
	assert.Equal(t, "arn:aws:iam::111122223333:role/SageMakerRole", cfg.RoleARN)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "postgres://localhost/launcher?sslmode=disable", cfg.DatabaseURL)
}

func TestLoad_RejectsBadPollInterval(t *testing.T) {
	t.Setenv("JOB_POLL_INTERVAL", "0s")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JOB_POLL_INTERVAL", "soon")
	_, err = Load()
	assert.Error(t, err)
}
