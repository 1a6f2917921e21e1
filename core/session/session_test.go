package session

import (
	"context"
	"errors"
	"testing"

	"training-launcher/providers/aws/awstest"
	"training-launcher/storage"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DerivesRoleAndCreatesBucket(t *testing.T) {
	s3 := awstest.NewFakeS3()
	initializer := NewInitializer(&awstest.FakeSTS{
		Account: "111122223333",
		ARN:     "arn:aws:sts::111122223333:assumed-role/SageMakerRole/notebook-session",
	}, storage.NewS3ObjectStore(s3, "us-west-2"))

	sess, err := initializer.Init(context.Background(), Options{Region: "us-west-2"})
	require.NoError(t, err)
	assert.Equal(t, "111122223333", sess.Account)
	assert.Equal(t, "arn:aws:iam::111122223333:role/SageMakerRole", sess.RoleARN)
	assert.Equal(t, "sagemaker-us-west-2-111122223333", sess.Bucket)
	assert.Equal(t, "us-west-2", sess.Region)
	assert.True(t, s3.HasBucket("sagemaker-us-west-2-111122223333"))
}

func TestInit_ExplicitRoleAndExistingBucket(t *testing.T) {
	s3 := awstest.NewFakeS3("my-bucket")
	initializer := NewInitializer(&awstest.FakeSTS{
		Account: "111122223333",
		ARN:     "arn:aws:iam::111122223333:user/alice",
	}, storage.NewS3ObjectStore(s3, "us-east-1"))

	sess, err := initializer.Init(context.Background(), Options{
		Region:  "us-east-1",
		RoleARN: "arn:aws:iam::111122223333:role/Training",
		Bucket:  "my-bucket",
	})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::111122223333:role/Training", sess.RoleARN)
	assert.Equal(t, "my-bucket", sess.Bucket)
}

func TestInit_UserWithoutRole(t *testing.T) {
	initializer := NewInitializer(&awstest.FakeSTS{
		Account: "111122223333",
		ARN:     "arn:aws:iam::111122223333:user/alice",
	}, storage.NewS3ObjectStore(awstest.NewFakeS3(), "us-east-1"))

	_, err := initializer.Init(context.Background(), Options{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrNoExecutionRole)
}

func TestInit_SurfacesAuthErrors(t *testing.T) {
	authErr := &smithy.GenericAPIError{Code: "ExpiredToken", Message: "The security token included in the request is expired"}
	initializer := NewInitializer(&awstest.FakeSTS{Err: authErr}, storage.NewS3ObjectStore(awstest.NewFakeS3(), "us-east-1"))

	_, err := initializer.Init(context.Background(), Options{Region: "us-east-1"})
	require.Error(t, err)

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "ExpiredToken", apiErr.ErrorCode())
}

func TestInit_SurfacesBucketErrors(t *testing.T) {
	s3 := awstest.NewFakeS3()
	s3.CreateErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}
	initializer := NewInitializer(&awstest.FakeSTS{
		Account: "111122223333",
		ARN:     "arn:aws:sts::111122223333:assumed-role/SageMakerRole/s",
	}, storage.NewS3ObjectStore(s3, "us-east-1"))

	_, err := initializer.Init(context.Background(), Options{Region: "us-east-1"})
	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AccessDenied", apiErr.ErrorCode())
}

func TestInit_RequiresRegion(t *testing.T) {
	initializer := NewInitializer(&awstest.FakeSTS{}, storage.NewS3ObjectStore(awstest.NewFakeS3(), ""))
	_, err := initializer.Init(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRoleFromCallerARN(t *testing.T) {
	cases := []struct {
		caller  string
		want    string
		wantErr bool
	}{
		{caller: "arn:aws:sts::111122223333:assumed-role/SageMakerRole/session", want: "arn:aws:iam::111122223333:role/SageMakerRole"},
		{caller: "arn:aws-cn:sts::111122223333:assumed-role/Role/s", want: "arn:aws-cn:iam::111122223333:role/Role"},
		{caller: "arn:aws:iam::111122223333:role/Direct", want: "arn:aws:iam::111122223333:role/Direct"},
		{caller: "arn:aws:iam::111122223333:user/alice", wantErr: true},
		{caller: "arn:aws:sts::111122223333:assumed-role/", wantErr: true},
		{caller: "not-an-arn", wantErr: true},
	}

	for _, tc := range cases {
		got, err := RoleFromCallerARN(tc.caller)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrNoExecutionRole, tc.caller)
			continue
		}
		require.NoError(t, err, tc.caller)
		assert.Equal(t, tc.want, got)
	}
}
