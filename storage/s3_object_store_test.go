package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"training-launcher/providers/aws/awstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3ObjectStore_Buckets(t *testing.T) {
	ctx := context.Background()
	fake := awstest.NewFakeS3()
	store := NewS3ObjectStore(fake, "us-west-2")

	exists, err := store.BucketExists(ctx, "sagemaker-us-west-2-111122223333")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateBucket(ctx, "sagemaker-us-west-2-111122223333"))
	exists, err = store.BucketExists(ctx, "sagemaker-us-west-2-111122223333")
	require.NoError(t, err)
	assert.True(t, exists)

	// Creating an owned bucket again is not an error
	require.NoError(t, store.CreateBucket(ctx, "sagemaker-us-west-2-111122223333"))
}

func TestS3ObjectStore_BucketExistsError(t *testing.T) {
	fake := awstest.NewFakeS3()
	fake.HeadErr = errors.New("AccessDenied")
	store := NewS3ObjectStore(fake, "us-east-1")

	_, err := store.BucketExists(context.Background(), "bucket")
	assert.Error(t, err)
}

func TestS3ObjectStore_PutGetObject(t *testing.T) {
	ctx := context.Background()
	fake := awstest.NewFakeS3("bucket")
	store := NewS3ObjectStore(fake, "us-east-1")

	uri, err := store.PutObject(ctx, "bucket", "datasets/train/train.csv", bytes.NewReader([]byte("text\nhello\n")))
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/datasets/train/train.csv", uri)

	data, ok := fake.Object("bucket", "datasets/train/train.csv")
	require.True(t, ok)
	assert.Equal(t, "text\nhello\n", string(data))

	reader, err := store.GetObject(ctx, uri)
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "text\nhello\n", string(got))

	_, err = store.GetObject(ctx, "s3://bucket/missing")
	assert.Error(t, err)
}

func TestS3ObjectStore_PutObjectMissingBucket(t *testing.T) {
	store := NewS3ObjectStore(awstest.NewFakeS3(), "us-east-1")

	_, err := store.PutObject(context.Background(), "nope", "key", bytes.NewReader([]byte("x")))
	assert.Error(t, err)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://bucket/a/b/c.csv")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b/c.csv", key)

	bucket, key, err = ParseS3URI("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Empty(t, key)

	_, _, err = ParseS3URI("https://bucket/key")
	assert.Error(t, err)
	_, _, err = ParseS3URI("s3:///key")
	assert.Error(t, err)
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "a/b/c", JoinKey("a/", "/b/", "", "c"))
	assert.Equal(t, "train.csv", JoinKey("", "train.csv"))
	assert.Equal(t, "s3://bucket/gptneo-checkpoints", S3URI("bucket", "/gptneo-checkpoints"))
}
