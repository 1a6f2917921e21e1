package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"training-launcher/core/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used by S3ObjectStore
type S3API interface {
	manager.UploadAPIClient

	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3ObjectStore struct {
	client   S3API
	uploader *manager.Uploader
	region   string
}

var _ ObjectStore = (*S3ObjectStore)(nil)

// NewS3ObjectStore wraps an S3 client. region is used as the location
// constraint for buckets created outside us-east-1.
func NewS3ObjectStore(client S3API, region string) *S3ObjectStore {
	return &S3ObjectStore{
		client:   client,
		uploader: manager.NewUploader(client),
		region:   region,
	}
}

func (s *S3ObjectStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchBucket") {
		return false, nil
	}

	return false, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
}

func (s *S3ObjectStore) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	_, err := s.client.CreateBucket(ctx, input)
	if err != nil {
		var ownedErr *types.BucketAlreadyOwnedByYou
		if errors.As(err, &ownedErr) {
			logger.WithField("bucket", bucket).Info("Bucket already exists")
			return nil
		}

		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	logger.WithField("bucket", bucket).Info("Bucket created successfully")

	return nil
}

func (s *S3ObjectStore) PutObject(ctx context.Context, bucket, key string, data io.Reader) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object to %s: %w", S3URI(bucket, key), err)
	}

	uri := S3URI(bucket, key)
	logger.WithField("uri", uri).Info("Object uploaded successfully")

	return uri, nil
}

func (s *S3ObjectStore) GetObject(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", uri, err)
	}

	return out.Body, nil
}
