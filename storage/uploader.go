package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"training-launcher/core/logger"
	"training-launcher/core/models"

	"github.com/spf13/afero"
)

// Channel names the training service mounts the dataset slices under
const (
	TrainChannel      = "train"
	ValidationChannel = "test"
)

// Uploader copies local files into an ObjectStore
type Uploader struct {
	store ObjectStore
	fs    afero.Fs
}

func NewUploader(store ObjectStore, fs afero.Fs) *Uploader {
	return &Uploader{store: store, fs: fs}
}

// UploadFile uploads one local file to bucket/key and returns its address
func (u *Uploader) UploadFile(ctx context.Context, bucket, key, localPath string) (string, error) {
	file, err := u.fs.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", localPath, err)
	}
	defer file.Close()

	return u.store.PutObject(ctx, bucket, key, file)
}

// UploadFiles uploads each path to bucket/prefix/<basename> and returns the
// addresses in input order.
func (u *Uploader) UploadFiles(ctx context.Context, bucket, prefix string, paths ...string) ([]string, error) {
	uris := make([]string, 0, len(paths))
	for _, path := range paths {
		uri, err := u.UploadFile(ctx, bucket, JoinKey(prefix, filepath.Base(path)), path)
		if err != nil {
			return nil, err
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

// DatasetLocations are the remote addresses of the uploaded slices
type DatasetLocations struct {
	TrainURI      string
	ValidationURI string
}

// UploadDataset uploads the train and validation files under per-channel
// prefixes so each channel mounts exactly one file.
func (u *Uploader) UploadDataset(ctx context.Context, bucket, prefix string, files models.DatasetFiles) (DatasetLocations, error) {
	train, err := u.UploadFiles(ctx, bucket, JoinKey(prefix, TrainChannel), files.TrainPath)
	if err != nil {
		return DatasetLocations{}, fmt.Errorf("failed to upload training data: %w", err)
	}
	validation, err := u.UploadFiles(ctx, bucket, JoinKey(prefix, ValidationChannel), files.ValidationPath)
	if err != nil {
		return DatasetLocations{}, fmt.Errorf("failed to upload validation data: %w", err)
	}

	logger.WithField("train", train[0]).WithField("validation", validation[0]).Info("Dataset uploaded")

	return DatasetLocations{TrainURI: train[0], ValidationURI: validation[0]}, nil
}
