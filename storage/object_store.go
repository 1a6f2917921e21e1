package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ObjectStore is the durable remote store that datasets, source bundles and
// checkpoints live in.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)

	CreateBucket(ctx context.Context, bucket string) error

	// PutObject writes data under bucket/key, overwriting any existing object,
	// and returns the object's fully-qualified address.
	PutObject(ctx context.Context, bucket, key string, data io.Reader) (string, error)

	// GetObject opens an address previously returned by PutObject
	GetObject(ctx context.Context, uri string) (io.ReadCloser, error)
}

// S3URI formats an s3:// address
func S3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, strings.TrimPrefix(key, "/"))
}

// ParseS3URI splits an s3:// address into bucket and key
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 uri %q has no bucket", uri)
	}
	return bucket, key, nil
}

// JoinKey joins key segments with single slashes
func JoinKey(parts ...string) string {
	var kept []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}
