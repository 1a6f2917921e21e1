package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocalObjectStore(t *testing.T) (*LocalObjectStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewLocalObjectStore(fs, "/objects")
	require.NoError(t, err)
	return store, fs
}

func TestLocalObjectStore_PutGetObject(t *testing.T) {
	ctx := context.Background()
	store, fs := setupLocalObjectStore(t)

	uri, err := store.PutObject(ctx, "bucket", "prefix/train/train.csv", bytes.NewReader([]byte("text\n")))
	require.NoError(t, err)
	assert.Equal(t, "file:///objects/bucket/prefix/train/train.csv", uri)

	data, err := afero.ReadFile(fs, "/objects/bucket/prefix/train/train.csv")
	require.NoError(t, err)
	assert.Equal(t, "text\n", string(data))

	reader, err := store.GetObject(ctx, uri)
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "text\n", string(got))
}

func TestLocalObjectStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, fs := setupLocalObjectStore(t)

	_, err := store.PutObject(ctx, "bucket", "key", bytes.NewReader([]byte("a much longer first version")))
	require.NoError(t, err)
	_, err = store.PutObject(ctx, "bucket", "key", bytes.NewReader([]byte("short")))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/objects/bucket/key")
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func TestLocalObjectStore_Buckets(t *testing.T) {
	ctx := context.Background()
	store, _ := setupLocalObjectStore(t)

	exists, err := store.BucketExists(ctx, "bucket")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.CreateBucket(ctx, "bucket"))
	exists, err = store.BucketExists(ctx, "bucket")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocalObjectStore_GetObjectRejectsForeignURIs(t *testing.T) {
	ctx := context.Background()
	store, _ := setupLocalObjectStore(t)

	_, err := store.GetObject(ctx, "s3://bucket/key")
	assert.Error(t, err)
	_, err = store.GetObject(ctx, "file:///etc/passwd")
	assert.Error(t, err)
}
