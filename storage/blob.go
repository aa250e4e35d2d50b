package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BlobStore wraps the S3-compatible object store holding source media and
// rendered clips. Keys are opaque locators persisted on Video/Clip records.
type BlobStore struct {
	client *minio.Client
	bucket string
}

func NewBlobStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*BlobStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 128,
			IdleConnTimeout:     90 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to object store: %w", err)
	}
	return &BlobStore{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (b *BlobStore) EnsureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}
	if exists {
		return nil
	}
	return b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{})
}

func (b *BlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error) {
	info, err := b.client.PutObject(ctx, b.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}
	return info.Size, nil
}

// PutFile uploads a local file and returns its stored size.
func (b *BlobStore) PutFile(ctx context.Context, key, path, contentType string) (int64, error) {
	info, err := b.client.FPutObject(ctx, b.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}
	return info.Size, nil
}

func (b *BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return obj, nil
}

// GetFile downloads an object to a local path.
func (b *BlobStore) GetFile(ctx context.Context, key, path string) error {
	if err := b.client.FGetObject(ctx, b.bucket, key, path, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("fetch %s: %w", key, err)
	}
	return nil
}

// PresignedURL returns a time-limited download URL for a stored object.
func (b *BlobStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (*url.URL, error) {
	return b.client.PresignedGetObject(ctx, b.bucket, key, ttl, nil)
}
