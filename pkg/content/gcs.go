//go:build gcp

package content

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSStore keeps attachment payloads in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// GCSConfig holds configuration for GCSStore.
type GCSConfig struct {
	Bucket string
	Prefix string
}

// NewGCSStore creates a GCS-backed content store. Credentials come from ADC.
func NewGCSStore(ctx context.Context, cfg GCSConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, data []byte) (Ref, error) {
	ref := refFor(data)
	obj := s.client.Bucket(s.bucket).Object(s.objectKey(ref.Checksum))

	// Idempotent: skip the upload when the digest is already present.
	if _, err := obj.Attrs(ctx); err == nil {
		return ref, nil
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return Ref{}, fmt.Errorf("gcs write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return Ref{}, fmt.Errorf("gcs close failed: %w", err)
	}
	return ref, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	digest, err := parseKey(key)
	if err != nil {
		return nil, err
	}

	reader, err := s.client.Bucket(s.bucket).Object(s.objectKey(digest)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs get failed for %s: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	return io.ReadAll(reader)
}

func (s *GCSStore) Exists(ctx context.Context, key string) (bool, error) {
	digest, err := parseKey(key)
	if err != nil {
		return false, err
	}

	_, err = s.client.Bucket(s.bucket).Object(s.objectKey(digest)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("gcs attrs error: %w", err)
	}
	return true, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) error {
	digest, err := parseKey(key)
	if err != nil {
		return err
	}

	err = s.client.Bucket(s.bucket).Object(s.objectKey(digest)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete failed for %s: %w", key, err)
	}
	return nil
}

// Close closes the GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectKey(digest string) string {
	return s.prefix + digest + ".blob"
}
