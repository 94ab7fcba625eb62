// Package gcs implements an artifact store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// Config captures the parameters required to reach the bucket.
type Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
}

// Store uploads artifacts to a configured GCS bucket.
type Store struct {
	client *gcs.Client
	bucket string
	logger *zap.Logger
}

// New creates a GCS-backed artifact store. The bucket's attributes are
// fetched once so a missing or inaccessible bucket fails at startup.
func New(ctx context.Context, client *gcs.Client, cfg Config, logger *zap.Logger) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
		return nil, fmt.Errorf("bucket %q attributes: %w", cfg.Bucket, err)
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// Put uploads the artifact to the bucket and returns a gs:// URI. The upload
// is finalized by the writer's Close, so both calls are checked.
func (s *Store) Put(ctx context.Context, name string, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("artifact name is required")
	}

	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			s.logger.Warn("close object writer after failed write",
				zap.String("object", name), zap.Error(closeErr))
		}
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close object writer: %w", err)
	}

	s.logger.Debug("artifact uploaded",
		zap.String("bucket", s.bucket), zap.String("object", name))
	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
