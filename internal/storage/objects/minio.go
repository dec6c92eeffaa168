package objects

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gravadigital/community-portal/internal/config"
	"github.com/gravadigital/community-portal/internal/logger"
)

// MinioStore keeps objects in one S3 compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
	log    *log.Logger
}

// NewMinioStore connects to the endpoint and creates the bucket when missing
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	log := logger.Objects()
	log.Debug("Connecting to object storage", "endpoint", cfg.Objects.Endpoint, "bucket", cfg.Objects.Bucket)

	client, err := minio.New(cfg.Objects.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Objects.AccessKey, cfg.Objects.SecretKey, ""),
		Secure: cfg.Objects.UseSSL,
	})
	if err != nil {
		log.Error("Failed to create object storage client", "error", err)
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Objects.Bucket)
	if err != nil {
		log.Error("Failed to check bucket", "bucket", cfg.Objects.Bucket, "error", err)
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Objects.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Objects.Bucket, minio.MakeBucketOptions{}); err != nil {
			log.Error("Failed to create bucket", "bucket", cfg.Objects.Bucket, "error", err)
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Objects.Bucket, err)
		}
		log.Info("Bucket created", "bucket", cfg.Objects.Bucket)
	}

	log.Info("Object storage ready", "endpoint", cfg.Objects.Endpoint, "bucket", cfg.Objects.Bucket)
	return &MinioStore{client: client, bucket: cfg.Objects.Bucket, log: log}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		s.log.Error("Failed to upload object", "key", key, "error", err)
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	s.log.Debug("Object uploaded", "key", key, "size", info.Size)
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, *Info, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}

	// GetObject is lazy; Stat surfaces a missing key
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	return obj, &Info{Key: key, Size: stat.Size, ContentType: stat.ContentType}, nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.log.Error("Failed to remove object", "key", key, "error", err)
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) URL(ctx context.Context, key, fileName string, expiry time.Duration) (string, error) {
	params := url.Values{}
	if fileName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, params)
	if err != nil {
		s.log.Error("Failed to presign object", "key", key, "error", err)
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return u.String(), nil
}
