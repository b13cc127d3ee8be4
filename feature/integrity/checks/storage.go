package checks

import (
	"context"
	"fmt"

	"media-reconciler/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// StorageReport describes the fixture archive bucket.
type StorageReport struct {
	Bucket   string `json:"bucket"`
	Exists   bool   `json:"exists"`
	Archives int    `json:"archives"`
}

// CheckStorage reports whether the archive bucket exists and how many
// archives it holds under prefix.
func CheckStorage(ctx context.Context, client storage.Client, bucket, prefix string) (*StorageReport, error) {
	report := &StorageReport{Bucket: bucket}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report.Exists = exists
	if !exists {
		return report, nil
	}

	names, err := storage.ObjectNames(ctx, client, bucket, prefix)
	if err != nil {
		return nil, err
	}
	report.Archives = len(names)
	return report, nil
}

// FixStorage creates the archive bucket.
func FixStorage(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger) error {
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	logger.Info("Created missing bucket", zap.String("bucket", bucket))
	return nil
}
