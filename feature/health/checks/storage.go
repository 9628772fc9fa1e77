package checks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"race-timing/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// RequiredPrefixes lists the folders that must exist in the snapshot bucket.
var RequiredPrefixes = []string{storage.SnapshotPrefix}

func folder(prefix string) string {
	if strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// CheckStorage returns the required prefixes missing from bucket.
func CheckStorage(ctx context.Context, client storage.Client, bucket string) ([]string, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	var missing []string
	for _, prefix := range RequiredPrefixes {
		found := false
		for range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: folder(prefix), MaxKeys: 1}) {
			found = true
			break
		}
		if !found {
			missing = append(missing, prefix)
		}
	}
	return missing, nil
}

// FixStorage creates a placeholder object for every missing prefix.
func FixStorage(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger, missing []string) error {
	for _, prefix := range missing {
		_, err := client.PutObject(ctx, bucket, folder(prefix), bytes.NewReader(nil), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", prefix), zap.Error(err))
			return err
		}
		logger.Info("Created missing folder", zap.String("folder", prefix))
	}
	return nil
}
