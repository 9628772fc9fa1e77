package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// Archive stores raw provider payloads so diagnostics survive the request that fetched them.
type Archive struct {
	client Client
	bucket string
}

// NewArchive wraps a client and bucket.
func NewArchive(client Client, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// Bucket returns the archive bucket name.
func (a *Archive) Bucket() string {
	return a.bucket
}

// EnsureBucket creates the bucket when missing.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// SnapshotPrefix is the folder every snapshot is stored under.
const SnapshotPrefix = "provider-snapshots"

// SnapshotKey builds "provider-snapshots/<campaign>/<kind>/<unix-millis>.json".
func SnapshotKey(campaignID, kind string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%d.json", SnapshotPrefix, campaignID, kind, at.UnixMilli())
}

// Save uploads body under key and returns the key.
func (a *Archive) Save(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/json"
	}
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store snapshot %s: %w", key, err)
	}
	return key, nil
}

// Load downloads the object stored under key.
func (a *Archive) Load(ctx context.Context, key string) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	return data, nil
}

// List returns the object keys under prefix, newest first.
func (a *Archive) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}
	// Keys end in unix millis of equal width, so lexical order is chronological
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// Prune removes all but the newest keep objects under prefix.
func (a *Archive) Prune(ctx context.Context, prefix string, keep int) (int, error) {
	keys, err := a.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := keep; i < len(keys); i++ {
		if err := a.client.RemoveObject(ctx, a.bucket, keys[i], minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("failed to remove snapshot %s: %w", keys[i], err)
		}
		removed++
	}
	return removed, nil
}
