package storage_test

import (
	"testing"

	"race-timing/core/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	for _, endpoint := range []string{"localhost:9000", "http://minio:9000", "https://s3.amazonaws.com"} {
		t.Run(endpoint, func(t *testing.T) {
			client, err := storage.NewClient(storage.Config{
				Endpoint:       endpoint,
				AccessKey:      "snapshots",
				SecretKey:      "snapshots-secret",
				Bucket:         "race-timing",
				Region:         "us-east-1",
				TimeoutSeconds: 5,
			})
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}
