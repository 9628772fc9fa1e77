package health

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"race-timing/core/storage"
	"race-timing/core/storage/mocks"
	"race-timing/core/store/storetest"
	"race-timing/feature/health/checks"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T, client storage.Client) *fiber.App {
	t.Helper()
	app := fiber.New()
	require.NoError(t, NewFeature(storetest.New(t), client, "timing", zap.NewNop()).Load(app))
	return app
}

func decode(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleHealth_StorageDisabled(t *testing.T) {
	app := setupTestApp(t, nil)

	code, body := decode(t, app, "/health")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, map[string]any{"status": "ok"}, body["database"])
	assert.Equal(t, map[string]any{"status": "disabled"}, body["storage"])
	schema := body["schema"].(map[string]any)
	assert.Equal(t, true, schema["matched"])

	code, body = decode(t, app, "/health/storage")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "disabled", body["status"])
}

func TestHandleHealth_BucketMissing(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "timing").Return(false, nil)
	app := setupTestApp(t, client)

	code, body := decode(t, app, "/health")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	storageReport := body["storage"].(map[string]any)
	assert.Equal(t, "error", storageReport["status"])
}

func TestHandleStorageCheck_Fix(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "timing").Return(true, nil)
	client.On("ListObjects", mock.Anything, "timing", mock.Anything).Return(nil)
	client.On("PutObject", mock.Anything, "timing", "provider-snapshots/", mock.Anything, int64(0), mock.Anything).
		Return(minio.UploadInfo{}, nil).Once()
	app := setupTestApp(t, client)

	code, body := decode(t, app, "/health/storage")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "checked", body["status"])
	assert.Equal(t, []any{"provider-snapshots"}, body["missing"])

	code, body = decode(t, app, "/health/storage?fix=true")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "fixed", body["status"])
	client.AssertExpectations(t)
}

func TestHandleSchemaCheck(t *testing.T) {
	app := setupTestApp(t, nil)

	code, body := decode(t, app, "/health/schema")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["matched"])
}

func TestUnhealthyTables(t *testing.T) {
	report := &checks.SchemaReport{Tables: map[string]checks.TableReport{
		"runners":   {Status: "error", MissingColumns: []string{"net_pace"}},
		"events":    {Status: "ok"},
		"sync_logs": {Status: "missing"},
	}}
	assert.Equal(t, []string{"runners", "sync_logs"}, unhealthyTables(report))
	assert.Empty(t, unhealthyTables(&checks.SchemaReport{}))
}
