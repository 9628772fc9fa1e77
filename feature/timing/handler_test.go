package timing

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"race-timing/core/realtime"
	"race-timing/core/store"
	"race-timing/core/store/storetest"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupApp(t *testing.T) (*fiber.App, *store.Runner) {
	t.Helper()
	db := storetest.New(t)
	runner := storetest.Runner(t, db, store.Runner{EventID: "e1", Bib: "42"})
	svc := NewService(db, nil, nil, 100, zap.NewNop())

	app := fiber.New()
	NewFeature(svc, realtime.NewHub(8), true).Load(app)
	return app, runner
}

func TestHandleScan(t *testing.T) {
	app, runner := setupApp(t)

	body := `{"eventId":"e1","bib":"42","checkpoint":"START","timestamp":"2025-03-02T06:00:00Z"}`
	req := httptest.NewRequest("POST", "/timing/scan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var rec store.ScanRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, 1, rec.Order)
	assert.Equal(t, runner.ID, rec.RunnerID)

	resp, err = app.Test(httptest.NewRequest("GET", "/timing/runners/"+runner.ID+"/scans", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var scans []store.ScanRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scans))
	assert.Len(t, scans, 1)
}

func TestHandleScan_Errors(t *testing.T) {
	app, _ := setupApp(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"unknown bib", `{"eventId":"e1","bib":"9","checkpoint":"CP1"}`, fiber.StatusNotFound},
		{"missing checkpoint", `{"eventId":"e1","bib":"42"}`, fiber.StatusBadRequest},
		{"malformed", `{`, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/timing/scan", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
			data, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(data), "error")
		})
	}
}

func TestHandleRunnerScans_NotFound(t *testing.T) {
	app, _ := setupApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/timing/runners/nope/scans", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
