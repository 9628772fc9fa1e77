package runners

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"race-timing/core/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	svc, _ := seed(t)
	app := fiber.New()
	require.NoError(t, NewFeature(svc, true).Load(app))
	return app
}

func TestHandleList(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/runners?eventId=e1&limit=100", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page Page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.Limit)

	resp, err = app.Test(httptest.NewRequest("GET", "/runners?status=walking", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleStats(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/runners/stats?eventId=e2", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, map[string]int64{"5K": 1}, stats.ByCategory)
}

func TestHandleLookup(t *testing.T) {
	app := setupApp(t)

	tests := []struct {
		name string
		url  string
		code int
	}{
		{"found", "/runners/lookup?eventId=e1&bib=1", fiber.StatusOK},
		{"not found", "/runners/lookup?eventId=e1&bib=404", fiber.StatusNotFound},
		{"missing params", "/runners/lookup?eventId=e1", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.url, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
			if tt.code == fiber.StatusOK {
				var runner store.Runner
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&runner))
				assert.Equal(t, "C1", runner.ChipCode)
			}
		})
	}
}
