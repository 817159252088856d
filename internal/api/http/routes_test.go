package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShakthiNandan/overlay-geotag/internal/geotag"
	"github.com/ShakthiNandan/overlay-geotag/internal/store"
)

func newTestApp() (*fiber.App, *store.MemoryStore) {
	memStore := store.NewMemoryStore()
	svc := geotag.NewService(memStore, zerolog.Nop())
	return NewApp(svc, zerolog.Nop()), memStore
}

func do(t *testing.T, app *fiber.App, method, target, contentType, body string) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestLocationBeforeIngestion(t *testing.T) {
	app, _ := newTestApp()

	code, body := do(t, app, http.MethodGet, "/location", "", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, map[string]any{"error": "no data yet"}, body)
}

func TestIngestThenQueryReplacesWholeRecord(t *testing.T) {
	app, _ := newTestApp()

	code, body := do(t, app, http.MethodPost, "/log", fiber.MIMEApplicationJSON,
		`{"lat": 40.7128, "lon": -74.0060, "time": "2024-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "logged", body["status"])

	code, body = do(t, app, http.MethodGet, "/location", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"lat":   40.7128,
		"lon":   -74.006,
		"time":  "2024-01-01T00:00:00Z",
		"speed": nil,
	}, body)

	code, _ = do(t, app, http.MethodPost, "/log?lat=40.7500&longitude=-73.9900", "", "")
	require.Equal(t, http.StatusOK, code)

	_, body = do(t, app, http.MethodGet, "/location", "", "")
	assert.Equal(t, map[string]any{
		"lat":   40.75,
		"lon":   -73.99,
		"time":  nil,
		"speed": nil,
	}, body)
}

func TestQueryStringWinsOverBody(t *testing.T) {
	app, memStore := newTestApp()

	code, _ := do(t, app, http.MethodPost, "/log?lat=1.5&s=7", fiber.MIMEApplicationJSON,
		`{"lat": "9", "longitude": "2.5", "speed": "3", "time": "t0"}`)
	require.Equal(t, http.StatusOK, code)

	pos, err := memStore.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, 1.5, pos.Lat)
	assert.Equal(t, 2.5, pos.Lon)
	require.NotNil(t, pos.Speed)
	assert.Equal(t, "7", *pos.Speed)
	require.NotNil(t, pos.Time)
	assert.Equal(t, "t0", *pos.Time)
}

func TestGetLogAcceptsQueryOnly(t *testing.T) {
	app, memStore := newTestApp()

	code, body := do(t, app, http.MethodGet, "/log?lat=0&lon=0&speed=12", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "logged", body["status"])

	pos, err := memStore.GetLatest()
	require.NoError(t, err)
	assert.Zero(t, pos.Lat)
	assert.Zero(t, pos.Lon)
	require.NotNil(t, pos.Speed)
	assert.Equal(t, "12", *pos.Speed)
}

func TestPostLocationAcknowledgesReceived(t *testing.T) {
	app, _ := newTestApp()

	code, body := do(t, app, http.MethodPost, "/location", fiber.MIMEApplicationForm, "lat=51.5&lon=-0.12")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"status": "received"}, body)

	_, body = do(t, app, http.MethodGet, "/location", "", "")
	assert.Equal(t, 51.5, body["lat"])
	assert.Equal(t, -0.12, body["lon"])
}

func TestRejectedReportsNeverReachStore(t *testing.T) {
	app, memStore := newTestApp()

	cases := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string
		wantErr     string
	}{
		{name: "no coordinates", method: http.MethodPost, target: "/log", wantErr: "missing lat or longitude"},
		{name: "missing longitude", method: http.MethodGet, target: "/log?lat=1", wantErr: "missing lat or longitude"},
		{name: "blank latitude", method: http.MethodGet, target: "/log?lat=&lon=2", wantErr: "missing lat or longitude"},
		{name: "non-numeric longitude", method: http.MethodPost, target: "/log?lat=1&longitude=east"},
		{name: "not finite", method: http.MethodGet, target: "/log?lat=NaN&lon=2"},
		{name: "malformed json", method: http.MethodPost, target: "/location", contentType: fiber.MIMEApplicationJSON, body: `{"lat": 1,`, wantErr: "missing lat or longitude"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := do(t, app, tc.method, tc.target, tc.contentType, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			require.Contains(t, body, "error")
			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, body["error"])
			}
		})
	}

	_, err := memStore.GetLatest()
	assert.ErrorIs(t, err, store.ErrNotFound)

	code, _ := do(t, app, http.MethodGet, "/location", "", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRejectedReportKeepsPreviousPosition(t *testing.T) {
	app, memStore := newTestApp()

	code, _ := do(t, app, http.MethodGet, "/log?lat=1&lon=2", "", "")
	require.Equal(t, http.StatusOK, code)
	before, err := memStore.GetLatest()
	require.NoError(t, err)

	code, _ = do(t, app, http.MethodGet, "/log?lat=3&lon=x", "", "")
	require.Equal(t, http.StatusBadRequest, code)

	after, err := memStore.GetLatest()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHealthAndCORS(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://example.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}
