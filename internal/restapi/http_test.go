package restapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dutyplan.onebusaway.org/internal/app"
	"dutyplan.onebusaway.org/internal/appconf"
	"dutyplan.onebusaway.org/internal/duty"
	"dutyplan.onebusaway.org/internal/logging"
	"dutyplan.onebusaway.org/internal/persistence"
	"dutyplan.onebusaway.org/internal/tripindex"
)

const testKey = "TEST"

func testIndex() *tripindex.Index {
	return tripindex.Build([]tripindex.BlockRow{
		{BlockID: "BLOCK_001", Sequence: 1, TripID: "T1", StartTime: "08:00", EndTime: "08:45"},
		{BlockID: "BLOCK_001", Sequence: 2, TripID: "T2", StartTime: "09:00", EndTime: "09:30"},
		{BlockID: "BLOCK_001", Sequence: 3, TripID: "T3", StartTime: "10:00", EndTime: "11:00"},
		{BlockID: "BLOCK_001", Sequence: 4, TripID: "T4", StartTime: "11:10", EndTime: "12:00"},
		{BlockID: "BLOCK_002", Sequence: 1, TripID: "U1", StartTime: "07:00", EndTime: "07:40"},
	})
}

// createTestApi creates a RestAPI backed by an in-memory session over testIndex.
func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	logger := logging.NewStructuredLogger(io.Discard, slog.LevelInfo)
	application := &app.Application{
		Config: appconf.Config{
			Env:       appconf.EnvFlagToEnvironment("test"),
			ApiKeys:   []string{testKey},
			RateLimit: 100,
			Storage:   appconf.StorageConfig{Backend: persistence.BackendMemory},
		},
		Logger:  logger,
		Session: app.NewSession(testIndex(), duty.DefaultSettings(), persistence.NewMemoryStorage(), logger),
	}
	return NewRestAPI(application)
}

func doRequest(t *testing.T, api *RestAPI, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	req := httptest.NewRequest(method, path+sep+"key="+testKey, reader)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

// entryOf decodes data.entry of a successful response.
func entryOf[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var envelope struct {
		Code int `json:"code"`
		Data struct {
			Entry T `json:"entry"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, http.StatusOK, envelope.Code)
	return envelope.Data.Entry
}

// listOf decodes data.list of a successful response.
func listOf[T any](t *testing.T, rec *httptest.ResponseRecorder) []T {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var envelope struct {
		Data struct {
			List []T `json:"list"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data.List
}

func fieldErrorsOf(t *testing.T, rec *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var body struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.FieldErrors
}

func errorTextOf(t *testing.T, rec *httptest.ResponseRecorder, status int) string {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, status, body.Code)
	return body.Text
}

func TestAPIKeyValidation(t *testing.T) {
	api := createTestApi(t)
	handler := api.Handler()

	t.Run("missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/duties", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "permission denied", body.Text)
		assert.Equal(t, 1, body.Version)
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/duties?key=nope", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("key in header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/duties", nil)
		req.Header.Set(app.APIKeyHeader, testKey)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	api := createTestApi(t)
	text := errorTextOf(t, doRequest(t, api, http.MethodGet, "/api/nothing-here", ""), http.StatusNotFound)
	assert.Equal(t, "resource not found", text)
}

func TestMiddlewareChain(t *testing.T) {
	api := createTestApi(t)

	t.Run("security headers on API responses", func(t *testing.T) {
		rec := doRequest(t, api, http.MethodGet, "/api/duties", "")
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})

	t.Run("preflight skips authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/segments", nil)
		req.Header.Set("Origin", "https://planner.example.com")
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), app.APIKeyHeader)
	})
}
