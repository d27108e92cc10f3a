package server

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) admin(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.srv.adminRoutes().ServeHTTP(rr, req)
	return rr
}

func TestHealth_UploadDirOnly(t *testing.T) {
	env := newTestServer(t, func(c *Config) { c.Build = BuildInfo{Version: "1.2.3"} })

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var h Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &h))
	assert.Equal(t, HealthStatusHealthy, h.Status)
	assert.Equal(t, "1.2.3", h.Version)
	assert.Equal(t, ComponentStatusUp, h.Components["uploads"].Status)
	assert.NotContains(t, h.Components, "database")
	assert.NotContains(t, h.Components, "object_storage")
}

func TestHealth_AllBackends(t *testing.T) {
	env := newTestServer(t, func(c *Config) {
		c.Ledger = &fakeLedger{}
		c.Mirror = newFakeMirror()
	})

	h := env.srv.checkHealth(context.Background())

	assert.Equal(t, HealthStatusHealthy, h.Status)
	assert.Equal(t, ComponentStatusUp, h.Components["database"].Status)
	assert.Equal(t, ComponentStatusUp, h.Components["object_storage"].Status)
}

func TestHealth_FailingBackendDegrades(t *testing.T) {
	mirror := newFakeMirror()
	mirror.err = errors.New("no route to host")
	env := newTestServer(t, func(c *Config) { c.Mirror = mirror })

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var h Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &h))
	assert.Equal(t, HealthStatusDegraded, h.Status)
	assert.Equal(t, ComponentStatusDegraded, h.Components["object_storage"].Status)
	assert.Contains(t, h.Components["object_storage"].Message, "no route to host")
}

func TestHealth_MissingUploadDirIsUnhealthy(t *testing.T) {
	env := newTestServer(t)
	require.NoError(t, env.fs.Remove(testUploadDir))

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unhealthy"`)
}

func TestDetermineOverallHealth(t *testing.T) {
	up := ComponentHealth{Status: ComponentStatusUp}
	degraded := ComponentHealth{Status: ComponentStatusDegraded}
	down := ComponentHealth{Status: ComponentStatusDown}

	assert.Equal(t, HealthStatusHealthy, determineOverallHealth(map[string]ComponentHealth{"a": up}))
	assert.Equal(t, HealthStatusDegraded, determineOverallHealth(map[string]ComponentHealth{"a": up, "b": degraded}))
	assert.Equal(t, HealthStatusUnhealthy, determineOverallHealth(map[string]ComponentHealth{"a": degraded, "b": down}))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t, func(c *Config) { c.Build = BuildInfo{Version: "v1", Commit: "abc"} })
	env.do(multipartRequest(t, filePart(samplePoints)))

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	body := rr.Body.String()
	assert.Contains(t, body, `xrpals_info{version="v1",commit="abc"} 1`)
	assert.Contains(t, body, "xrpals_uploads_total 1\n")
	assert.Contains(t, body, "xrpals_conversions_total 1\n")
	assert.Contains(t, body, "xrpals_converted_points_total 2\n")
	assert.Contains(t, body, `xrpals_request_errors_total{class="5xx"} 0`)
}

func TestRecentUploads_Disabled(t *testing.T) {
	env := newTestServer(t)

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/uploads", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRecentUploads(t *testing.T) {
	ledger := &fakeLedger{}
	env := newTestServer(t, func(c *Config) { c.Ledger = ledger })
	env.do(multipartRequest(t, filePart(samplePoints), filePart("bad")))

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/uploads?limit=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Uploads []UploadRecord `json:"uploads"`
		Count   int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Uploads, 1)
	assert.NotEmpty(t, resp.Uploads[0].ConversionError)
}

func TestRecentUploads_BadLimit(t *testing.T) {
	env := newTestServer(t, func(c *Config) { c.Ledger = &fakeLedger{} })

	for _, q := range []string{"abc", "0", "-3"} {
		rr := env.admin(httptest.NewRequest(http.MethodGet, "/uploads?limit="+q, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, "limit=%s", q)
	}
}

func TestRecentUploads_LedgerError(t *testing.T) {
	env := newTestServer(t, func(c *Config) { c.Ledger = &fakeLedger{err: errors.New("timeout")} })

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/uploads", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAdmin_UnknownRoute(t *testing.T) {
	env := newTestServer(t)

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/upload", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdmin_GzipResponses(t *testing.T) {
	env := newTestServer(t, func(c *Config) {
		c.Build = BuildInfo{Version: "v1", Commit: "abc"}
		c.Ledger = &fakeLedger{}
	})
	env.do(multipartRequest(t, filePart(samplePoints)))

	tests := []struct {
		path string
		want string
	}{
		{"/metrics", "xrpals_uploads_total 1\n"},
		{"/uploads", `"count":1`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Accept-Encoding", "gzip")

			rr := env.admin(req)

			require.Equal(t, http.StatusOK, rr.Code)
			require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))
			zr, err := gzip.NewReader(rr.Body)
			require.NoError(t, err)
			plain, err := io.ReadAll(zr)
			require.NoError(t, err)
			assert.Contains(t, string(plain), tt.want)
		})
	}
}

func TestAdmin_PlainWithoutAcceptEncoding(t *testing.T) {
	env := newTestServer(t)

	rr := env.admin(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Empty(t, rr.Header().Get("Content-Encoding"))
	assert.Contains(t, rr.Body.String(), "xrpals_uploads_total 0")
}
