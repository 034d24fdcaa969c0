package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"infra-cli/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	info    models.SessionInfo
	snap    *models.TunnelStatusSnapshot
	snapErr error
}

func (s *stubSession) Info() models.SessionInfo { return s.info }

func (s *stubSession) TunnelSnapshot(ctx context.Context) (*models.TunnelStatusSnapshot, error) {
	return s.snap, s.snapErr
}

func newStubSession() *stubSession {
	return &stubSession{
		info: models.SessionInfo{
			Request: &models.EnvironmentRequest{
				Variant:       models.VariantBranch,
				Developer:     "alice",
				Services:      []string{"api"},
				Branch:        "main",
				PublicAddress: "abcd.example.com",
			},
			Response:  map[string]interface{}{"environment": "dev-alice-42"},
			Tunnel:    &models.Tunnel{Pid: 4321, LocalPort: 8000, PublicURL: "abcd.example.com"},
			State:     models.TunnelReady,
			StartTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		snap: &models.TunnelStatusSnapshot{
			Tunnels: []models.TunnelMapping{{Name: "command_line", PublicURL: "https://abcd.example.com", Proto: "https"}},
		},
	}
}

func serve(t *testing.T, session SessionProvider, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := NewRouter(session, "1.2.3")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := serve(t, newStubSession(), "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UP", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "ready", resp.Metrics.TunnelState)
}

func TestSession(t *testing.T) {
	w := serve(t, newStubSession(), "/api/v1/session")
	require.Equal(t, http.StatusOK, w.Code)

	var info models.SessionInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "main", info.Request.Branch)
	assert.Equal(t, 4321, info.Tunnel.Pid)
	assert.Equal(t, "dev-alice-42", info.Response["environment"])
}

func TestTunnel(t *testing.T) {
	w := serve(t, newStubSession(), "/api/v1/tunnel")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"public_url":"https://abcd.example.com"`)
	assert.Contains(t, w.Body.String(), `"state":"ready"`)
}

func TestTunnelUnavailable(t *testing.T) {
	session := newStubSession()
	session.snapErr = errors.New("connection refused")

	w := serve(t, session, "/api/v1/tunnel")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "tunnel.unavailable")
}

func TestMetricsEndpoint(t *testing.T) {
	serve(t, newStubSession(), "/healthz")
	w := serve(t, newStubSession(), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "infra_http_request_total"))
}

func TestServeStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", NewRouter(newStubSession(), "test")) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
