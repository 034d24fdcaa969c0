package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildURL(t *testing.T) {
	u, err := buildURL("https://api.example.com/prod", "/repos/branches", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/prod/repos/branches", u)

	u, err = buildURL("https://api.example.com/prod/", "services", map[string]interface{}{"page": 2})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/prod/services?page=2", u)

	u, err = buildURL("", "http://127.0.0.1:4040/api/tunnels", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:4040/api/tunnels", u)

	_, err = buildURL("", "services", nil)
	assert.Error(t, err)
}

func TestHTTPClientSendsHeadersAndBody(t *testing.T) {
	var gotKey, gotType string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	cfg := DefaultHTTPConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	cfg.Headers["x-api-key"] = "secret"
	client := NewHTTPClient(cfg)
	defer client.Close()

	resp, err := client.Post(context.Background(), "/create", map[string]string{"branch": "main"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "main", gotBody["branch"])

	var out map[string]string
	require.NoError(t, resp.DecodeJSON(&out))
	assert.Equal(t, "queued", out["status"])
}

func TestHTTPClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"unknown branch"}`))
	}))
	defer srv.Close()

	cfg := DefaultHTTPConfig()
	cfg.BaseURL = srv.URL
	client := NewHTTPClient(cfg)

	resp, err := client.Get(context.Background(), "/repos/branches", nil)
	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "unknown branch", resp.Error)
	assert.Equal(t, http.MethodGet, resp.Method)
}

func TestHTTPClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewHTTPClient(&HTTPConfig{BaseURL: url, Timeout: time.Second})
	_, err := client.Get(context.Background(), "/api/tunnels", nil)
	assert.Error(t, err)
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	resp := &HTTPResponse{URL: "http://x", Body: []byte("  ")}
	var v map[string]interface{}
	assert.Error(t, resp.DecodeJSON(&v))
}
