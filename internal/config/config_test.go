package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	file := filepath.Join(dir, "infra.yaml")
	writeFile(t, file, "log:\n  level: debug\n")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "ngrok", cfg.Tunnel.Binary)
	assert.Equal(t, []string{"http", "{{.Port}}"}, cfg.Tunnel.Args)
	assert.Equal(t, "http://127.0.0.1:4040/api/tunnels", cfg.Tunnel.StatusURL)
	assert.Equal(t, 30, cfg.Tunnel.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Tunnel.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Tunnel.KillSettle)
	assert.Equal(t, 5*time.Second, cfg.Tunnel.EndpointSettle)
	assert.False(t, cfg.Tunnel.RequireAuthtoken)
	assert.False(t, cfg.Tunnel.KillExisting)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
}

func TestLoadConfigLegacyVariables(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	file := filepath.Join(dir, "infra.yaml")
	writeFile(t, file, "tunnel:\n  poll_interval: 250ms\n  max_attempts: 10\n")

	t.Setenv("DEVELOPER", "alice")
	t.Setenv("TERRAFORM_ENDPOINT", "https://api.example.com/v1/create-env")
	t.Setenv("TERRAFORM_API_KEY", "secret")
	t.Setenv("NGROK_PORT", "9000")
	t.Setenv("NGROK_AUTHTOKEN", "token")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.Developer)
	assert.Equal(t, "https://api.example.com/v1/create-env", cfg.Backend.Endpoint)
	assert.Equal(t, "https://api.example.com/v1", cfg.Backend.Base())
	assert.Equal(t, "secret", cfg.Backend.APIKey)
	assert.Equal(t, 9000, cfg.Tunnel.Port)
	assert.Equal(t, "token", cfg.Tunnel.Authtoken)
	assert.Equal(t, 250*time.Millisecond, cfg.Tunnel.PollInterval)
	assert.Equal(t, 10, cfg.Tunnel.MaxAttempts)
}

func TestLoadConfigPrefixedOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	file := filepath.Join(dir, "infra.yaml")
	writeFile(t, file, "")

	t.Setenv("INFRA_TUNNEL_KILL_EXISTING", "true")

	cfg, err := LoadConfig(file)
	require.NoError(t, err)
	assert.True(t, cfg.Tunnel.KillExisting)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnvKeepsExistingVariables(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".env"), "INFRA_TEST_DOTENV_KEPT=from-file\nINFRA_TEST_DOTENV_NEW=loaded\n")
	nested := filepath.Join(root, "services", "api")
	require.NoError(t, os.MkdirAll(nested, 0755))

	t.Setenv("INFRA_TEST_DOTENV_KEPT", "from-shell")
	t.Cleanup(func() { os.Unsetenv("INFRA_TEST_DOTENV_NEW") })

	path, err := LoadDotEnv(nested)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".env"), path)
	assert.Equal(t, "from-shell", os.Getenv("INFRA_TEST_DOTENV_KEPT"))
	assert.Equal(t, "loaded", os.Getenv("INFRA_TEST_DOTENV_NEW"))
}

func TestBackendBase(t *testing.T) {
	tests := []struct {
		name string
		cfg  BackendConfig
		want string
	}{
		{"explicit base", BackendConfig{BaseURL: "https://api.example.com/", Endpoint: "https://other/x"}, "https://api.example.com"},
		{"derived from endpoint", BackendConfig{Endpoint: "https://api.example.com/prod/create-env"}, "https://api.example.com/prod"},
		{"host only", BackendConfig{Endpoint: "https://api.example.com"}, "https://api.example.com"},
		{"empty", BackendConfig{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Base())
		})
	}
}

func TestBackendDestroy(t *testing.T) {
	b := BackendConfig{Endpoint: "https://api.example.com/prod/create-env"}
	assert.Equal(t, "https://api.example.com/prod/destroy", b.Destroy())

	b.DestroyEndpoint = "https://api.example.com/teardown"
	assert.Equal(t, "https://api.example.com/teardown", b.Destroy())
}

func TestRequire(t *testing.T) {
	err := Require(map[string]string{"DEVELOPER": "alice", "TERRAFORM_ENDPOINT": " "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfig))
	assert.Contains(t, err.Error(), "TERRAFORM_ENDPOINT")

	assert.NoError(t, Require(map[string]string{"DEVELOPER": "alice"}))
}
