package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"infra-cli/internal/env"

	"github.com/spf13/viper"
)

/**
 * Session status server parameters
 * @property {string} address - Listening address (e.g. "127.0.0.1:8787"), empty disables the server
 * @property {string} mode - gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address, empty disables pushing
 * @property {string} job - Job name used when pushing
 */
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
	Job         string `mapstructure:"job"`
}

/**
 * Provisioning backend configuration
 * @property {string} endpoint - Branch deploy endpoint (TERRAFORM_ENDPOINT)
 * @property {string} base_url - Base URL of listing endpoints (TERRAFORM_ENDPOINT_BASE)
 * @property {string} ephemeral_endpoint - Ephemeral backend endpoint
 * @property {string} stable_endpoint - Stable backend endpoint
 * @property {string} destroy_endpoint - Destroy endpoint
 * @property {string} api_key - Value of the x-api-key header
 * @property {time.Duration} timeout - Request timeout
 */
type BackendConfig struct {
	Endpoint          string        `mapstructure:"endpoint"`
	BaseURL           string        `mapstructure:"base_url"`
	EphemeralEndpoint string        `mapstructure:"ephemeral_endpoint"`
	StableEndpoint    string        `mapstructure:"stable_endpoint"`
	DestroyEndpoint   string        `mapstructure:"destroy_endpoint"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

/**
 * Tunnel agent configuration
 * @property {string} binary - Executable name without extension
 * @property {[]string} args - Launch arguments, Go templates over {{.Port}}
 * @property {string} status_url - Local status API returning active tunnels
 * @property {string} install_dir - Directory holding the downloaded executable
 * @property {int} port - Local port exposed by default (NGROK_PORT)
 * @property {string} authtoken - Agent auth token (NGROK_AUTHTOKEN)
 * @property {bool} require_authtoken - Abort the launch when token configuration fails
 * @property {bool} kill_existing - Kill every process with the agent's name before launching
 * @property {time.Duration} poll_interval - Delay between readiness polls
 * @property {int} max_attempts - Readiness polls before giving up
 * @property {time.Duration} kill_settle - Delay after terminating a stale instance
 * @property {time.Duration} endpoint_settle - Delay after an on-demand launch before reading the endpoint
 * @property {string} log_file - Output file of detached agents
 */
type TunnelConfig struct {
	Binary           string        `mapstructure:"binary"`
	Args             []string      `mapstructure:"args"`
	StatusURL        string        `mapstructure:"status_url"`
	InstallDir       string        `mapstructure:"install_dir"`
	Port             int           `mapstructure:"port"`
	Authtoken        string        `mapstructure:"authtoken"`
	RequireAuthtoken bool          `mapstructure:"require_authtoken"`
	KillExisting     bool          `mapstructure:"kill_existing"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	KillSettle       time.Duration `mapstructure:"kill_settle"`
	EndpointSettle   time.Duration `mapstructure:"endpoint_settle"`
	LogFile          string        `mapstructure:"log_file"`
}

var ErrMissingConfig = errors.New("missing configuration")

type AppConfig struct {
	Developer string        `mapstructure:"developer"`
	Server    ServerConfig  `mapstructure:"server"`
	Log       LogConfig     `mapstructure:"log"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	Backend   BackendConfig `mapstructure:"backend"`
	Tunnel    TunnelConfig  `mapstructure:"tunnel"`
}

// envBindings maps configuration keys to the variables developers already export.
var envBindings = map[string]string{
	"developer":                  "DEVELOPER",
	"backend.endpoint":           "TERRAFORM_ENDPOINT",
	"backend.base_url":           "TERRAFORM_ENDPOINT_BASE",
	"backend.ephemeral_endpoint": "TERRAFORM_CREATE_EPHIMERAL_ENDPOINT",
	"backend.stable_endpoint":    "TERRAFORM_CREATE_NO_EPHIMERAL_ENDPOINT",
	"backend.destroy_endpoint":   "TERRAFORM_DESTROY_ENDPOINT",
	"backend.api_key":            "TERRAFORM_API_KEY",
	"tunnel.authtoken":           "NGROK_AUTHTOKEN",
	"tunnel.port":                "NGROK_PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.path", filepath.Join(env.InfraDir, "logs", "infra.log"))
	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("metrics.job", "infra")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("tunnel.binary", "ngrok")
	v.SetDefault("tunnel.args", []string{"http", "{{.Port}}"})
	v.SetDefault("tunnel.status_url", "http://127.0.0.1:4040/api/tunnels")
	v.SetDefault("tunnel.install_dir", filepath.Join(env.InfraDir, "bin", "ngrok_bin"))
	v.SetDefault("tunnel.port", 8000)
	v.SetDefault("tunnel.require_authtoken", false)
	v.SetDefault("tunnel.kill_existing", false)
	v.SetDefault("tunnel.poll_interval", time.Second)
	v.SetDefault("tunnel.max_attempts", 30)
	v.SetDefault("tunnel.kill_settle", 2*time.Second)
	v.SetDefault("tunnel.endpoint_settle", 5*time.Second)
	v.SetDefault("tunnel.log_file", filepath.Join(env.InfraDir, "logs", "tunnel.log"))
}

/**
 * Load application configuration
 * @param {string} configFile - Explicit config file, empty searches infra.yaml in "." and the infra directory
 * @returns {*AppConfig} Loaded configuration
 * @returns {error} Error if the config file exists but cannot be parsed
 * @description
 * - Loads the nearest .env into the process environment without overriding real variables
 * - Applies defaults, the config file, INFRA_* variables and the legacy variable names
 */
func LoadConfig(configFile string) (*AppConfig, error) {
	if _, err := LoadDotEnv(""); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("infra")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(env.InfraDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix("INFRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range envBindings {
		if err := v.BindEnv(key, "INFRA_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return collectConfig(&cfg), nil
}

var appConfig *AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Tunnel.MaxAttempts <= 0 {
		cfg.Tunnel.MaxAttempts = 30
	}
	if cfg.Tunnel.PollInterval <= 0 {
		cfg.Tunnel.PollInterval = time.Second
	}
	if cfg.Tunnel.Port <= 0 {
		cfg.Tunnel.Port = 8000
	}
	if len(cfg.Tunnel.Args) == 0 {
		cfg.Tunnel.Args = []string{"http", "{{.Port}}"}
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "infra"
	}
	return cfg
}

// Load reads the configuration once and keeps it for App().
func Load(configFile string) (*AppConfig, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	appConfig = cfg
	return cfg, nil
}

// App returns the loaded configuration, or the defaults when Load was never called.
func App() *AppConfig {
	if appConfig == nil {
		v := viper.New()
		setDefaults(v)
		var cfg AppConfig
		_ = v.Unmarshal(&cfg)
		appConfig = collectConfig(&cfg)
	}
	return appConfig
}

/**
 * Base URL of the listing endpoints
 * @returns {string} TERRAFORM_ENDPOINT_BASE, or TERRAFORM_ENDPOINT without its last path segment
 */
func (b *BackendConfig) Base() string {
	if b.BaseURL != "" {
		return strings.TrimSuffix(b.BaseURL, "/")
	}
	endpoint := strings.TrimSuffix(b.Endpoint, "/")
	if idx := strings.LastIndex(endpoint, "/"); idx > len("https://") {
		return endpoint[:idx]
	}
	return endpoint
}

// Destroy returns the destroy endpoint, defaulting to {base}/destroy.
func (b *BackendConfig) Destroy() string {
	if b.DestroyEndpoint != "" {
		return b.DestroyEndpoint
	}
	if base := b.Base(); base != "" {
		return base + "/destroy"
	}
	return ""
}

// Require fails with ErrMissingConfig naming the first empty value.
func Require(values map[string]string) error {
	for _, name := range sortedKeys(values) {
		if strings.TrimSpace(values[name]) == "" {
			return fmt.Errorf("%w: %s is not defined", ErrMissingConfig, name)
		}
	}
	return nil
}
