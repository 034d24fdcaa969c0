package models

import "time"

// TunnelState is the supervisor's view of the agent lifecycle.
type TunnelState string

const (
	TunnelIdle     TunnelState = "idle"
	TunnelStarting TunnelState = "starting"
	TunnelReady    TunnelState = "ready"
	TunnelCrashed  TunnelState = "crashed"
	TunnelTimedOut TunnelState = "timed_out"
)

/**
 * Tunnel record, persisted to the cache so a later invocation can stop
 * exactly the process this tool started
 */
type Tunnel struct {
	Pid         int       `json:"pid"`
	ProcessName string    `json:"processName"`
	Executable  string    `json:"executable"`
	LocalPort   int       `json:"localPort"`
	Authtoken   bool      `json:"authtoken"`
	PublicURL   string    `json:"publicUrl,omitempty"`
	Status      RunStatus `json:"status"`
	Detached    bool      `json:"detached"`
	CreatedTime time.Time `json:"createdTime"`
}

// ExecutableSource tells where the agent executable was found.
type ExecutableSource string

const (
	SourceSystem     ExecutableSource = "system"
	SourceLocal      ExecutableSource = "local"
	SourceDownloaded ExecutableSource = "downloaded"
)

type ExecutableReference struct {
	Path   string           `json:"path"`
	Source ExecutableSource `json:"source"`
}

// TunnelMappingConfig is the upstream side of a mapping.
type TunnelMappingConfig struct {
	Addr    string `json:"addr"`
	Inspect bool   `json:"inspect"`
}

// TunnelMapping is one entry of the agent status API.
type TunnelMapping struct {
	Name      string              `json:"name"`
	URI       string              `json:"uri"`
	PublicURL string              `json:"public_url"`
	Proto     string              `json:"proto"`
	Config    TunnelMappingConfig `json:"config"`
}

// TunnelStatusSnapshot is the body of GET /api/tunnels.
type TunnelStatusSnapshot struct {
	Tunnels []TunnelMapping `json:"tunnels"`
	URI     string          `json:"uri"`
}
