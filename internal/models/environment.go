package models

import "time"

// Variant selects the provisioning flow.
type Variant string

const (
	// VariantBranch deploys a branch while the developer runs some services locally behind the tunnel.
	VariantBranch Variant = "branch"
	// VariantBackend deploys a set of services into an ephemeral or a stable environment.
	VariantBackend Variant = "backend"
)

/**
 * Environment request gathered by the orchestrator
 * @property {Variant} variant - Provisioning flow
 * @property {string} developer - Developer identity
 * @property {[]string} services - Selected services (run locally for branch, deployed for backend)
 * @property {string} branch - Branch to deploy (branch variant)
 * @property {string} environment - Environment name (backend variant)
 * @property {bool} ephemeral - Ephemeral or stable environment (backend variant)
 * @property {string} publicAddress - Tunnel address without scheme (branch variant)
 */
type EnvironmentRequest struct {
	Variant       Variant  `json:"variant"`
	Developer     string   `json:"developer,omitempty"`
	Services      []string `json:"services"`
	Branch        string   `json:"branch,omitempty"`
	Environment   string   `json:"environment,omitempty"`
	Ephemeral     bool     `json:"ephemeral"`
	PublicAddress string   `json:"publicAddress,omitempty"`
}

// BranchDeployPayload is the wire body of a branch deploy.
type BranchDeployPayload struct {
	Developer     string   `json:"developer"`
	LocalServices []string `json:"local_services"`
	NgrokEndpoint string   `json:"ngrok_endpoint"`
	Branch        string   `json:"branch"`
}

// BackendPayload is the wire body of a backend deploy.
type BackendPayload struct {
	Environment      string   `json:"environment"`
	ServicesToDeploy []string `json:"services_to_deploy"`
}

// DestroyPayload is the wire body of a teardown request.
type DestroyPayload struct {
	Developer   string `json:"developer"`
	Environment string `json:"environment"`
}

// Payload returns the body sent to the backend for the request's variant.
func (r *EnvironmentRequest) Payload() interface{} {
	services := r.Services
	if services == nil {
		services = []string{}
	}
	if r.Variant == VariantBackend {
		return &BackendPayload{
			Environment:      r.Environment,
			ServicesToDeploy: services,
		}
	}
	return &BranchDeployPayload{
		Developer:     r.Developer,
		LocalServices: services,
		NgrokEndpoint: r.PublicAddress,
		Branch:        r.Branch,
	}
}

type BranchList struct {
	Branches []string `json:"branches"`
}

type ServiceList struct {
	Services []string `json:"services"`
}

type StableEnvironmentList struct {
	Environments []string `json:"available_stable_environments"`
}

// SessionInfo is served by the session status API.
type SessionInfo struct {
	Request   *EnvironmentRequest    `json:"request,omitempty"`
	Response  map[string]interface{} `json:"response,omitempty"`
	Tunnel    *Tunnel                `json:"tunnel,omitempty"`
	State     TunnelState            `json:"state"`
	StartTime time.Time              `json:"startTime"`
}
