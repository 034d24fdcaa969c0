package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"infra-cli/internal/config"
	"infra-cli/internal/logger"
	"infra-cli/internal/models"
	"infra-cli/internal/rpc"
)

// BackendClient calls the provisioning backend.
type BackendClient struct {
	cfg    config.BackendConfig
	client rpc.HTTPClient
}

/**
 * Create backend client
 * @param {config.BackendConfig} cfg - Endpoints, API key and timeout
 * @returns {*BackendClient} New client instance
 */
func NewBackendClient(cfg config.BackendConfig) *BackendClient {
	httpCfg := rpc.DefaultHTTPConfig()
	httpCfg.BaseURL = cfg.Base()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	if cfg.APIKey != "" {
		httpCfg.Headers["x-api-key"] = cfg.APIKey
	}
	return &BackendClient{cfg: cfg, client: rpc.NewHTTPClient(httpCfg)}
}

func (c *BackendClient) Close() error {
	return c.client.Close()
}

// ListBranches returns the deployable branches.
func (c *BackendClient) ListBranches(ctx context.Context) ([]string, error) {
	var out models.BranchList
	if err := c.get(ctx, "branches", "/repos/branches", &out); err != nil {
		return nil, err
	}
	return out.Branches, nil
}

// ListServices returns the services known to the backend.
func (c *BackendClient) ListServices(ctx context.Context) ([]string, error) {
	var out models.ServiceList
	if err := c.get(ctx, "services", "/services", &out); err != nil {
		return nil, err
	}
	return out.Services, nil
}

// ListStableEnvironments returns the stable environments a backend can be deployed into.
func (c *BackendClient) ListStableEnvironments(ctx context.Context) ([]string, error) {
	var out models.StableEnvironmentList
	if err := c.get(ctx, "environments", "/available-stable-environments", &out); err != nil {
		return nil, err
	}
	return out.Environments, nil
}

// CreateEndpoint returns the URL a request of this variant is posted to.
func (c *BackendClient) CreateEndpoint(req *models.EnvironmentRequest) string {
	if req.Variant == models.VariantBackend {
		if req.Ephemeral {
			return c.cfg.EphemeralEndpoint
		}
		return c.cfg.StableEndpoint
	}
	return c.cfg.Endpoint
}

/**
 * Submit an environment request
 * @param {context.Context} ctx - Request context
 * @param {*models.EnvironmentRequest} req - Gathered request
 * @returns {map[string]interface{}} Decoded backend response, empty when the body is empty
 * @returns {error} *BackendRequestError on transport failure or non-2xx
 */
func (c *BackendClient) Create(ctx context.Context, req *models.EnvironmentRequest) (map[string]interface{}, error) {
	endpoint := c.CreateEndpoint(req)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: no create endpoint configured for variant %s", config.ErrMissingConfig, req.Variant)
	}
	out := map[string]interface{}{}
	if err := c.post(ctx, "create", endpoint, req.Payload(), &out); err != nil {
		return nil, err
	}
	recordEnvironmentCreated(req.Variant)
	return out, nil
}

/**
 * Request teardown of an environment
 * @param {context.Context} ctx - Request context
 * @param {*models.DestroyPayload} req - Developer and environment name
 * @returns {map[string]interface{}} Decoded backend response
 * @returns {error} *BackendRequestError on transport failure or non-2xx
 */
func (c *BackendClient) Destroy(ctx context.Context, req *models.DestroyPayload) (map[string]interface{}, error) {
	endpoint := c.cfg.Destroy()
	if endpoint == "" {
		return nil, fmt.Errorf("%w: no destroy endpoint configured", config.ErrMissingConfig)
	}
	out := map[string]interface{}{}
	if err := c.post(ctx, "destroy", endpoint, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BackendClient) get(ctx context.Context, name, path string, out interface{}) error {
	start := time.Now()
	resp, err := c.client.Get(ctx, path, nil)
	return c.finish(name, http.MethodGet, c.cfg.Base()+path, start, resp, err, out)
}

func (c *BackendClient) post(ctx context.Context, name, endpoint string, body, out interface{}) error {
	start := time.Now()
	resp, err := c.client.Post(ctx, endpoint, body)
	return c.finish(name, http.MethodPost, endpoint, start, resp, err, out)
}

func (c *BackendClient) finish(name, method, url string, start time.Time, resp *rpc.HTTPResponse, err error, out interface{}) error {
	elapsed := time.Since(start).Seconds()
	if err != nil {
		recordBackendRequest(name, 0, elapsed)
		logger.Errorf("%s %s failed: %v", method, url, err)
		return &BackendRequestError{Method: method, URL: url, Err: err}
	}
	recordBackendRequest(name, resp.StatusCode, elapsed)
	logger.Debugf("%s %s -> %d", method, resp.URL, resp.StatusCode)
	if !resp.IsSuccess() {
		return &BackendRequestError{
			Method:     method,
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Body:       resp.Error,
		}
	}
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil
	}
	if err := resp.DecodeJSON(out); err != nil {
		return &BackendRequestError{Method: method, URL: resp.URL, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
