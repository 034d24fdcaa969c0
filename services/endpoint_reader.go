package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"infra-cli/internal/clock"
	"infra-cli/internal/logger"
	"infra-cli/internal/models"
	"infra-cli/internal/rpc"
)

// StatusReader reads the tunnel agent's local status API.
type StatusReader interface {
	Snapshot(ctx context.Context) (*models.TunnelStatusSnapshot, error)
}

// StatusClient queries the agent status API over HTTP.
type StatusClient struct {
	url    string
	client rpc.HTTPClient
}

func NewStatusClient(statusURL string, timeout time.Duration) *StatusClient {
	cfg := rpc.DefaultHTTPConfig()
	cfg.Timeout = timeout
	return &StatusClient{url: statusURL, client: rpc.NewHTTPClient(cfg)}
}

/**
 * Read the current tunnel mappings
 * @param {context.Context} ctx - Request context
 * @returns {*models.TunnelStatusSnapshot} Tunnels reported by the agent
 * @returns {error} Error when the API is unreachable or answers non-2xx
 */
func (s *StatusClient) Snapshot(ctx context.Context) (*models.TunnelStatusSnapshot, error) {
	resp, err := s.client.Get(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("status API %s returned %d", s.url, resp.StatusCode)
	}
	var snap models.TunnelStatusSnapshot
	if err := resp.DecodeJSON(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

type tunnelLauncher interface {
	Launch(ctx context.Context, req LaunchRequest) (*models.Tunnel, error)
}

// EndpointReader returns the public address of the running tunnel.
type EndpointReader struct {
	status   StatusReader
	launcher tunnelLauncher
	clock    clock.Clock
	settle   time.Duration
	request  LaunchRequest
}

func NewEndpointReader(status StatusReader, launcher tunnelLauncher, clk clock.Clock, settle time.Duration, req LaunchRequest) *EndpointReader {
	return &EndpointReader{
		status:   status,
		launcher: launcher,
		clock:    clk,
		settle:   settle,
		request:  req,
	}
}

/**
 * Get the public address of the first tunnel mapping
 * @param {context.Context} ctx - Request context
 * @returns {string} Public URL with the scheme removed
 * @returns {error} *NoActiveTunnelError when the agent reports no mapping
 * @description
 * - When the status API is unreachable the agent is launched once,
 *   then the reader waits settle before reading again
 */
func (r *EndpointReader) PublicAddress(ctx context.Context) (string, error) {
	snap, err := r.status.Snapshot(ctx)
	if err != nil {
		logger.Infof("Tunnel status API unavailable (%v), launching tunnel", err)
		if _, err := r.launcher.Launch(ctx, r.request); err != nil {
			return "", err
		}
		if err := r.clock.Sleep(ctx, r.settle); err != nil {
			return "", err
		}
		if snap, err = r.status.Snapshot(ctx); err != nil {
			return "", fmt.Errorf("failed to read tunnel status: %w", err)
		}
	}
	if len(snap.Tunnels) == 0 {
		return "", &NoActiveTunnelError{Port: r.request.Port}
	}
	addr := StripScheme(snap.Tunnels[0].PublicURL)
	logger.Infof("Tunnel public address: %s", addr)
	return addr, nil
}

// StripScheme removes a leading "https://" or "http://". Nothing else is normalized.
func StripScheme(u string) string {
	if s, ok := strings.CutPrefix(u, "https://"); ok {
		return s
	}
	return strings.TrimPrefix(u, "http://")
}
