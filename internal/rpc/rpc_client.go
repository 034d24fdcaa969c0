package rpc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"infra-cli/internal/logger"
)

// httpClient HTTP客户端实现
type httpClient struct {
	config    *HTTPConfig
	client    *http.Client
	transport *http.Transport
	mu        sync.Mutex
}

/**
 * Create new HTTP client for JSON APIs
 * @param {HTTPConfig} config - HTTP client configuration, nil uses DefaultHTTPConfig
 * @returns {HTTPClient} HTTP client interface
 * @description
 * - Every request carries config.Headers
 * - config.Timeout bounds each request in addition to the caller's context
 * @example
 * cfg := DefaultHTTPConfig()
 * cfg.BaseURL = "https://api.example.com/prod"
 * cfg.Headers["x-api-key"] = key
 * client := NewHTTPClient(cfg)
 * defer client.Close()
 */
func NewHTTPClient(config *HTTPConfig) HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}

	c := &httpClient{
		config: config,
	}
	transport := config.Transport
	if transport == nil {
		c.transport = http.DefaultTransport.(*http.Transport).Clone()
		transport = c.transport
	}
	c.client = &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
	return c
}

/**
 * Send GET request
 * @param {context.Context} ctx - Request context
 * @param {string} path - Path relative to BaseURL, or an absolute URL
 * @param {map[string]interface{}} params - Query parameters
 * @returns {*HTTPResponse} Response of any status code
 * @returns {error} Error if the request cannot be built or sent
 */
func (c *httpClient) Get(ctx context.Context, path string, params map[string]interface{}) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, params)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	logger.Debugf("Sending GET request to %s", url)
	return c.do(ctx, http.MethodGet, url, nil)
}

/**
 * Send POST request with a JSON body
 * @param {context.Context} ctx - Request context
 * @param {string} path - Path relative to BaseURL, or an absolute URL
 * @param {interface{}} data - Request body, serialized to JSON
 * @returns {*HTTPResponse} Response of any status code
 * @returns {error} Error if the request cannot be built or sent
 */
func (c *httpClient) Post(ctx context.Context, path string, data interface{}) (*HTTPResponse, error) {
	url, err := buildURL(c.config.BaseURL, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	body, err := serializeData(data)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Sending POST request to %s", url)
	return c.do(ctx, http.MethodPost, url, body)
}

func (c *httpClient) do(ctx context.Context, method, url string, body io.Reader) (*HTTPResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	httpResp, err := deserializeResponse(method, resp)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	return httpResp, nil
}

// Close 关闭空闲连接
func (c *httpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.CloseIdleConnections()
	}
	return nil
}
