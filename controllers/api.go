package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"infra-cli/internal/logger"
	"infra-cli/internal/middleware"
	"infra-cli/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionProvider exposes the state of the running create session.
type SessionProvider interface {
	Info() models.SessionInfo
	TunnelSnapshot(ctx context.Context) (*models.TunnelStatusSnapshot, error)
}

type APIController struct {
	session   SessionProvider
	version   string
	startTime time.Time
}

/**
 * Create new API controller instance
 * @param {SessionProvider} session - Session served by the status API
 * @param {string} version - Version reported by /healthz
 * @returns {*APIController} New API controller instance
 */
func NewAPIController(session SessionProvider, version string) *APIController {
	return &APIController{
		session:   session,
		version:   version,
		startTime: time.Now(),
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - /healthz, /metrics
 * - /api/v1/session, /api/v1/tunnel
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tc := NewTunnelController(a.session)
	v1 := r.Group("/api/v1")
	v1.GET("/session", a.Session)
	v1.GET("/tunnel", tc.GetTunnel)
}

// Healthz 业务就绪探针，返回版本、启动时间和请求统计
func (a *APIController) Healthz(c *gin.Context) {
	info := a.session.Info()
	c.JSON(http.StatusOK, &models.HealthResponse{
		Version:   a.version,
		StartTime: a.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(a.startTime).Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests: middleware.GetTotalRequests(),
			ErrorRequests: middleware.GetErrorRequests(),
			TunnelState:   string(info.State),
		},
	})
}

// Session 返回当前会话的请求、响应和隧道状态
func (a *APIController) Session(c *gin.Context) {
	c.JSON(http.StatusOK, a.session.Info())
}

/**
 * Build the status server router
 * @param {SessionProvider} session - Session served by the API
 * @param {string} version - Reported version
 * @returns {*gin.Engine} Router with recovery and request metrics
 */
func NewRouter(session SessionProvider, version string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())
	NewAPIController(session, version).RegisterRoutes(r)
	return r
}

/**
 * Serve the router until ctx is done
 * @param {context.Context} ctx - Cancelling it shuts the server down
 * @param {string} address - Listening address
 * @param {http.Handler} handler - Router
 * @returns {error} Listen error, nil after a clean shutdown
 */
func Serve(ctx context.Context, address string, handler http.Handler) error {
	srv := &http.Server{Addr: address, Handler: handler}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Session status server listening on %s", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
