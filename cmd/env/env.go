package env

import (
	"context"
	"os"

	"infra-cli/cmd/root"
	"infra-cli/controllers"
	"infra-cli/internal/config"
	"infra-cli/internal/logger"
	"infra-cli/internal/prompt"
	"infra-cli/services"

	"github.com/gin-gonic/gin"
)

/**
 * Build the orchestrator of a create or destroy command
 * @param {context.Context} ctx - Signal context, aborts pending prompts
 * @param {*config.AppConfig} cfg - Loaded configuration
 * @returns {*services.Orchestrator} Orchestrator over the real backend, tunnel and console
 * @returns {*services.BackendClient} Backend client, closed by the caller
 */
func newOrchestrator(ctx context.Context, cfg *config.AppConfig) (*services.Orchestrator, *services.BackendClient) {
	backend := services.NewBackendClient(cfg.Backend)
	p := prompt.New(os.Stdin, os.Stdout).WithContext(ctx)
	return services.NewOrchestrator(backend, services.GetTunnelManager(), p, os.Stdout), backend
}

// startStatusServer 在后台启动会话状态服务
func startStatusServer(ctx context.Context, cfg *config.AppConfig, address string, session *services.Session) {
	if address == "" {
		return
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := controllers.NewRouter(session, root.SoftwareVer)
	go func() {
		if err := controllers.Serve(ctx, address, router); err != nil {
			logger.Errorf("Session status server stopped: %v", err)
		}
	}()
}

func pushMetrics(cfg *config.AppConfig) {
	if err := services.PushMetrics(cfg.Metrics.Pushgateway, cfg.Metrics.Job); err != nil {
		logger.Warnf("%v", err)
	}
}
