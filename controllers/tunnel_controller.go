package controllers

import (
	"net/http"

	"infra-cli/internal/models"

	"github.com/gin-gonic/gin"
)

// TunnelController handles tunnel-related HTTP requests
type TunnelController struct {
	session SessionProvider
}

func NewTunnelController(session SessionProvider) *TunnelController {
	return &TunnelController{session: session}
}

// GetTunnel returns the managed tunnel and the live mappings reported by the agent.
func (tc *TunnelController) GetTunnel(c *gin.Context) {
	info := tc.session.Info()
	snap, err := tc.session.TunnelSnapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, &models.ErrorResponse{
			Code:  "tunnel.unavailable",
			Error: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":   info.State,
		"tunnel":  info.Tunnel,
		"tunnels": snap.Tunnels,
	})
}
