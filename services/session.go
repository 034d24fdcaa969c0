package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"infra-cli/internal/models"
)

// TunnelSupervisor is the part of the tunnel manager used by a session.
type TunnelSupervisor interface {
	PublicAddress(ctx context.Context) (string, error)
	Current() *models.Tunnel
	State() models.TunnelState
	Snapshot(ctx context.Context) (*models.TunnelStatusSnapshot, error)
	Terminate() error
}

// Session holds the state of one create command, shared with the status server.
type Session struct {
	tunnel    TunnelSupervisor
	request   *models.EnvironmentRequest
	response  map[string]interface{}
	startTime time.Time
	mutex     sync.RWMutex
}

func NewSession(tunnel TunnelSupervisor) *Session {
	return &Session{tunnel: tunnel, startTime: time.Now()}
}

func (s *Session) SetRequest(req *models.EnvironmentRequest) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r := *req
	s.request = &r
}

func (s *Session) SetResponse(resp map[string]interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.response = resp
}

// Info returns a snapshot of the session and the tunnel it holds.
func (s *Session) Info() models.SessionInfo {
	s.mutex.RLock()
	info := models.SessionInfo{
		Request:   s.request,
		Response:  s.response,
		StartTime: s.startTime,
		State:     models.TunnelIdle,
	}
	s.mutex.RUnlock()
	if s.tunnel != nil {
		info.Tunnel = s.tunnel.Current()
		info.State = s.tunnel.State()
	}
	return info
}

// TunnelSnapshot reads the live status of the tunnel agent.
func (s *Session) TunnelSnapshot(ctx context.Context) (*models.TunnelStatusSnapshot, error) {
	if s.tunnel == nil {
		return nil, errors.New("no tunnel in this session")
	}
	return s.tunnel.Snapshot(ctx)
}
