package gateway

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vexoj/pkg/utils/logger"
)

// Server owns the WebSocket endpoints of the realtime gateway.
type Server struct {
	jobs      JobService
	judgeDeps JudgeDeps
	hub       *Hub
}

func NewServer(jobs JobService, judgeDeps JudgeDeps, hub *Hub) *Server {
	return &Server{jobs: jobs, judgeDeps: judgeDeps, hub: hub}
}

// RegisterRoutes mounts the gateway endpoints on a gin engine.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/execute", s.handleExecute)
	r.GET("/ws/judge", s.handleJudge)
	r.GET("/ws/submissions", s.handleSubmissions)
}

func (s *Server) handleExecute(c *gin.Context) {
	conn, err := Upgrade(c.Writer, c.Request)
	if err != nil {
		logger.Warn(c.Request.Context(), "ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The session outlives the HTTP request context; its own context is
	// cancelled when the connection drops.
	session := NewExecSession(context.Background(), s.jobs, s.judgeDeps.Problems, conn)
	defer session.Close()

	conn.ReadLoop(session.HandleMessage)
}

func (s *Server) handleJudge(c *gin.Context) {
	conn, err := Upgrade(c.Writer, c.Request)
	if err != nil {
		logger.Warn(c.Request.Context(), "ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session := NewJudgeSession(context.Background(), s.judgeDeps, conn)
	defer session.Close()

	conn.ReadLoop(session.HandleMessage)
}

func (s *Server) handleSubmissions(c *gin.Context) {
	conn, err := Upgrade(c.Writer, c.Request)
	if err != nil {
		logger.Warn(c.Request.Context(), "ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	// Watchers only listen; inbound messages are discarded.
	conn.ReadLoop(func(Envelope) {})
}

// HealthHandler reports liveness for load balancers.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
