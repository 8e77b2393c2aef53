package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the health check response body.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetLiveness handles GET /health/live.
func (s *Server) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, Health{Status: "ok"})
}

// GetReadiness handles GET /health/ready.
func (s *Server) GetReadiness(c *gin.Context) {
	checks := map[string]string{"database": "ok"}
	if s.db == nil {
		checks["database"] = "unconfigured"
	} else if err := s.db.Ping(c.Request.Context()); err != nil {
		checks["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, Health{Status: "degraded", Checks: checks})
		return
	}
	c.JSON(http.StatusOK, Health{Status: "ok", Checks: checks})
}
