// Package handlers implements the form builder HTTP API on gin.
//
// Handlers translate requests into service calls and report failures with
// c.Error; middleware.ErrorHandler renders them.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"formbuilder.io/formbuilder/internal/service"
)

// Pinger reports database reachability for the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the API handlers.
type Server struct {
	forms       *service.FormService
	submissions *service.SubmissionService
	db          Pinger
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Forms       *service.FormService
	Submissions *service.SubmissionService
	DB          Pinger
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		forms:       deps.Forms,
		submissions: deps.Submissions,
		db:          deps.DB,
	}
}

// RegisterHandlers mounts every route under r. Authentication is applied by
// the caller; routes under /public and /health are meant to stay open.
func RegisterHandlers(r gin.IRouter, s *Server) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)

	r.GET("/forms", s.ListForms)
	r.POST("/forms", s.CreateForm)
	r.GET("/forms/options", s.ListFormOptions)
	r.GET("/forms/:id", s.GetForm)
	r.PUT("/forms/:id", s.SaveForm)
	r.DELETE("/forms/:id", s.DeleteForm)
	r.POST("/forms/:id/copy", s.CopyForm)
	r.GET("/forms/:id/fields", s.ListFields)
	r.POST("/forms/:id/fields", s.AddField)

	r.GET("/public/forms/:id", s.GetPublicForm)
	r.POST("/public/forms/:id/results", s.SubmitResult)
}
