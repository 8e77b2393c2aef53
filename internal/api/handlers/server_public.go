package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formbuilder.io/formbuilder/internal/service"
)

// GetPublicForm handles GET /public/forms/:id: the definition a visitor
// fills in. Only active published forms are served.
func (s *Server) GetPublicForm(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	def, err := s.submissions.Definition(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, def)
}

// SubmitResult handles POST /public/forms/:id/results.
func (s *Server) SubmitResult(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var sub service.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	result, err := s.submissions.Submit(c.Request.Context(), id, sub)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
