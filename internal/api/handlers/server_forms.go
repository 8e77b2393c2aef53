package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListForms handles GET /forms.
func (s *Server) ListForms(c *gin.Context) {
	var q listFormsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(err))
		return
	}
	filter, page, perPage, err := q.filter()
	if err != nil {
		_ = c.Error(err)
		return
	}

	forms, err := s.forms.List(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, FormList{
		Items:      forms,
		Pagination: Pagination{Page: page, PerPage: perPage},
	})
}

// CreateForm handles POST /forms.
func (s *Server) CreateForm(c *gin.Context) {
	var req createFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	form, err := s.forms.Create(c.Request.Context(), req.attributes())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, form)
}

// GetForm handles GET /forms/:id.
func (s *Server) GetForm(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	form, err := s.forms.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// SaveForm handles PUT /forms/:id. Saving a published form creates an
// editable fork; the response names the form that now holds the changes.
func (s *Server) SaveForm(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req saveFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	ctx := c.Request.Context()
	current, err := s.forms.Get(ctx, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	out, err := s.forms.Save(ctx, id, req.patch().ApplyTo(current.FormAttributes))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// DeleteForm handles DELETE /forms/:id.
func (s *Server) DeleteForm(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	outcome, err := s.forms.Delete(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// CopyForm handles POST /forms/:id/copy. The body is optional.
func (s *Server) CopyForm(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req copyFormRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(bindError(err))
			return
		}
	}

	form, err := s.forms.Copy(c.Request.Context(), id, req.overrides())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, form)
}

// ListFormOptions handles GET /forms/options.
func (s *Server) ListFormOptions(c *gin.Context) {
	options, err := s.forms.Options(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": options})
}

// ListFields handles GET /forms/:id/fields.
func (s *Server) ListFields(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	fields, err := s.forms.Fields(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": fields})
}

// AddField handles POST /forms/:id/fields.
func (s *Server) AddField(c *gin.Context) {
	id, err := formID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req addFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	field, err := s.forms.AddField(c.Request.Context(), id, req.field())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, field)
}
