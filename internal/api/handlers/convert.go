package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"formbuilder.io/formbuilder/internal/domain"
	apperrors "formbuilder.io/formbuilder/internal/pkg/errors"
)

// Pagination describes the page of a list response.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// FormList is the body of GET /forms.
type FormList struct {
	Items      []domain.Form `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// defaultPagination normalizes page/perPage from query params.
func defaultPagination(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

type listFormsQuery struct {
	Status         string `form:"status"`
	Name           string `form:"name" binding:"max=255"`
	IsSync         *bool  `form:"is_sync"`
	IncludeDeleted bool   `form:"include_deleted"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PerPage        int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

func (q listFormsQuery) filter() (domain.FormFilter, int, int, error) {
	page, perPage := defaultPagination(q.Page, q.PerPage)
	filter := domain.FormFilter{
		NameContains:   strings.TrimSpace(q.Name),
		IsSync:         q.IsSync,
		IncludeDeleted: q.IncludeDeleted,
		Limit:          perPage,
		Offset:         (page - 1) * perPage,
	}
	if q.Status != "" {
		status, err := domain.ParseStatus(q.Status)
		if err != nil {
			return filter, 0, 0, invalidField("status", err.Error())
		}
		filter.Status = &status
	}
	return filter, page, perPage, nil
}

type createFormRequest struct {
	Code       string        `json:"code" binding:"required,max=255"`
	XMLID      *string       `json:"xml_id" binding:"omitempty,max=255"`
	Name       string        `json:"name" binding:"required,max=255"`
	Status     domain.Status `json:"status"`
	Active     bool          `json:"active"`
	DateCreate *time.Time    `json:"date_create"`
}

func (r createFormRequest) attributes() domain.FormAttributes {
	attrs := domain.FormAttributes{
		Code:   strings.TrimSpace(r.Code),
		XMLID:  r.XMLID,
		Name:   strings.TrimSpace(r.Name),
		Status: r.Status,
		Active: r.Active,
	}
	if r.DateCreate != nil {
		attrs.DateCreate = r.DateCreate.UTC()
	}
	return attrs
}

// saveFormRequest carries the attributes the edit page changes. Omitted
// attributes keep their current value.
type saveFormRequest struct {
	Code   *string        `json:"code" binding:"omitempty,min=1,max=255"`
	XMLID  *string        `json:"xml_id" binding:"omitempty,max=255"`
	Name   *string        `json:"name" binding:"omitempty,min=1,max=255"`
	Status *domain.Status `json:"status"`
	Active *bool          `json:"active"`
}

func (r saveFormRequest) patch() domain.FormPatch {
	return domain.FormPatch{
		Code:   r.Code,
		XMLID:  r.XMLID,
		Name:   r.Name,
		Status: r.Status,
		Active: r.Active,
	}
}

type copyFormRequest struct {
	Code   *string        `json:"code" binding:"omitempty,min=1,max=255"`
	XMLID  *string        `json:"xml_id" binding:"omitempty,max=255"`
	Name   *string        `json:"name" binding:"omitempty,min=1,max=255"`
	Status *domain.Status `json:"status"`
	Active *bool          `json:"active"`
}

func (r copyFormRequest) overrides() domain.FormPatch {
	return domain.FormPatch{
		Code:   r.Code,
		XMLID:  r.XMLID,
		Name:   r.Name,
		Status: r.Status,
		Active: r.Active,
	}
}

type enumRequest struct {
	Value     string `json:"value" binding:"required"`
	XMLID     string `json:"xml_id"`
	Sort      int    `json:"sort"`
	IsDefault bool   `json:"is_default"`
}

type validatorRequest struct {
	Name     string         `json:"name" binding:"required"`
	Settings map[string]any `json:"settings"`
}

type addFieldRequest struct {
	Code       string             `json:"code" binding:"required,max=100"`
	Name       string             `json:"name" binding:"required,max=255"`
	Type       string             `json:"type" binding:"required"`
	Sort       *int               `json:"sort"`
	Active     *bool              `json:"active"`
	Required   bool               `json:"required"`
	Multiple   bool               `json:"multiple"`
	Settings   map[string]any     `json:"settings"`
	Enums      []enumRequest      `json:"enums" binding:"dive"`
	Validators []validatorRequest `json:"validators" binding:"dive"`
}

func (r addFieldRequest) field() domain.Field {
	f := domain.Field{
		Code:     r.Code,
		Name:     r.Name,
		Type:     r.Type,
		Sort:     500,
		Active:   true,
		Required: r.Required,
		Multiple: r.Multiple,
		Settings: r.Settings,
	}
	if r.Sort != nil {
		f.Sort = *r.Sort
	}
	if r.Active != nil {
		f.Active = *r.Active
	}
	for _, e := range r.Enums {
		f.Enums = append(f.Enums, domain.EnumValue{
			Value: e.Value, XMLID: e.XMLID, Sort: e.Sort, IsDefault: e.IsDefault,
		})
	}
	for _, v := range r.Validators {
		f.Validators = append(f.Validators, domain.Validator{Name: v.Name, Settings: v.Settings})
	}
	return f
}

func formID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidField("id", fmt.Sprintf("invalid form id %q", c.Param("id")))
	}
	return id, nil
}

func invalidField(field, message string) *apperrors.AppError {
	return apperrors.Validation(apperrors.CodeInvalidRequestField, message).
		WithFieldErrors([]apperrors.FieldError{{Field: field, Code: apperrors.CodeFieldInvalid, Message: message}})
}

// bindError turns a gin binding failure into a validation AppError.
func bindError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation(apperrors.CodeInvalidRequestField, "malformed request: "+err.Error())
	}
	fieldErrors := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		code := apperrors.CodeFieldInvalid
		if fe.Tag() == "required" {
			code = apperrors.CodeFieldRequired
		}
		fieldErrors = append(fieldErrors, apperrors.FieldError{
			Field:   requestFieldName(fe),
			Code:    code,
			Message: fmt.Sprintf("failed %q check", fe.Tag()),
		})
	}
	return apperrors.Validation(apperrors.CodeInvalidRequestField, "invalid request").
		WithFieldErrors(fieldErrors)
}

// requestFieldName maps the struct namespace to the snake_case JSON name,
// e.g. addFieldRequest.Enums[0].Value -> enums[0].value.
func requestFieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	if s == "XMLID" {
		return "xml_id"
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '[' {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
