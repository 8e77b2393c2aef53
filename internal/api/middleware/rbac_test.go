package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequireRole(t *testing.T) {
	t.Parallel()

	run := func(roles []string, required ...string) (int, bool) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if roles != nil {
			req = req.WithContext(context.WithValue(req.Context(), ctxKeyRoles, roles))
		}
		c.Request = req

		RequireRole(required...)(c)
		return w.Code, !c.IsAborted()
	}

	tests := []struct {
		name       string
		roles      []string
		required   []string
		wantStatus int
		wantCalled bool
	}{
		{"admin bypasses required role", []string{RoleAdmin}, []string{RoleEditor}, http.StatusOK, true},
		{"matching role allowed", []string{RoleViewer, RoleEditor}, []string{RoleEditor}, http.StatusOK, true},
		{"any of several roles", []string{RoleViewer}, []string{RoleEditor, RoleViewer}, http.StatusOK, true},
		{"missing role forbidden", []string{RoleViewer}, []string{RoleEditor}, http.StatusForbidden, false},
		{"no roles forbidden", nil, []string{RoleViewer}, http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, called := run(tt.roles, tt.required...)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Fatalf("called = %v, want %v", called, tt.wantCalled)
			}
		})
	}
}
