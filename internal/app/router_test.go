package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"formbuilder.io/formbuilder/internal/api/handlers"
	"formbuilder.io/formbuilder/internal/api/middleware"
	"formbuilder.io/formbuilder/internal/config"
)

func TestBuildCORSConfig_DefaultsToAllowlistWhenOriginsEmpty(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        nil,
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: false,
		},
	}

	got := buildCORSConfig(cfg)
	if got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want false", got.AllowAllOrigins)
	}
	if !got.AllowCredentials {
		t.Fatalf("AllowCredentials = %v, want true", got.AllowCredentials)
	}
	if len(got.AllowOrigins) != 2 {
		t.Fatalf("len(AllowOrigins) = %d, want 2", len(got.AllowOrigins))
	}
}

func TestBuildCORSConfig_StripsWildcardUnlessUnsafeFlagEnabled(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        []string{"*", "https://example.com"},
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: false,
		},
	}

	got := buildCORSConfig(cfg)
	if got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want false", got.AllowAllOrigins)
	}
	if len(got.AllowOrigins) != 1 || got.AllowOrigins[0] != "https://example.com" {
		t.Fatalf("AllowOrigins = %#v, want []string{\"https://example.com\"}", got.AllowOrigins)
	}
	if cfg.Server.AllowedOrigins[0] != "*" {
		t.Fatalf("config origins modified: %#v", cfg.Server.AllowedOrigins)
	}
}

func TestBuildCORSConfig_UnsafeAllowAllDisablesCredentials(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			AllowedOrigins:        []string{"*"},
			AllowCredentials:      true,
			UnsafeAllowAllOrigins: true,
		},
	}

	got := buildCORSConfig(cfg)
	if !got.AllowAllOrigins {
		t.Fatalf("AllowAllOrigins = %v, want true", got.AllowAllOrigins)
	}
	if got.AllowCredentials {
		t.Fatalf("AllowCredentials = %v, want false", got.AllowCredentials)
	}
	if len(got.AllowOrigins) != 0 {
		t.Fatalf("AllowOrigins = %#v, want empty", got.AllowOrigins)
	}
}

func TestRouter_AuthBoundaries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte("router-test-key-12345678901234567890"),
		Issuer:     "formbuilder",
		ExpiresIn:  time.Hour,
	}
	router := newRouter(&config.Config{}, handlers.NewServer(handlers.ServerDeps{}), jwtCfg, prometheus.NewRegistry())

	viewer, _, err := middleware.GenerateToken(jwtCfg, "u-1", "viewer", []string{middleware.RoleViewer})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	editor, _, err := middleware.GenerateToken(jwtCfg, "u-2", "editor", []string{middleware.RoleEditor})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"liveness is public", http.MethodGet, "/api/v1/health/live", "", http.StatusOK},
		{"metrics are public", http.MethodGet, "/metrics", "", http.StatusOK},
		{"forms need a token", http.MethodGet, "/api/v1/forms", "", http.StatusUnauthorized},
		{"viewer cannot create", http.MethodPost, "/api/v1/forms", viewer, http.StatusForbidden},
		{"viewer cannot delete", http.MethodDelete, "/api/v1/forms/1", viewer, http.StatusForbidden},
		{"editor create needs a body", http.MethodPost, "/api/v1/forms", editor, http.StatusBadRequest},
		{"form id must be numeric", http.MethodGet, "/api/v1/forms/x1", editor, http.StatusBadRequest},
		{"log level needs admin", http.MethodGet, "/log/level", viewer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("%s %s = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}
