package app

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"formbuilder.io/formbuilder/internal/api/handlers"
	"formbuilder.io/formbuilder/internal/api/middleware"
	"formbuilder.io/formbuilder/internal/api/openapi"
	"formbuilder.io/formbuilder/internal/config"
	"formbuilder.io/formbuilder/internal/metrics"
	"formbuilder.io/formbuilder/internal/pkg/logger"
)

const basePath = "/api/v1"

// Public routes that do NOT require JWT authentication.
var publicPrefixes = []string{
	basePath + "/health/",
	basePath + "/public/",
}

// defaultOrigins are allowed when server.allowed_origins is empty.
var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

func newRouter(cfg *config.Config, server *handlers.Server, jwtCfg middleware.JWTConfig, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.ErrorHandler())
	router.Use(cors.New(buildCORSConfig(cfg)))

	router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	router.Any("/log/level",
		middleware.JWTAuth(jwtCfg),
		middleware.RequireRole(middleware.RoleAdmin),
		gin.WrapH(logger.LevelHandler()),
	)

	api := router.Group(basePath)
	api.Use(
		jwtSkipPublic(jwtCfg),
		rbacFormRoutes(),
		middleware.MustOpenAPIValidator(openapi.MustLoad(), basePath),
	)
	handlers.RegisterHandlers(api, server)
	return router
}

// jwtSkipPublic returns middleware that applies JWT auth only on non-public routes.
func jwtSkipPublic(jwtCfg middleware.JWTConfig) gin.HandlerFunc {
	jwtMw := middleware.JWTAuth(jwtCfg)
	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path) {
			c.Next()
			return
		}
		jwtMw(c)
	}
}

// rbacFormRoutes lets viewers read and editors change forms.
func rbacFormRoutes() gin.HandlerFunc {
	read := middleware.RequireRole(middleware.RoleViewer, middleware.RoleEditor)
	write := middleware.RequireRole(middleware.RoleEditor)
	return func(c *gin.Context) {
		switch {
		case isPublic(c.Request.URL.Path):
			c.Next()
		case c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead:
			read(c)
		default:
			write(c)
		}
	}
}

func isPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func buildCORSConfig(cfg *config.Config) cors.Config {
	out := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}
	if slices.Contains(origins, "*") {
		if cfg.Server.UnsafeAllowAllOrigins {
			// cors rejects AllowAllOrigins combined with credentials.
			out.AllowAllOrigins = true
			out.AllowCredentials = false
			return out
		}
		origins = slices.DeleteFunc(slices.Clone(origins), func(o string) bool { return o == "*" })
	}
	out.AllowOrigins = origins
	return out
}
