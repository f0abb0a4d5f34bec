package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "esign-backend/internal/auth"
	"esign-backend/internal/documents"
	"esign-backend/internal/services/health"
	"esign-backend/internal/shared/config"
	"esign-backend/internal/shared/metrics"
	"esign-backend/internal/shared/server/middleware"
	"esign-backend/internal/shared/server/respond"
	"esign-backend/internal/shared/util"
	"esign-backend/internal/signing"
	"esign-backend/internal/users"
)

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	DocumentHandler *documents.Handler
	SigningHandler  *signing.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
	Limiter         middleware.Limiter
	// FilesDir is served under /files when the local object store is active.
	FilesDir string
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())
	if deps.FilesDir != "" {
		r.Static("/files", deps.FilesDir)
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		status, ok := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	if deps.SigningHandler != nil {
		public := api.Group("")
		public.Use(middleware.WithFailureWriter(signing.WriteFailure))
		public.Use(middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: "SIGN",
			KeyFor:       signingRateKey,
			Limiter:      deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				"SIGN": {Rate: deps.Config.SignRatePerS, Burst: deps.Config.SignRateBurst},
			},
		}))
		deps.SigningHandler.RegisterRoutes(public)
	}

	owner := api.Group("")
	owner.Use(middleware.Auth())
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(owner)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(owner)
	}

	return r
}

// signingRateKey buckets signing requests per client IP and link.
func signingRateKey(c *gin.Context) string {
	return c.ClientIP() + "|" + util.TokenFingerprint(c.Param("token"))
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
