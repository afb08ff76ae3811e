package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "efaktur-validator/docs/swagger"
	"efaktur-validator/internal/services/health"
	"efaktur-validator/internal/shared/config"
	"efaktur-validator/internal/shared/metrics"
	"efaktur-validator/internal/shared/server/middleware"
	"efaktur-validator/internal/shared/server/respond"
	"efaktur-validator/internal/validation"
)

const validationRateGroup = "VALIDATE"

// RouterDeps bundles dependencies for the HTTP router.
type RouterDeps struct {
	Config            config.Config
	Health            *health.Service
	ValidationHandler *validation.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	if deps.Config.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = deps.Config.MaxUploadBytes
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				validationRateGroup: {Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst},
			},
			GroupFor: rateGroup,
		}),
	)

	healthHandler := func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status())
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	if deps.ValidationHandler != nil {
		deps.ValidationHandler.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	return r
}

// rateGroup limits only validation calls; health and metrics stay unthrottled.
func rateGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost {
		return validationRateGroup
	}
	return "UNLIMITED"
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
