package v1

import (
	"net/http"

	"pharmacy-guard-backend/config"
	"pharmacy-guard-backend/internal/delivery/http/middleware"
	"pharmacy-guard-backend/internal/delivery/http/response"
	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/internal/usecase"
	"pharmacy-guard-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	AuthUC       domain.AuthUsecase
	NavigationUC domain.NavigationUsecase
	HealthUC     usecase.HealthUsecase // optional
	Verifier     middleware.TokenVerifier
	Redis        *goredis.Client // optional; rate limits fall back to memory
	Config       *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.RegisterValidators(v)
	}

	r := gin.New()

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.AllowedOrigins)) // CORS must be first!
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.ErrorHandler())

	session := middleware.SessionMiddleware(deps.Verifier, deps.AuthUC)

	v1 := r.Group("/v1")

	v1.GET("/health", func(c *gin.Context) {
		if deps.HealthUC == nil {
			response.Success(c, http.StatusOK, "System operational", nil)
			return
		}
		status, ok := deps.HealthUC.Check(c.Request.Context())
		if !ok {
			response.Error(c, http.StatusServiceUnavailable, "System degraded", status)
			return
		}
		response.Success(c, http.StatusOK, "System operational", status)
	})
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Signed-in and signed-out callers alike
	public := v1.Group("", session)
	NewNavigationHandler(public, deps.NavigationUC, middleware.RateLimitMiddleware(deps.Redis, middleware.NavigationRateLimitConfig()))

	// Protected routes
	protected := v1.Group("", session, middleware.RequireAuth())
	{
		NewAuthHandler(public, protected, deps.AuthUC, middleware.RateLimitMiddleware(deps.Redis, middleware.AuthRateLimitConfig()))
		NewAdminHandler(protected, deps.AuthUC)
	}

	NewWebShellHandler(r, deps.Config.WebBasePath, session)

	return r
}
