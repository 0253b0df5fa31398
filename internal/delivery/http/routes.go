package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/compario/backend/config"
)

const maxMultipartMemory = 8 << 20

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(NewIPRateLimiter(cfg.RateLimit.PerIP)))

	// Public auth endpoints
	public := api.Group("/auth")
	{
		public.POST("/signup", handler.Signup)
		public.POST("/login", handler.Login)
		public.POST("/token/refresh", handler.RefreshToken)
	}

	protected := api.Group("")
	protected.Use(AuthMiddleware(handler.auth, logger))
	{
		protected.POST("/upload-image", handler.UploadImage)

		history := protected.Group("/history")
		{
			history.GET("", handler.ListHistory)
			history.POST("", handler.CreateHistory)
			history.DELETE("/clear", handler.ClearHistory)
			history.DELETE("/:id", handler.DeleteHistory)
		}

		account := protected.Group("/auth")
		{
			account.POST("/logout", handler.Logout)
			account.GET("/profile", handler.GetProfile)
			account.PUT("/profile", handler.UpdateProfile)
			account.PATCH("/profile", handler.UpdateProfile)
			account.POST("/change-password", handler.ChangePassword)
		}
	}

	return router
}
