package handler

import (
	"net/http"

	"github.com/SergeiKhy/shortlinks/internal/auth"
	"github.com/SergeiKhy/shortlinks/internal/middleware"
	"github.com/SergeiKhy/shortlinks/internal/repository"
	"github.com/SergeiKhy/shortlinks/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	linkService service.LinkService,
	clickProcessor service.ClickProcessor,
	analyticsService service.AnalyticsService,
	authService service.AuthService,
	tokens *auth.TokenManager,
	userRepo repository.UserRepository,
	rateLimiter *middleware.RateLimiter,
	baseURL string,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.RequestID())

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", middleware.GetRequestID(c)),
		)
		c.Next()
	})

	// Rate limiting для всех запросов
	router.Use(rateLimiter.Middleware())

	authHandler := NewAuthHandler(authService, logger)
	linkHandler := NewLinkHandler(linkService, clickProcessor, baseURL, logger)
	analyticsHandler := NewAnalyticsHandler(analyticsService, logger)

	api := router.Group("/api")
	{
		api.GET("/health", HealthCheck)

		api.POST("/auth/signup", authHandler.Signup)
		api.POST("/auth/login", authHandler.Login)

		// Защищённые эндпоинты требуют Bearer-токен
		protected := api.Group("")
		protected.Use(middleware.RequireAuth(tokens, userRepo))
		{
			protected.POST("/links", linkHandler.CreateLink)
			protected.GET("/links", linkHandler.ListLinks)
			protected.DELETE("/links/:id", linkHandler.DeleteLink)
			protected.GET("/analytics/:id", analyticsHandler.GetAnalytics)
		}
	}

	// Редирект (корневой путь) - без аутентификации
	router.GET("/:code", linkHandler.Redirect)

	return router
}

// HealthCheck godoc
// @Summary Service liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
