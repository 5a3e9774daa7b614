package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shortlink-app/shortlink/internal/middleware"
	"github.com/shortlink-app/shortlink/internal/service"
	"go.uber.org/zap"
)

func NewRouter(
	linkService service.LinkService,
	analytics service.AnalyticsService,
	clickProcessor service.ClickProcessor,
	baseURL string,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	linkHandler := NewLinkHandler(linkService, analytics, clickProcessor, baseURL, logger)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)
		v1.POST("/links", linkHandler.CreateLink)
		v1.GET("/links/:slug/stats", linkHandler.GetStats)
	}

	// Redirects live at the root, which is why slugs colliding with
	// route names are reserved.
	router.GET("/:slug", linkHandler.Redirect)

	return router
}
