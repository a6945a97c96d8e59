package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickcart/order-supervisor/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "order-supervisor",
		})
	})

	automation := handler.NewAutomationHandler(deps)
	settings := handler.NewSettingsHandler(deps)
	reports := handler.NewReportHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/balance", reports.Balance)
		v1.GET("/price", reports.Price)
		v1.GET("/reports", reports.Reports)
		v1.GET("/runs", reports.Runs)

		v1.GET("/settings", settings.GetSettings)
		v1.PUT("/settings/:group", settings.UpdateSettings)

		auto := v1.Group("/automation")
		{
			auto.POST("/start", automation.Start)
			auto.POST("/stop", automation.Stop)
			auto.POST("/reset", automation.Reset)
			auto.GET("/status", automation.Status)
		}
	}

	return r
}
