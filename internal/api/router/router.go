package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurul-suhasril/idea-analyzer/internal/api/handler"
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
		if deps.DBClient != nil {
			if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "extraction-api-service",
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "extraction-api-service",
		})
	})

	extractionHandler := handler.NewExtractionHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		extractions := v1.Group("/extractions")
		{
			// POST /api/v1/extractions - Submit a URL for extraction
			extractions.POST("", extractionHandler.CreateExtraction)

			// POST /api/v1/extractions/file - Upload a file for extraction
			extractions.POST("/file", extractionHandler.UploadFile)

			// GET /api/v1/extractions - List extraction jobs
			extractions.GET("", extractionHandler.ListExtractions)

			// GET /api/v1/extractions/:id - Get extraction job details
			extractions.GET("/:id", extractionHandler.GetExtraction)
		}
	}

	return r
}
