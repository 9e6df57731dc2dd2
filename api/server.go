package api

import "github.com/gin-gonic/gin"

// NewServer creates the HTTP server with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/scrape", handler.StartScrape)
	r.GET("/health", handler.HealthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/jobs", handler.ListJobs)
		v1.GET("/jobs/:id", handler.GetJob)
		v1.POST("/jobs/:id/cancel", handler.CancelJob)
		v1.GET("/cities", handler.ListCities)
		v1.POST("/cities/aggregate", handler.AggregateCities)
	}

	return r
}
