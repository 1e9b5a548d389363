package api

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"history-service/middleware"
)

// NewRouter wires the event routes onto a gin engine. Kept separate from
// StartServer so tests can drive it with httptest.
func NewRouter(h *EventsHandler) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.PrometheusMiddleware("history-service"))

	// Health check routes
	router.GET("/", healthCheck)
	router.GET("/health", healthCheck)
	router.GET("/ready", healthCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	events := router.Group("/api/historical-events")
	{
		events.GET("", h.GetAllEvents)
		events.GET("/search", h.SearchEvents)
		events.GET("/stats", h.GetStats)
		events.GET("/:period", h.GetEventsByPeriod)
		events.POST("/structure", h.StructureEvent)
		events.POST("/structure-async", h.StructureEventAsync)
	}

	return router
}

// StartServer runs the API on the given port. Blocks until the server stops.
func StartServer(h *EventsHandler, port string) {
	router := NewRouter(h)

	log.Printf("History API is running at :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "healthy", "service": "history-service"})
}
