package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KokiWakatsuki/lingua-path/back/internal/api/handlers"
	"github.com/KokiWakatsuki/lingua-path/back/internal/api/middleware"
)

// NewRouter sets up all the routes for the application
func NewRouter(
	courseHandler *handlers.CourseHandler,
	usageHandler *handlers.UsageHandler,
	chatHandler *handlers.ChatHandler,
	healthHandler *handlers.HealthHandler,
	metricsHandler http.Handler,
	allowedOrigins []string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(allowedOrigins))

	// Health check endpoints
	router.GET("/", healthHandler.Health)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/providers", healthHandler.ProviderHealth)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := router.Group("/api", middleware.UserIdentity())
	{
		// Course generation endpoints
		api.POST("/courses/generate", courseHandler.GenerateCourse)
		api.GET("/courses", courseHandler.ListCourses)
		api.GET("/courses/:id", courseHandler.GetCourse)

		// AI endpoints
		api.POST("/ai/chat", chatHandler.Chat)
		api.GET("/ai/usage", usageHandler.GetUsage)
	}

	return router
}
