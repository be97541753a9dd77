package routes

import (
	"nigran/internal/controllers"
	"nigran/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterMetricsRoutes wires the synchronous fallback API.
func RegisterMetricsRoutes(r *gin.Engine, mc *controllers.MetricsController) {
	api := r.Group("/api", middleware.TokenAuthMiddleware())
	{
		api.GET("/stats", mc.GetStats)
		api.GET("/cpu", mc.GetCPU)
		api.GET("/memory", mc.GetMemory)
		api.GET("/disk", mc.GetDisk)
		api.GET("/network", mc.GetNetwork)
		api.GET("/health", mc.GetHealth)
		api.GET("/system", mc.GetSystem)
		api.GET("/history", mc.GetHistory)
	}
}
