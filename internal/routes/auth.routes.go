package routes

import (
	"nigran/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.GET("/token", controllers.HandleGetToken)
		auth.GET("/token/status", controllers.HandleTokenStatus)
	}
}

// RegisterWebSocketRoute wires the persistent stats channel endpoint.
func RegisterWebSocketRoute(r *gin.Engine, wc *controllers.WSController) {
	r.GET("/ws", wc.HandleWebSocket)
}
