package controllers

import (
	"net/http"
	"strings"

	"nigran/internal/middleware"
	"nigran/internal/services"

	"github.com/gin-gonic/gin"
)

// HandleGetToken issues a new session token for a named viewer.
func HandleGetToken(c *gin.Context) {
	viewer := c.DefaultQuery("viewer", "nigran-viewer")

	token, err := services.GenerateToken(viewer)
	if err != nil {
		middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "token generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	middleware.GlobalSecurityLogger.LogTokenIssued(c.ClientIP(), viewer)

	protocol := "ws"
	if strings.HasPrefix(c.Request.Host, "https") {
		protocol = "wss"
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"url":    protocol + "://" + c.Request.Host + "/ws?token=" + token,
		"expiry": services.GetTokenExpiry(),
		"viewer": viewer,
	})
}

// HandleTokenStatus checks the validity of a presented token.
func HandleTokenStatus(c *gin.Context) {
	var token string
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required in Authorization header or query parameter"})
		return
	}

	claims, err := services.ValidateToken(token)
	if err != nil {
		middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"viewer":     claims.ViewerName,
		"expires_at": claims.ExpiresAt.Time,
		"issued_at":  claims.IssuedAt.Time,
	})
}
