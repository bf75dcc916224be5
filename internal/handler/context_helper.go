package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/linkboard-io/linkboard-api/internal/middleware"
	"github.com/linkboard-io/linkboard-api/internal/models"
	"github.com/linkboard-io/linkboard-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func sessionFromContext(c *gin.Context) string {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return ""
	}
	session, ok := value.(string)
	if !ok {
		return ""
	}
	return session
}

func visitorFromContext(c *gin.Context) service.Visitor {
	return service.Visitor{
		SessionID: sessionFromContext(c),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
