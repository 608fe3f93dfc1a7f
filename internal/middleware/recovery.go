package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fchat-backend/pkg/logger"
	"fchat-backend/pkg/response"
)

// Recovery recovers from panics and returns a generic 500 envelope
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					zap.Any("panic", err),
					zap.String("path", c.Request.URL.Path))
				response.InternalError(c, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
