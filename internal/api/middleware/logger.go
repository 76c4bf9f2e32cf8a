package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/services"
)

// RequestLogger records every API request in the operation log
func RequestLogger(logService *services.LogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logService.LogAPIRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			c.ClientIP(),
			c.Request.UserAgent(),
		)
	}
}
