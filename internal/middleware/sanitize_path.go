package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// pathPolicy is shared across requests, bluemonday policies are safe for
// concurrent use once built.
var pathPolicy = bluemonday.StrictPolicy()

// SanitizePath strips markup from the request path before any handler
// echoes it back in logs or error responses.
func SanitizePath() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.URL.Path = pathPolicy.Sanitize(c.Request.URL.Path)
		c.Next()
	}
}
