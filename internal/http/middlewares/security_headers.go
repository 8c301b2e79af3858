package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'"
	// Swagger UI page needs CDN assets + inline bootstrap script/style.
	docsCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data: https:; font-src 'self' https://unpkg.com data:; style-src 'self' 'unsafe-inline' https://unpkg.com; script-src 'self' 'unsafe-inline' https://unpkg.com"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")

		path := c.Request.URL.Path
		switch {
		case strings.HasPrefix(path, "/docs"):
			c.Header("Content-Security-Policy", docsCSP)
		case strings.HasPrefix(path, "/media/"):
			// served files may be images embedded by the public site
			c.Header("Cross-Origin-Resource-Policy", "cross-origin")
		default:
			c.Header("Content-Security-Policy", defaultCSP)
		}
		c.Next()
	}
}
