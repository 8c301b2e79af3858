package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request bodies. Multipart uploads get their own,
// larger limit.
func MaxBodyBytes(max, uploadMax int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		limit := max
		if isMultipart(ctx) {
			limit = uploadMax
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)

		ctx.Next()
	}
}

func isMultipart(ctx *gin.Context) bool {
	return strings.HasPrefix(strings.ToLower(ctx.GetHeader("Content-Type")), "multipart/form-data")
}
