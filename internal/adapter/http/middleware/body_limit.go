package middleware

import (
	"net/http"

	"custody-bridge/pkg/apperror"
	"custody-bridge/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize rejects bodies larger than maxBytes. A declared oversize
// Content-Length fails immediately; otherwise the reader errors once the
// limit is crossed and binding fails downstream.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrPayloadTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
