package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type SizeLimitConfig struct {
	MaxBodySize   int64 // bytes, applied to routes without an override
	MaxHeaderSize int   // bytes, names plus values
	// RouteBodySize overrides MaxBodySize by gin route pattern, e.g. the scan
	// endpoint that carries a base64 photo.
	RouteBodySize map[string]int64
}

func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{
		MaxBodySize:   1 << 20,
		MaxHeaderSize: 1 << 14,
	}
}

func (c SizeLimitConfig) bodyLimit(route string) int64 {
	if limit, ok := c.RouteBodySize[route]; ok {
		return limit
	}
	return c.MaxBodySize
}

func tooLarge(what string, limit int64) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrRequestTooLarge,
		Message: fmt.Sprintf("request %s exceed %d bytes", what, limit),
	}
}

// SizeLimit rejects oversized requests up front and caps the body reader for
// requests that do not declare a Content-Length.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := config.bodyLimit(c.FullPath())
		if c.Request.ContentLength > limit {
			httputil.RespondWithError(c, tooLarge("body", limit))
			return
		}

		headerSize := 0
		for name, values := range c.Request.Header {
			headerSize += len(name)
			for _, value := range values {
				headerSize += len(value)
			}
		}
		if headerSize > config.MaxHeaderSize {
			httputil.RespondWithError(c, tooLarge("headers", int64(config.MaxHeaderSize)))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
