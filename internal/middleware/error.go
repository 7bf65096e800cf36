package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

// ErrorHandler renders the last error attached with c.Error when the handler
// wrote nothing. Client errors are logged at warn, everything else at error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		last := c.Errors.Last().Err
		level := zerolog.ErrorLevel
		if status := apperrors.StatusCode(last); status < 500 {
			level = zerolog.WarnLevel
		}
		for _, e := range c.Errors {
			log.WithLevel(level).
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("method", c.Request.Method).
				Str("path", c.FullPath()).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, last)
	}
}
