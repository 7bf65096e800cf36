package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

// Recovery turns a handler panic into a 500 envelope. The panic value goes to
// the log only; it may hold patient data.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().
			Str("panic", fmt.Sprint(recovered)).
			Bytes("stack", debug.Stack()).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(ContextRequestID)).
			Msg("recovered from panic")

		httputil.RespondWithError(c, apperrors.Internal(fmt.Errorf("panic in %s", c.FullPath())))
	})
}
