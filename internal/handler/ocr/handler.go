package ocr

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medsafe-api/internal/handler"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type Scanner interface {
	Scan(ctx context.Context, imageBase64 string) (*model.Extraction, error)
}

type Handler struct {
	scanner Scanner
}

func NewHandler(scanner Scanner) *Handler {
	return &Handler{scanner: scanner}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/prescriptions/scan", h.Scan)
}

// Scan always answers 200 once the image is accepted; a failed extraction
// comes back empty with a warning so the client can fall back to manual entry.
func (h *Handler) Scan(c *gin.Context) {
	if _, ok := handler.Actor(c); !ok {
		return
	}

	var req model.ScanRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	extraction, err := h.scanner.Scan(c.Request.Context(), req.ImageBase64)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, extraction)
}
