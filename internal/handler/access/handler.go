package access

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medsafe-api/internal/handler"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/service/record"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type TokenService interface {
	Generate(ctx context.Context, actor *model.Actor, ttlMinutes int) (*model.IssuedToken, error)
	Validate(ctx context.Context, raw string) (*model.TokenValidation, error)
	Consume(ctx context.Context, actor *model.Actor, raw string) (*model.AccessToken, error)
	ListActive(ctx context.Context, actor *model.Actor) ([]*model.AccessToken, error)
}

type RecordService interface {
	Open(ctx context.Context, actor *model.Actor, raw string) (*record.View, error)
}

// Handler serves the access token lifecycle and the doctor's entry point
// behind a scanned QR code.
type Handler struct {
	tokens  TokenService
	records RecordService
}

func NewHandler(tokens TokenService, records RecordService) *Handler {
	return &Handler{tokens: tokens, records: records}
}

// RegisterRoutes mounts the token routes. validateGuard runs in front of the
// validation endpoint, which is the one open to token guessing.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, validateGuard gin.HandlerFunc) {
	tokens := r.Group("/access-tokens")
	{
		tokens.POST("", h.Generate)
		tokens.GET("", h.ListActive)
		tokens.GET("/validate", validateGuard, h.Validate)
		tokens.POST("/use", validateGuard, h.Use)
	}
	r.GET("/doctor-access", validateGuard, h.DoctorAccess)
}

func (h *Handler) Generate(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.GenerateTokenRequest
	if c.Request.ContentLength != 0 && !handler.BindJSON(c, &req) {
		return
	}

	issued, err := h.tokens.Generate(c.Request.Context(), actor, req.TTLMinutes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, issued)
}

func (h *Handler) ListActive(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	tokens, err := h.tokens.ListActive(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, tokens)
}

func (h *Handler) Validate(c *gin.Context) {
	result, err := h.tokens.Validate(c.Request.Context(), c.Query("token"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) Use(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.UseTokenRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	token, err := h.tokens.Consume(c.Request.Context(), actor, req.Token)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{
		"patient_id": token.PatientID,
		"expires_at": token.ExpiresAt,
	})
}

// DoctorAccess opens a patient's record from an access link. Failures carry
// the page the client should send the user back to.
func (h *Handler) DoctorAccess(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	view, err := h.records.Open(c.Request.Context(), actor, c.Query("token"))
	if err != nil {
		httputil.RespondWithRedirect(c, err, record.RedirectFor(err))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, view)
}
