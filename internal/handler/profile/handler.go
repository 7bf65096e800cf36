package profile

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medsafe-api/internal/handler"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type Service interface {
	Get(ctx context.Context, actor *model.Actor) (*model.Profile, error)
	Update(ctx context.Context, actor *model.Actor, req model.UpdateProfileRequest) (*model.Profile, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/profile", h.Get)
	r.PUT("/profile", h.Update)
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, p)
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, p)
}
