package refill

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/handler"
	"github.com/jwalitptl/medsafe-api/internal/model"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type Service interface {
	Create(ctx context.Context, actor *model.Actor, req model.CreateRefillRequest) (*model.RefillRequest, error)
	ListMine(ctx context.Context, actor *model.Actor) ([]*model.RefillRequest, error)
	ListPending(ctx context.Context, actor *model.Actor, page model.Pagination) ([]*model.RefillRequest, error)
	Respond(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.RespondRefillRequest) (*model.RefillRequest, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	refills := r.Group("/refills")
	{
		refills.POST("", h.Create)
		refills.GET("", h.ListMine)
		refills.GET("/pending", h.ListPending)
		refills.POST("/:id/respond", h.Respond)
	}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.CreateRefillRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	refill, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, refill)
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	refills, err := h.service.ListMine(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, refills)
}

func (h *Handler) ListPending(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid pagination", err))
		return
	}

	refills, err := h.service.ListPending(c.Request.Context(), actor, page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	current := page.Page
	if current < 1 {
		current = 1
	}
	httputil.RespondWithPagination(c, refills, current, page.Limit(), len(refills))
}

func (h *Handler) Respond(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.RespondRefillRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	refill, err := h.service.Respond(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, refill)
}
