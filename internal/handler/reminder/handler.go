package reminder

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/handler"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type Service interface {
	Create(ctx context.Context, actor *model.Actor, req model.ReminderRequest) (*model.MedicationReminder, error)
	Update(ctx context.Context, actor *model.Actor, id uuid.UUID, req model.ReminderRequest) (*model.MedicationReminder, error)
	Delete(ctx context.Context, actor *model.Actor, id uuid.UUID) error
	List(ctx context.Context, actor *model.Actor) ([]*model.MedicationReminder, error)
	Toggle(ctx context.Context, actor *model.Actor, id uuid.UUID) (*model.MedicationReminder, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	reminders := r.Group("/reminders")
	{
		reminders.POST("", h.Create)
		reminders.GET("", h.List)
		reminders.PUT("/:id", h.Update)
		reminders.DELETE("/:id", h.Delete)
		reminders.POST("/:id/toggle", h.Toggle)
	}
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.ReminderRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	reminder, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, reminder)
}

func (h *Handler) List(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	reminders, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, reminders)
}

func (h *Handler) Update(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.ReminderRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	reminder, err := h.service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, reminder)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Toggle(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id")
	if !ok {
		return
	}

	reminder, err := h.service.Toggle(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, reminder)
}
