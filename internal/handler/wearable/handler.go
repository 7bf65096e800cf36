package wearable

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medsafe-api/internal/handler"
	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
)

type Service interface {
	Devices(ctx context.Context, actor *model.Actor) ([]model.ConnectedDevice, error)
	Connect(ctx context.Context, actor *model.Actor, deviceID string) (*model.ConnectedDevice, error)
	Disconnect(ctx context.Context, actor *model.Actor, deviceID string) error
	SetPaused(ctx context.Context, actor *model.Actor, deviceID string, paused bool) error
	Readings(ctx context.Context, actor *model.Actor) ([]model.WearableReading, error)
	Push(ctx context.Context, actor *model.Actor, req model.PushReadingsRequest) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	wearables := r.Group("/wearables")
	{
		wearables.GET("/devices", h.Devices)
		wearables.POST("/devices/:deviceId/connect", h.Connect)
		wearables.POST("/devices/:deviceId/disconnect", h.Disconnect)
		wearables.POST("/devices/:deviceId/pause", h.pause(true))
		wearables.POST("/devices/:deviceId/resume", h.pause(false))
		wearables.GET("/readings", h.Readings)
		wearables.POST("/readings", h.Push)
	}
}

func (h *Handler) Devices(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	devices, err := h.service.Devices(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, devices)
}

func (h *Handler) Connect(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	device, err := h.service.Connect(c.Request.Context(), actor, c.Param("deviceId"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, device)
}

func (h *Handler) Disconnect(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	if err := h.service.Disconnect(c.Request.Context(), actor, c.Param("deviceId")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) pause(paused bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := handler.Actor(c)
		if !ok {
			return
		}
		if err := h.service.SetPaused(c.Request.Context(), actor, c.Param("deviceId"), paused); err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) Readings(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	readings, err := h.service.Readings(c.Request.Context(), actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, readings)
}

// Push accepts readings forwarded by the patient's companion app.
func (h *Handler) Push(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var req model.PushReadingsRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.service.Push(c.Request.Context(), actor, req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
