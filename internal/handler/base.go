package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/middleware"
	"github.com/jwalitptl/medsafe-api/internal/model"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/httputil"
	"github.com/jwalitptl/medsafe-api/pkg/validator"
)

// Actor returns the authenticated caller or writes a 401 and returns false.
func Actor(c *gin.Context) (*model.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.AuthenticationRequired(""))
		return nil, false
	}
	return actor, true
}

// UUIDParam parses a path parameter or writes a 400 and returns false.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON binds and validates the body or writes a 400 listing the bad fields.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httputil.RespondWithDetails(c, http.StatusBadRequest, "invalid request", validator.Describe(err))
		return false
	}
	return true
}
