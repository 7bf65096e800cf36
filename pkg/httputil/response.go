package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medsafe-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	Redirect string      `json:"redirect,omitempty"`
	Details  interface{} `json:"details,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Count    int `json:"count"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response. Non-AppErrors are logged and hidden behind a 500.
func RespondWithError(c *gin.Context, err error) {
	RespondWithRedirect(c, err, "")
}

// RespondWithRedirect is RespondWithError with a client-side redirect hint.
func RespondWithRedirect(c *gin.Context, err error, redirect string) {
	statusCode := http.StatusInternalServerError
	message := "internal server error"

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		statusCode = appErr.StatusCode()
		message = appErr.Message
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString("request_id")).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(statusCode, Response{
		Status: "error",
		Error: &Error{
			Code:     statusCode,
			Message:  message,
			Redirect: redirect,
		},
	})
}

// RespondWithDetails sends an error response carrying structured details,
// such as per-field validation failures or the findings behind a 409.
func RespondWithDetails(c *gin.Context, status int, message string, details interface{}) {
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error: &Error{
			Code:    status,
			Message: message,
			Details: details,
		},
	})
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, data interface{}, page, pageSize, count int) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data: PaginatedResponse{
			Data: data,
			Pagination: Pagination{
				Page:     page,
				PageSize: pageSize,
				Count:    count,
			},
		},
	})
}
