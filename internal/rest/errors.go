package rest

import (
	"context"
	"errors"
	"net/http"

	"customerSegments/business/segmentation"
	"customerSegments/business/ticketing"
	"customerSegments/internal/jobs"
	"customerSegments/internal/middleware"

	"github.com/labstack/echo/v4"
)

type ResponseError struct {
	Message string `json:"message"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, segmentation.ErrNotFound),
		errors.Is(err, segmentation.ErrNoSegments),
		errors.Is(err, ticketing.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, segmentation.ErrUnknownAxis),
		errors.Is(err, ticketing.ErrInvalidTicket):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, ticketing.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func tenantFrom(c echo.Context) string {
	tenantID, _ := c.Get(middleware.ContextTenantID).(string)
	return tenantID
}
