package rest

import (
	"context"
	"net/http"
	"time"

	"customerSegments/business/ticketing"
	"customerSegments/domain"
	"customerSegments/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type TicketService interface {
	OpenForCustomer(ctx context.Context, req ticketing.OpenRequest) (domain.Ticket, error)
	ListForCustomer(ctx context.Context, email string, status domain.TicketStatus, limit int) ([]domain.Ticket, error)
}

type TicketHandler struct {
	ticketService TicketService
	validator     *validator.Validate
	timeout       time.Duration
}

func NewTicketHandler(ticketService TicketService) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
		validator:     validator.New(),
		timeout:       15 * time.Second,
	}
}

type OpenTicketRequest struct {
	Email   string   `json:"email" validate:"required,email"`
	Subject string   `json:"subject" validate:"required,max=200"`
	Body    string   `json:"body" validate:"required"`
	Tags    []string `json:"tags" validate:"dive,required,max=80"`
}

type ListTicketsRequest struct {
	Email  string `query:"email" validate:"required,email"`
	Status string `query:"status" validate:"omitempty,oneof=open pending closed"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// POST /api/v1/customers/:id/tickets
func (h *TicketHandler) OpenTicket(c echo.Context) error {
	var req OpenTicketRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate ticket request", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	ticket, err := h.ticketService.OpenForCustomer(ctx, ticketing.OpenRequest{
		TenantID:      tenantFrom(c),
		CustomerID:    c.Param("id"),
		CustomerEmail: req.Email,
		Subject:       req.Subject,
		Body:          req.Body,
		Tags:          req.Tags,
	})
	if err != nil {
		logger.Error("Failed to open ticket", "customer_id", c.Param("id"), "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(ticket))
}

// GET /api/v1/tickets?email=&status=&limit=
func (h *TicketHandler) ListTickets(c echo.Context) error {
	var req ListTicketsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	tickets, err := h.ticketService.ListForCustomer(ctx, req.Email, domain.TicketStatus(req.Status), req.Limit)
	if err != nil {
		logger.Error("Failed to list tickets", "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(tickets))
}
