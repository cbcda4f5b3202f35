package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"customerSegments/domain"
	"customerSegments/pkg/logger"
	"customerSegments/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type SegmentService interface {
	Segments(ctx context.Context, tenantID, axis string) ([]domain.DiscoveredSegment, error)
	Profile(ctx context.Context, tenantID, customerID string) (domain.CustomerMultiAxisProfile, error)
	ScoreCustomer(ctx context.Context, tenantID, customerID string, now time.Time) (domain.CustomerMultiAxisProfile, error)
}

type SegmentHandler struct {
	segmentService SegmentService
	timeout        time.Duration
	now            func() time.Time
}

func NewSegmentHandler(segmentService SegmentService) *SegmentHandler {
	return &SegmentHandler{
		segmentService: segmentService,
		timeout:        10 * time.Second,
		now:            time.Now,
	}
}

// GET /api/v1/segments?axis=purchase_frequency
func (h *SegmentHandler) ListSegments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	axis := strings.TrimSpace(c.QueryParam("axis"))
	segments, err := h.segmentService.Segments(ctx, tenantFrom(c), axis)
	if err != nil {
		logger.Error("Failed to list segments", "axis", axis, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(segments))
}

// GET /api/v1/customers/:id/profile
func (h *SegmentHandler) GetProfile(c echo.Context) error {
	customerID := strings.TrimSpace(c.Param("id"))
	if customerID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid customer id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.segmentService.Profile(ctx, tenantFrom(c), customerID)
	if err != nil {
		logger.Error("Failed to get profile", "customer_id", customerID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

// POST /api/v1/customers/:id/score
func (h *SegmentHandler) ScoreCustomer(c echo.Context) error {
	customerID := strings.TrimSpace(c.Param("id"))
	if customerID == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid customer id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	start := time.Now()
	profile, err := h.segmentService.ScoreCustomer(ctx, tenantFrom(c), customerID, h.now())
	metrics.ScoreLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ScoreRequests.WithLabelValues("error").Inc()
		logger.Error("Failed to score customer", "customer_id", customerID, "error", err)
		return c.JSON(statusFor(err), ResponseError{Message: err.Error()})
	}
	metrics.ScoreRequests.WithLabelValues("ok").Inc()

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}
