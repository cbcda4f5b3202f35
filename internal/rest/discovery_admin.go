package rest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/internal/jobs"
	"customerSegments/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type DiscoveryRunner interface {
	Run(ctx context.Context, tenantID string) (*jobs.Report, error)
}

// RunSummary is what the admin API reports about the latest run of a tenant.
type RunSummary struct {
	TenantID        string                         `json:"tenant_id"`
	RunID           string                         `json:"run_id,omitempty"`
	StartedAt       time.Time                      `json:"started_at"`
	FinishedAt      time.Time                      `json:"finished_at,omitzero"`
	Running         bool                           `json:"running"`
	AxesReplaced    []string                       `json:"axes_replaced,omitempty"`
	ProfilesWritten int                            `json:"profiles_written"`
	Diagnostics     []segmentation.AxisDiagnostics `json:"diagnostics,omitempty"`
	Error           string                         `json:"error,omitempty"`
}

type DiscoveryAdminHandler struct {
	runner     DiscoveryRunner
	runTimeout time.Duration

	mu   sync.Mutex
	runs map[string]*RunSummary
}

func NewDiscoveryAdminHandler(runner DiscoveryRunner, runTimeout time.Duration) *DiscoveryAdminHandler {
	if runTimeout <= 0 {
		runTimeout = time.Hour
	}
	return &DiscoveryAdminHandler{
		runner:     runner,
		runTimeout: runTimeout,
		runs:       make(map[string]*RunSummary),
	}
}

// POST /api/v1/admin/discovery[?wait=true]
// Without wait the run continues in the background and 202 is returned.
func (h *DiscoveryAdminHandler) Trigger(c echo.Context) error {
	tenantID := tenantFrom(c)

	h.mu.Lock()
	if prev, ok := h.runs[tenantID]; ok && prev.Running {
		h.mu.Unlock()
		return c.JSON(http.StatusConflict, ResponseError{Message: jobs.ErrRunInProgress.Error()})
	}
	summary := &RunSummary{TenantID: tenantID, StartedAt: time.Now(), Running: true}
	h.runs[tenantID] = summary
	h.mu.Unlock()

	if c.QueryParam("wait") == "true" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.runTimeout)
		defer cancel()
		rep, err := h.runner.Run(ctx, tenantID)
		done := h.finish(tenantID, rep, err)
		if err != nil {
			return c.JSON(statusFor(err), done)
		}
		return c.JSON(http.StatusOK, fres.Response.StatusOK(done))
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
		defer cancel()
		rep, err := h.runner.Run(ctx, tenantID)
		h.finish(tenantID, rep, err)
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message":   "discovery started",
		"tenant_id": tenantID,
	})
}

// GET /api/v1/admin/discovery
func (h *DiscoveryAdminHandler) LastRun(c echo.Context) error {
	h.mu.Lock()
	summary, ok := h.runs[tenantFrom(c)]
	var out RunSummary
	if ok {
		out = *summary
	}
	h.mu.Unlock()

	if !ok {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "no discovery run recorded for tenant"})
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(out))
}

func (h *DiscoveryAdminHandler) finish(tenantID string, rep *jobs.Report, err error) RunSummary {
	h.mu.Lock()
	defer h.mu.Unlock()

	summary := h.runs[tenantID]
	summary.Running = false
	summary.FinishedAt = time.Now()
	if rep != nil {
		summary.AxesReplaced = rep.AxesReplaced
		summary.ProfilesWritten = rep.ProfilesWritten
		if res := rep.Result; res != nil {
			summary.RunID = res.RunID
			summary.Diagnostics = summary.Diagnostics[:0]
			for _, axis := range res.AxisOrder {
				if ar, ok := res.Axes[axis]; ok {
					summary.Diagnostics = append(summary.Diagnostics, ar.Diagnostics)
				}
			}
		}
	}
	if err != nil {
		summary.Error = err.Error()
		logger.Error("Discovery run failed", "tenant_id", tenantID, "error", err)
	}
	return *summary
}
