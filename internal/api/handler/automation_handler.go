package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickcart/order-supervisor/internal/api/dto"
	"github.com/quickcart/order-supervisor/internal/supervisor/domain"
)

// Start handles POST /api/v1/automation/start.
// The request body is overlaid on the stored configuration, admitted
// against the live balance and price, and, if accepted, the remote run
// is started.
func (h *AutomationHandler) Start(c *gin.Context) {
	var req dto.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid start request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	base, err := h.config.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to load configuration", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load configuration"})
		return
	}

	cfg := req.Overlay(base)

	warn, err := h.supervisor.Start(c.Request.Context(), cfg)
	if err != nil {
		h.respondStartError(c, err)
		return
	}

	resp := gin.H{"success": true, "state": string(domain.StateRunning)}
	if warn != nil {
		resp["warning"] = gin.H{
			"message":    "max_parallel_windows clamped to total_orders",
			"configured": warn.Configured,
			"effective":  warn.Effective,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Stop handles POST /api/v1/automation/stop.
// The state becomes STOPPED only once the remote confirms the
// cancellation; a failed stop leaves the run live and is retryable.
func (h *AutomationHandler) Stop(c *gin.Context) {
	if err := h.supervisor.Stop(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		var stopErr *domain.StopFailedError
		if errors.As(err, &stopErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": stopErr.Error(), "retryable": true})
			return
		}

		h.logger.Error("stop failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "stop request failed", "retryable": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Status handles GET /api/v1/automation/status.
func (h *AutomationHandler) Status(c *gin.Context) {
	snap := h.supervisor.Snapshot()

	c.JSON(http.StatusOK, dto.StatusResponse{
		State:      string(snap.State),
		RunID:      snap.RunID,
		Status:     snap.LastStatus,
		LastReport: snap.LastReport,
	})
}

// Reset handles POST /api/v1/automation/reset.
// Dismisses a terminal report and returns the session to IDLE.
func (h *AutomationHandler) Reset(c *gin.Context) {
	if err := h.supervisor.Reset(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": string(domain.StateIdle)})
}

// respondStartError maps the admission and remote error taxonomy to
// HTTP statuses: admission failures are 422, a busy session is 409,
// remote rejections are 502.
func (h *AutomationHandler) respondStartError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var capErr *domain.CapacityError
	if errors.As(err, &capErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     capErr.Error(),
			"requested": capErr.Requested,
			"capacity":  capErr.Capacity,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrIncompleteIdentity),
		errors.Is(err, domain.ErrInvalidBounds),
		errors.Is(err, domain.ErrNoValidProducts),
		errors.Is(err, domain.ErrPriceNotSet),
		errors.Is(err, domain.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var rejErr *domain.StartRejectedError
	if errors.As(err, &rejErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": rejErr.Error()})
		return
	}

	h.logger.Error("start failed", slog.String("error", err.Error()))
	c.JSON(http.StatusBadGateway, gin.H{"error": "start request failed"})
}
