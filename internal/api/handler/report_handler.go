package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Balance handles GET /api/v1/balance.
func (h *ReportHandler) Balance(c *gin.Context) {
	balance, err := h.remote.Balance(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read balance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": balance})
}

// Price handles GET /api/v1/price.
func (h *ReportHandler) Price(c *gin.Context) {
	price, err := h.remote.Price(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to read price", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "price": price})
}

// Reports handles GET /api/v1/reports.
// Proxies the remote success/failed order report.
func (h *ReportHandler) Reports(c *gin.Context) {
	reports, err := h.remote.FetchReports(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to fetch reports", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reports": reports,
	})
}

// Runs handles GET /api/v1/runs.
// Returns the locally persisted run history, newest first.
func (h *ReportHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.storage.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "runs": runs})
}
