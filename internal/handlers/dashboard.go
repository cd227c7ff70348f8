package handlers

import (
	"net/http"

	"taskboard/internal/config"
	"taskboard/internal/middleware"
	"taskboard/internal/services"
	"taskboard/internal/storage"
	"taskboard/internal/worker"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	statsService services.StatsService
	refresher    *worker.Refresher
	kv           storage.KV
}

func NewDashboardHandler(statsService services.StatsService, refresher *worker.Refresher, kv storage.KV) *DashboardHandler {
	return &DashboardHandler{statsService: statsService, refresher: refresher, kv: kv}
}

func (h *DashboardHandler) Stats(c *gin.Context) {
	snapshot, err := h.statsService.Snapshot()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *DashboardHandler) Calendar(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	events := h.statsService.CalendarEvents(actor)
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

func (h *DashboardHandler) Report(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	lines := h.statsService.ReportLines(actor)
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

func (h *DashboardHandler) Alerts(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	alerts := h.refresher.Alerts(actor)
	c.JSON(http.StatusOK, gin.H{
		"now":    h.refresher.Now(),
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *DashboardHandler) GetConfig(c *gin.Context) {
	dashboard, err := config.LoadDashboard(c.Request.Context(), h.kv)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// PutConfig replaces the dashboard record. Interval changes take effect on
// the next process start; the running refresher keeps its loops.
func (h *DashboardHandler) PutConfig(c *gin.Context) {
	var dashboard config.Dashboard
	if err := c.ShouldBindJSON(&dashboard); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if err := config.SaveDashboard(c.Request.Context(), h.kv, dashboard); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Configuration saved",
		"config":  dashboard,
	})
}
