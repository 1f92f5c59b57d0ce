package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aviralsaxena16/Campus-Companion/internal/scheduler"
	"github.com/aviralsaxena16/Campus-Companion/internal/service"
	"github.com/aviralsaxena16/Campus-Companion/pkg/logger"
)

type UpdatesHandler struct {
	scanService *service.ScanService
	registry    *scheduler.Registry
	log         *zap.Logger
}

func NewUpdatesHandler(scanService *service.ScanService, registry *scheduler.Registry, log *zap.Logger) *UpdatesHandler {
	return &UpdatesHandler{
		scanService: scanService,
		registry:    registry,
		log:         log,
	}
}

// GetUpdates handles GET /updates?important_only=&limit=
//
// Ingestion errors never surface here: the list reflects whatever has been
// persisted, and a failed scan simply means nothing new appears.
func (h *UpdatesHandler) GetUpdates(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	onlyImportant := c.DefaultQuery("important_only", "true") != "false"
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	updates, err := h.scanService.ListUpdates(c.Request.Context(), userID, onlyImportant, limit)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.log).Error("Failed to list updates",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch updates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": updates})
}

// ScheduleScan handles POST /updates/schedule
func (h *UpdatesHandler) ScheduleScan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.registry.Register(userID)
	c.JSON(http.StatusOK, gin.H{"status": "scheduled"})
}

// UnscheduleScan handles DELETE /updates/schedule
func (h *UpdatesHandler) UnscheduleScan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	h.registry.Unregister(userID)
	c.JSON(http.StatusOK, gin.H{"status": "unscheduled"})
}

// ScanNow handles POST /updates/scan_now. The run happens in the
// background; the response only acknowledges the trigger.
func (h *UpdatesHandler) ScanNow(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	runID, started := h.registry.TriggerNow(c.Request.Context(), userID)
	if !started {
		c.JSON(http.StatusAccepted, gin.H{"status": "already_running"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"run_id": runID,
	})
}
