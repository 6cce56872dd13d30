package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/regpipe/regpipe/app/config"
	"github.com/regpipe/regpipe/app/database"
	"github.com/regpipe/regpipe/app/tasks"
)

func NewHandler(regulationRepo database.RegulationRepository,
	logRepo database.ProcessingLogRepository, runRepo database.RunRepository,
	scheduleCache *config.ScheduleCache, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		regulationRepo: regulationRepo,
		logRepo:        logRepo,
		runRepo:        runRepo,
		scheduleCache:  scheduleCache,
		scheduler:      scheduler,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.regulationRepo.GetRegulationCount(); err == nil {
		health["regulations"] = count
	}

	health["schedules"] = len(h.scheduleCache.GetSchedules())

	c.JSON(http.StatusOK, health)
}

// GetStatus reports whether a pipeline run is currently active, plus the most
// recent run's bookkeeping row.
func (h *Handler) GetStatus(c *gin.Context) {
	runs, err := h.runRepo.GetRecentRuns(1)
	if err != nil {
		slog.Error("Database error", "operation", "get_status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	status := map[string]interface{}{
		"running":   false,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}
	if len(runs) > 0 {
		status["running"] = runs[0].Status == database.RunStatusRunning
		status["last_run"] = runs[0]
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if counts, err := h.regulationRepo.GetRegulationCountByRegulator(); err == nil {
		stats["regulations_by_regulator"] = counts
	} else {
		slog.Error("Database error", "operation", "count_by_regulator", "error", err)
	}

	if runs, err := h.runRepo.GetRecentRuns(20); err == nil {
		stats["recent_runs"] = runs
	} else {
		slog.Error("Database error", "operation", "recent_runs", "error", err)
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APITriggerRegulator(c *gin.Context) {
	regulator := c.Param("regulator")
	if regulator == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing regulator parameter"})
		return
	}

	if err := h.scheduler.Trigger(regulator); err != nil {
		slog.Error("Failed to enqueue pipeline run", "regulator", regulator, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to trigger pipeline",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"message":   "Pipeline run enqueued",
		"regulator": regulator,
	})
}

func (h *Handler) APITriggerAll(c *gin.Context) {
	queued := h.scheduler.TriggerAll()

	c.JSON(http.StatusAccepted, gin.H{
		"success":    true,
		"message":    "Pipeline runs enqueued",
		"regulators": queued,
	})
}

func (h *Handler) APIListSchedules(c *gin.Context) {
	schedules := h.scheduleCache.GetSchedules()
	c.JSON(http.StatusOK, gin.H{
		"schedules": schedules,
		"total":     len(schedules),
	})
}

func (h *Handler) APISetSchedule(c *gin.Context) {
	var schedule config.Schedule
	if err := c.ShouldBindJSON(&schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule payload", "details": err.Error()})
		return
	}

	if err := h.scheduleCache.SetSchedule(schedule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schedule", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Schedule updated",
		"schedule": schedule,
	})
}

func (h *Handler) APIGetProcessingLog(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid regulation id"})
		return
	}

	entries, err := h.logRepo.GetEntriesForRegulation(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_processing_log", "regulation_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"regulation_id": id,
		"entries":       entries,
		"total":         len(entries),
	})
}
