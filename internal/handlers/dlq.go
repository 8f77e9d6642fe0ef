package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streampulse/job-service/internal/dlq"
	"github.com/streampulse/job-service/internal/jobqueue"
)

// ListDLQRequest represents query parameters for listing dead-letter jobs
type ListDLQRequest struct {
	JobType string `form:"job_type" json:"job_type"`
	Limit   int    `form:"limit" json:"limit" binding:"min=0,max=100" jsonschema:"minimum=0,maximum=100"`
	Offset  int    `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// ListDLQResponse represents the response for listing dead-letter jobs
type ListDLQResponse struct {
	Jobs  []*jobqueue.Job `json:"jobs" jsonschema:"required"`
	Total int             `json:"total" jsonschema:"required"`
}

// ListDLQ returns jobs currently in the dead-letter queue
// @Summary List dead-letter jobs
// @Description Returns a paginated list of jobs that exhausted their retry budget
// @Tags dlq
// @Accept json
// @Produce json
// @Param job_type query string false "Filter by job type"
// @Param limit query int false "Number of items to return" default(50) minimum(1) maximum(100)
// @Param offset query int false "Number of items to skip" default(0) minimum(0)
// @Success 200 {object} ListDLQResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/dlq/jobs [get]
func (h *Handler) ListDLQ(c *gin.Context) {
	var req ListDLQRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Set defaults
	if req.Limit == 0 {
		req.Limit = 50
	}

	jobs, total, err := h.jobs.ListDLQ(c.Request.Context(), req.JobType, req.Limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch DLQ jobs"})
		return
	}

	c.JSON(http.StatusOK, ListDLQResponse{
		Jobs:  jobs,
		Total: total,
	})
}

// ListAlertsRequest represents query parameters for listing DLQ alerts
type ListAlertsRequest struct {
	Unacknowledged bool `form:"unacknowledged" json:"unacknowledged"`
	Limit          int  `form:"limit" json:"limit" binding:"min=0,max=100" jsonschema:"minimum=0,maximum=100"`
	Offset         int  `form:"offset" json:"offset" binding:"min=0" jsonschema:"minimum=0"`
}

// ListAlertsResponse represents the response for listing DLQ alerts
type ListAlertsResponse struct {
	Alerts []*dlq.Alert `json:"alerts" jsonschema:"required"`
	Total  int          `json:"total" jsonschema:"required"`
}

// ListAlerts returns dead-letter alerts
// @Summary List DLQ alerts
// @Description Returns a paginated list of dead-letter alerts, optionally only unacknowledged ones
// @Tags dlq
// @Accept json
// @Produce json
// @Param unacknowledged query bool false "Only unacknowledged alerts"
// @Param limit query int false "Number of items to return" default(50) minimum(1) maximum(100)
// @Param offset query int false "Number of items to skip" default(0) minimum(0)
// @Success 200 {object} ListAlertsResponse
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/dlq/alerts [get]
func (h *Handler) ListAlerts(c *gin.Context) {
	var req ListAlertsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Set defaults
	if req.Limit == 0 {
		req.Limit = 50
	}

	alerts, total, err := h.dlq.ListAlerts(c.Request.Context(), req.Unacknowledged, req.Limit, req.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, ListAlertsResponse{
		Alerts: alerts,
		Total:  total,
	})
}

// AcknowledgeAlertRequest represents the request body for acknowledging an alert
type AcknowledgeAlertRequest struct {
	AlertID        string `json:"alert_id" binding:"required" jsonschema:"required"`
	AcknowledgedBy string `json:"acknowledged_by" binding:"required" jsonschema:"required"`
}

// AcknowledgeAlert marks a DLQ alert as acknowledged
// @Summary Acknowledge DLQ alert
// @Description Marks an alert as acknowledged; already-acknowledged alerts are returned unchanged
// @Tags dlq
// @Accept json
// @Produce json
// @Param request body AcknowledgeAlertRequest true "Acknowledgment"
// @Success 200 {object} dlq.Alert
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Alert not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/dlq/alerts/acknowledge [post]
func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	var req AcknowledgeAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert, err := h.dlq.Acknowledge(c.Request.Context(), req.AlertID, req.AcknowledgedBy)
	if errors.Is(err, dlq.ErrAlertNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to acknowledge alert"})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ProcessAlertsResponse represents the response after a manual alert sweep
type ProcessAlertsResponse struct {
	ProcessedCount int      `json:"processed_count" jsonschema:"required"`
	AlertIDs       []string `json:"alert_ids" jsonschema:"required"`
}

// ProcessAlerts triggers one pass of the DLQ alert sweeper
// @Summary Process pending DLQ alerts
// @Description Generates alerts for DLQ jobs that have not been alerted yet
// @Tags dlq
// @Accept json
// @Produce json
// @Success 200 {object} ProcessAlertsResponse
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/dlq/process-alerts [post]
func (h *Handler) ProcessAlerts(c *gin.Context) {
	alerts, err := h.dlq.ProcessPendingAlerts(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process alerts"})
		return
	}

	ids := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		ids = append(ids, alert.ID)
	}

	c.JSON(http.StatusOK, ProcessAlertsResponse{
		ProcessedCount: len(alerts),
		AlertIDs:       ids,
	})
}
