package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// QueueStats returns aggregate queue counts
// @Summary Queue statistics
// @Description Returns aggregate counts per job status for observability
// @Tags stats
// @Accept json
// @Produce json
// @Success 200 {object} jobqueue.QueueStats
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /internal/jobs/stats/queue [get]
func (h *Handler) QueueStats(c *gin.Context) {
	stats, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch queue stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
