package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"entrysummary/internal/model"
)

// GetStatus 服务状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	schema := h.coordinator.Options().Expander.Schema()
	resp := gin.H{
		"status":               "ok",
		"version":              h.opts.Version,
		"uptime":               time.Since(h.startedAt).Round(time.Second).String(),
		"extractionConfigured": h.opts.ExtractionConfigured,
		"columns":              schema.Len(),
	}
	if h.jobs != nil {
		counts, err := h.jobs.CountJobs()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("count jobs: %v", err)})
			return
		}
		resp["jobs"] = gin.H{
			"processing": counts[model.JobProcessing],
			"completed":  counts[model.JobCompleted],
			"failed":     counts[model.JobFailed],
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListColumns 导出列（顺序即表头）
// GET /api/columns
func (h *Handler) ListColumns(c *gin.Context) {
	schema := h.coordinator.Options().Expander.Schema()
	c.JSON(http.StatusOK, gin.H{"columns": schema.Columns()})
}
