package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/vendormetrics/internal/domain"
	"github.com/andresuchdata/vendormetrics/internal/service"
	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	service *service.ReportService
}

func NewMetricsHandler(service *service.ReportService) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// parseFilter builds a report filter from query params. Runs are addressed
// by run_id or by the exact analysis period; with neither, the latest
// completed run is used.
func (h *MetricsHandler) parseFilter(c *gin.Context) (domain.ReportFilter, bool) {
	filter := domain.ReportFilter{}

	rawRunID := strings.TrimSpace(c.Query("run_id"))
	rawStart := strings.TrimSpace(c.Query("period_start"))
	rawEnd := strings.TrimSpace(c.Query("period_end"))

	switch {
	case rawRunID != "":
		id, err := strconv.ParseInt(rawRunID, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "run_id must be a positive integer"})
			return filter, false
		}
		filter.RunID = id

	case rawStart != "" || rawEnd != "":
		start, err := time.Parse("2006-01-02", rawStart)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period_start must be YYYY-MM-DD"})
			return filter, false
		}
		end, err := time.Parse("2006-01-02", rawEnd)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period_end must be YYYY-MM-DD"})
			return filter, false
		}
		id, err := h.service.RunIDForPeriod(c.Request.Context(), start, end)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return filter, false
		}
		filter.RunID = id

	default:
		id, err := h.service.LatestCompletedRunID(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return filter, false
		}
		filter.RunID = id
	}

	partition, ok := domain.ParsePartition(c.Query("partition"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "partition must be core or outlier"})
		return filter, false
	}
	filter.Partition = partition

	// Brand filters come as repeated params or a comma-separated list
	rawBrands := c.QueryArray("brand_ids")
	if len(rawBrands) == 0 {
		if single := strings.TrimSpace(c.Query("brand_ids")); single != "" {
			rawBrands = strings.Split(single, ",")
		}
	}

	if len(rawBrands) > 0 {
		seen := make(map[string]struct{})
		for _, v := range rawBrands {
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if _, ok := seen[part]; ok {
					continue
				}
				seen[part] = struct{}{}
				filter.BrandIDs = append(filter.BrandIDs, part)
			}
		}
	}

	return filter, true
}

// GetReport returns BrandMetrics rows for a run, optionally filtered by
// partition and brand IDs.
func (h *MetricsHandler) GetReport(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.GetReport(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  filter.RunID,
		"count":   len(rows),
		"metrics": rows,
	})
}

// GetSummaries returns per-partition aggregates for a run.
func (h *MetricsHandler) GetSummaries(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	summaries, err := h.service.GetSummaries(c.Request.Context(), filter.RunID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":    filter.RunID,
		"summaries": summaries,
	})
}

// ListRuns returns run history, newest first.
func (h *MetricsHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"runs":  runs,
	})
}

// GetRun returns the tracking record for one run.
func (h *MetricsHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be a positive integer"})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}
