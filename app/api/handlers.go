package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/pipeline"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/store"
	"github.com/lysyi3m/news-comb/app/tasks"
)

const (
	defaultLimit = 50
	maxLimit     = 500
	allChannel   = "all"
)

// NewHandler wires the HTTP handlers. runs may be nil when run history is
// not persisted.
func NewHandler(documents DocumentStore, orchestrator Orchestrator, scheduler SchedulerInterface,
	taskRunner tasks.TaskRunnerInterface, maintainer tasks.Maintainer, runs RunHistory,
	configCache *site.ConfigCache, generator GeneratorInterface) *Handler {
	return &Handler{
		store:        documents,
		orchestrator: orchestrator,
		scheduler:    scheduler,
		taskRunner:   taskRunner,
		maintainer:   maintainer,
		runs:         runs,
		configCache:  configCache,
		generator:    generator,
		now:          time.Now,
	}
}

// GetHealth reports store health plus pipeline and scheduler state. A
// critical store answers 503.
func (h *Handler) GetHealth(c *gin.Context) {
	report := h.store.Health(h.now())

	health := map[string]interface{}{
		"timestamp":       h.now().In(time.Local).Format(time.RFC3339),
		"status":          report.Status,
		"issues":          report.Issues,
		"recommendations": report.Recommendations,
		"documents":       report.Stats.Total,
		"pipeline": gin.H{
			"running":         h.orchestrator.IsRunning(),
			"error_rate_high": h.orchestrator.ErrorRateHigh(),
		},
		"scheduler": h.scheduler.Status(),
	}

	if h.configCache != nil {
		health["loaded_sites"] = h.configCache.GetConfigCount()
	}

	status := http.StatusOK
	if report.Status == store.HealthCritical {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}

func (h *Handler) ListDocuments(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	docs := h.store.All(limit)
	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *Handler) GetDocument(c *gin.Context) {
	id := c.Param("id")

	doc, found := h.store.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) ListCategory(c *gin.Context) {
	category, found := document.ParseCategory(c.Param("category"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown category"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	docs := h.store.ByCategory(category, limit)
	c.JSON(http.StatusOK, gin.H{
		"category":  category,
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	docs := h.store.Search(query, limit)
	c.JSON(http.StatusOK, gin.H{
		"query":     query,
		"documents": docs,
		"total":     len(docs),
	})
}

// GetRSS renders the newest documents of one category, or of all
// categories, as an RSS channel.
func (h *Handler) GetRSS(c *gin.Context) {
	name := strings.ToLower(c.Param("category"))

	channel := feed.Channel{Name: allChannel, Title: "News Comb", Description: "Rewritten news from all sites"}
	var docs []document.Enriched

	if name == allChannel {
		docs = h.store.All(defaultLimit)
	} else {
		category, found := document.ParseCategory(name)
		if !found {
			c.Status(http.StatusNotFound)
			return
		}
		channel = feed.Channel{
			Name:        name,
			Title:       "News Comb: " + string(category),
			Description: fmt.Sprintf("Rewritten %s news", category),
		}
		docs = h.store.ByCategory(category, defaultLimit)
	}

	rss, err := h.generator.Run(channel, docs)
	if err != nil {
		slog.Error("RSS generation error", "channel", channel.Name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(docs)))
	c.Header("X-Feed-Name", channel.Name)

	c.String(http.StatusOK, rss)
}

// APIRunPipeline starts a run in the background. An empty body runs every
// enabled site.
func (h *Handler) APIRunPipeline(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var names []string
	switch pipeline.Mode(strings.ToLower(req.Mode)) {
	case "", pipeline.ModeFull:
	case pipeline.ModeSites:
		if len(req.Sites) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Mode sites requires at least one site"})
			return
		}
		names = req.Sites
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown mode", "mode": req.Mode})
		return
	}

	runID, err := h.orchestrator.Start(c.Request.Context(), names)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Failed to start pipeline run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start pipeline run", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"run_id":  runID,
		"sites":   names,
	})
}

// APIStopPipeline cancels the active run, if any
func (h *Handler) APIStopPipeline(c *gin.Context) {
	stopped := h.orchestrator.EmergencyStop()

	message := "No pipeline run in progress"
	if stopped {
		message = "Pipeline run stopped"
	}

	c.JSON(http.StatusOK, gin.H{
		"stopped": stopped,
		"message": message,
	})
}

func (h *Handler) APISchedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scheduler":   h.scheduler.Status(),
		"running":     h.orchestrator.IsRunning(),
		"last_result": h.orchestrator.LastResult(),
	})
}

// APIEnqueueMaintenance queues a store maintenance task
func (h *Handler) APIEnqueueMaintenance(c *gin.Context) {
	var req MaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	taskType, err := tasks.ParseTaskType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := tasks.NewMaintenanceTask(taskType, tasks.TriggerOperator, h.maintainer)
	if err := h.taskRunner.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing maintenance task", "type", string(taskType), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue maintenance task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":      task.ID,
			"type":    task.Type,
			"trigger": task.Trigger,
		},
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Run history is not enabled"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = min(parsed, maxLimit)
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats, err := h.runs.GetRunStats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_run_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
		"stats": stats,
	})
}

// APIErrors returns fault counts for the last hour, by kind
func (h *Handler) APIErrors(c *gin.Context) {
	counts := h.orchestrator.ErrorCounts()

	total := 0
	for _, n := range counts {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"window":    "1h",
		"by_kind":   counts,
		"total":     total,
		"rate_high": h.orchestrator.ErrorRateHigh(),
	})
}

func (h *Handler) APIListSites(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sites := make([]map[string]interface{}, 0, len(configs))
	for _, siteConfig := range configs {
		sites = append(sites, map[string]interface{}{
			"name":          siteConfig.Name,
			"base_url":      siteConfig.BaseURL,
			"enabled":       siteConfig.IsEnabled(),
			"listing_paths": siteConfig.ListingPaths,
			"feed_paths":    siteConfig.FeedPaths,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sites": sites,
		"total": len(sites),
	})
}

// parseLimit writes a 400 response and reports false on a malformed limit.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, false
	}

	return min(limit, maxLimit), true
}
