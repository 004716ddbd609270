package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/social-comb/app/publisher"
	"github.com/lysyi3m/social-comb/app/tasks"
)

type trigger struct {
	lane    tasks.LaneName
	job     tasks.JobName
	message string
}

var triggers = map[string]trigger{
	"rss":          {tasks.LaneRSS, tasks.JobProcessAllFeeds, "RSS processing triggered"},
	"content":      {tasks.LaneContent, tasks.JobGenerateContent, "Content generation triggered"},
	"trends":       {tasks.LaneTrends, tasks.JobAnalyzeTrends, "Trends analysis triggered"},
	"publish":      {tasks.LanePublisher, tasks.JobPublishScheduled, "Scheduled publishing triggered"},
	"analytics":    {tasks.LaneAnalytics, tasks.JobFetchAnalytics, "Analytics fetch triggered"},
	"retry-failed": {tasks.LanePublisher, tasks.JobRetryFailed, "Retry failed posts triggered"},
}

func (h *Handler) QueueStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.Queue.Stats()})
}

func (h *Handler) TriggerJob(c *gin.Context) {
	name := c.Param("job")
	t, ok := triggers[name]
	if !ok {
		respondError(c, "trigger_job", fmt.Errorf("%w: %s", tasks.ErrUnknownJob, name))
		return
	}

	var req triggerRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	var data map[string]any
	switch {
	case name == "content" && req.URL != "":
		t.job = tasks.JobGenerateFromURL
		data = map[string]any{"url": req.URL, "platforms": req.Platforms}
	case name == "retry-failed":
		maxRetries := req.MaxRetries
		if maxRetries <= 0 {
			maxRetries = publisher.DefaultMaxRetries
		}
		data = map[string]any{"maxRetries": maxRetries}
	}

	job, err := h.Queue.AddJob(t.lane, t.job, data)
	if err != nil {
		respondError(c, "trigger_job", err)
		return
	}

	slog.Info("Job triggered", "lane", t.lane, "job", t.job, "id", job.ID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": t.message, "jobId": job.ID})
}

func (h *Handler) ResetRecurring(c *gin.Context) {
	if err := h.Queue.ResetRecurring(); err != nil {
		respondError(c, "reset_recurring", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Recurring jobs reset successfully"})
}
