package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/social-comb/app/database"
)

const (
	defaultTrendsLimit    = 20
	defaultAnalyticsLimit = 50
)

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d, now: time.Now}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]any{
		"status":    "ok",
		"timestamp": h.now().In(time.Local).Format(time.RFC3339),
		"version":   h.Version,
	}

	if feedCount, err := h.Feeds.GetFeedCount(c.Request.Context()); err == nil {
		health["feeds"] = feedCount
	}

	if h.Platforms != nil {
		platforms := map[string]any{}
		for p, s := range h.Platforms.Status() {
			platforms[p.Lower()] = s
		}
		health["platforms"] = platforms
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.Feeds.ListFeeds(c.Request.Context())
	if err != nil {
		respondError(c, "list_feeds", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feeds": feeds, "total": len(feeds)})
}

func (h *Handler) GetFeed(c *gin.Context) {
	f, err := h.Feeds.GetFeed(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get_feed", err)
		return
	}
	if f == nil {
		respondError(c, "get_feed", database.ErrFeedNotFound)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) CreateFeed(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		badRequest(c, "url is required")
		return
	}

	f, err := h.FeedManager.AddFeed(c.Request.Context(), req.URL, req.Title, req.Category)
	if err != nil {
		respondError(c, "create_feed", err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) UpdateFeed(c *gin.Context) {
	ctx := c.Request.Context()

	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	f, err := h.Feeds.GetFeed(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "get_feed", err)
		return
	}
	if f == nil {
		respondError(c, "get_feed", database.ErrFeedNotFound)
		return
	}

	if req.URL != "" {
		f.URL = req.URL
	}
	if req.Title != "" {
		f.Title = req.Title
	}
	if req.Description != "" {
		f.Description = req.Description
	}
	if req.Category != "" {
		f.Category = req.Category
	}
	if req.IsActive != nil {
		f.IsActive = *req.IsActive
	}

	if err := h.Feeds.UpdateFeed(ctx, *f); err != nil {
		respondError(c, "update_feed", err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	if err := h.Feeds.DeleteFeed(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "delete_feed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) FetchFeed(c *gin.Context) {
	items, err := h.FeedManager.FetchFeed(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "fetch_feed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": items, "total": len(items)})
}

func (h *Handler) ListPosts(c *gin.Context) {
	var filter database.PostFilter

	if s := c.Query("status"); s != "" {
		status, err := database.ParseStatus(s)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		filter.Status = status
	}
	if p := c.Query("platform"); p != "" {
		platform, err := database.ParsePlatform(p)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		filter.Platform = platform
	}

	posts, err := h.Posts.ListPosts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "list_posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.Posts.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get_post", err)
		return
	}
	if post == nil {
		respondError(c, "get_post", database.ErrPostNotFound)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	if req.Content == nil || strings.TrimSpace(*req.Content) == "" {
		badRequest(c, "content is required")
		return
	}
	if req.Platform == nil {
		badRequest(c, "platform is required")
		return
	}

	post := database.Post{Status: database.StatusDraft}
	if req.ScheduledFor != nil {
		post.Status = database.StatusScheduled
	}
	if err := applyPost(&post, req); err != nil {
		respondError(c, "create_post", err)
		return
	}

	created, err := h.Posts.CreatePost(c.Request.Context(), post)
	if err != nil {
		respondError(c, "create_post", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	ctx := c.Request.Context()

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	post, err := h.Posts.GetPost(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "get_post", err)
		return
	}
	if post == nil {
		respondError(c, "get_post", database.ErrPostNotFound)
		return
	}

	if err := applyPost(post, req); err != nil {
		respondError(c, "update_post", err)
		return
	}

	if err := h.Posts.UpdatePost(ctx, *post); err != nil {
		respondError(c, "update_post", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// applyPost copies the fields present in req onto post.
func applyPost(post *database.Post, req postRequest) error {
	if req.Platform != nil {
		p, err := database.ParsePlatform(*req.Platform)
		if err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		post.Platform = p
	}
	if req.Status != nil {
		s, err := database.ParseStatus(*req.Status)
		if err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		post.Status = s
	}
	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.Hashtags != nil {
		post.Hashtags = req.Hashtags
	}
	if req.MediaURL != nil {
		post.MediaURL = *req.MediaURL
	}
	if req.SourceURL != nil {
		post.SourceURL = *req.SourceURL
	}
	if req.ScheduledFor != nil {
		post.ScheduledFor = req.ScheduledFor
	}
	return nil
}

func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.Posts.DeletePost(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "delete_post", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) PublishPost(c *gin.Context) {
	result, err := h.Publisher.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "publish_post", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) SchedulePost(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ScheduledFor == nil {
		badRequest(c, "scheduledFor is required")
		return
	}

	ok, err := h.Posts.SchedulePost(ctx, id, *req.ScheduledFor)
	if err != nil {
		respondError(c, "schedule_post", err)
		return
	}

	post, err := h.Posts.GetPost(ctx, id)
	if err != nil {
		respondError(c, "get_post", err)
		return
	}
	if post == nil {
		respondError(c, "schedule_post", database.ErrPostNotFound)
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Post is %s and cannot be scheduled", post.Status)})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) ListTrends(c *gin.Context) {
	limit := queryInt(c, "limit", defaultTrendsLimit)

	trends, err := h.Trends.ListTopTrends(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "list_trends", err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

func (h *Handler) CreateTrend(c *gin.Context) {
	ctx := c.Request.Context()

	var req trendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	keyword := strings.ToLower(strings.TrimSpace(req.Keyword))
	if keyword == "" {
		badRequest(c, "keyword is required")
		return
	}
	score := 1.0
	if req.Score != nil {
		score = *req.Score
	}

	if err := h.Trends.UpsertTrend(ctx, keyword, database.TrendSourceManual, score, 0); err != nil {
		respondError(c, "create_trend", err)
		return
	}

	trend, err := h.Trends.GetTrend(ctx, keyword)
	if err != nil {
		respondError(c, "get_trend", err)
		return
	}
	c.JSON(http.StatusCreated, trend)
}

func (h *Handler) DeleteTrend(c *gin.Context) {
	if err := h.Trends.DeleteTrend(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "delete_trend", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) AnalyzeTrends(c *gin.Context) {
	result, err := h.Analyzer.Analyze(c.Request.Context())
	if err != nil {
		respondError(c, "analyze_trends", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (h *Handler) ListAnalytics(c *gin.Context) {
	limit := queryInt(c, "limit", defaultAnalyticsLimit)

	analytics, err := h.Analytics.ListAnalytics(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "list_analytics", err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

func (h *Handler) AnalyticsSummary(c *gin.Context) {
	summary, err := h.Analytics.SummaryByPlatform(c.Request.Context())
	if err != nil {
		respondError(c, "analytics_summary", err)
		return
	}

	var totals database.PlatformSummary
	for _, s := range summary {
		totals.Posts += s.Posts
		totals.Likes += s.Likes
		totals.Shares += s.Shares
		totals.Comments += s.Comments
		totals.Views += s.Views
		totals.Engagement += s.Engagement
	}

	c.JSON(http.StatusOK, gin.H{"platforms": summary, "totals": totals})
}

func (h *Handler) GetPostAnalytics(c *gin.Context) {
	a, err := h.Analytics.GetAnalyticsByPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "get_post_analytics", err)
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No analytics for this post"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) FetchPostAnalytics(c *gin.Context) {
	a, err := h.Publisher.FetchAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "fetch_post_analytics", err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.Settings.ListSettings(c.Request.Context())
	if err != nil {
		respondError(c, "list_settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) GetSetting(c *gin.Context) {
	s, err := h.Settings.GetSetting(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, "get_setting", err)
		return
	}
	if s == nil {
		respondError(c, "get_setting", database.ErrSettingNotFound)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) PutSetting(c *gin.Context) {
	var req settingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		badRequest(c, "value is required")
		return
	}

	s, err := h.Settings.SetSetting(c.Request.Context(), c.Param("key"), *req.Value)
	if err != nil {
		respondError(c, "put_setting", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSetting(c *gin.Context) {
	if err := h.Settings.DeleteSetting(c.Request.Context(), c.Param("key")); err != nil {
		respondError(c, "delete_setting", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
