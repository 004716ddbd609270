package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, h *Handler, apiAccessKey string) {
	r.GET("/health", h.GetHealth)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled (API_ACCESS_KEY not set)")
	}

	feeds := api.Group("/feeds")
	{
		feeds.GET("", h.ListFeeds)
		feeds.POST("", h.CreateFeed)
		feeds.GET("/:id", h.GetFeed)
		feeds.PUT("/:id", h.UpdateFeed)
		feeds.DELETE("/:id", h.DeleteFeed)
		feeds.POST("/:id/fetch", h.FetchFeed)
	}

	posts := api.Group("/posts")
	{
		posts.GET("", h.ListPosts)
		posts.POST("", h.CreatePost)
		posts.GET("/:id", h.GetPost)
		posts.PUT("/:id", h.UpdatePost)
		posts.DELETE("/:id", h.DeletePost)
		posts.POST("/:id/publish", h.PublishPost)
		posts.POST("/:id/schedule", h.SchedulePost)
	}

	trends := api.Group("/trends")
	{
		trends.GET("", h.ListTrends)
		trends.POST("", h.CreateTrend)
		trends.DELETE("/:id", h.DeleteTrend)
		trends.POST("/analyze", h.AnalyzeTrends)
	}

	analytics := api.Group("/analytics")
	{
		analytics.GET("", h.ListAnalytics)
		analytics.GET("/summary", h.AnalyticsSummary)
		analytics.GET("/posts/:id", h.GetPostAnalytics)
		analytics.POST("/posts/:id/fetch", h.FetchPostAnalytics)
	}

	settings := api.Group("/settings")
	{
		settings.GET("", h.ListSettings)
		settings.GET("/:key", h.GetSetting)
		settings.PUT("/:key", h.PutSetting)
		settings.DELETE("/:key", h.DeleteSetting)
	}

	content := api.Group("/content")
	{
		content.POST("/generate", h.GenerateContent)
		content.POST("/generate-from-trends", h.GenerateFromTrends)
		content.POST("/improve/:id", h.ImproveContent)
		content.GET("/suggestions", h.ContentSuggestions)
		content.POST("/hashtags", h.SuggestHashtags)
		content.POST("/analyze", h.AnalyzeContent)
	}

	queue := api.Group("/queue")
	{
		queue.GET("/stats", h.QueueStats)
		queue.POST("/trigger/:job", h.TriggerJob)
		queue.POST("/reset-recurring", h.ResetRecurring)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Social Comb",
			"version":     h.Version,
			"description": "Turns RSS feeds and trends into scheduled social media posts",
			"endpoints": map[string]string{
				"health":    "/health",
				"metrics":   "/metrics",
				"feeds":     "/api/feeds",
				"posts":     "/api/posts",
				"trends":    "/api/trends",
				"analytics": "/api/analytics",
				"settings":  "/api/settings",
				"content":   "/api/content",
				"queue":     "/api/queue",
			},
			"api_status": map[string]any{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key in X-API-Key or as an Authorization bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
