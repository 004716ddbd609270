package api

import (
	"context"
	"net/http"
	"time"

	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/llm"
	"github.com/lysyi3m/social-comb/app/nlp"
	"github.com/lysyi3m/social-comb/app/platform"
	"github.com/lysyi3m/social-comb/app/publisher"
	"github.com/lysyi3m/social-comb/app/tasks"
	"github.com/lysyi3m/social-comb/app/trends"
)

type FeedManager interface {
	AddFeed(ctx context.Context, url, title, category string) (*database.Feed, error)
	FetchFeed(ctx context.Context, feedID string) ([]feed.ScoredItem, error)
}

type ContentService interface {
	GenerateFromURL(ctx context.Context, url string, opts content.Options) ([]llm.Generated, error)
	CreatePosts(ctx context.Context, generated []llm.Generated, opts content.CreateOptions) ([]database.Post, error)
	GenerateFromTrends(ctx context.Context, platforms []database.Platform, limit int) ([]llm.Generated, error)
	ImproveContent(ctx context.Context, postID, instructions string) (*content.Improved, error)
	Suggestions(ctx context.Context) (*content.Suggestions, error)
}

type PublishService interface {
	Publish(ctx context.Context, postID string) (publisher.Result, error)
	FetchAnalytics(ctx context.Context, postID string) (*database.Analytics, error)
}

type TrendService interface {
	Analyze(ctx context.Context) (trends.Result, error)
	AnalyzeContent(ctx context.Context, text string) ([]nlp.TermScore, error)
}

type HashtagSuggester interface {
	SuggestHashtags(ctx context.Context, topic string, count int) []string
}

type Queue interface {
	AddJob(lane tasks.LaneName, name tasks.JobName, data map[string]any) (*tasks.Job, error)
	Stats() []tasks.LaneStats
	ResetRecurring() error
}

type PlatformStatus interface {
	Status() map[database.Platform]platform.Status
}

// Deps carries everything the handlers need. Metrics may be nil.
type Deps struct {
	Feeds     database.FeedRepository
	Posts     database.PostRepository
	Trends    database.TrendRepository
	Analytics database.AnalyticsRepository
	Settings  database.SettingsRepository

	FeedManager FeedManager
	Content     ContentService
	Publisher   PublishService
	Analyzer    TrendService
	Hashtags    HashtagSuggester
	Queue       Queue
	Platforms   PlatformStatus

	Metrics http.Handler
	Version string
}

type Handler struct {
	Deps
	now func() time.Time
}

type feedRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsActive    *bool  `json:"isActive"`
}

type postRequest struct {
	Title        *string    `json:"title"`
	Content      *string    `json:"content"`
	Platform     *string    `json:"platform"`
	Status       *string    `json:"status"`
	Hashtags     []string   `json:"hashtags"`
	MediaURL     *string    `json:"mediaUrl"`
	SourceURL    *string    `json:"sourceUrl"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type scheduleRequest struct {
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type trendRequest struct {
	Keyword string   `json:"keyword"`
	Score   *float64 `json:"score"`
}

type settingRequest struct {
	Value *string `json:"value"`
}

type generateRequest struct {
	URL             string   `json:"url"`
	Platforms       []string `json:"platforms"`
	Tone            string   `json:"tone"`
	IncludeHashtags *bool    `json:"includeHashtags"`
	MaxHashtags     int      `json:"maxHashtags"`
	Save            bool     `json:"save"`
}

type trendsGenerateRequest struct {
	Platforms []string `json:"platforms"`
	Limit     int      `json:"limit"`
	Save      bool     `json:"save"`
}

type improveRequest struct {
	Instructions string `json:"instructions"`
}

type hashtagsRequest struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type triggerRequest struct {
	URL        string   `json:"url"`
	Platforms  []string `json:"platforms"`
	MaxRetries int      `json:"maxRetries"`
}
