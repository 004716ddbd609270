package database

import (
	"context"
	"time"
)

type FeedRepository interface {
	ListFeeds(ctx context.Context) ([]Feed, error)
	ListActiveFeeds(ctx context.Context) ([]Feed, error)
	GetFeed(ctx context.Context, id string) (*Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*Feed, error)
	GetFeedCount(ctx context.Context) (int, error)

	CreateFeed(ctx context.Context, feed Feed) (*Feed, error)
	UpsertFeed(ctx context.Context, feed Feed) (*Feed, error)
	UpdateFeed(ctx context.Context, feed Feed) error
	DeleteFeed(ctx context.Context, id string) error
	MarkFetched(ctx context.Context, id string, at time.Time) error
}

type PostRepository interface {
	ListPosts(ctx context.Context, filter PostFilter) ([]Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	ListCreatedSince(ctx context.Context, since time.Time) ([]Post, error)
	CountCreatedSince(ctx context.Context, since time.Time, statuses ...PostStatus) (int, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]Post, error)
	ListByStatus(ctx context.Context, status PostStatus) ([]Post, error)

	CreatePost(ctx context.Context, post Post) (*Post, error)
	UpdatePost(ctx context.Context, post Post) error
	DeletePost(ctx context.Context, id string) error

	// ClaimPost moves a post from any of the given statuses to to. It reports false
	// when another caller changed the status first.
	ClaimPost(ctx context.Context, id string, to PostStatus, from ...PostStatus) (bool, error)
	SchedulePost(ctx context.Context, id string, at time.Time) (bool, error)
	MarkPublished(ctx context.Context, id string, platformPostID string, at time.Time) error
	// MarkFailed leaves PUBLISHED posts untouched and reports ErrPostNotFound for them.
	MarkFailed(ctx context.Context, id string, reason string) error
	FailStalePublishing(ctx context.Context, before time.Time, reason string) (int64, error)
	ResetToDraft(ctx context.Context, id string) (bool, error)
}

type TrendRepository interface {
	ListTopTrends(ctx context.Context, limit int) ([]Trend, error)
	GetTrend(ctx context.Context, keyword string) (*Trend, error)

	// UpsertTrend inserts keyword with score, or sets the stored score to
	// existing*keep + score when the keyword already exists.
	UpsertTrend(ctx context.Context, keyword string, source TrendSource, score float64, keep float64) error
	DeleteTrend(ctx context.Context, id string) error
	DeleteStaleTrends(ctx context.Context, before time.Time, floor float64) (int64, error)
}

type AnalyticsRepository interface {
	UpsertAnalytics(ctx context.Context, a Analytics) error
	GetAnalyticsByPost(ctx context.Context, postID string) (*Analytics, error)
	ListAnalytics(ctx context.Context, limit int) ([]Analytics, error)
	TopAnalyticsWithPosts(ctx context.Context, limit int) ([]AnalyticsWithPost, error)
	SummaryByPlatform(ctx context.Context) ([]PlatformSummary, error)
}

type SettingsRepository interface {
	ListSettings(ctx context.Context) ([]Setting, error)
	GetSetting(ctx context.Context, key string) (*Setting, error)
	SetSetting(ctx context.Context, key, value string) (*Setting, error)
	DeleteSetting(ctx context.Context, key string) error
}
