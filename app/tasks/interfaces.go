package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/llm"
	"github.com/lysyi3m/social-comb/app/nlp"
	"github.com/lysyi3m/social-comb/app/publisher"
	"github.com/lysyi3m/social-comb/app/trends"
)

// Services the job handlers call into. Implemented by feed.Aggregator,
// trends.Analyzer, content.Service and publisher.Publisher.

type FeedService interface {
	FetchFeed(ctx context.Context, feedID string) ([]feed.ScoredItem, error)
	FetchAllFeeds(ctx context.Context) ([]feed.ScoredItem, error)
}

type TrendService interface {
	Analyze(ctx context.Context) (trends.Result, error)
	FromItems(ctx context.Context, items []feed.ScoredItem) (int, error)
	AnalyzeContent(ctx context.Context, text string) ([]nlp.TermScore, error)
	Cleanup(ctx context.Context, now time.Time) (int64, error)
}

type ContentService interface {
	GenerateFromItems(ctx context.Context) (content.RunResult, error)
	GenerateDrafts(ctx context.Context, items []feed.ScoredItem, platforms []database.Platform) (int, error)
	GenerateFromURL(ctx context.Context, url string, opts content.Options) ([]llm.Generated, error)
	CreatePosts(ctx context.Context, generated []llm.Generated, opts content.CreateOptions) ([]database.Post, error)
	GenerateFromTrends(ctx context.Context, platforms []database.Platform, limit int) ([]llm.Generated, error)
	ImproveContent(ctx context.Context, postID, instructions string) (*content.Improved, error)
}

type PublishService interface {
	Publish(ctx context.Context, postID string) (publisher.Result, error)
	PublishScheduled(ctx context.Context) ([]publisher.Result, error)
	RetryFailed(ctx context.Context, maxRetries int) ([]publisher.Result, error)
	FetchAnalytics(ctx context.Context, postID string) (*database.Analytics, error)
	FetchAllAnalytics(ctx context.Context) (int, error)
}

type Deps struct {
	Feeds          FeedService
	Trends         TrendService
	Content        ContentService
	Publisher      PublishService
	MaxPostsPerDay int
}
