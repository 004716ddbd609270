package trends

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/nlp"
)

const (
	// contentKeep is the share of an existing score kept when content keywords are folded in.
	contentKeep  = 0.5
	postsWindow  = 24 * time.Hour
	staleAfter   = 7 * 24 * time.Hour
	staleFloor   = 1.0
	contentTerms = 10
)

type FeedSource interface {
	FetchAllFeeds(ctx context.Context) ([]feed.ScoredItem, error)
}

type PostSource interface {
	ListCreatedSince(ctx context.Context, since time.Time) ([]database.Post, error)
}

type Result struct {
	Success          bool  `json:"success"`
	FeedKeywords     int   `json:"feedKeywords"`
	KeywordsAnalyzed int   `json:"keywordsAnalyzed"`
	PostsAnalyzed    int   `json:"postsAnalyzed"`
	Removed          int64 `json:"removed"`
}

// Analyzer keeps the trends table in step with what the feeds and our own posts talk about.
type Analyzer struct {
	trends database.TrendRepository
	posts  PostSource
	feeds  FeedSource
	now    func() time.Time
}

func NewAnalyzer(trends database.TrendRepository, posts PostSource, feeds FeedSource) *Analyzer {
	return &Analyzer{trends: trends, posts: posts, feeds: feeds, now: time.Now}
}

// FromItems stores the relevance-weighted mean score of every keyword found in
// items. Stored scores for those keywords are replaced.
func (a *Analyzer) FromItems(ctx context.Context, items []feed.ScoredItem) (int, error) {
	type acc struct {
		score float64
		count int
	}
	scores := map[string]*acc{}
	var order []string

	for _, item := range items {
		for _, kw := range item.Keywords {
			s, ok := scores[kw.Word]
			if !ok {
				s = &acc{}
				scores[kw.Word] = s
				order = append(order, kw.Word)
			}
			s.score += kw.Score * item.RelevanceScore
			s.count++
		}
	}

	for _, keyword := range order {
		s := scores[keyword]
		if err := a.trends.UpsertTrend(ctx, keyword, database.TrendSourceRSS, s.score/float64(s.count), 0); err != nil {
			return 0, err
		}
	}

	slog.Info("Updated trends from RSS feeds", "count", len(order))
	return len(order), nil
}

// FromPosts folds keyword scores from posts created since into the stored trends.
func (a *Analyzer) FromPosts(ctx context.Context, since time.Time) (keywords, posts int, err error) {
	recent, err := a.posts.ListCreatedSince(ctx, since)
	if err != nil {
		return 0, 0, err
	}

	totals := map[string]float64{}
	var order []string
	for _, post := range recent {
		for _, kw := range nlp.ExtractKeywords(post.Content, nlp.DefaultKeywordLimit) {
			if _, ok := totals[kw.Word]; !ok {
				order = append(order, kw.Word)
			}
			totals[kw.Word] += kw.Score
		}
	}

	for _, keyword := range order {
		if err := a.trends.UpsertTrend(ctx, keyword, database.TrendSourceContent, totals[keyword], contentKeep); err != nil {
			return 0, 0, err
		}
	}

	return len(order), len(recent), nil
}

// AnalyzeContent extracts trending terms from a single text and folds them in
// the same way as post keywords.
func (a *Analyzer) AnalyzeContent(ctx context.Context, text string) ([]nlp.TermScore, error) {
	terms := nlp.ExtractTrendingKeywords([]string{text}, contentTerms)
	for _, t := range terms {
		if err := a.trends.UpsertTrend(ctx, t.Term, database.TrendSourceContent, t.Score, contentKeep); err != nil {
			return nil, err
		}
	}
	return terms, nil
}

// Cleanup removes trends untouched for a week whose score fell below 1.
func (a *Analyzer) Cleanup(ctx context.Context, now time.Time) (int64, error) {
	n, err := a.trends.DeleteStaleTrends(ctx, now.Add(-staleAfter), staleFloor)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Removed stale trends", "count", n)
	}
	return n, nil
}

// Analyze runs the full pass: feed keywords, then recent post keywords, then cleanup.
func (a *Analyzer) Analyze(ctx context.Context) (Result, error) {
	slog.Info("Starting trend analysis")
	now := a.now()

	items, err := a.feeds.FetchAllFeeds(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch feeds: %w", err)
	}

	feedKeywords, err := a.FromItems(ctx, items)
	if err != nil {
		return Result{}, err
	}

	keywords, posts, err := a.FromPosts(ctx, now.Add(-postsWindow))
	if err != nil {
		return Result{}, err
	}

	removed, err := a.Cleanup(ctx, now)
	if err != nil {
		return Result{}, err
	}

	slog.Info("Trend analysis completed", "keywords", keywords, "posts", posts)
	return Result{
		Success:          true,
		FeedKeywords:     feedKeywords,
		KeywordsAnalyzed: keywords,
		PostsAnalyzed:    posts,
		Removed:          removed,
	}, nil
}
