package feed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/metrics"
	"github.com/lysyi3m/social-comb/app/nlp"
)

const (
	maxItemsPerFeed       = 10
	crossFeedDupThreshold = 0.8
	categoryBoost         = 1.5
)

// Aggregator turns the active feeds into scored, de-duplicated items.
type Aggregator struct {
	fetcher  Fetcher
	feeds    database.FeedRepository
	filters  *FilterCache
	filterer *Filterer
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAggregator(fetcher Fetcher, feeds database.FeedRepository, filters *FilterCache, m *metrics.Metrics) *Aggregator {
	if filters == nil {
		filters = NewFilterCache()
	}
	return &Aggregator{
		fetcher:  fetcher,
		feeds:    feeds,
		filters:  filters,
		filterer: NewFilterer(),
		metrics:  m,
		now:      time.Now,
	}
}

// ScoreItem computes keywords, sentiment and relevance for one item. Relevance
// is the mean keyword score, boosted when one of the item categories contains
// the feed category.
func ScoreItem(item Item, category string) ScoredItem {
	text := item.Title + " " + item.RawText
	keywords := nlp.ExtractKeywords(text, nlp.DefaultKeywordLimit)

	relevance := 0.0
	if len(keywords) > 0 {
		for _, k := range keywords {
			relevance += k.Score
		}
		relevance /= float64(len(keywords))
	}

	if category != "" {
		needle := strings.ToLower(category)
		for _, c := range item.Categories {
			if strings.Contains(strings.ToLower(c), needle) {
				relevance *= categoryBoost
				break
			}
		}
	}

	return ScoredItem{
		Item:           item,
		Keywords:       keywords,
		RelevanceScore: relevance,
		Sentiment:      nlp.AnalyzeSentiment(text),
	}
}

func (a *Aggregator) FetchFeed(ctx context.Context, feedID string) ([]ScoredItem, error) {
	f, err := a.feeds.GetFeed(ctx, feedID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", database.ErrFeedNotFound, feedID)
	}

	if !f.IsActive {
		slog.Info("Skipping inactive feed", "feed", f.Title)
		return []ScoredItem{}, nil
	}

	return a.fetchFeed(ctx, f)
}

func (a *Aggregator) fetchFeed(ctx context.Context, f *database.Feed) ([]ScoredItem, error) {
	items, _, err := a.fetcher.Fetch(ctx, f.URL)
	a.metrics.FeedFetched(err)
	if err != nil {
		return nil, err
	}

	if err := a.feeds.MarkFetched(ctx, f.ID, a.now()); err != nil {
		slog.Error("Database error", "operation", "MarkFetched", "feed", f.ID, "error", err)
	}

	items = a.filterer.Run(items, a.filters.Get(f.URL))
	if len(items) > maxItemsPerFeed {
		items = items[:maxItemsPerFeed]
	}

	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		s := ScoreItem(item, f.Category)
		s.FeedID = f.ID
		scored = append(scored, s)
	}
	sortByRelevance(scored)

	slog.Info("Feed processed", "feed", f.Title, "items", len(scored))
	return scored, nil
}

// FetchAllFeeds processes every active feed, skipping feeds that fail, and
// drops items whose title closely matches an item already kept.
func (a *Aggregator) FetchAllFeeds(ctx context.Context) ([]ScoredItem, error) {
	feeds, err := a.feeds.ListActiveFeeds(ctx)
	if err != nil {
		return nil, err
	}

	var all []ScoredItem
	for i := range feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, err := a.fetchFeed(ctx, &feeds[i])
		if err != nil {
			slog.Error("Feed fetch failed", "feed", feeds[i].ID, "url", feeds[i].URL, "error", err)
			continue
		}
		all = append(all, items...)
	}

	unique := dedupeByTitle(all)
	sortByRelevance(unique)
	return unique, nil
}

func (a *Aggregator) TopItems(ctx context.Context, n int) ([]ScoredItem, error) {
	items, err := a.FetchAllFeeds(ctx)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(items) > n {
		items = items[:n]
	}
	return items, nil
}

// AddFeed validates url by fetching it before storing the feed.
func (a *Aggregator) AddFeed(ctx context.Context, url, title, category string) (*database.Feed, error) {
	_, metadata, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var feedTitle, description string
	if metadata != nil {
		feedTitle, description = metadata.Title, metadata.Description
	}

	return a.feeds.CreateFeed(ctx, database.Feed{
		URL:         url,
		Title:       cmp.Or(title, feedTitle, "Untitled Feed"),
		Description: description,
		Category:    category,
		IsActive:    true,
	})
}

func dedupeByTitle(items []ScoredItem) []ScoredItem {
	unique := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		duplicate := false
		for _, kept := range unique {
			if nlp.CalculateSimilarity(kept.Title, item.Title) > crossFeedDupThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, item)
		}
	}
	return unique
}

func sortByRelevance(items []ScoredItem) {
	slices.SortStableFunc(items, func(a, b ScoredItem) int {
		return cmp.Compare(b.RelevanceScore, a.RelevanceScore)
	})
}
