package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/dedup"
	"github.com/lysyi3m/social-comb/app/publisher"
)

const (
	feedDraftItems  = 3
	trendPostsLimit = 5
)

// rejections are final outcomes; retrying the job cannot change them.
var rejections = []error{
	dedup.ErrDuplicate,
	content.ErrExtractionFailed,
	content.ErrNoTrends,
	database.ErrPostNotFound,
	publisher.ErrAlreadyPublished,
	publisher.ErrPublishing,
	publisher.ErrMediaRequired,
	publisher.ErrNotPublished,
}

// rejected turns a final outcome into an unsuccessful result so the lane does
// not retry it.
func rejected(err error) (any, error) {
	for _, r := range rejections {
		if errors.Is(err, r) {
			slog.Info("Job rejected", "reason", err)
			return map[string]any{"success": false, "reason": err.Error()}, nil
		}
	}
	return nil, err
}

// RegisterJobs wires every job name to its handler.
func RegisterJobs(r *Runtime, d Deps) {
	r.Register(LaneRSS, JobProcessAllFeeds, d.processAllFeeds)
	r.Register(LaneRSS, JobProcessFeed, d.processFeed)

	r.Register(LaneTrends, JobAnalyzeTrends, d.analyzeTrends)
	r.Register(LaneTrends, JobAnalyzeContent, d.analyzeContent)
	r.Register(LaneTrends, JobCleanupTrends, d.cleanupTrends)

	r.Register(LaneContent, JobGenerateContent, d.generateContent)
	r.Register(LaneContent, JobGenerateFromURL, d.generateFromURL)
	r.Register(LaneContent, JobGenerateFromTrends, d.generateFromTrends)
	r.Register(LaneContent, JobImproveContent, d.improveContent)

	r.Register(LanePublisher, JobPublishScheduled, d.publishScheduled)
	r.Register(LanePublisher, JobPublishPost, d.publishPost)
	r.Register(LanePublisher, JobRetryFailed, d.retryFailed)

	r.Register(LaneAnalytics, JobFetchAnalytics, d.fetchAnalytics)
	r.Register(LaneAnalytics, JobFetchPostAnalytics, d.fetchPostAnalytics)
}

// processAllFeeds drafts posts for every platform from the best items, then
// feeds the same items into the trends table.
func (d Deps) processAllFeeds(ctx context.Context, job *Job) (any, error) {
	slog.Info("Starting RSS feed processing for all feeds")

	items, err := d.Feeds.FetchAllFeeds(ctx)
	if err != nil {
		return nil, err
	}

	top := items
	if d.MaxPostsPerDay >= 0 && len(top) > d.MaxPostsPerDay {
		top = top[:d.MaxPostsPerDay]
	}
	slog.Info("Found top items from RSS feeds", "count", len(top))

	drafts := top
	if len(drafts) > feedDraftItems {
		drafts = drafts[:feedDraftItems]
	}
	generated, err := d.Content.GenerateDrafts(ctx, drafts, database.Platforms)
	if err != nil {
		return nil, err
	}

	trendsUpdated, err := d.Trends.FromItems(ctx, items)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"success":        true,
		"itemsProcessed": len(top),
		"postsGenerated": generated,
		"trendsUpdated":  trendsUpdated,
	}, nil
}

func (d Deps) processFeed(ctx context.Context, job *Job) (any, error) {
	feedID, err := requireString(job.Data, "feedId")
	if err != nil {
		return nil, err
	}

	items, err := d.Feeds.FetchFeed(ctx, feedID)
	if err != nil {
		return nil, err
	}

	slog.Info("Processed feed", "feed_id", feedID, "items", len(items))
	return map[string]any{"success": true, "itemsProcessed": len(items)}, nil
}

func (d Deps) analyzeTrends(ctx context.Context, job *Job) (any, error) {
	return d.Trends.Analyze(ctx)
}

func (d Deps) analyzeContent(ctx context.Context, job *Job) (any, error) {
	text, err := requireString(job.Data, "text")
	if err != nil {
		return nil, err
	}

	terms, err := d.Trends.AnalyzeContent(ctx, text)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "keywords": terms}, nil
}

func (d Deps) cleanupTrends(ctx context.Context, job *Job) (any, error) {
	removed, err := d.Trends.Cleanup(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "removed": removed}, nil
}

func (d Deps) generateContent(ctx context.Context, job *Job) (any, error) {
	return d.Content.GenerateFromItems(ctx)
}

func (d Deps) generateFromURL(ctx context.Context, job *Job) (any, error) {
	url, err := requireString(job.Data, "url")
	if err != nil {
		return nil, err
	}
	platforms, err := platformsField(job.Data, "platforms")
	if err != nil {
		return nil, err
	}

	generated, err := d.Content.GenerateFromURL(ctx, url, content.Options{
		Platforms:       platforms,
		Tone:            stringField(job.Data, "tone"),
		IncludeHashtags: true,
	})
	if err != nil {
		return rejected(err)
	}

	posts, err := d.Content.CreatePosts(ctx, generated, content.CreateOptions{SourceURL: url})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "postsGenerated": len(posts), "postIds": postIDs(posts)}, nil
}

func (d Deps) generateFromTrends(ctx context.Context, job *Job) (any, error) {
	platforms, err := platformsField(job.Data, "platforms")
	if err != nil {
		return nil, err
	}

	generated, err := d.Content.GenerateFromTrends(ctx, platforms, trendPostsLimit)
	if err != nil {
		return rejected(err)
	}

	posts, err := d.Content.CreatePosts(ctx, generated, content.CreateOptions{})
	if err != nil {
		return nil, err
	}

	return map[string]any{"success": true, "postsGenerated": len(posts), "postIds": postIDs(posts)}, nil
}

func (d Deps) improveContent(ctx context.Context, job *Job) (any, error) {
	postID, err := requireString(job.Data, "postId")
	if err != nil {
		return nil, err
	}

	improved, err := d.Content.ImproveContent(ctx, postID, stringField(job.Data, "instructions"))
	if err != nil {
		return rejected(err)
	}
	return map[string]any{"success": true, "content": improved.Content, "hashtags": improved.Hashtags}, nil
}

func (d Deps) publishScheduled(ctx context.Context, job *Job) (any, error) {
	results, err := d.Publisher.PublishScheduled(ctx)
	if err != nil {
		return nil, err
	}

	published, failed := countResults(results)
	slog.Info("Scheduled publishing finished", "published", published, "failed", failed)
	return map[string]any{"success": true, "published": published, "failed": failed, "results": results}, nil
}

func (d Deps) publishPost(ctx context.Context, job *Job) (any, error) {
	postID, err := requireString(job.Data, "postId")
	if err != nil {
		return nil, err
	}

	res, err := d.Publisher.Publish(ctx, postID)
	if err != nil {
		return rejected(err)
	}
	return res, nil
}

func (d Deps) retryFailed(ctx context.Context, job *Job) (any, error) {
	maxRetries := intField(job.Data, "maxRetries", publisher.DefaultMaxRetries)

	results, err := d.Publisher.RetryFailed(ctx, maxRetries)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "retried": len(results), "results": results}, nil
}

func (d Deps) fetchAnalytics(ctx context.Context, job *Job) (any, error) {
	n, err := d.Publisher.FetchAllAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "fetched": n}, nil
}

func (d Deps) fetchPostAnalytics(ctx context.Context, job *Job) (any, error) {
	postID, err := requireString(job.Data, "postId")
	if err != nil {
		return nil, err
	}

	analytics, err := d.Publisher.FetchAnalytics(ctx, postID)
	if err != nil {
		return rejected(err)
	}
	return map[string]any{"success": true, "analytics": analytics}, nil
}

func countResults(results []publisher.Result) (ok, failed int) {
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

func postIDs(posts []database.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func requireString(data map[string]any, key string) (string, error) {
	s := stringField(data, key)
	if s == "" {
		return "", fmt.Errorf("missing job field %q", key)
	}
	return s, nil
}

func intField(data map[string]any, key string, def int) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// platformsField accepts the forms job data arrives in: typed platforms from
// Go callers, or strings decoded from JSON.
func platformsField(data map[string]any, key string) ([]database.Platform, error) {
	var raw []string
	switch v := data[key].(type) {
	case nil:
		return nil, nil
	case []database.Platform:
		return v, nil
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid platform %v", item)
			}
			raw = append(raw, s)
		}
	default:
		return nil, fmt.Errorf("invalid platforms field %T", v)
	}

	platforms := make([]database.Platform, 0, len(raw))
	for _, s := range raw {
		p, err := database.ParsePlatform(s)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}
