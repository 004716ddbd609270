package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/dedup"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/llm"
	"github.com/lysyi3m/social-comb/app/publisher"
)

type stubFeeds struct {
	FeedService
	items []feed.ScoredItem
}

func (s *stubFeeds) FetchAllFeeds(ctx context.Context) ([]feed.ScoredItem, error) {
	return s.items, nil
}

type stubTrends struct {
	TrendService
	seen int
}

func (s *stubTrends) FromItems(ctx context.Context, items []feed.ScoredItem) (int, error) {
	s.seen = len(items)
	return len(items) * 2, nil
}

type stubContent struct {
	ContentService
	drafted   []feed.ScoredItem
	platforms []database.Platform
	created   content.CreateOptions
	opts      content.Options
	genErr    error
}

func (s *stubContent) GenerateDrafts(ctx context.Context, items []feed.ScoredItem, platforms []database.Platform) (int, error) {
	s.drafted = items
	s.platforms = platforms
	return len(items) * len(platforms), nil
}

func (s *stubContent) GenerateFromURL(ctx context.Context, url string, opts content.Options) ([]llm.Generated, error) {
	s.opts = opts
	if s.genErr != nil {
		return nil, s.genErr
	}
	return []llm.Generated{{Content: "hello", Platform: database.PlatformTwitter}}, nil
}

func (s *stubContent) CreatePosts(ctx context.Context, generated []llm.Generated, opts content.CreateOptions) ([]database.Post, error) {
	s.created = opts
	posts := make([]database.Post, len(generated))
	for i := range generated {
		posts[i] = database.Post{ID: "post-1"}
	}
	return posts, nil
}

type stubPublisher struct {
	PublishService
	maxRetries int
	publishErr error
	publishes  int
}

func (s *stubPublisher) Publish(ctx context.Context, postID string) (publisher.Result, error) {
	s.publishes++
	if s.publishErr != nil {
		return publisher.Result{PostID: postID, Error: s.publishErr.Error()}, s.publishErr
	}
	return publisher.Result{Success: true, PostID: postID}, nil
}

func (s *stubPublisher) RetryFailed(ctx context.Context, maxRetries int) ([]publisher.Result, error) {
	s.maxRetries = maxRetries
	return []publisher.Result{{Success: true}, {Success: false}}, nil
}

func scoredItems(n int) []feed.ScoredItem {
	items := make([]feed.ScoredItem, n)
	for i := range items {
		items[i].RelevanceScore = float64(n - i)
	}
	return items
}

func TestProcessAllFeedsDraftsTopItemsAndUpdatesTrends(t *testing.T) {
	feeds := &stubFeeds{items: scoredItems(8)}
	tr := &stubTrends{}
	cs := &stubContent{}
	d := Deps{Feeds: feeds, Trends: tr, Content: cs, MaxPostsPerDay: 5}

	result, err := d.processAllFeeds(context.Background(), NewJob(LaneRSS, JobProcessAllFeeds, nil))
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, 5, out["itemsProcessed"])
	assert.Equal(t, 9, out["postsGenerated"])
	assert.Equal(t, 16, out["trendsUpdated"])

	assert.Len(t, cs.drafted, feedDraftItems)
	assert.Equal(t, database.Platforms, cs.platforms)
	assert.Equal(t, 8, tr.seen)
}

func TestGenerateFromURLCreatesDraftsWithSource(t *testing.T) {
	cs := &stubContent{}
	d := Deps{Content: cs}

	job := NewJob(LaneContent, JobGenerateFromURL, map[string]any{
		"url":       "https://example.com/a",
		"platforms": []any{"twitter", "linkedin"},
		"tone":      "casual",
	})
	result, err := d.generateFromURL(context.Background(), job)
	require.NoError(t, err)

	out := result.(map[string]any)
	assert.Equal(t, 1, out["postsGenerated"])
	assert.Equal(t, []string{"post-1"}, out["postIds"])
	assert.Equal(t, "https://example.com/a", cs.created.SourceURL)
	assert.True(t, cs.opts.IncludeHashtags)
	assert.Equal(t, "casual", cs.opts.Tone)
	assert.Equal(t, []database.Platform{database.PlatformTwitter, database.PlatformLinkedIn}, cs.opts.Platforms)
}

func TestJobsRejectMissingFields(t *testing.T) {
	d := Deps{Content: &stubContent{}, Publisher: &stubPublisher{}}
	ctx := context.Background()

	_, err := d.generateFromURL(ctx, NewJob(LaneContent, JobGenerateFromURL, nil))
	assert.Error(t, err)

	_, err = d.publishPost(ctx, NewJob(LanePublisher, JobPublishPost, nil))
	assert.Error(t, err)

	_, err = d.generateFromURL(ctx, NewJob(LaneContent, JobGenerateFromURL, map[string]any{
		"url":       "https://example.com",
		"platforms": []any{"myspace"},
	}))
	assert.Error(t, err)
}

func TestFinalOutcomesAreNotJobFailures(t *testing.T) {
	ctx := context.Background()
	cs := &stubContent{genErr: dedup.ErrDuplicate}
	pub := &stubPublisher{publishErr: publisher.ErrAlreadyPublished}
	d := Deps{Content: cs, Publisher: pub}

	result, err := d.generateFromURL(ctx, NewJob(LaneContent, JobGenerateFromURL, map[string]any{"url": "https://example.com/a"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"success": false, "reason": dedup.ErrDuplicate.Error()}, result)

	result, err = d.publishPost(ctx, NewJob(LanePublisher, JobPublishPost, map[string]any{"postId": "p1"}))
	require.NoError(t, err)
	assert.Equal(t, false, result.(map[string]any)["success"])
	assert.Equal(t, "Post already published", result.(map[string]any)["reason"])

	pub.publishErr = errors.New("database is locked")
	_, err = d.publishPost(ctx, NewJob(LanePublisher, JobPublishPost, map[string]any{"postId": "p1"}))
	assert.EqualError(t, err, "database is locked")
}

func TestRejectedPublishRunsOnce(t *testing.T) {
	pub := &stubPublisher{publishErr: publisher.ErrPublishing}
	r := newTestRuntime(t, nil)
	RegisterJobs(r, Deps{Publisher: pub})
	startRuntime(t, r, nil)

	_, err := r.AddJob(LanePublisher, JobPublishPost, map[string]any{"postId": "p1"})
	require.NoError(t, err)

	completed := waitCompleted(t, r, LanePublisher, 1)
	assert.Equal(t, 1, completed[0].Attempts)
	assert.Equal(t, 1, pub.publishes)

	_, failed, _ := r.History(LanePublisher)
	assert.Empty(t, failed)
}

func TestRetryFailedDefaultsMaxRetries(t *testing.T) {
	pub := &stubPublisher{}
	d := Deps{Publisher: pub}

	result, err := d.retryFailed(context.Background(), NewJob(LanePublisher, JobRetryFailed, nil))
	require.NoError(t, err)
	assert.Equal(t, publisher.DefaultMaxRetries, pub.maxRetries)
	assert.Equal(t, 2, result.(map[string]any)["retried"])

	_, err = d.retryFailed(context.Background(), NewJob(LanePublisher, JobRetryFailed, map[string]any{"maxRetries": float64(5)}))
	require.NoError(t, err)
	assert.Equal(t, 5, pub.maxRetries)
}

func TestRegisterJobsCoversEveryJob(t *testing.T) {
	r := NewRuntime(1, nil, nil)
	RegisterJobs(r, Deps{})

	registered := 0
	for _, jobs := range r.handlers {
		registered += len(jobs)
	}
	assert.Equal(t, 14, registered)
}
