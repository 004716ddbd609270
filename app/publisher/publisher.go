package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/metrics"
	"github.com/lysyi3m/social-comb/app/platform"
)

var (
	ErrAlreadyPublished = errors.New("Post already published")
	ErrPublishing       = errors.New("Post is already being published")
	ErrNotPublished     = errors.New("Post not found or not published")
	ErrInterrupted      = errors.New("Publishing was interrupted")
	ErrMediaRequired    = platform.ErrMediaRequired
)

const (
	DefaultMaxRetries = 3
	DefaultStaleAfter = 5 * time.Minute
)

type Clients interface {
	Get(p database.Platform) (platform.Client, error)
	Configured() []database.Platform
}

type Result struct {
	Success        bool   `json:"success"`
	PostID         string `json:"postId"`
	PlatformPostID string `json:"platformPostId,omitempty"`
	URL            string `json:"url,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Publisher moves posts through PUBLISHING to PUBLISHED or FAILED and keeps
// their analytics fresh.
type Publisher struct {
	posts     database.PostRepository
	analytics database.AnalyticsRepository
	clients   Clients
	metrics   *metrics.Metrics
	now       func() time.Time

	ScheduledDelay time.Duration
	RetryDelay     time.Duration
	AnalyticsDelay time.Duration

	// StaleAfter is how long a post may stay PUBLISHING before RetryFailed
	// treats the attempt as lost.
	StaleAfter time.Duration
}

func New(posts database.PostRepository, analytics database.AnalyticsRepository, clients Clients, m *metrics.Metrics) *Publisher {
	return &Publisher{
		posts:          posts,
		analytics:      analytics,
		clients:        clients,
		metrics:        m,
		now:            time.Now,
		ScheduledDelay: time.Second,
		RetryDelay:     2 * time.Second,
		AnalyticsDelay: 500 * time.Millisecond,
		StaleAfter:     DefaultStaleAfter,
	}
}

// Publish sends one post to its platform. Precondition failures come back as
// errors; a failed platform call marks the post FAILED and is reported in the
// result only.
func (p *Publisher) Publish(ctx context.Context, postID string) (Result, error) {
	post, err := p.posts.GetPost(ctx, postID)
	if err != nil {
		return Result{PostID: postID, Error: err.Error()}, err
	}
	if post == nil {
		return Result{PostID: postID, Error: database.ErrPostNotFound.Error()}, database.ErrPostNotFound
	}
	if post.Status == database.StatusPublished {
		return Result{PostID: postID, Error: ErrAlreadyPublished.Error()}, ErrAlreadyPublished
	}

	if post.Platform == database.PlatformInstagram && post.MediaURL == "" {
		p.fail(ctx, post, ErrMediaRequired)
		return Result{PostID: postID, Error: ErrMediaRequired.Error()}, ErrMediaRequired
	}

	claimed, err := p.posts.ClaimPost(ctx, postID, database.StatusPublishing,
		database.StatusDraft, database.StatusScheduled, database.StatusFailed)
	if err != nil {
		return Result{PostID: postID, Error: err.Error()}, err
	}
	if !claimed {
		return Result{PostID: postID, Error: ErrPublishing.Error()}, ErrPublishing
	}

	slog.Info("Publishing post", "post_id", postID, "platform", post.Platform)

	client, err := p.clients.Get(post.Platform)
	if err != nil {
		p.fail(ctx, post, err)
		return Result{PostID: postID, Error: err.Error()}, nil
	}

	res, err := client.Publish(ctx, platform.Content{
		Text:     post.Content,
		MediaURL: post.MediaURL,
		Hashtags: post.Hashtags,
	})
	if err != nil {
		p.fail(ctx, post, err)
		return Result{PostID: postID, Error: err.Error()}, nil
	}

	// the post is out on the platform; record it even if ctx is done
	if err := p.posts.MarkPublished(context.WithoutCancel(ctx), postID, res.PostID, p.now()); err != nil {
		slog.Error("Database error", "operation", "mark_published", "post_id", postID, "error", err)
		return Result{PostID: postID, PlatformPostID: res.PostID, Error: err.Error()}, err
	}

	p.metrics.Published(string(post.Platform))
	slog.Info("Post published", "post_id", postID, "platform", post.Platform, "platform_post_id", res.PostID)

	return Result{Success: true, PostID: postID, PlatformPostID: res.PostID, URL: res.URL}, nil
}

func (p *Publisher) fail(ctx context.Context, post *database.Post, cause error) {
	slog.Error("Failed to publish post", "post_id", post.ID, "platform", post.Platform, "error", cause)
	p.metrics.PublishFailed(string(post.Platform))

	if err := p.posts.MarkFailed(context.WithoutCancel(ctx), post.ID, cause.Error()); err != nil {
		slog.Error("Database error", "operation", "mark_failed", "post_id", post.ID, "error", err)
	}
}

// PublishScheduled publishes every SCHEDULED post that is due, oldest first.
func (p *Publisher) PublishScheduled(ctx context.Context) ([]Result, error) {
	due, err := p.posts.ListDueScheduled(ctx, p.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled posts: %w", err)
	}

	slog.Info("Found scheduled posts to publish", "count", len(due))

	results := make([]Result, 0, len(due))
	for i, post := range due {
		if i > 0 {
			if err := sleep(ctx, p.ScheduledDelay); err != nil {
				return results, err
			}
		}
		res, err := p.Publish(ctx, post.ID)
		if err != nil {
			slog.Warn("Scheduled post skipped", "post_id", post.ID, "error", err)
		}
		results = append(results, res)
	}

	return results, nil
}

// RetryFailed resets FAILED posts below maxRetries attempts to DRAFT and
// publishes them again. Posts stuck in PUBLISHING longer than StaleAfter are
// failed first so they get retried too.
func (p *Publisher) RetryFailed(ctx context.Context, maxRetries int) ([]Result, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	if p.StaleAfter > 0 {
		n, err := p.posts.FailStalePublishing(ctx, p.now().Add(-p.StaleAfter), ErrInterrupted.Error())
		if err != nil {
			return nil, err
		}
		if n > 0 {
			slog.Warn("Recovered posts stuck in publishing", "count", n)
		}
	}

	failed, err := p.posts.ListByStatus(ctx, database.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed posts: %w", err)
	}

	slog.Info("Found failed posts to retry", "count", len(failed))

	results := []Result{}
	for _, post := range failed {
		if post.Attempts >= maxRetries {
			slog.Debug("Retry limit reached", "post_id", post.ID, "attempts", post.Attempts)
			continue
		}

		if len(results) > 0 {
			if err := sleep(ctx, p.RetryDelay); err != nil {
				return results, err
			}
		}

		reset, err := p.posts.ResetToDraft(ctx, post.ID)
		if err != nil {
			return results, err
		}
		if !reset {
			continue
		}

		res, err := p.Publish(ctx, post.ID)
		if err != nil {
			slog.Warn("Retry skipped", "post_id", post.ID, "error", err)
		}
		results = append(results, res)
	}

	return results, nil
}

// PublishToAll creates a draft for every configured platform and publishes it
// right away. Instagram is skipped without media.
func (p *Publisher) PublishToAll(ctx context.Context, content string, hashtags []string, mediaURL string) ([]Result, error) {
	results := []Result{}
	for _, pl := range p.clients.Configured() {
		if pl == database.PlatformInstagram && mediaURL == "" {
			slog.Info("Skipping Instagram, no media provided")
			continue
		}

		post, err := p.posts.CreatePost(ctx, database.Post{
			Content:  content,
			Platform: pl,
			Status:   database.StatusDraft,
			Hashtags: hashtags,
			MediaURL: mediaURL,
		})
		if err != nil {
			return results, err
		}

		res, err := p.Publish(ctx, post.ID)
		if err != nil {
			slog.Warn("Publish skipped", "post_id", post.ID, "error", err)
		}
		results = append(results, res)
	}
	return results, nil
}

// FetchAnalytics pulls the current metrics of a published post and stores them.
func (p *Publisher) FetchAnalytics(ctx context.Context, postID string) (*database.Analytics, error) {
	post, err := p.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, database.ErrPostNotFound
	}
	if post.PlatformPostID == "" {
		return nil, ErrNotPublished
	}

	client, err := p.clients.Get(post.Platform)
	if err != nil {
		return nil, err
	}

	m, err := client.FetchAnalytics(ctx, post.PlatformPostID)
	if err != nil {
		return nil, err
	}

	a := database.Analytics{
		PostID:     post.ID,
		Platform:   post.Platform,
		Likes:      m.Likes,
		Shares:     m.Shares,
		Comments:   m.Comments,
		Views:      m.Views,
		Clicks:     m.Clicks,
		Engagement: m.Likes + m.Shares + m.Comments,
		FetchedAt:  p.now(),
	}
	if err := p.analytics.UpsertAnalytics(ctx, a); err != nil {
		return nil, err
	}

	return &a, nil
}

// FetchAllAnalytics refreshes every published post. Failures are logged and skipped.
func (p *Publisher) FetchAllAnalytics(ctx context.Context) (int, error) {
	published, err := p.posts.ListByStatus(ctx, database.StatusPublished)
	if err != nil {
		return 0, fmt.Errorf("failed to list published posts: %w", err)
	}

	fetched := 0
	attempted := 0
	for _, post := range published {
		if post.PlatformPostID == "" {
			continue
		}
		if attempted > 0 {
			if err := sleep(ctx, p.AnalyticsDelay); err != nil {
				return fetched, err
			}
		}
		attempted++

		if _, err := p.FetchAnalytics(ctx, post.ID); err != nil {
			slog.Error("Failed to fetch analytics", "post_id", post.ID, "error", err)
			continue
		}
		fetched++
	}

	slog.Info("Analytics fetch completed", "posts", attempted, "fetched", fetched)
	return fetched, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
