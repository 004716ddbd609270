package content

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/extract"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/llm"
	"github.com/lysyi3m/social-comb/app/nlp"
	"github.com/lysyi3m/social-comb/app/platform"
	"github.com/lysyi3m/social-comb/app/policy"
)

var (
	ErrExtractionFailed = errors.New("failed to extract article content")
	ErrNoTrends         = errors.New("no trends available")
)

const (
	contextLimit       = 2000
	maxHashtagLength   = 30
	improveHashtags    = 10
	generationItems    = 3
	generationUsed     = 2
	DefaultTrendsLimit = 3
)

var DefaultPlatforms = []database.Platform{database.PlatformTwitter, database.PlatformLinkedIn}

type Extractor interface {
	Extract(ctx context.Context, url string) (*extract.Article, error)
}

type Generator interface {
	Generate(ctx context.Context, topic string, platform database.Platform, contextText string) llm.Generated
	Improve(ctx context.Context, content string, platform database.Platform, instructions string) (string, error)
}

type DuplicateChecker interface {
	Check(ctx context.Context, title, description string) error
}

type ItemSource interface {
	TopItems(ctx context.Context, n int) ([]feed.ScoredItem, error)
}

type Gate interface {
	Check(ctx context.Context, now time.Time) (policy.Decision, error)
}

type Options struct {
	Platforms       []database.Platform
	Tone            string
	IncludeHashtags bool
	MaxHashtags     int
}

type CreateOptions struct {
	SourceURL    string
	Status       database.PostStatus
	ScheduledFor *time.Time
}

type Improved struct {
	Post     *database.Post `json:"post"`
	Content  string         `json:"content"`
	Hashtags []string       `json:"hashtags"`
}

type HourEngagement struct {
	Hour       int     `json:"hour"`
	Engagement float64 `json:"engagement"`
}

type Suggestions struct {
	BestPostingTimes      []HourEngagement `json:"bestPostingTimes"`
	TopPerformingHashtags []string         `json:"topPerformingHashtags"`
	RecommendedTopics     []string         `json:"recommendedTopics"`
}

// RunResult describes one scheduled generation pass.
type RunResult struct {
	Success        bool   `json:"success"`
	Skipped        bool   `json:"skipped,omitempty"`
	Reason         string `json:"reason,omitempty"`
	ItemsProcessed int    `json:"itemsProcessed"`
	PostsGenerated int    `json:"postsGenerated"`
}

type Service struct {
	extractor Extractor
	llm       Generator
	dedup     DuplicateChecker
	posts     database.PostRepository
	trends    database.TrendRepository
	analytics database.AnalyticsRepository
	items     ItemSource
	gate      Gate

	Now  func() time.Time
	Rand *rand.Rand
}

func NewService(
	extractor Extractor,
	generator Generator,
	dedup DuplicateChecker,
	posts database.PostRepository,
	trends database.TrendRepository,
	analytics database.AnalyticsRepository,
	items ItemSource,
	gate Gate,
) *Service {
	return &Service{
		extractor: extractor,
		llm:       generator,
		dedup:     dedup,
		posts:     posts,
		trends:    trends,
		analytics: analytics,
		items:     items,
		gate:      gate,
		Now:       time.Now,
	}
}

// GenerateFromURL extracts the article at url and writes one post per platform.
func (s *Service) GenerateFromURL(ctx context.Context, url string, opts Options) ([]llm.Generated, error) {
	slog.Info("Extracting content", "url", url)

	article, err := s.extractor.Extract(ctx, url)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, ErrExtractionFailed
	}

	if err := s.dedup.Check(ctx, article.Title, article.Description); err != nil {
		return nil, err
	}

	source := article.Content
	if source == "" {
		source = article.Description
	}
	keywords := nlp.ExtractKeywords(source, nlp.DefaultKeywordLimit)
	slog.Debug("Keywords extracted", "url", url, "count", len(keywords))

	platforms := opts.Platforms
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}

	topic := llm.JoinTopic(article.Title, article.Description, truncate(article.Content, contextLimit))
	contextText := articleContext(article, opts.Tone)

	results := make([]llm.Generated, 0, len(platforms))
	for _, platform := range platforms {
		generated := s.llm.Generate(ctx, topic, platform, contextText)

		generated.Hashtags = []string{}
		if opts.IncludeHashtags {
			generated.Hashtags = KeywordHashtags(keywords, maxHashtags(platform, opts.MaxHashtags))
		}
		generated.Title = article.Title
		generated.MediaURL = article.Image
		fitPlatform(&generated)

		results = append(results, generated)
	}

	return results, nil
}

// CreatePosts stores generated content, one post each. Status defaults to DRAFT.
func (s *Service) CreatePosts(ctx context.Context, generated []llm.Generated, opts CreateOptions) ([]database.Post, error) {
	status := opts.Status
	if status == "" {
		status = database.StatusDraft
	}

	posts := make([]database.Post, 0, len(generated))
	for _, g := range generated {
		post, err := s.posts.CreatePost(ctx, database.Post{
			Title:        g.Title,
			Content:      g.Content,
			Platform:     g.Platform,
			Status:       status,
			Hashtags:     g.Hashtags,
			MediaURL:     g.MediaURL,
			SourceURL:    opts.SourceURL,
			ScheduledFor: opts.ScheduledFor,
		})
		if err != nil {
			return posts, err
		}
		posts = append(posts, *post)
	}

	return posts, nil
}

// GenerateFromTrends writes one post per platform about the strongest trends.
func (s *Service) GenerateFromTrends(ctx context.Context, platforms []database.Platform, limit int) ([]llm.Generated, error) {
	if limit <= 0 {
		limit = DefaultTrendsLimit
	}
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}

	trends, err := s.trends.ListTopTrends(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(trends) == 0 {
		return nil, ErrNoTrends
	}

	keywords := make([]string, 0, len(trends))
	hashtags := make([]string, 0, len(trends))
	for _, t := range trends {
		keywords = append(keywords, t.Keyword)
		hashtags = append(hashtags, "#"+removeSpaces(t.Keyword))
	}
	topic := "Trending topics: " + strings.Join(keywords, ", ")

	results := make([]llm.Generated, 0, len(platforms))
	for _, platform := range platforms {
		generated := s.llm.Generate(ctx, topic, platform, "")
		generated.Hashtags = slices.Clone(hashtags)
		fitPlatform(&generated)
		results = append(results, generated)
	}

	return results, nil
}

// ImproveContent rewrites a stored post and re-derives its hashtags.
func (s *Service) ImproveContent(ctx context.Context, postID, instructions string) (*Improved, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, database.ErrPostNotFound
	}

	improved, err := s.llm.Improve(ctx, post.Content, post.Platform, instructions)
	if err != nil {
		return nil, err
	}

	keywords := nlp.ExtractKeywords(improved, improveHashtags)
	hashtags := make([]string, 0, len(keywords))
	for _, k := range keywords {
		hashtags = append(hashtags, "#"+removeSpaces(k.Word))
	}

	post.Content = improved
	post.Hashtags = hashtags
	if err := s.posts.UpdatePost(ctx, *post); err != nil {
		return nil, err
	}

	return &Improved{Post: post, Content: improved, Hashtags: hashtags}, nil
}

// Suggestions summarizes the 50 most engaging posts into posting hours and
// hashtags, and recommends the current top trends.
func (s *Service) Suggestions(ctx context.Context) (*Suggestions, error) {
	top, err := s.analytics.TopAnalyticsWithPosts(ctx, 50)
	if err != nil {
		return nil, err
	}

	type hourly struct{ total, count int }
	byHour := map[int]*hourly{}
	byTag := map[string]int{}
	var tagOrder []string

	for _, a := range top {
		if a.PublishedAt != nil {
			h := a.PublishedAt.In(time.Local).Hour()
			if byHour[h] == nil {
				byHour[h] = &hourly{}
			}
			byHour[h].total += a.Engagement
			byHour[h].count++
		}
		for _, tag := range a.Hashtags {
			if _, ok := byTag[tag]; !ok {
				tagOrder = append(tagOrder, tag)
			}
			byTag[tag] += a.Engagement
		}
	}

	times := make([]HourEngagement, 0, len(byHour))
	for h, v := range byHour {
		times = append(times, HourEngagement{Hour: h, Engagement: float64(v.total) / float64(v.count)})
	}
	slices.SortFunc(times, func(a, b HourEngagement) int {
		if a.Engagement != b.Engagement {
			if a.Engagement > b.Engagement {
				return -1
			}
			return 1
		}
		return a.Hour - b.Hour
	})
	if len(times) > 5 {
		times = times[:5]
	}

	slices.SortStableFunc(tagOrder, func(a, b string) int {
		return byTag[b] - byTag[a]
	})
	if len(tagOrder) > 10 {
		tagOrder = tagOrder[:10]
	}

	trends, err := s.trends.ListTopTrends(ctx, 10)
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(trends))
	for _, t := range trends {
		topics = append(topics, t.Keyword)
	}

	if tagOrder == nil {
		tagOrder = []string{}
	}
	return &Suggestions{BestPostingTimes: times, TopPerformingHashtags: tagOrder, RecommendedTopics: topics}, nil
}

// GenerateFromItems is the scheduled generation pass: when the posting policy
// allows it, the two best feed items become scheduled posts.
func (s *Service) GenerateFromItems(ctx context.Context) (RunResult, error) {
	now := s.Now()

	decision, err := s.gate.Check(ctx, now)
	if err != nil {
		return RunResult{}, err
	}
	if !decision.Allowed {
		slog.Info("Skipping content generation", "reason", decision.Reason)
		return RunResult{Success: true, Skipped: true, Reason: decision.Reason}, nil
	}

	items, err := s.items.TopItems(ctx, generationItems)
	if err != nil {
		return RunResult{}, err
	}
	if len(items) == 0 {
		slog.Info("No items to process from RSS feeds")
		return RunResult{Success: true}, nil
	}
	if len(items) > generationUsed {
		items = items[:generationUsed]
	}

	generated := 0
	for _, item := range items {
		at := policy.NextSlot(now, s.Rand)
		n, err := s.generateForItem(ctx, item, DefaultPlatforms, CreateOptions{
			SourceURL:    item.Link,
			Status:       database.StatusScheduled,
			ScheduledFor: &at,
		})
		if err != nil {
			if ctx.Err() != nil {
				return RunResult{}, ctx.Err()
			}
			slog.Error("Failed to generate content", "url", item.Link, "error", err)
			continue
		}
		generated += n
	}

	return RunResult{Success: true, ItemsProcessed: len(items), PostsGenerated: generated}, nil
}

// GenerateDrafts turns each item into DRAFT posts for platforms, skipping items that fail.
func (s *Service) GenerateDrafts(ctx context.Context, items []feed.ScoredItem, platforms []database.Platform) (int, error) {
	generated := 0
	for _, item := range items {
		n, err := s.generateForItem(ctx, item, platforms, CreateOptions{SourceURL: item.Link})
		if err != nil {
			if ctx.Err() != nil {
				return generated, ctx.Err()
			}
			slog.Error("Failed to generate content", "url", item.Link, "error", err)
			continue
		}
		generated += n
	}
	return generated, nil
}

func (s *Service) generateForItem(ctx context.Context, item feed.ScoredItem, platforms []database.Platform, create CreateOptions) (int, error) {
	results, err := s.GenerateFromURL(ctx, item.Link, Options{
		Platforms:       platforms,
		Tone:            "engaging",
		IncludeHashtags: true,
	})
	if err != nil {
		return 0, err
	}

	posts, err := s.CreatePosts(ctx, results, create)
	if err != nil {
		return 0, err
	}

	slog.Info("Posts generated", "count", len(posts), "title", item.Title)
	return len(posts), nil
}

// KeywordHashtags turns the first max keywords into hashtags, dropping any
// longer than 30 characters.
func KeywordHashtags(keywords []nlp.Keyword, max int) []string {
	if len(keywords) > max {
		keywords = keywords[:max]
	}

	tags := make([]string, 0, len(keywords))
	for _, k := range keywords {
		tag := "#" + removeSpaces(k.Word)
		if utf8.RuneCountInString(tag) <= maxHashtagLength {
			tags = append(tags, tag)
		}
	}
	return tags
}

// fitPlatform keeps tweets within one tweet, counting the appended hashtags.
func fitPlatform(g *llm.Generated) {
	if g.Platform == database.PlatformTwitter {
		g.Content, g.Hashtags = platform.FitTweet(g.Content, g.Hashtags)
	}
}

func maxHashtags(platform database.Platform, requested int) int {
	if requested > 0 {
		return requested
	}
	if platform == database.PlatformInstagram {
		return 15
	}
	return 5
}

func articleContext(article *extract.Article, tone string) string {
	var lines []string
	if article.Author != "" {
		lines = append(lines, "Author: "+article.Author)
	}
	if article.URL != "" {
		lines = append(lines, "Source: "+article.URL)
	}
	if tone != "" {
		lines = append(lines, "Tone: "+tone)
	}
	return strings.Join(lines, "\n")
}

func removeSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

