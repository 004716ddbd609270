package content

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/dedup"
	"github.com/lysyi3m/social-comb/app/extract"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/llm"
	"github.com/lysyi3m/social-comb/app/nlp"
	"github.com/lysyi3m/social-comb/app/policy"
)

type mockExtractor struct {
	articles map[string]*extract.Article
}

func (m *mockExtractor) Extract(ctx context.Context, url string) (*extract.Article, error) {
	return m.articles[url], nil
}

type generateCall struct {
	topic       string
	platform    database.Platform
	contextText string
}

type mockGenerator struct {
	calls   []generateCall
	improve string
}

func (m *mockGenerator) Generate(ctx context.Context, topic string, platform database.Platform, contextText string) llm.Generated {
	m.calls = append(m.calls, generateCall{topic, platform, contextText})
	return llm.Generated{Content: "post for " + platform.Lower(), Hashtags: []string{"#fromModel"}, Platform: platform}
}

func (m *mockGenerator) Improve(ctx context.Context, content string, platform database.Platform, instructions string) (string, error) {
	return m.improve, nil
}

type mockDedup struct {
	err error
}

func (m *mockDedup) Check(ctx context.Context, title, description string) error {
	return m.err
}

type mockItems struct {
	items []feed.ScoredItem
	asked int
}

func (m *mockItems) TopItems(ctx context.Context, n int) ([]feed.ScoredItem, error) {
	m.asked = n
	return m.items, nil
}

type mockGate struct {
	decision policy.Decision
}

func (m *mockGate) Check(ctx context.Context, now time.Time) (policy.Decision, error) {
	return m.decision, nil
}

type mockPosts struct {
	database.PostRepository
	created []database.Post
	stored  map[string]*database.Post
	updated []database.Post
}

func (m *mockPosts) CreatePost(ctx context.Context, post database.Post) (*database.Post, error) {
	post.ID = "post-" + string(rune('a'+len(m.created)))
	m.created = append(m.created, post)
	return &post, nil
}

func (m *mockPosts) GetPost(ctx context.Context, id string) (*database.Post, error) {
	return m.stored[id], nil
}

func (m *mockPosts) UpdatePost(ctx context.Context, post database.Post) error {
	m.updated = append(m.updated, post)
	return nil
}

type mockTrends struct {
	database.TrendRepository
	trends []database.Trend
}

func (m *mockTrends) ListTopTrends(ctx context.Context, limit int) ([]database.Trend, error) {
	if len(m.trends) > limit {
		return m.trends[:limit], nil
	}
	return m.trends, nil
}

type mockAnalytics struct {
	database.AnalyticsRepository
	top []database.AnalyticsWithPost
}

func (m *mockAnalytics) TopAnalyticsWithPosts(ctx context.Context, limit int) ([]database.AnalyticsWithPost, error) {
	return m.top, nil
}

type fixture struct {
	svc       *Service
	extractor *mockExtractor
	gen       *mockGenerator
	dedup     *mockDedup
	posts     *mockPosts
	trends    *mockTrends
	analytics *mockAnalytics
	items     *mockItems
	gate      *mockGate
}

func newFixture() *fixture {
	f := &fixture{
		extractor: &mockExtractor{articles: map[string]*extract.Article{}},
		gen:       &mockGenerator{},
		dedup:     &mockDedup{},
		posts:     &mockPosts{stored: map[string]*database.Post{}},
		trends:    &mockTrends{},
		analytics: &mockAnalytics{},
		items:     &mockItems{},
		gate:      &mockGate{decision: policy.Decision{Allowed: true}},
	}
	f.svc = NewService(f.extractor, f.gen, f.dedup, f.posts, f.trends, f.analytics, f.items, f.gate)
	f.svc.Now = func() time.Time { return time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) }
	return f
}

func testArticle(url string) *extract.Article {
	return &extract.Article{
		URL:         url,
		Title:       "Go 1.24 released",
		Description: "The Go team ships a new release",
		Content:     "Go 1.24 brings generic type aliases and faster maps to the Go toolchain.",
		Author:      "Go Team",
		Image:       "https://example.com/cover.png",
	}
}

func TestGenerateFromURLExtractionFailed(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GenerateFromURL(context.Background(), "https://example.com/missing", Options{})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("Expected ErrExtractionFailed, got %v", err)
	}
	if len(f.gen.calls) != 0 {
		t.Errorf("Expected no generation, got %d calls", len(f.gen.calls))
	}
}

func TestGenerateFromURLDuplicate(t *testing.T) {
	f := newFixture()
	f.extractor.articles["https://example.com/a"] = testArticle("https://example.com/a")
	f.dedup.err = dedup.ErrDuplicate

	_, err := f.svc.GenerateFromURL(context.Background(), "https://example.com/a", Options{})
	if !errors.Is(err, dedup.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestGenerateFromURL(t *testing.T) {
	f := newFixture()
	url := "https://example.com/a"
	f.extractor.articles[url] = testArticle(url)

	results, err := f.svc.GenerateFromURL(context.Background(), url, Options{Tone: "engaging"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected results for default platforms, got %d", len(results))
	}
	if results[0].Platform != database.PlatformTwitter || results[1].Platform != database.PlatformLinkedIn {
		t.Errorf("Unexpected platforms %s, %s", results[0].Platform, results[1].Platform)
	}
	for _, r := range results {
		if len(r.Hashtags) != 0 {
			t.Errorf("Expected no hashtags without IncludeHashtags, got %v", r.Hashtags)
		}
		if r.MediaURL != "https://example.com/cover.png" {
			t.Errorf("Expected article image as media, got %q", r.MediaURL)
		}
	}

	call := f.gen.calls[0]
	if !strings.HasPrefix(call.topic, "Go 1.24 released The Go team ships") {
		t.Errorf("Unexpected topic %q", call.topic)
	}
	if call.contextText != "Author: Go Team\nSource: "+url+"\nTone: engaging" {
		t.Errorf("Unexpected context %q", call.contextText)
	}
}

func TestKeywordHashtags(t *testing.T) {
	keywords := []nlp.Keyword{
		{Word: "generic type aliases"},
		{Word: "go"},
		{Word: "an extremely long keyword phrase that overflows"},
		{Word: "maps"},
	}

	got := KeywordHashtags(keywords, 3)
	want := []string{"#generictypealiases", "#go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if n := maxHashtags(database.PlatformInstagram, 0); n != 15 {
		t.Errorf("Expected 15 instagram hashtags, got %d", n)
	}
	if n := maxHashtags(database.PlatformTwitter, 0); n != 5 {
		t.Errorf("Expected 5 hashtags, got %d", n)
	}
	if n := maxHashtags(database.PlatformTwitter, 8); n != 8 {
		t.Errorf("Expected requested 8 hashtags, got %d", n)
	}
}

func TestCreatePostsDefaultsToDraft(t *testing.T) {
	f := newFixture()
	generated := []llm.Generated{
		{Content: "a", Platform: database.PlatformTwitter},
		{Content: "b", Platform: database.PlatformLinkedIn},
	}

	posts, err := f.svc.CreatePosts(context.Background(), generated, CreateOptions{SourceURL: "https://example.com"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}
	for _, p := range f.posts.created {
		if p.Status != database.StatusDraft || p.SourceURL != "https://example.com" {
			t.Errorf("Unexpected stored post %+v", p)
		}
	}
}

func TestGenerateFromTrends(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.GenerateFromTrends(context.Background(), nil, 0); !errors.Is(err, ErrNoTrends) {
		t.Errorf("Expected ErrNoTrends, got %v", err)
	}

	f.trends.trends = []database.Trend{{Keyword: "machine learning"}, {Keyword: "rust"}, {Keyword: "go"}, {Keyword: "wasm"}}

	results, err := f.svc.GenerateFromTrends(context.Background(), []database.Platform{database.PlatformInstagram}, 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected one result, got %d", len(results))
	}
	if f.gen.calls[0].topic != "Trending topics: machine learning, rust, go" {
		t.Errorf("Unexpected topic %q", f.gen.calls[0].topic)
	}
	want := []string{"#machinelearning", "#rust", "#go"}
	if !reflect.DeepEqual(results[0].Hashtags, want) {
		t.Errorf("Expected %v, got %v", want, results[0].Hashtags)
	}
}

func TestGenerateFromItemsSkipped(t *testing.T) {
	f := newFixture()
	f.gate.decision = policy.Decision{Reason: policy.ReasonDailyLimit}

	res, err := f.svc.GenerateFromItems(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.Success || !res.Skipped || res.Reason != policy.ReasonDailyLimit {
		t.Errorf("Unexpected result %+v", res)
	}
	if f.items.asked != 0 {
		t.Error("Expected no feed lookup when skipped")
	}
}

func TestGenerateFromItems(t *testing.T) {
	f := newFixture()
	for _, url := range []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"} {
		f.extractor.articles[url] = testArticle(url)
		f.items.items = append(f.items.items, feed.ScoredItem{Item: feed.Item{Title: url, Link: url}})
	}
	f.extractor.articles["https://example.com/2"] = nil

	res, err := f.svc.GenerateFromItems(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if f.items.asked != 3 {
		t.Errorf("Expected top 3 items requested, got %d", f.items.asked)
	}
	if res.ItemsProcessed != 2 || res.PostsGenerated != 2 {
		t.Errorf("Expected 2 items processed and 2 posts, got %+v", res)
	}

	now := f.svc.Now()
	for _, p := range f.posts.created {
		if p.Status != database.StatusScheduled {
			t.Errorf("Expected scheduled post, got %s", p.Status)
		}
		if p.ScheduledFor == nil {
			t.Fatal("Expected schedule time")
		}
		if d := p.ScheduledFor.Sub(now); d < time.Hour || d > 4*time.Hour {
			t.Errorf("Expected schedule 1-4h ahead, got %v", d)
		}
		if len(p.Hashtags) == 0 || p.Hashtags[0] == "#fromModel" {
			t.Errorf("Expected keyword hashtags, got %v", p.Hashtags)
		}
	}
}

func TestImproveContent(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.ImproveContent(context.Background(), "nope", ""); !errors.Is(err, database.ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}

	f.posts.stored["p1"] = &database.Post{ID: "p1", Content: "old", Platform: database.PlatformTwitter}
	f.gen.improve = "Kubernetes operators simplify cluster automation for platform teams"

	res, err := f.svc.ImproveContent(context.Background(), "p1", "shorter")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(f.posts.updated) != 1 || f.posts.updated[0].Content != f.gen.improve {
		t.Errorf("Expected improved content persisted, got %+v", f.posts.updated)
	}
	if len(res.Hashtags) == 0 || len(res.Hashtags) > 10 {
		t.Errorf("Expected 1-10 hashtags, got %v", res.Hashtags)
	}
	for _, tag := range res.Hashtags {
		if !strings.HasPrefix(tag, "#") || strings.Contains(tag, " ") {
			t.Errorf("Malformed hashtag %q", tag)
		}
	}
}

func TestSuggestions(t *testing.T) {
	f := newFixture()
	at := func(hour int) *time.Time {
		ts := time.Date(2025, 6, 2, hour, 0, 0, 0, time.Local)
		return &ts
	}
	f.analytics.top = []database.AnalyticsWithPost{
		{Analytics: database.Analytics{Engagement: 100}, PublishedAt: at(9), Hashtags: []string{"#go", "#cloud"}},
		{Analytics: database.Analytics{Engagement: 50}, PublishedAt: at(9), Hashtags: []string{"#cloud"}},
		{Analytics: database.Analytics{Engagement: 90}, PublishedAt: at(18), Hashtags: []string{"#rust"}},
		{Analytics: database.Analytics{Engagement: 10}},
	}
	f.trends.trends = []database.Trend{{Keyword: "ai"}, {Keyword: "edge"}}

	s, err := f.svc.Suggestions(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	wantTimes := []HourEngagement{{Hour: 18, Engagement: 90}, {Hour: 9, Engagement: 75}}
	if !reflect.DeepEqual(s.BestPostingTimes, wantTimes) {
		t.Errorf("Expected %v, got %v", wantTimes, s.BestPostingTimes)
	}
	wantTags := []string{"#cloud", "#go", "#rust"}
	if !reflect.DeepEqual(s.TopPerformingHashtags, wantTags) {
		t.Errorf("Expected %v, got %v", wantTags, s.TopPerformingHashtags)
	}
	if !reflect.DeepEqual(s.RecommendedTopics, []string{"ai", "edge"}) {
		t.Errorf("Unexpected topics %v", s.RecommendedTopics)
	}
}
