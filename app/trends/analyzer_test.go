package trends

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/feed"
	"github.com/lysyi3m/social-comb/app/nlp"
)

type upsert struct {
	keyword string
	source  database.TrendSource
	score   float64
	keep    float64
}

type mockTrends struct {
	database.TrendRepository
	upserts     []upsert
	staleBefore time.Time
	staleFloor  float64
}

func (m *mockTrends) UpsertTrend(ctx context.Context, keyword string, source database.TrendSource, score float64, keep float64) error {
	m.upserts = append(m.upserts, upsert{keyword, source, score, keep})
	return nil
}

func (m *mockTrends) DeleteStaleTrends(ctx context.Context, before time.Time, floor float64) (int64, error) {
	m.staleBefore = before
	m.staleFloor = floor
	return 2, nil
}

type mockPosts struct {
	posts []database.Post
	since time.Time
}

func (m *mockPosts) ListCreatedSince(ctx context.Context, since time.Time) ([]database.Post, error) {
	m.since = since
	return m.posts, nil
}

type mockFeeds struct {
	items []feed.ScoredItem
	calls int
}

func (m *mockFeeds) FetchAllFeeds(ctx context.Context) ([]feed.ScoredItem, error) {
	m.calls++
	return m.items, nil
}

func scored(relevance float64, keywords ...nlp.Keyword) feed.ScoredItem {
	return feed.ScoredItem{Keywords: keywords, RelevanceScore: relevance}
}

func TestFromItems(t *testing.T) {
	repo := &mockTrends{}
	a := NewAnalyzer(repo, &mockPosts{}, &mockFeeds{})

	items := []feed.ScoredItem{
		scored(2, nlp.Keyword{Word: "golang", Score: 3}, nlp.Keyword{Word: "cloud", Score: 1}),
		scored(1, nlp.Keyword{Word: "golang", Score: 2}),
	}

	n, err := a.FromItems(context.Background(), items)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 keywords, got %d", n)
	}

	// golang: (3*2 + 2*1) / 2
	got := repo.upserts[0]
	if got.keyword != "golang" || got.score != 4 || got.keep != 0 || got.source != database.TrendSourceRSS {
		t.Errorf("Unexpected golang upsert %+v", got)
	}
	if repo.upserts[1].score != 2 {
		t.Errorf("Expected cloud score 2, got %v", repo.upserts[1].score)
	}
}

func TestFromPostsFoldsScores(t *testing.T) {
	repo := &mockTrends{}
	posts := &mockPosts{posts: []database.Post{
		{Content: "Kubernetes operators automate cluster upgrades"},
		{Content: "Kubernetes operators reduce toil"},
	}}
	a := NewAnalyzer(repo, posts, &mockFeeds{})

	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	keywords, n, err := a.FromPosts(context.Background(), since)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 posts analyzed, got %d", n)
	}
	if keywords != len(repo.upserts) || keywords == 0 {
		t.Errorf("Expected one upsert per keyword, got %d keywords and %d upserts", keywords, len(repo.upserts))
	}
	if !posts.since.Equal(since) {
		t.Errorf("Expected since %v, got %v", since, posts.since)
	}
	for _, u := range repo.upserts {
		if u.keep != 0.5 || u.source != database.TrendSourceContent {
			t.Errorf("Unexpected content upsert %+v", u)
		}
	}
}

func TestAnalyzeContent(t *testing.T) {
	repo := &mockTrends{}
	a := NewAnalyzer(repo, &mockPosts{}, &mockFeeds{})

	terms, err := a.AnalyzeContent(context.Background(), "serverless serverless functions scale to zero")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(terms) == 0 || terms[0].Term != "serverless" {
		t.Fatalf("Expected serverless as top term, got %v", terms)
	}
	if len(repo.upserts) != len(terms) {
		t.Errorf("Expected %d upserts, got %d", len(terms), len(repo.upserts))
	}
	for _, term := range terms {
		if len(term.Term) <= 3 {
			t.Errorf("Expected short terms excluded, got %q", term.Term)
		}
	}
}

func TestAnalyze(t *testing.T) {
	repo := &mockTrends{}
	feeds := &mockFeeds{items: []feed.ScoredItem{scored(1, nlp.Keyword{Word: "rust", Score: 1})}}
	posts := &mockPosts{}
	a := NewAnalyzer(repo, posts, feeds)
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	res, err := a.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !res.Success || res.FeedKeywords != 1 || res.Removed != 2 {
		t.Errorf("Unexpected result %+v", res)
	}
	if feeds.calls != 1 {
		t.Errorf("Expected one feed fetch, got %d", feeds.calls)
	}
	if !posts.since.Equal(now.Add(-24 * time.Hour)) {
		t.Errorf("Expected posts since 24h ago, got %v", posts.since)
	}
	if !repo.staleBefore.Equal(now.Add(-7*24*time.Hour)) || math.Abs(repo.staleFloor-1) > 1e-9 {
		t.Errorf("Unexpected cleanup bounds %v %v", repo.staleBefore, repo.staleFloor)
	}
}
