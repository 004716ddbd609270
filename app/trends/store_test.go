package trends

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/nlp"
)

func newTrendStore(t *testing.T) *database.TrendRepositoryImpl {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return database.NewTrendRepository(db)
}

func TestFromPostsDecaysStoredScore(t *testing.T) {
	ctx := context.Background()
	store := newTrendStore(t)

	content := "machine learning keeps improving"
	top := nlp.ExtractKeywords(content, nlp.DefaultKeywordLimit)[0]

	if err := store.UpsertTrend(ctx, top.Word, database.TrendSourceManual, 10, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	posts := &mockPosts{}
	for i := 0; i < 4; i++ {
		posts.posts = append(posts.posts, database.Post{Content: content})
	}
	a := NewAnalyzer(store, posts, &mockFeeds{})

	if _, n, err := a.FromPosts(ctx, time.Now().Add(-24*time.Hour)); err != nil || n != 4 {
		t.Fatalf("Expected 4 posts folded, got n=%d err=%v", n, err)
	}

	trend, err := store.GetTrend(ctx, top.Word)
	if err != nil || trend == nil {
		t.Fatalf("Expected stored trend, got %v %v", trend, err)
	}

	// half of the stored 10, plus one contribution per post
	want := 10*0.5 + 4*top.Score
	if math.Abs(trend.Score-want) > 1e-9 {
		t.Errorf("Expected score %v, got %v", want, trend.Score)
	}
	if top.Score == 1 && trend.Score != 9 {
		t.Errorf("Expected 10 plus a contribution of 4 to give 9, got %v", trend.Score)
	}
}

func TestCleanupRemovesWeekOldLowScores(t *testing.T) {
	ctx := context.Background()
	store := newTrendStore(t)
	a := NewAnalyzer(store, &mockPosts{}, &mockFeeds{})

	for keyword, score := range map[string]float64{"faded": 0.5, "steady": 1, "strong": 7} {
		if err := store.UpsertTrend(ctx, keyword, database.TrendSourceRSS, score, 0); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	removed, err := a.Cleanup(ctx, time.Now().Add(6*24*time.Hour))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected nothing removed within a week, got %d", removed)
	}

	removed, err = a.Cleanup(ctx, time.Now().Add(8*24*time.Hour))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected only the low score trend removed, got %d", removed)
	}

	if trend, _ := store.GetTrend(ctx, "faded"); trend != nil {
		t.Error("Expected trend below 1 to be removed")
	}
	for _, keyword := range []string{"steady", "strong"} {
		if trend, _ := store.GetTrend(ctx, keyword); trend == nil {
			t.Errorf("Expected %s to survive, score is not below 1", keyword)
		}
	}
}
