package dedup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
)

type mockPostLister struct {
	posts []database.Post
	since time.Time
	err   error
}

func (m *mockPostLister) ListCreatedSince(ctx context.Context, since time.Time) ([]database.Post, error) {
	m.since = since
	return m.posts, m.err
}

func TestFilterCheck(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lister := &mockPostLister{posts: []database.Post{
		{ID: "p1", Title: "Go 1.24 released", Content: "The Go team shipped generic type aliases"},
	}}

	filter := NewFilter(lister)
	filter.Now = func() time.Time { return now }

	err := filter.Check(context.Background(), "Go 1.24 released", "The Go team shipped generic type aliases")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
	if !lister.since.Equal(now.Add(-7 * 24 * time.Hour)) {
		t.Errorf("Expected 7 day window, got since %v", lister.since)
	}

	if err := filter.Check(context.Background(), "Kubernetes 1.30", "Sidecar containers graduate to stable"); err != nil {
		t.Errorf("Expected unrelated content to pass, got %v", err)
	}
}

func TestFilterCheckPropagatesErrors(t *testing.T) {
	filter := NewFilter(&mockPostLister{err: errors.New("db down")})

	err := filter.Check(context.Background(), "a", "b")
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected storage error, got %v", err)
	}
}

func TestIsDuplicateThresholdIsStrict(t *testing.T) {
	// "night" vs "nacht" scores exactly 0.25
	if IsDuplicate("night", []string{"nacht"}, 0.25) {
		t.Error("Expected similarity equal to threshold to pass")
	}
	if !IsDuplicate("night", []string{"nacht"}, 0.2) {
		t.Error("Expected similarity above threshold to be a duplicate")
	}
	if IsDuplicate("anything", nil, 0.7) {
		t.Error("Expected no duplicate against empty history")
	}
}

func TestFilterCheckMatchesTitleAlone(t *testing.T) {
	lister := &mockPostLister{posts: []database.Post{{
		ID:      "p1",
		Title:   "OpenAI announces major breakthrough in reasoning models",
		Content: strings.Repeat("A long post body about compute budgets and benchmark results. ", 5),
	}}}
	filter := NewFilter(lister)

	err := filter.Check(context.Background(), "OpenAI announces major breakthrough in reasoning model", "Researchers describe a step change.")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for a near-identical title, got %v", err)
	}

	lister.posts[0].Title = ""
	if err := filter.Check(context.Background(), "OpenAI announces major breakthrough in reasoning model", "Researchers describe a step change."); err != nil {
		t.Errorf("Expected untitled post to be compared on full text only, got %v", err)
	}
}
