package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/nlp"
)

var ErrDuplicate = errors.New("similar content already exists")

const (
	DefaultWindow    = 7 * 24 * time.Hour
	DefaultThreshold = 0.7
)

type PostLister interface {
	ListCreatedSince(ctx context.Context, since time.Time) ([]database.Post, error)
}

// Filter rejects candidate content that is too similar to a recent post.
type Filter struct {
	Posts     PostLister
	Window    time.Duration
	Threshold float64
	Now       func() time.Time
}

func NewFilter(posts PostLister) *Filter {
	return &Filter{
		Posts:     posts,
		Window:    DefaultWindow,
		Threshold: DefaultThreshold,
		Now:       time.Now,
	}
}

// Check returns ErrDuplicate when a post created within the window has a title
// above the similarity threshold against title, or when title and description
// together exceed it against the post's title and content.
func (f *Filter) Check(ctx context.Context, title, description string) error {
	posts, err := f.Posts.ListCreatedSince(ctx, f.Now().Add(-f.Window))
	if err != nil {
		return fmt.Errorf("failed to load recent posts: %w", err)
	}

	candidate := title + " " + description
	for _, p := range posts {
		sameTitle := title != "" && p.Title != "" && nlp.CalculateSimilarity(title, p.Title) > f.Threshold
		if sameTitle || nlp.CalculateSimilarity(candidate, p.Title+" "+p.Content) > f.Threshold {
			slog.Info("Duplicate content detected", "title", title, "post", p.ID)
			return ErrDuplicate
		}
	}
	return nil
}

// IsDuplicate reports whether candidate is strictly more similar than threshold
// to any of existing.
func IsDuplicate(candidate string, existing []string, threshold float64) bool {
	return IndexOfDuplicate(candidate, existing, threshold) >= 0
}

func IndexOfDuplicate(candidate string, existing []string, threshold float64) int {
	for i, text := range existing {
		if nlp.CalculateSimilarity(candidate, text) > threshold {
			return i
		}
	}
	return -1
}
