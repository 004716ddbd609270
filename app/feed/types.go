package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/social-comb/app/nlp"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Language    string
}

type Item struct {
	ID          string // the item link, without tracking parameters
	Title       string
	Link        string
	RawText     string // content snippet, or the stripped content when the feed has no snippet
	PublishedAt *time.Time
	Authors     []string
	Categories  []string
}

type ScoredItem struct {
	Item
	FeedID         string        `json:"feedId"`
	Keywords       []nlp.Keyword `json:"keywords"`
	RelevanceScore float64       `json:"relevanceScore"`
	Sentiment      nlp.Sentiment `json:"sentiment"`
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]Item, *Metadata, error)
}

// FetchError reports a network failure or a non-200 response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch feed %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Seed file types

type Seed struct {
	Feeds []SeedFeed `yaml:"feeds"`
}

type SeedFeed struct {
	URL      string   `yaml:"url"`
	Title    string   `yaml:"title"`
	Category string   `yaml:"category"`
	Active   *bool    `yaml:"active"`
	Filters  []Filter `yaml:"filters"`
}

type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
