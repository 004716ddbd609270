package database

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrFeedNotFound  = errors.New("feed not found")
	ErrFeedExists    = errors.New("feed with this URL already exists")
	ErrTrendNotFound = errors.New("trend not found")
)

type Platform string

const (
	PlatformTwitter   Platform = "TWITTER"
	PlatformLinkedIn  Platform = "LINKEDIN"
	PlatformInstagram Platform = "INSTAGRAM"
)

var Platforms = []Platform{PlatformTwitter, PlatformLinkedIn, PlatformInstagram}

// ParsePlatform accepts any letter case ("twitter", "Twitter", "TWITTER").
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PlatformTwitter, PlatformLinkedIn, PlatformInstagram:
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform: %s", s)
}

func (p Platform) Lower() string {
	return strings.ToLower(string(p))
}

type PostStatus string

const (
	StatusDraft      PostStatus = "DRAFT"
	StatusScheduled  PostStatus = "SCHEDULED"
	StatusPublishing PostStatus = "PUBLISHING"
	StatusPublished  PostStatus = "PUBLISHED"
	StatusFailed     PostStatus = "FAILED"
)

func ParseStatus(s string) (PostStatus, error) {
	st := PostStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusDraft, StatusScheduled, StatusPublishing, StatusPublished, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unsupported post status: %s", s)
}

type TrendSource string

const (
	TrendSourceRSS     TrendSource = "rss"
	TrendSourceContent TrendSource = "content"
	TrendSourceManual  TrendSource = "manual"
)

type Feed struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	IsActive      bool       `json:"isActive"`
	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Post struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Platform       Platform   `json:"platform"`
	Status         PostStatus `json:"status"`
	Hashtags       []string   `json:"hashtags"`
	MediaURL       string     `json:"mediaUrl,omitempty"`
	SourceURL      string     `json:"sourceUrl,omitempty"`
	ScheduledFor   *time.Time `json:"scheduledFor,omitempty"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	PlatformPostID string     `json:"platformPostId,omitempty"`
	Error          string     `json:"error,omitempty"`
	Attempts       int        `json:"attempts"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type PostFilter struct {
	Status   PostStatus
	Platform Platform
	Limit    int
	Offset   int
}

type Trend struct {
	ID        string      `json:"id"`
	Keyword   string      `json:"keyword"`
	Score     float64     `json:"score"`
	Source    TrendSource `json:"source"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

type Analytics struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	Platform   Platform  `json:"platform"`
	Likes      int       `json:"likes"`
	Shares     int       `json:"shares"`
	Comments   int       `json:"comments"`
	Views      int       `json:"views"`
	Clicks     int       `json:"clicks"`
	Engagement int       `json:"engagement"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// AnalyticsWithPost joins a post's engagement with the fields used for recommendations.
type AnalyticsWithPost struct {
	Analytics
	PublishedAt *time.Time
	Hashtags    []string
}

type PlatformSummary struct {
	Platform   Platform `json:"platform"`
	Posts      int      `json:"posts"`
	Likes      int      `json:"likes"`
	Shares     int      `json:"shares"`
	Comments   int      `json:"comments"`
	Views      int      `json:"views"`
	Engagement int      `json:"engagement"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
