package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lysyi3m/social-comb/app/database"
)

const requestTimeout = 30 * time.Second

var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUnconfigured  = errors.New("platform is not configured")
	ErrMediaRequired = errors.New("Instagram posts require an image")
	ErrActionBlocked = errors.New("Action blocked. Please wait.")
)

type Content struct {
	Text     string
	MediaURL string
	Hashtags []string
}

type Result struct {
	PostID string `json:"postId"`
	URL    string `json:"url,omitempty"`
}

type Metrics struct {
	Likes    int `json:"likes"`
	Shares   int `json:"shares"`
	Comments int `json:"comments"`
	Views    int `json:"views"`
	Clicks   int `json:"clicks"`
}

// Client publishes to one social network.
type Client interface {
	Name() database.Platform
	Publish(ctx context.Context, content Content) (Result, error)
	FetchAnalytics(ctx context.Context, postID string) (Metrics, error)
}

func newRestClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")
}

// checkResponse turns rate limiting and non-2xx answers into errors.
func checkResponse(name database.Platform, resp *resty.Response) error {
	if resp.StatusCode() == 429 {
		return fmt.Errorf("%s: %w", name.Lower(), ErrRateLimited)
	}
	if resp.IsError() {
		body := strings.TrimSpace(resp.String())
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("%s API error: HTTP %d: %s", name.Lower(), resp.StatusCode(), body)
	}
	return nil
}

func joinHashtags(text string, hashtags []string) string {
	if len(hashtags) == 0 {
		return text
	}
	return text + "\n\n" + strings.Join(hashtags, " ")
}
