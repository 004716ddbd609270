package platform

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/lysyi3m/social-comb/app/database"
)

const (
	TwitterBaseURL = "https://api.twitter.com/2"
	tweetLimit     = 280
	ellipsis       = "..."
)

type Twitter struct {
	client *resty.Client
}

type tweetResponse struct {
	Data struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		PublicMetrics struct {
			LikeCount       int `json:"like_count"`
			RetweetCount    int `json:"retweet_count"`
			ReplyCount      int `json:"reply_count"`
			ImpressionCount int `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

func NewTwitter(bearerToken, baseURL string) *Twitter {
	if baseURL == "" {
		baseURL = TwitterBaseURL
	}
	return &Twitter{client: newRestClient(baseURL).SetAuthToken(bearerToken)}
}

func (t *Twitter) Name() database.Platform {
	return database.PlatformTwitter
}

func (t *Twitter) Publish(ctx context.Context, content Content) (Result, error) {
	var body tweetResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": FormatTweet(content.Text, content.Hashtags)}).
		SetResult(&body).
		Post("/tweets")
	if err != nil {
		return Result{}, fmt.Errorf("failed to publish tweet: %w", err)
	}
	if err := checkResponse(t.Name(), resp); err != nil {
		return Result{}, err
	}
	if body.Data.ID == "" {
		return Result{}, fmt.Errorf("twitter returned no tweet id")
	}

	return Result{PostID: body.Data.ID, URL: "https://twitter.com/i/web/status/" + body.Data.ID}, nil
}

func (t *Twitter) FetchAnalytics(ctx context.Context, postID string) (Metrics, error) {
	var body tweetResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetPathParam("id", postID).
		SetQueryParam("tweet.fields", "public_metrics").
		SetResult(&body).
		Get("/tweets/{id}")
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to fetch tweet metrics: %w", err)
	}
	if err := checkResponse(t.Name(), resp); err != nil {
		return Metrics{}, err
	}

	m := body.Data.PublicMetrics
	return Metrics{
		Likes:    m.LikeCount,
		Shares:   m.RetweetCount,
		Comments: m.ReplyCount,
		Views:    m.ImpressionCount,
	}, nil
}

// FormatTweet shortens text so that it fits in one tweet together with the
// hashtags appended after a blank line.
func FormatTweet(text string, hashtags []string) string {
	return joinHashtags(FitTweet(text, hashtags))
}

// FitTweet returns text and hashtags trimmed to one tweet. Trailing hashtags
// are dropped while they leave no room for text, then text is cut with "...".
func FitTweet(text string, hashtags []string) (string, []string) {
	tagsLen := func(tags []string) int {
		if len(tags) == 0 {
			return 0
		}
		return utf8.RuneCountInString(strings.Join(tags, " ")) + 2
	}

	for len(hashtags) > 0 && tagsLen(hashtags) > tweetLimit-len(ellipsis)-1 {
		hashtags = hashtags[:len(hashtags)-1]
	}

	max := tweetLimit - tagsLen(hashtags)
	if utf8.RuneCountInString(text) > max {
		text = string([]rune(text)[:max-len(ellipsis)]) + ellipsis
	}

	return text, hashtags
}
