package platform

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/lysyi3m/social-comb/app/database"
)

const LinkedInBaseURL = "https://api.linkedin.com"

type LinkedIn struct {
	client *resty.Client

	mu       sync.Mutex
	personID string
}

type linkedInProfile struct {
	ID                 string `json:"id"`
	LocalizedFirstName string `json:"localizedFirstName"`
}

type ugcPost struct {
	Author          string            `json:"author"`
	LifecycleState  string            `json:"lifecycleState"`
	SpecificContent map[string]any    `json:"specificContent"`
	Visibility      map[string]string `json:"visibility"`
}

type socialActions struct {
	LikesSummary struct {
		TotalLikes int `json:"totalLikes"`
	} `json:"likesSummary"`
	CommentsSummary struct {
		AggregatedTotalComments int `json:"aggregatedTotalComments"`
	} `json:"commentsSummary"`
}

func NewLinkedIn(accessToken, baseURL string) *LinkedIn {
	if baseURL == "" {
		baseURL = LinkedInBaseURL
	}
	return &LinkedIn{
		client: newRestClient(baseURL).
			SetAuthToken(accessToken).
			SetHeader("X-Restli-Protocol-Version", "2.0.0"),
	}
}

func (l *LinkedIn) Name() database.Platform {
	return database.PlatformLinkedIn
}

// person returns the member id behind the access token. It is looked up once.
func (l *LinkedIn) person(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.personID != "" {
		return l.personID, nil
	}

	var profile linkedInProfile
	resp, err := l.client.R().SetContext(ctx).SetResult(&profile).Get("/v2/me")
	if err != nil {
		return "", fmt.Errorf("failed to load linkedin profile: %w", err)
	}
	if err := checkResponse(l.Name(), resp); err != nil {
		return "", err
	}
	if profile.ID == "" {
		return "", fmt.Errorf("linkedin profile has no id")
	}

	l.personID = profile.ID
	return l.personID, nil
}

func (l *LinkedIn) Publish(ctx context.Context, content Content) (Result, error) {
	personID, err := l.person(ctx)
	if err != nil {
		return Result{}, err
	}

	post := ugcPost{
		Author:         "urn:li:person:" + personID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": joinHashtags(content.Text, content.Hashtags)},
				"shareMediaCategory": "NONE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var body struct {
		ID string `json:"id"`
	}
	resp, err := l.client.R().SetContext(ctx).SetBody(post).SetResult(&body).Post("/v2/ugcPosts")
	if err != nil {
		return Result{}, fmt.Errorf("failed to publish to linkedin: %w", err)
	}
	if err := checkResponse(l.Name(), resp); err != nil {
		return Result{}, err
	}

	id := body.ID
	if id == "" {
		id = resp.Header().Get("X-RestLi-Id")
	}
	if id == "" {
		return Result{}, fmt.Errorf("linkedin returned no post id")
	}

	return Result{PostID: id, URL: "https://www.linkedin.com/feed/update/" + id}, nil
}

func (l *LinkedIn) FetchAnalytics(ctx context.Context, postID string) (Metrics, error) {
	var body socialActions
	resp, err := l.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/v2/socialActions/" + url.PathEscape(postID))
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to fetch linkedin metrics: %w", err)
	}
	if err := checkResponse(l.Name(), resp); err != nil {
		return Metrics{}, err
	}

	return Metrics{
		Likes:    body.LikesSummary.TotalLikes,
		Comments: body.CommentsSummary.AggregatedTotalComments,
	}, nil
}
