package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/lysyi3m/social-comb/app/database"
)

// Instagram drives the private mobile API with a username and password
// session. The session cookie lives in the resty cookie jar.
type Instagram struct {
	client   *resty.Client
	username string
	password string

	mu       sync.Mutex
	loggedIn bool
}

type instagramStatus struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	Spam             bool   `json:"spam"`
	FeedbackRequired bool   `json:"feedback_required"`
}

func (s instagramStatus) blocked() bool {
	return s.Spam || s.FeedbackRequired || s.Message == "feedback_required"
}

type instagramMedia struct {
	instagramStatus
	Media struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	} `json:"media"`
}

type instagramMediaInfo struct {
	Items []struct {
		LikeCount    int `json:"like_count"`
		CommentCount int `json:"comment_count"`
		PlayCount    int `json:"play_count"`
	} `json:"items"`
}

func NewInstagram(username, password, baseURL string) *Instagram {
	return &Instagram{
		client:   newRestClient(baseURL).SetHeader("Content-Type", "application/x-www-form-urlencoded"),
		username: username,
		password: password,
	}
}

func (i *Instagram) Name() database.Platform {
	return database.PlatformInstagram
}

func (i *Instagram) login(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.loggedIn {
		return nil
	}

	var body instagramStatus
	resp, err := i.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"username": i.username, "password": i.password}).
		SetResult(&body).
		SetError(&body).
		Post("/accounts/login/")
	if err != nil {
		return fmt.Errorf("failed to log in to instagram: %w", err)
	}
	if err := checkResponse(i.Name(), resp); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("instagram login rejected: %s", body.Message)
	}

	i.loggedIn = true
	slog.Info("Instagram logged in", "username", i.username)
	return nil
}

func (i *Instagram) Publish(ctx context.Context, content Content) (Result, error) {
	if content.MediaURL == "" {
		return Result{}, ErrMediaRequired
	}

	if err := i.login(ctx); err != nil {
		return Result{}, err
	}

	var body instagramMedia
	resp, err := i.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"image_url": content.MediaURL,
			"caption":   joinHashtags(content.Text, content.Hashtags),
		}).
		SetResult(&body).
		SetError(&body).
		Post("/media/configure/")
	if err != nil {
		return Result{}, fmt.Errorf("failed to publish to instagram: %w", err)
	}
	if body.blocked() {
		return Result{}, ErrActionBlocked
	}
	if resp.StatusCode() == 403 || strings.Contains(body.Message, "login_required") {
		i.mu.Lock()
		i.loggedIn = false
		i.mu.Unlock()
	}
	if err := checkResponse(i.Name(), resp); err != nil {
		return Result{}, err
	}
	if body.Media.ID == "" {
		return Result{}, fmt.Errorf("instagram returned no media id")
	}

	result := Result{PostID: body.Media.ID}
	if body.Media.Code != "" {
		result.URL = "https://www.instagram.com/p/" + body.Media.Code + "/"
	}
	return result, nil
}

func (i *Instagram) FetchAnalytics(ctx context.Context, postID string) (Metrics, error) {
	if err := i.login(ctx); err != nil {
		return Metrics{}, err
	}

	var body instagramMediaInfo
	resp, err := i.client.R().
		SetContext(ctx).
		SetPathParam("id", postID).
		SetResult(&body).
		Get("/media/{id}/info/")
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to fetch instagram metrics: %w", err)
	}
	if err := checkResponse(i.Name(), resp); err != nil {
		return Metrics{}, err
	}
	if len(body.Items) == 0 {
		return Metrics{}, fmt.Errorf("instagram media %s not found", postID)
	}

	item := body.Items[0]
	return Metrics{Likes: item.LikeCount, Comments: item.CommentCount, Views: item.PlayCount}, nil
}
