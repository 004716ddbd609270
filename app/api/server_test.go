package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/social-comb/app/content"
	"github.com/lysyi3m/social-comb/app/database"
	"github.com/lysyi3m/social-comb/app/dedup"
	"github.com/lysyi3m/social-comb/app/llm"
	"github.com/lysyi3m/social-comb/app/publisher"
	"github.com/lysyi3m/social-comb/app/tasks"
)

type mockFeeds struct {
	database.FeedRepository
	count int
}

func (m *mockFeeds) GetFeedCount(ctx context.Context) (int, error) {
	return m.count, nil
}

type mockPosts struct {
	database.PostRepository
	posts     map[string]*database.Post
	created   []database.Post
	scheduled bool
}

func (m *mockPosts) GetPost(ctx context.Context, id string) (*database.Post, error) {
	return m.posts[id], nil
}

func (m *mockPosts) CreatePost(ctx context.Context, post database.Post) (*database.Post, error) {
	post.ID = "new-post"
	m.created = append(m.created, post)
	return &post, nil
}

func (m *mockPosts) SchedulePost(ctx context.Context, id string, at time.Time) (bool, error) {
	post, ok := m.posts[id]
	if !ok || post.Status == database.StatusPublished {
		return false, nil
	}
	post.Status = database.StatusScheduled
	post.ScheduledFor = &at
	m.scheduled = true
	return true, nil
}

type mockTrends struct {
	database.TrendRepository
	upserted []string
}

func (m *mockTrends) UpsertTrend(ctx context.Context, keyword string, source database.TrendSource, score float64, keep float64) error {
	m.upserted = append(m.upserted, keyword)
	return nil
}

func (m *mockTrends) GetTrend(ctx context.Context, keyword string) (*database.Trend, error) {
	return &database.Trend{ID: "t1", Keyword: keyword, Score: 1, Source: database.TrendSourceManual}, nil
}

type mockContent struct {
	ContentService
	err error
}

func (m *mockContent) GenerateFromURL(ctx context.Context, url string, opts content.Options) ([]llm.Generated, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []llm.Generated{{Content: "generated", Platform: database.PlatformTwitter}}, nil
}

type mockPublisher struct {
	PublishService
	err error
}

func (m *mockPublisher) Publish(ctx context.Context, postID string) (publisher.Result, error) {
	if m.err != nil {
		return publisher.Result{}, m.err
	}
	return publisher.Result{Success: true, PostID: postID}, nil
}

type mockQueue struct {
	added []tasks.Job
	err   error
}

func (m *mockQueue) AddJob(lane tasks.LaneName, name tasks.JobName, data map[string]any) (*tasks.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	job := tasks.NewJob(lane, name, data)
	m.added = append(m.added, *job)
	return job, nil
}

func (m *mockQueue) Stats() []tasks.LaneStats {
	return []tasks.LaneStats{{Name: tasks.LaneRSS, Workers: 1}}
}

func (m *mockQueue) ResetRecurring() error {
	return nil
}

type testEnv struct {
	posts     *mockPosts
	trends    *mockTrends
	content   *mockContent
	publisher *mockPublisher
	queue     *mockQueue
	server    http.Handler
}

func newTestEnv(apiKey string) *testEnv {
	env := &testEnv{
		posts:     &mockPosts{posts: map[string]*database.Post{}},
		trends:    &mockTrends{},
		content:   &mockContent{},
		publisher: &mockPublisher{},
		queue:     &mockQueue{},
	}
	h := NewHandler(Deps{
		Feeds:     &mockFeeds{count: 2},
		Posts:     env.posts,
		Trends:    env.trends,
		Content:   env.content,
		Publisher: env.publisher,
		Queue:     env.queue,
		Version:   "test",
	})
	env.server = NewServer(h, apiKey)
	return env
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthIsOpen(t *testing.T) {
	env := newTestEnv("secret")

	w := env.do(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := decode(t, w)
	if body["feeds"] != float64(2) {
		t.Errorf("Expected 2 feeds, got %v", body["feeds"])
	}
	if body["version"] != "test" {
		t.Errorf("Expected version test, got %v", body["version"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv("secret")

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodGet, "/api/queue/stats", "", tt.headers)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAPIOpenWithoutKey(t *testing.T) {
	env := newTestEnv("")

	w := env.do(http.MethodGet, "/api/queue/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestGetPostNotFound(t *testing.T) {
	env := newTestEnv("")

	w := env.do(http.MethodGet, "/api/posts/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv("")

	w := env.do(http.MethodPost, "/api/posts", `{"content":"hello","platform":"twitter","hashtags":["#go"]}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	if len(env.posts.created) != 1 {
		t.Fatalf("Expected 1 created post, got %d", len(env.posts.created))
	}
	post := env.posts.created[0]
	if post.Platform != database.PlatformTwitter {
		t.Errorf("Expected platform TWITTER, got %s", post.Platform)
	}
	if post.Status != database.StatusDraft {
		t.Errorf("Expected status DRAFT, got %s", post.Status)
	}

	w = env.do(http.MethodPost, "/api/posts", `{"content":"hello","platform":"myspace"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown platform, got %d", w.Code)
	}
}

func TestSchedulePost(t *testing.T) {
	env := newTestEnv("")
	env.posts.posts["p1"] = &database.Post{ID: "p1", Status: database.StatusDraft}
	env.posts.posts["p2"] = &database.Post{ID: "p2", Status: database.StatusPublished}

	w := env.do(http.MethodPost, "/api/posts/p1/schedule", `{"scheduledFor":"2030-01-02T10:00:00Z"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.posts.posts["p1"].Status != database.StatusScheduled {
		t.Errorf("Expected SCHEDULED, got %s", env.posts.posts["p1"].Status)
	}

	w = env.do(http.MethodPost, "/api/posts/p2/schedule", `{"scheduledFor":"2030-01-02T10:00:00Z"}`, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}

	w = env.do(http.MethodPost, "/api/posts/p1/schedule", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestPublishErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{database.ErrPostNotFound, http.StatusNotFound},
		{publisher.ErrAlreadyPublished, http.StatusConflict},
		{publisher.ErrMediaRequired, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		env := newTestEnv("")
		env.publisher.err = tt.err

		w := env.do(http.MethodPost, "/api/posts/p1/publish", "", nil)
		if w.Code != tt.want {
			t.Errorf("Expected status %d for %v, got %d", tt.want, tt.err, w.Code)
		}
	}
}

func TestGenerateContentErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{dedup.ErrDuplicate, http.StatusConflict},
		{content.ErrExtractionFailed, http.StatusUnprocessableEntity},
		{nil, http.StatusOK},
	}

	for _, tt := range tests {
		env := newTestEnv("")
		env.content.err = tt.err

		w := env.do(http.MethodPost, "/api/content/generate", `{"url":"https://example.com/a","platforms":["TWITTER"]}`, nil)
		if w.Code != tt.want {
			t.Errorf("Expected status %d for %v, got %d", tt.want, tt.err, w.Code)
		}
	}

	env := newTestEnv("")
	w := env.do(http.MethodPost, "/api/content/generate", `{"platforms":["TWITTER"]}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without url, got %d", w.Code)
	}
}

func TestCreateTrendIsManual(t *testing.T) {
	env := newTestEnv("")

	w := env.do(http.MethodPost, "/api/trends", `{"keyword":"  Golang "}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	if len(env.trends.upserted) != 1 || env.trends.upserted[0] != "golang" {
		t.Errorf("Expected keyword golang, got %v", env.trends.upserted)
	}
}

func TestTriggerJob(t *testing.T) {
	tests := []struct {
		trigger string
		body    string
		lane    tasks.LaneName
		job     tasks.JobName
	}{
		{"rss", "", tasks.LaneRSS, tasks.JobProcessAllFeeds},
		{"content", "", tasks.LaneContent, tasks.JobGenerateContent},
		{"content", `{"url":"https://example.com/a"}`, tasks.LaneContent, tasks.JobGenerateFromURL},
		{"trends", "", tasks.LaneTrends, tasks.JobAnalyzeTrends},
		{"publish", "", tasks.LanePublisher, tasks.JobPublishScheduled},
		{"analytics", "", tasks.LaneAnalytics, tasks.JobFetchAnalytics},
		{"retry-failed", "", tasks.LanePublisher, tasks.JobRetryFailed},
	}

	for _, tt := range tests {
		env := newTestEnv("")

		w := env.do(http.MethodPost, "/api/queue/trigger/"+tt.trigger, tt.body, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200 for %s, got %d", tt.trigger, w.Code)
		}
		if len(env.queue.added) != 1 {
			t.Fatalf("Expected 1 job for %s, got %d", tt.trigger, len(env.queue.added))
		}
		job := env.queue.added[0]
		if job.Lane != tt.lane || job.Name != tt.job {
			t.Errorf("Expected %s/%s, got %s/%s", tt.lane, tt.job, job.Lane, job.Name)
		}
		if tt.trigger == "retry-failed" && job.Data["maxRetries"] != publisher.DefaultMaxRetries {
			t.Errorf("Expected maxRetries %d, got %v", publisher.DefaultMaxRetries, job.Data["maxRetries"])
		}
	}

	env := newTestEnv("")
	w := env.do(http.MethodPost, "/api/queue/trigger/unknown", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown trigger, got %d", w.Code)
	}
}

func TestTriggerJobQueueFull(t *testing.T) {
	env := newTestEnv("")
	env.queue.err = tasks.ErrLaneFull

	w := env.do(http.MethodPost, "/api/queue/trigger/rss", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}
