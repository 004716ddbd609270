package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type LaneName string

const (
	LaneRSS       LaneName = "rss-processing"
	LaneTrends    LaneName = "trends-analysis"
	LaneContent   LaneName = "content-generation"
	LanePublisher LaneName = "publishing"
	LaneAnalytics LaneName = "analytics-fetch"
)

var Lanes = []LaneName{LaneRSS, LaneTrends, LaneContent, LanePublisher, LaneAnalytics}

type JobName string

const (
	JobProcessAllFeeds    JobName = "process-all-feeds"
	JobProcessFeed        JobName = "process-feed"
	JobAnalyzeTrends      JobName = "analyze-trends"
	JobAnalyzeContent     JobName = "analyze-content"
	JobCleanupTrends      JobName = "cleanup-trends"
	JobGenerateContent    JobName = "generate-content"
	JobGenerateFromURL    JobName = "generate-from-url"
	JobGenerateFromTrends JobName = "generate-from-trends"
	JobImproveContent     JobName = "improve-content"
	JobPublishScheduled   JobName = "publish-scheduled"
	JobPublishPost        JobName = "publish-post"
	JobRetryFailed        JobName = "retry-failed"
	JobFetchAnalytics     JobName = "fetch-analytics"
	JobFetchPostAnalytics JobName = "fetch-post-analytics"
)

const (
	DefaultMaxAttempts = 3
	DefaultJobTimeout  = 5 * time.Minute
)

// Handler runs one job and returns a JSON-friendly result.
type Handler func(ctx context.Context, job *Job) (any, error)

type Job struct {
	ID          string         `json:"id"`
	Lane        LaneName       `json:"lane"`
	Name        JobName        `json:"name"`
	Data        map[string]any `json:"data,omitempty"`
	Attempts    int            `json:"attempts"`
	MaxAttempts int            `json:"maxAttempts"`
	EnqueuedAt  time.Time      `json:"enqueuedAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
}

func NewJob(lane LaneName, name JobName, data map[string]any) *Job {
	if data == nil {
		data = map[string]any{}
	}
	return &Job{
		ID:          fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Intn(10000)),
		Lane:        lane,
		Name:        name,
		Data:        data,
		MaxAttempts: DefaultMaxAttempts,
		EnqueuedAt:  time.Now(),
	}
}

func (j *Job) CanRetry() bool {
	return j.Attempts < j.MaxAttempts
}

func (j *Job) Start() {
	now := time.Now()
	j.StartedAt = &now
	j.Attempts++
}

func (j *Job) GetDuration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	return time.Since(*j.StartedAt)
}

// JobRecord is what a lane remembers about a finished job.
type JobRecord struct {
	ID         string         `json:"id"`
	Name       JobName        `json:"name"`
	Data       map[string]any `json:"data,omitempty"`
	Attempts   int            `json:"attempts"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
	FinishedAt time.Time      `json:"finishedAt"`
}
