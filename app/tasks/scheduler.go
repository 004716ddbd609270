package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/social-comb/app/metrics"
)

const (
	laneCapacity     = 300
	completedHistory = 100
	failedHistory    = 50
)

var ErrLaneFull = errors.New("job queue is full")

type LaneStats struct {
	Name      LaneName `json:"name"`
	Workers   int      `json:"workers"`
	Waiting   int      `json:"waiting"`
	Active    int      `json:"active"`
	Completed int      `json:"completed"`
	Failed    int      `json:"failed"`
	Delayed   int      `json:"delayed"`
}

// lane is a buffered job channel served by a fixed set of workers. Failed jobs
// are re-enqueued with exponential backoff until they run out of attempts.
type lane struct {
	name        LaneName
	workerCount int
	timeout     time.Duration
	backoff     time.Duration
	run         func(ctx context.Context, job *Job) (any, error)
	metrics     *metrics.Metrics

	ctx   context.Context
	wg    sync.WaitGroup
	queue chan *Job

	active    atomic.Int64
	delayed   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	mu            sync.Mutex
	completedJobs []JobRecord
	failedJobs    []JobRecord
}

func newLane(ctx context.Context, name LaneName, workers int, run func(context.Context, *Job) (any, error), m *metrics.Metrics) *lane {
	if workers < 1 {
		workers = 1
	}
	return &lane{
		name:        name,
		workerCount: workers,
		timeout:     DefaultJobTimeout,
		backoff:     2 * time.Second,
		run:         run,
		metrics:     m,
		ctx:         ctx,
		queue:       make(chan *Job, laneCapacity),
	}
}

func (l *lane) start() {
	for i := 0; i < l.workerCount; i++ {
		l.wg.Add(1)
		go l.worker(i)
	}
}

func (l *lane) wait() {
	l.wg.Wait()
}

func (l *lane) enqueue(job *Job) error {
	select {
	case l.queue <- job:
		l.reportDepth()
		return nil
	case <-l.ctx.Done():
		return l.ctx.Err()
	default:
		return fmt.Errorf("%s: %w", l.name, ErrLaneFull)
	}
}

func (l *lane) worker(id int) {
	defer l.wg.Done()

	for {
		select {
		case job := <-l.queue:
			l.reportDepth()
			l.execute(id, job)
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *lane) execute(workerID int, job *Job) {
	job.Start()
	l.active.Add(1)
	defer l.active.Add(-1)

	jobCtx, cancel := context.WithTimeout(l.ctx, l.timeout)
	defer cancel()

	result, err := l.run(jobCtx, job)
	if err == nil {
		slog.Info("Job completed", "lane", l.name, "job", job.Name, "id", job.ID, "duration", job.GetDuration())
		l.completed.Add(1)
		l.metrics.JobDone(string(l.name), string(job.Name))
		l.record(job, result, nil)
		return
	}

	slog.Error("Job execution failed", "worker_id", workerID, "lane", l.name, "job", job.Name, "id", job.ID, "attempt", job.Attempts, "error", err)

	if !job.CanRetry() || l.ctx.Err() != nil {
		slog.Error("Job failed after maximum attempts", "lane", l.name, "job", job.Name, "id", job.ID, "attempts", job.Attempts, "last_error", err)
		l.failed.Add(1)
		l.metrics.JobFailed(string(l.name), string(job.Name))
		l.record(job, result, err)
		return
	}

	delay := l.backoff * time.Duration(1<<uint(job.Attempts-1))
	slog.Warn("Job retry scheduled", "lane", l.name, "job", job.Name, "attempt", job.Attempts, "max_attempts", job.MaxAttempts, "delay", delay.String())
	l.metrics.JobRetried(string(l.name), string(job.Name))

	l.delayed.Add(1)
	l.reportDepth()
	go func() {
		defer func() {
			l.delayed.Add(-1)
			l.reportDepth()
		}()

		t := time.NewTimer(delay)
		defer t.Stop()

		select {
		case <-l.ctx.Done():
			slog.Debug("Runtime stopped, skipping job retry", "lane", l.name, "id", job.ID)
		case <-t.C:
			if err := l.enqueue(job); err != nil {
				slog.Error("Failed to re-enqueue job for retry", "lane", l.name, "id", job.ID, "error", err)
			}
		}
	}()
}

func (l *lane) record(job *Job, result any, err error) {
	rec := JobRecord{
		ID:         job.ID,
		Name:       job.Name,
		Data:       job.Data,
		Attempts:   job.Attempts,
		Result:     result,
		Duration:   job.GetDuration(),
		FinishedAt: time.Now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		rec.Error = err.Error()
		l.failedJobs = appendBounded(l.failedJobs, rec, failedHistory)
		return
	}
	l.completedJobs = appendBounded(l.completedJobs, rec, completedHistory)
}

func appendBounded(records []JobRecord, rec JobRecord, max int) []JobRecord {
	records = append(records, rec)
	if len(records) > max {
		records = records[len(records)-max:]
	}
	return records
}

func (l *lane) history() (completed, failed []JobRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]JobRecord(nil), l.completedJobs...), append([]JobRecord(nil), l.failedJobs...)
}

func (l *lane) stats() LaneStats {
	return LaneStats{
		Name:      l.name,
		Workers:   l.workerCount,
		Waiting:   len(l.queue),
		Active:    int(l.active.Load()),
		Completed: int(l.completed.Load()),
		Failed:    int(l.failed.Load()),
		Delayed:   int(l.delayed.Load()),
	}
}

func (l *lane) reportDepth() {
	l.metrics.SetLaneDepth(string(l.name), "waiting", len(l.queue))
	l.metrics.SetLaneDepth(string(l.name), "delayed", int(l.delayed.Load()))
}
