package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/social-comb/app/cfg"
	"github.com/lysyi3m/social-comb/app/lock"
	"github.com/lysyi3m/social-comb/app/metrics"
)

var (
	ErrUnknownLane = errors.New("unknown queue")
	ErrUnknownJob  = errors.New("unknown job")
)

const monthlyCleanup = "0 0 1 * *"

// singletons must not run twice at the same time, even across processes.
var singletons = map[JobName]bool{
	JobPublishScheduled: true,
	JobRetryFailed:      true,
	JobFetchAnalytics:   true,
}

type Recurring struct {
	Lane  LaneName
	Job   JobName
	Every time.Duration
	Spec  string
}

// Runtime owns the job lanes, their handlers and the recurring triggers.
type Runtime struct {
	lanes    map[LaneName]*lane
	handlers map[LaneName]map[JobName]Handler
	locker   lock.Locker
	metrics  *metrics.Metrics

	cron      *cron.Cron
	cronMu    sync.Mutex
	entries   []cron.EntryID
	recurring []Recurring

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRuntime(workers int, locker lock.Locker, m *metrics.Metrics) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	if locker == nil {
		locker = lock.NewLocalLock()
	}

	r := &Runtime{
		lanes:    map[LaneName]*lane{},
		handlers: map[LaneName]map[JobName]Handler{},
		locker:   locker,
		metrics:  m,
		cron:     cron.New(cron.WithLocation(time.Local)),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, name := range Lanes {
		laneName := name
		r.handlers[laneName] = map[JobName]Handler{}
		r.lanes[laneName] = newLane(ctx, laneName, workers, func(ctx context.Context, job *Job) (any, error) {
			return r.dispatch(ctx, job)
		}, m)
	}

	return r
}

// RecurringFromConfig lists the periodic jobs driven by the interval settings.
func RecurringFromConfig(c *cfg.Cfg) []Recurring {
	return []Recurring{
		{Lane: LaneRSS, Job: JobProcessAllFeeds, Every: c.Intervals.RSSFetch},
		{Lane: LaneTrends, Job: JobAnalyzeTrends, Every: c.Intervals.TrendAnalysis},
		{Lane: LaneContent, Job: JobGenerateContent, Every: c.Intervals.ContentGeneration},
		{Lane: LanePublisher, Job: JobPublishScheduled, Every: c.Intervals.PublishCheck},
		{Lane: LaneAnalytics, Job: JobFetchAnalytics, Every: c.Intervals.AnalyticsFetch},
		{Lane: LaneTrends, Job: JobCleanupTrends, Spec: monthlyCleanup},
	}
}

func (r *Runtime) Register(laneName LaneName, name JobName, h Handler) {
	if _, ok := r.handlers[laneName]; !ok {
		panic(fmt.Sprintf("register %s on unknown lane %s", name, laneName))
	}
	r.handlers[laneName][name] = h
}

// AddJob enqueues a job by lane and name. Both must be known.
func (r *Runtime) AddJob(laneName LaneName, name JobName, data map[string]any) (*Job, error) {
	l, ok := r.lanes[laneName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLane, laneName)
	}
	if _, ok := r.handlers[laneName][name]; !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrUnknownJob, name, laneName)
	}

	job := NewJob(laneName, name, data)
	if err := l.enqueue(job); err != nil {
		return nil, err
	}

	slog.Debug("Job enqueued", "lane", laneName, "job", name, "id", job.ID)
	return job, nil
}

func (r *Runtime) dispatch(ctx context.Context, job *Job) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	h, ok := r.handlers[job.Lane][job.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}

	if !singletons[job.Name] {
		return h(ctx, job)
	}

	key := string(job.Name)
	acquired, err := r.locker.TryLock(ctx, key, DefaultJobTimeout)
	if err != nil {
		return nil, err
	}
	if !acquired {
		slog.Info("Job already running elsewhere, skipping", "job", job.Name)
		return map[string]any{"success": true, "skipped": true, "reason": "Already running"}, nil
	}
	defer func() {
		if err := r.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
			slog.Warn("Failed to release job lock", "job", job.Name, "error", err)
		}
	}()

	return h(ctx, job)
}

func (r *Runtime) Start(recurring []Recurring) error {
	for _, l := range r.lanes {
		l.start()
	}

	if err := r.scheduleRecurring(recurring); err != nil {
		return err
	}
	r.cron.Start()

	slog.Info("Job runtime started", "lanes", len(r.lanes), "recurring", len(recurring))
	return nil
}

func (r *Runtime) Stop() {
	<-r.cron.Stop().Done()
	r.cancel()
	for _, l := range r.lanes {
		l.wait()
	}
	slog.Info("Job runtime stopped")
}

// ResetRecurring removes every recurring trigger and schedules the last known
// set again.
func (r *Runtime) ResetRecurring() error {
	r.cronMu.Lock()
	recurring := r.recurring
	r.cronMu.Unlock()

	slog.Info("Resetting recurring jobs")
	return r.scheduleRecurring(recurring)
}

func (r *Runtime) scheduleRecurring(recurring []Recurring) error {
	r.cronMu.Lock()
	defer r.cronMu.Unlock()

	for _, id := range r.entries {
		r.cron.Remove(id)
	}
	r.entries = nil
	r.recurring = recurring

	for _, rec := range recurring {
		rec := rec
		trigger := cron.FuncJob(func() {
			if _, err := r.AddJob(rec.Lane, rec.Job, nil); err != nil {
				slog.Error("Failed to enqueue recurring job", "lane", rec.Lane, "job", rec.Job, "error", err)
			}
		})

		var id cron.EntryID
		switch {
		case rec.Spec != "":
			var err error
			if id, err = r.cron.AddJob(rec.Spec, trigger); err != nil {
				return fmt.Errorf("invalid schedule for %s: %w", rec.Job, err)
			}
		case rec.Every > 0:
			id = r.cron.Schedule(cron.Every(rec.Every), trigger)
		default:
			return fmt.Errorf("recurring job %s has no schedule", rec.Job)
		}
		r.entries = append(r.entries, id)
	}

	return nil
}

// RecurringCount reports how many recurring triggers are installed.
func (r *Runtime) RecurringCount() int {
	r.cronMu.Lock()
	defer r.cronMu.Unlock()
	return len(r.cron.Entries())
}

func (r *Runtime) Stats() []LaneStats {
	stats := make([]LaneStats, 0, len(Lanes))
	for _, name := range Lanes {
		stats = append(stats, r.lanes[name].stats())
	}
	return stats
}

func (r *Runtime) History(laneName LaneName) (completed, failed []JobRecord, err error) {
	l, ok := r.lanes[laneName]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownLane, laneName)
	}
	completed, failed = l.history()
	return completed, failed, nil
}

// SetBackoff changes the base retry delay of every lane. Use before Start.
func (r *Runtime) SetBackoff(d time.Duration) {
	for _, l := range r.lanes {
		l.backoff = d
	}
}
