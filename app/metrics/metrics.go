package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "social_comb"

// Metrics holds the Prometheus collectors for the pipeline. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Labels: lane, job
	JobsProcessed *prometheus.CounterVec
	JobsFailed    *prometheus.CounterVec
	JobsRetried   *prometheus.CounterVec

	// Labels: lane, state (waiting, active, delayed)
	LaneDepth *prometheus.GaugeVec

	// Labels: platform
	PostsPublished *prometheus.CounterVec
	PostsFailed    *prometheus.CounterVec
	LLMFallbacks   *prometheus.CounterVec

	// Labels: status (ok, error)
	FeedFetches *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_processed_total", Help: "Jobs completed successfully",
		}, []string{"lane", "job"}),
		JobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_failed_total", Help: "Jobs that exhausted their attempts",
		}, []string{"lane", "job"}),
		JobsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_retried_total", Help: "Job attempts scheduled for retry",
		}, []string{"lane", "job"}),
		LaneDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "lane_jobs", Help: "Jobs per lane and state",
		}, []string{"lane", "state"}),
		PostsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "posts_published_total", Help: "Posts published per platform",
		}, []string{"platform"}),
		PostsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "posts_failed_total", Help: "Publish failures per platform",
		}, []string{"platform"}),
		LLMFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "llm_fallbacks_total", Help: "Generations served by the deterministic fallback",
		}, []string{"platform"}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "feed_fetches_total", Help: "Feed fetch attempts by outcome",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.JobsProcessed, m.JobsFailed, m.JobsRetried, m.LaneDepth,
		m.PostsPublished, m.PostsFailed, m.LLMFallbacks, m.FeedFetches,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) JobDone(lane, job string) {
	if m != nil {
		m.JobsProcessed.WithLabelValues(lane, job).Inc()
	}
}

func (m *Metrics) JobFailed(lane, job string) {
	if m != nil {
		m.JobsFailed.WithLabelValues(lane, job).Inc()
	}
}

func (m *Metrics) JobRetried(lane, job string) {
	if m != nil {
		m.JobsRetried.WithLabelValues(lane, job).Inc()
	}
}

func (m *Metrics) SetLaneDepth(lane, state string, n int) {
	if m != nil {
		m.LaneDepth.WithLabelValues(lane, state).Set(float64(n))
	}
}

func (m *Metrics) Published(platform string) {
	if m != nil {
		m.PostsPublished.WithLabelValues(platform).Inc()
	}
}

func (m *Metrics) PublishFailed(platform string) {
	if m != nil {
		m.PostsFailed.WithLabelValues(platform).Inc()
	}
}

func (m *Metrics) LLMFallback(platform string) {
	if m != nil {
		m.LLMFallbacks.WithLabelValues(platform).Inc()
	}
}

func (m *Metrics) FeedFetched(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FeedFetches.WithLabelValues(status).Inc()
}
