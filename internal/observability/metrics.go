package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yungbote/postvoice-backend/internal/domain/jobs"
	"github.com/yungbote/postvoice-backend/internal/platform/logger"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	llmRequests *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	pipelineCalls    *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	pipelineTokens   *prometheus.CounterVec
	retries          *prometheus.CounterVec
	classifications  *prometheus.CounterVec
	tiers            *prometheus.CounterVec
	regenerations    *prometheus.CounterVec

	jobRuns    *prometheus.CounterVec
	jobLatency *prometheus.HistogramVec
	queueDepth *prometheus.GaugeVec

	aggregateOps       *prometheus.CounterVec
	aggregateDuration  *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_api_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postvoice_api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "postvoice_api_inflight_requests",
			Help: "HTTP requests currently being served.",
		}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_llm_requests_total",
			Help: "Upstream model HTTP calls by model, endpoint and status.",
		}, []string{"model", "endpoint", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postvoice_llm_request_duration_seconds",
			Help:    "Upstream model HTTP latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"model", "endpoint"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_llm_tokens_total",
			Help: "Tokens consumed by direction.",
		}, []string{"model", "direction"}),
		pipelineCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_pipeline_operations_total",
			Help: "Pipeline operations by name and outcome.",
		}, []string{"op", "status"}),
		pipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postvoice_pipeline_operation_duration_seconds",
			Help:    "Pipeline operation wall-clock duration including retries.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"op"}),
		pipelineTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_pipeline_tokens_total",
			Help: "Tokens attributed to pipeline operations.",
		}, []string{"op", "direction"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_collaborator_retries_total",
			Help: "Retried collaborator calls by operation.",
		}, []string{"op"}),
		classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_topic_classifications_total",
			Help: "Classified topics by initial status.",
		}, []string{"status"}),
		tiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_performance_tiers_total",
			Help: "Recorded performance reports by tier.",
		}, []string{"tier"}),
		regenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_regenerations_total",
			Help: "Regeneration requests by outcome.",
		}, []string{"outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_job_runs_total",
			Help: "Finished background jobs by type and status.",
		}, []string{"job_type", "status"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postvoice_job_run_duration_seconds",
			Help:    "Background job handler duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_type"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "postvoice_job_queue_depth",
			Help: "Job runs by status.",
		}, []string{"status"}),
		aggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_aggregate_operations_total",
			Help: "Transactional aggregate writes by operation and status.",
		}, []string{"operation", "status"}),
		aggregateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "postvoice_aggregate_operation_duration_seconds",
			Help:    "Transactional aggregate write latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_aggregate_conflicts_total",
			Help: "Aggregate writes rejected with a conflict.",
		}, []string{"operation"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postvoice_aggregate_retryable_total",
			Help: "Aggregate writes that failed with a retryable error.",
		}, []string{"operation"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiDuration, m.apiInflight,
		m.llmRequests, m.llmDuration, m.llmTokens,
		m.pipelineCalls, m.pipelineDuration, m.pipelineTokens,
		m.retries, m.classifications, m.tiers, m.regenerations,
		m.jobRuns, m.jobLatency, m.queueDepth,
		m.aggregateOps, m.aggregateDuration, m.aggregateConflicts, m.aggregateRetries,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, tokensIn, tokensOut int) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(model, endpoint, status).Inc()
	m.llmDuration.WithLabelValues(model, endpoint).Observe(dur.Seconds())
	if tokensIn > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(tokensOut))
	}
}

// ObserveCall, IncRetry, IncClassification and IncTier satisfy voicegen.Hooks.
func (m *Metrics) ObserveCall(op, status string, dur time.Duration, tokensIn, tokensOut int) {
	if m == nil {
		return
	}
	m.pipelineCalls.WithLabelValues(op, status).Inc()
	m.pipelineDuration.WithLabelValues(op).Observe(dur.Seconds())
	if tokensIn > 0 {
		m.pipelineTokens.WithLabelValues(op, "input").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		m.pipelineTokens.WithLabelValues(op, "output").Add(float64(tokensOut))
	}
}

func (m *Metrics) IncRetry(op string) {
	if m != nil {
		m.retries.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncClassification(status string) {
	if m != nil {
		m.classifications.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncTier(tier string) {
	if m != nil {
		m.tiers.WithLabelValues(tier).Inc()
	}
}

func (m *Metrics) IncRegeneration(outcome string) {
	if m != nil {
		m.regenerations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(jobType, status).Inc()
	m.jobLatency.WithLabelValues(jobType).Observe(dur.Seconds())
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(op, status).Inc()
	m.aggregateDuration.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m != nil {
		m.aggregateConflicts.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m != nil {
		m.aggregateRetries.WithLabelValues(op).Inc()
	}
}

// StartJobQueueCollector samples job_run counts by status until ctx ends.
func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	statuses := []string{jobs.StatusQueued, jobs.StatusRunning, jobs.StatusSucceeded, jobs.StatusFailed}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range statuses {
					m.queueDepth.WithLabelValues(s).Set(0)
				}
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Model(&jobs.JobRun{}).
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: job queue depth query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					status := strings.TrimSpace(row.Status)
					if status == "" {
						status = "unknown"
					}
					m.queueDepth.WithLabelValues(status).Set(float64(row.Count))
				}
			}
		}
	}()
}
