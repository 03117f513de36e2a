package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hgottschalk/calaim-assistant/internal/core/domain"
)

// WorkerMetrics covers the document processing pipeline.
type WorkerMetrics struct {
	registry *prometheus.Registry

	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobsInFlight    prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	entitiesPerJob  *prometheus.HistogramVec
	domainsPerJob   *prometheus.HistogramVec
	confidenceScore *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calaim",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Total processed jobs by terminal status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calaim",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "End-to-end job processing duration in seconds by terminal status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "calaim",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of jobs currently being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calaim",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	entitiesPerJob := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calaim",
			Subsystem: "worker",
			Name:      "entities_per_job",
			Help:      "Clinical entities retained per completed job.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	domainsPerJob := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calaim",
			Subsystem: "worker",
			Name:      "domains_per_job",
			Help:      "Assessment domains suggested per completed job.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6, 7},
		},
		[]string{"service"},
	)
	confidenceScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "calaim",
			Subsystem: "worker",
			Name:      "confidence_score",
			Help:      "Overall confidence score of completed jobs.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		},
		[]string{"service"},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, queueLag,
		entitiesPerJob, domainsPerJob, confidenceScore)

	return &WorkerMetrics{
		registry:        registry,
		jobsTotal:       jobsTotal,
		jobDuration:     jobDuration,
		jobsInFlight:    jobsInFlight,
		queueLag:        queueLag,
		entitiesPerJob:  entitiesPerJob,
		domainsPerJob:   domainsPerJob,
		confidenceScore: confidenceScore,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service string, status domain.JobStatus, duration time.Duration) {
	m.jobsInFlight.Dec()
	m.jobsTotal.WithLabelValues(service, string(status)).Inc()
	m.jobDuration.WithLabelValues(service, string(status)).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveResult(service string, result domain.JobResult) {
	m.entitiesPerJob.WithLabelValues(service).Observe(float64(len(result.Entities)))
	m.domainsPerJob.WithLabelValues(service).Observe(float64(len(result.Domains)))
	m.confidenceScore.WithLabelValues(service).Observe(result.ConfidenceScore)
}
