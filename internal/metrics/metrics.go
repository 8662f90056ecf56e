package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline aggregates the orchestration counters. All methods are
// nil-safe so tests can run without a registry.
type Pipeline struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	runsTotal      *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	docstoreWrites *prometheus.CounterVec
}

func NewPipeline() *Pipeline {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evonota",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "evonota",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evonota",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed pipeline invocations by note type and outcome.",
		},
		[]string{"type", "outcome"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "evonota",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
	docstoreWrites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evonota",
			Subsystem: "pipeline",
			Name:      "docstore_writes_total",
			Help:      "Note record writes by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requestTotal, requestDuration, runsTotal, stageDuration, docstoreWrites)

	return &Pipeline{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		runsTotal:       runsTotal,
		stageDuration:   stageDuration,
		docstoreWrites:  docstoreWrites,
	}
}

func (p *Pipeline) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Pipeline) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil {
			c.Next()
			return
		}
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		c.Next()
		p.requestTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		p.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func (p *Pipeline) ObserveRun(noteType, outcome string) {
	if p == nil {
		return
	}
	p.runsTotal.WithLabelValues(noteType, outcome).Inc()
}

func (p *Pipeline) ObserveStage(stage string, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (p *Pipeline) ObserveDocstoreWrite(outcome string) {
	if p == nil {
		return
	}
	p.docstoreWrites.WithLabelValues(outcome).Inc()
}
