package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of completion attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Completion attempt duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)
	AIPromptTokens = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Prompt size in tokens per completion call",
			Buckets: prometheus.ExponentialBuckets(32, 2, 9),
		},
	)
	AICacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cache_lookups_total",
			Help: "Completion cache lookups by result",
		},
		[]string{"result"},
	)
	AITaskFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_task_fallbacks_total",
			Help: "Tasks answered with a deterministic fallback instead of model output",
		},
		[]string{"task"},
	)

	FollowUpsOffered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_followups_offered_total",
			Help: "Follow-up questions offered by type",
		},
		[]string{"type"},
	)
	InterviewsCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interviews_completed_total",
			Help: "Total number of completed interviews",
		},
	)
	InterviewScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_final_score",
			Help:    "Distribution of final interview scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. It is
// safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(AIRequestsTotal)
		prometheus.MustRegister(AIRequestDuration)
		prometheus.MustRegister(AIPromptTokens)
		prometheus.MustRegister(AICacheLookups)
		prometheus.MustRegister(AITaskFallbacks)
		prometheus.MustRegister(FollowUpsOffered)
		prometheus.MustRegister(InterviewsCompletedTotal)
		prometheus.MustRegister(InterviewScoreHistogram)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveCompletion records one completion attempt.
func ObserveCompletion(provider, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// CacheLookup records a completion cache hit or miss.
func CacheLookup(hit bool) {
	if hit {
		AICacheLookups.WithLabelValues("hit").Inc()
		return
	}
	AICacheLookups.WithLabelValues("miss").Inc()
}

// TaskFallback records that task degraded to its fallback result.
func TaskFallback(task string) {
	AITaskFallbacks.WithLabelValues(task).Inc()
}

// FollowUpOffered records an offered follow-up of the given type.
func FollowUpOffered(kind string) {
	FollowUpsOffered.WithLabelValues(kind).Inc()
}

// InterviewCompleted records a completed interview and its final score.
func InterviewCompleted(score int) {
	InterviewsCompletedTotal.Inc()
	if score >= 0 && score <= 100 {
		InterviewScoreHistogram.Observe(float64(score))
	}
}
