package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildwatch_polls_total",
			Help: "Poll ticks by outcome",
		}, []string{"result"},
	)
	ComparisonsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildwatch_comparisons_total",
			Help: "Build comparisons by outcome",
		}, []string{"result"},
	)
	ComparisonDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "buildwatch_comparison_duration_seconds",
		Help:    "Time spent comparing two builds, extraction included",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	ChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildwatch_changes_total",
			Help: "Detected changes by domain",
		}, []string{"domain"},
	)
	LastBuildNumber = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "buildwatch_last_build_number",
		Help: "Build number of the last processed build",
	})
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildwatch_notifications_total",
			Help: "Chat messages sent by outcome",
		}, []string{"result"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildwatch_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "buildwatch_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "buildwatch_http_in_flight",
		Help: "In-flight HTTP requests",
	})
)

func init() {
	prometheus.MustRegister(
		PollsTotal, ComparisonsTotal, ComparisonDuration, ChangesTotal,
		LastBuildNumber, NotificationsTotal,
		RequestsTotal, Latency, InFlight,
	)
}

// RecordChanges adds n to the change counter of domain.
func RecordChanges(domain string, n int) {
	if n > 0 {
		ChangesTotal.WithLabelValues(domain).Add(float64(n))
	}
}

// RecordBuild sets the last build number gauge if number is numeric.
func RecordBuild(number string) {
	if n, err := strconv.ParseFloat(number, 64); err == nil {
		LastBuildNumber.Set(n)
	}
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
