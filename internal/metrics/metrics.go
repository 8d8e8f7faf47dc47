// Package metrics собирает Prometheus-метрики рассылки и HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "trialguard"

// Dispatch метрики прогонов рассылки напоминаний.
type Dispatch struct {
	runs      *prometheus.CounterVec
	reminders *prometheus.CounterVec
	duration  prometheus.Histogram
	lastRun   prometheus.Gauge
}

// NewDispatch регистрирует метрики рассылки в reg.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	d := &Dispatch{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "runs_total",
			Help:      "Reminder dispatch runs by result.",
		}, []string{"result"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "reminders_total",
			Help:      "Claimed reminders by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "run_duration_seconds",
			Help:      "Duration of a dispatch run.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful dispatch run.",
		}),
	}
	reg.MustRegister(d.runs, d.reminders, d.duration, d.lastRun)
	return d
}

// ObserveRun учитывает завершённый прогон.
func (d *Dispatch) ObserveRun(result string, took time.Duration) {
	d.runs.WithLabelValues(result).Inc()
	d.duration.Observe(took.Seconds())
	if result == "ok" {
		d.lastRun.SetToCurrentTime()
	}
}

// AddOutcome учитывает n напоминаний с исходом outcome.
func (d *Dispatch) AddOutcome(outcome string, n int) {
	if n <= 0 {
		return
	}
	d.reminders.WithLabelValues(outcome).Add(float64(n))
}

// HTTP метрики запросов API.
type HTTP struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTP регистрирует метрики API в reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(h.requests, h.latency)
	return h
}

// Middleware считает запросы и их длительность.
func (h *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		h.latency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
