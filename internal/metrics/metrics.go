// Package metrics exposes prometheus counters for the API. A nil *Collector
// is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application's prometheus metrics
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	VisionsCreated    *prometheus.CounterVec
	ImageGenerations  *prometheus.CounterVec
	ImageDuration     prometheus.Histogram
	Likes             *prometheus.CounterVec
	AnonymousLimited  prometheus.Counter
	GuestMigrations   *prometheus.CounterVec
	GuestVisionsMoved prometheus.Counter
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		VisionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "visions_created_total",
				Help:      "Visions created, by source (account or anonymous)",
			},
			[]string{"source"},
		),
		ImageGenerations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_generations_total",
				Help:      "Image generations, by result (ai or fallback)",
			},
			[]string{"result"},
		),
		ImageDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_generation_duration_seconds",
				Help:      "Time spent generating images",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		Likes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "likes_total",
				Help:      "Like toggles, by action (like or unlike)",
			},
			[]string{"action"},
		),
		AnonymousLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anonymous_rate_limited_total",
				Help:      "Anonymous generations rejected by the daily limit",
			},
		),
		GuestMigrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guest_migrations_total",
				Help:      "Guest to account migrations, by outcome",
			},
			[]string{"outcome"},
		),
		GuestVisionsMoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guest_visions_migrated_total",
				Help:      "Guest visions moved into accounts",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.VisionsCreated,
		c.ImageGenerations,
		c.ImageDuration,
		c.Likes,
		c.AnonymousLimited,
		c.GuestMigrations,
		c.GuestVisionsMoved,
	)
	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// VisionCreated counts a new vision
func (c *Collector) VisionCreated(source string) {
	if c == nil {
		return
	}
	c.VisionsCreated.WithLabelValues(source).Inc()
}

// ImageGenerated records one image generation
func (c *Collector) ImageGenerated(fallback bool, took time.Duration) {
	if c == nil {
		return
	}
	result := "ai"
	if fallback {
		result = "fallback"
	}
	c.ImageGenerations.WithLabelValues(result).Inc()
	c.ImageDuration.Observe(took.Seconds())
}

// LikeToggled counts a like or unlike
func (c *Collector) LikeToggled(liked bool) {
	if c == nil {
		return
	}
	action := "unlike"
	if liked {
		action = "like"
	}
	c.Likes.WithLabelValues(action).Inc()
}

// RateLimited counts an anonymous rejection
func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.AnonymousLimited.Inc()
}

// GuestMigrated records a migration attempt
func (c *Collector) GuestMigrated(err error, visions int) {
	if c == nil {
		return
	}
	if err != nil {
		c.GuestMigrations.WithLabelValues("error").Inc()
		return
	}
	c.GuestMigrations.WithLabelValues("success").Inc()
	c.GuestVisionsMoved.Add(float64(visions))
}

// Middleware records request counts and latency by route template
func (c *Collector) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if c == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if cr := mux.CurrentRoute(r); cr != nil {
				if tpl, err := cr.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
