// Package metrics exposes Prometheus instrumentation for the client's
// request lifecycle, wired in through middlewares and trace hooks.
package metrics

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	httpcore "github.com/frankli0324/go-httpcore"
)

// Collector provides Prometheus metrics for the request lifecycle. It
// is safe for concurrent use.
type Collector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	requestBytes  *prometheus.CounterVec
	responseBytes *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewCollector creates a collector on the default registerer.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewCollectorWithRegistry(registry prometheus.Registerer) *Collector {
	return &Collector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpcore_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code", "host"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "httpcore_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "host"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "httpcore_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "host"},
		),
		requestBytes: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpcore_request_body_bytes_total",
				Help: "Total request body bytes written",
			},
			[]string{"method", "host"},
		),
		responseBytes: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpcore_response_body_bytes_total",
				Help: "Total response body bytes read",
			},
			[]string{"method", "host"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "httpcore_errors_total",
				Help: "Total number of request errors",
			},
			[]string{"method", "host"},
		),
	}
}

// Trace returns trace hooks counting body bytes in both directions.
// Attach it to [httpcore.Request.Traces].
func (c *Collector) Trace() *httpcore.ClientTrace {
	if c == nil {
		return &httpcore.ClientTrace{}
	}
	return &httpcore.ClientTrace{
		RequestChunkSent: func(method string, u *url.URL, chunk []byte) {
			c.requestBytes.WithLabelValues(method, u.Host).Add(float64(len(chunk)))
		},
		ResponseChunkReceived: func(method string, u *url.URL, chunk []byte) {
			c.responseBytes.WithLabelValues(method, u.Host).Add(float64(len(chunk)))
		},
	}
}

// Middleware returns a client middleware recording request counts,
// durations, and in-flight gauges, labeled by method, status and host.
func (c *Collector) Middleware() httpcore.Middleware {
	return func(next httpcore.Handler) httpcore.Handler {
		return func(ctx context.Context, req *httpcore.PreparedRequest) (*httpcore.Response, error) {
			if c == nil {
				return next(ctx, req)
			}
			host := req.URL.Host
			c.requestsInFlight.WithLabelValues(req.Method, host).Inc()
			start := time.Now()
			resp, err := next(ctx, req)
			c.requestsInFlight.WithLabelValues(req.Method, host).Dec()
			if err != nil {
				c.errorsTotal.WithLabelValues(req.Method, host).Inc()
				return nil, err
			}
			status := strconv.Itoa(resp.Status)
			c.requestsTotal.WithLabelValues(req.Method, status, host).Inc()
			c.requestDuration.WithLabelValues(req.Method, status, host).Observe(time.Since(start).Seconds())
			return resp, nil
		}
	}
}
