package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	registerOnce sync.Once
	registerErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	oracleCallsTotal    *prometheus.CounterVec
	oracleCallDuration  prometheus.Histogram
	bufferedScans       prometheus.Gauge
)

// Register creates the collectors once and returns the /metrics handler.
func Register(reg prometheus.Registerer) (fasthttp.RequestHandler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status.",
		}, []string{"method", "route", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 3, 5, 10, 30},
		}, []string{"method", "route"})

		oracleCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_calls_total",
			Help: "Scoring oracle calls by outcome.",
		}, []string{"outcome"})

		oracleCallDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oracle_call_duration_seconds",
			Help:    "Scoring oracle latency, excluding the minimum-duration floor.",
			Buckets: prometheus.DefBuckets,
		})

		bufferedScans = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "buffered_scan_records",
			Help: "Scan records waiting in the local buffer.",
		})

		for _, c := range []prometheus.Collector{httpRequestsTotal, httpRequestDuration, oracleCallsTotal, oracleCallDuration, bufferedScans} {
			if err := registerCollector(reg, c); err != nil {
				registerErr = err
				return
			}
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}

	return fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()), nil
}

// Instrument wraps a routed handler with request counters. route is the pattern, not the raw path.
func Instrument(route string, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		if httpRequestsTotal == nil {
			return
		}
		method := string(ctx.Method())
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(ctx.Response.StatusCode())).Inc()
	}
}

// ObserveOracle records one scoring call.
func ObserveOracle(outcome string, d time.Duration) {
	if oracleCallsTotal == nil {
		return
	}
	oracleCallsTotal.WithLabelValues(outcome).Inc()
	oracleCallDuration.Observe(d.Seconds())
}

// SetBufferedScans reports the current buffer depth.
func SetBufferedScans(n int) {
	if bufferedScans == nil {
		return
	}
	bufferedScans.Set(float64(n))
}

func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}
