package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exports observations on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	processorDuration *prometheus.HistogramVec
	insertDuration    prometheus.Histogram
	lookupDuration    *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	events            *prometheus.CounterVec
	cache             *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		processorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkout_processor_request_duration_ms",
			Help:    "PayPal API call duration in milliseconds",
			Buckets: []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"op", "status"}),
		insertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "checkout_order_insert_duration_ms",
			Help:    "Order record insert duration in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "checkout_order_lookup_duration_ms",
			Help:    "Order record lookup duration in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50},
		}, []string{"source"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000},
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_capture_events_total",
			Help: "Capture events published, by outcome",
		}, []string{"ok"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_order_cache_total",
			Help: "Order cache lookups, by result",
		}, []string{"result"}),
	}
	p.registry.MustRegister(
		p.processorDuration, p.insertDuration, p.lookupDuration,
		p.httpRequests, p.httpDuration, p.events, p.cache,
	)
	return p
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) ObserveProcessor(op string, status int, durMs float64) {
	p.processorDuration.WithLabelValues(op, strconv.Itoa(status)).Observe(durMs)
}

func (p *Prometheus) ObserveInsert(dbWriteMs float64) {
	p.insertDuration.Observe(dbWriteMs)
}

func (p *Prometheus) ObserveLookup(source string, cacheMs, dbMs float64) {
	p.lookupDuration.WithLabelValues(source).Observe(cacheMs + dbMs)
}

func (p *Prometheus) ObserveHTTP(method, route string, status int, durMs float64) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(durMs)
}

func (p *Prometheus) ObserveEvent(_ float64, ok bool) {
	p.events.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (p *Prometheus) IncCacheHit()  { p.cache.WithLabelValues("hit").Inc() }
func (p *Prometheus) IncCacheMiss() { p.cache.WithLabelValues("miss").Inc() }
