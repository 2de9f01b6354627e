package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Domain metrics
	signupsTotal    *prometheus.CounterVec
	confirmsTotal   *prometheus.CounterVec
	publishesTotal  *prometheus.CounterVec
	issueEmailsSent prometheus.Counter
)

// MetricsConfig agrupa dependencias necesarias para exponer /metrics.
type MetricsConfig struct {
	Registry prometheus.Registerer
	Pool     func() *pgxpool.Stat
}

// RegisterMetrics inicializa las métricas y devuelve el handler para
// /metrics. Opcionalmente registra un collector con el estado del pool
// de Postgres.
func RegisterMetrics(cfg MetricsConfig) (http.Handler, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método",
		}, []string{"method"})

		signupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_signups_total",
			Help: "Altas de suscripción por resultado",
		}, []string{"result"}) // result: accepted|invalid|failed

		confirmsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subscription_confirms_total",
			Help: "Confirmaciones por resultado",
		}, []string{"result"}) // result: confirmed|unknown_token|invalid|failed

		publishesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_publishes_total",
			Help: "Publicaciones de boletín por resultado",
		}, []string{"result"}) // result: published|unauthorized|failed

		issueEmailsSent = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_issue_emails_sent_total",
			Help: "Correos de boletín entregados",
		})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			signupsTotal, confirmsTotal, publishesTotal, issueEmailsSent,
		} {
			if err := registry.Register(c); err != nil {
				metricsErr = err
				return
			}
		}

		if cfg.Pool != nil {
			if err := registry.Register(&poolCollector{stat: cfg.Pool}); err != nil {
				metricsErr = err
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	if g, ok := registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

// WithMetrics instrumenta cada request con contadores y latencia.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}
		gauge := httpInflight.WithLabelValues(r.Method)
		gauge.Inc()
		defer gauge.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		// El label path usa el patrón de ruta, no el path crudo: un
		// escaneo de 404s no puede inflar la cardinalidad.
		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ─────────────── Pool collector ───────────────

var (
	poolAcquiredDesc = prometheus.NewDesc("pg_pool_acquired_conns", "Conexiones adquiridas del pool", nil, nil)
	poolIdleDesc     = prometheus.NewDesc("pg_pool_idle_conns", "Conexiones ociosas del pool", nil, nil)
	poolTotalDesc    = prometheus.NewDesc("pg_pool_total_conns", "Conexiones totales del pool", nil, nil)
)

type poolCollector struct {
	stat func() *pgxpool.Stat
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolAcquiredDesc
	ch <- poolIdleDesc
	ch <- poolTotalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.stat()
	if st == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(poolAcquiredDesc, prometheus.GaugeValue, float64(st.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(poolIdleDesc, prometheus.GaugeValue, float64(st.IdleConns()))
	ch <- prometheus.MustNewConstMetric(poolTotalDesc, prometheus.GaugeValue, float64(st.TotalConns()))
}
