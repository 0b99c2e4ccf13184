// Package metrics stellt die Prometheus-Metriken der Anwendung bereit.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics enthält alle Prometheus-Metriken der Verarbeitung.
// Alle Methoden sind auf einem nil-Empfänger wirkungslos.
type Metrics struct {
	InferenceRequests *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	ImagesProcessed   *prometheus.CounterVec
	Batches           *prometheus.CounterVec
	RunInProgress     prometheus.Gauge
	URLFetches        *prometheus.CounterVec
	URLCacheHits      prometheus.Counter
	registry          *prometheus.Registry
}

// New erstellt die Metriken und registriert sie an der Registry
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.InferenceRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "luminaria_inference_requests_total",
		Help: "Total number of inference requests by result.",
	}, []string{"result"})

	m.InferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "luminaria_inference_duration_seconds",
		Help:    "Duration of inference requests in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	})

	m.ImagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "luminaria_images_processed_total",
		Help: "Total number of processed images by final status.",
	}, []string{"status"})

	m.Batches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "luminaria_batches_total",
		Help: "Total number of consolidated records by verdict.",
	}, []string{"coincidencia"})

	m.RunInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "luminaria_run_in_progress",
		Help: "1 while a processing run is active.",
	})

	m.URLFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "luminaria_url_fetches_total",
		Help: "Total number of URL image fetches by result.",
	}, []string{"result"})

	m.URLCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "luminaria_url_cache_hits_total",
		Help: "Total number of URL fetches served from cache.",
	})
}

// ObserveInference zählt einen Inferenzaufruf und seine Dauer
func (m *Metrics) ObserveInference(result string, seconds float64) {
	if m == nil {
		return
	}
	m.InferenceRequests.WithLabelValues(result).Inc()
	m.InferenceDuration.Observe(seconds)
}

// IncImagesProcessed zählt ein fertig verarbeitetes Bild
func (m *Metrics) IncImagesProcessed(status string) {
	if m == nil {
		return
	}
	m.ImagesProcessed.WithLabelValues(status).Inc()
}

// IncBatches zählt einen konsolidierten Datensatz
func (m *Metrics) IncBatches(coincidencia string) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(coincidencia).Inc()
}

// SetRunInProgress setzt den Laufstatus
func (m *Metrics) SetRunInProgress(active bool) {
	if m == nil {
		return
	}
	if active {
		m.RunInProgress.Set(1)
		return
	}
	m.RunInProgress.Set(0)
}

// IncURLFetches zählt einen Download per URL
func (m *Metrics) IncURLFetches(result string) {
	if m == nil {
		return
	}
	m.URLFetches.WithLabelValues(result).Inc()
}

// IncURLCacheHits zählt einen Treffer im Download-Cache
func (m *Metrics) IncURLCacheHits() {
	if m == nil {
		return
	}
	m.URLCacheHits.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.InferenceRequests.Collect(ch)
	ch <- m.InferenceDuration
	m.ImagesProcessed.Collect(ch)
	m.Batches.Collect(ch)
	ch <- m.RunInProgress
	m.URLFetches.Collect(ch)
	ch <- m.URLCacheHits
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.InferenceRequests.Describe(ch)
	ch <- m.InferenceDuration.Desc()
	m.ImagesProcessed.Describe(ch)
	m.Batches.Describe(ch)
	ch <- m.RunInProgress.Desc()
	m.URLFetches.Describe(ch)
	ch <- m.URLCacheHits.Desc()
}
