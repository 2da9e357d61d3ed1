package receipt

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bharathkumarkammari/Receipt-Parser/internal/parsing"
)

// Outcomes recorded on the receipts counter
const (
	outcomeSaved        = "saved"
	outcomeExtractError = "extract_error"
	outcomeNoText       = "no_text"
	outcomeNoItems      = "no_items"
	outcomeStoreError   = "store_error"
)

// Metrics holds the parser's Prometheus collectors on a private registry
type Metrics struct {
	registry   *prometheus.Registry
	receipts   *prometheus.CounterVec
	items      prometheus.Histogram
	discounts  prometheus.Counter
	mismatches *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receipt_parser",
			Name:      "receipts_processed_total",
			Help:      "Uploaded receipts by processing outcome.",
		}, []string{"outcome"}),
		items: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "receipt_parser",
			Name:      "items_per_receipt",
			Help:      "Line items recognized per parsed receipt.",
			Buckets:   []float64{1, 5, 10, 20, 40, 80},
		}),
		discounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "receipt_parser",
			Name:      "discounts_applied_total",
			Help:      "Instant-savings lines bound to an item.",
		}),
		mismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "receipt_parser",
			Name:      "validation_mismatches_total",
			Help:      "Declared totals that disagree with the calculated ones.",
		}, []string{"field"}),
	}

	m.registry.MustRegister(
		m.receipts,
		m.items,
		m.discounts,
		m.mismatches,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeOutcome(outcome string) {
	m.receipts.WithLabelValues(outcome).Inc()
}

// observeRecord counts a parsed record's items, discounts and mismatches
func (m *Metrics) observeRecord(r *parsing.Record) {
	m.items.Observe(float64(len(r.Items)))
	for _, item := range r.Items {
		if !item.Discount.IsZero() {
			m.discounts.Inc()
		}
	}
	if r.SubtotalValid != nil && !*r.SubtotalValid {
		m.mismatches.WithLabelValues("subtotal").Inc()
	}
	if r.TotalValid != nil && !*r.TotalValid {
		m.mismatches.WithLabelValues("total").Inc()
	}
}
