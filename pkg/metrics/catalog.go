package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CatalogMetrics records resolve and import outcomes.
type CatalogMetrics struct {
	resolves        *prometheus.CounterVec
	conflictRetries prometheus.Counter
	importItems     *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec
}

// NewCatalogMetrics registers the catalog metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	resolves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_resolve_total",
		Help: "Get-or-create resolutions by outcome (created, linked, conflict).",
	}, []string{"outcome"})
	conflictRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_resolve_conflict_retries_total",
		Help: "Conditional-create races that forced a re-read.",
	})
	importItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_items_total",
		Help: "Bulk import items by result (created, linked, failed).",
	}, []string{"result"})
	importDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_import_job_duration_seconds",
		Help:    "Wall time of bulk import jobs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	reg.MustRegister(resolves, conflictRetries, importItems, importDuration)
	return &CatalogMetrics{
		resolves:        resolves,
		conflictRetries: conflictRetries,
		importItems:     importItems,
		importDuration:  importDuration,
	}
}

// IncResolve increments the resolve counter for the given outcome.
func (c *CatalogMetrics) IncResolve(outcome string) {
	if c == nil || c.resolves == nil {
		return
	}
	c.resolves.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncConflictRetry counts one lost conditional-create race.
func (c *CatalogMetrics) IncConflictRetry() {
	if c == nil || c.conflictRetries == nil {
		return
	}
	c.conflictRetries.Inc()
}

// IncImportItem increments the import item counter for the given result.
func (c *CatalogMetrics) IncImportItem(result string) {
	if c == nil || c.importItems == nil {
		return
	}
	c.importItems.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveImportDuration records the wall time of a finished import job.
func (c *CatalogMetrics) ObserveImportDuration(source string, duration time.Duration) {
	if c == nil || c.importDuration == nil {
		return
	}
	c.importDuration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
