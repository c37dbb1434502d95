package metrics

import "github.com/prometheus/client_golang/prometheus"

// Lookup results recorded by CatalogMetrics.
const (
	LookupHit    = "hit"
	LookupMiss   = "miss"
	LookupShared = "shared"
	LookupFailed = "failed"
)

// CatalogMetrics records product cache effectiveness.
type CatalogMetrics struct {
	lookups    *prometheus.CounterVec
	superseded prometheus.Counter
}

// NewCatalogMetrics registers the catalog cache metrics on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Product resolutions by cache result.",
	}, []string{"result"})
	superseded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_lookups_superseded_total",
		Help: "Search lookups discarded because a newer lookup replaced them.",
	})
	reg.MustRegister(lookups, superseded)
	return &CatalogMetrics{lookups: lookups, superseded: superseded}
}

// IncLookup counts one resolution with the given result.
func (m *CatalogMetrics) IncLookup(result string) {
	if m == nil || m.lookups == nil {
		return
	}
	m.lookups.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncSuperseded counts one discarded lookup.
func (m *CatalogMetrics) IncSuperseded() {
	if m == nil || m.superseded == nil {
		return
	}
	m.superseded.Inc()
}
