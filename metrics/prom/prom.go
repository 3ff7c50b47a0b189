// Package prom exports cache metrics to Prometheus.
package prom

import (
	"github.com/ZaguanLabs/honyaku/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements cache.Metrics with Prometheus counters and gauges.
// All Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits    *prometheus.CounterVec
	misses  *prometheus.CounterVec
	evicts  prometheus.Counter
	entries prometheus.Gauge
}

// New constructs an adapter and registers its collectors.
//   - reg:         registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:     Prometheus namespace and subsystem
//   - constLabels: static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "hits_total",
				Help:        "Cache hits by kind",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		misses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "misses_total",
				Help:        "Cache misses by kind",
				ConstLabels: constLabels,
			},
			[]string{"kind"},
		),
		evicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_total",
			Help:        "Translations evicted by FIFO capacity",
			ConstLabels: constLabels,
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "admission_slots",
			Help:        "Occupied admission queue slots",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.entries)
	return a
}

// Hit increments the hit counter for kind.
func (a *Adapter) Hit(kind cache.Kind) { a.hits.WithLabelValues(string(kind)).Inc() }

// Miss increments the miss counter for kind.
func (a *Adapter) Miss(kind cache.Kind) { a.misses.WithLabelValues(string(kind)).Inc() }

// Evict increments the eviction counter.
func (a *Adapter) Evict() { a.evicts.Inc() }

// Size sets the admission slot gauge.
func (a *Adapter) Size(entries int) { a.entries.Set(float64(entries)) }

// Hits exposes the hit counter for kind.
func (a *Adapter) Hits(kind cache.Kind) prometheus.Counter {
	return a.hits.WithLabelValues(string(kind))
}

// Misses exposes the miss counter for kind.
func (a *Adapter) Misses(kind cache.Kind) prometheus.Counter {
	return a.misses.WithLabelValues(string(kind))
}

// Evictions exposes the eviction counter for inspection.
func (a *Adapter) Evictions() prometheus.Counter { return a.evicts }

// Entries exposes the admission slot gauge for inspection.
func (a *Adapter) Entries() prometheus.Gauge { return a.entries }

var _ cache.Metrics = (*Adapter)(nil)
