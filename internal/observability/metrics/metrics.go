// Package metrics exports the mining pipeline as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"voxelmine.ai/internal/sim/mining/drops"
	"voxelmine.ai/internal/sim/model"
)

const (
	namespace = "voxelmine"
	subsystem = "mining"
)

// Mining implements mining.Observer. Collectors are registered on the
// registerer passed to New, never on the global one.
type Mining struct {
	strikes    prometheus.Counter
	destroyed  prometheus.Counter
	commits    *prometheus.CounterVec
	drops      *prometheus.CounterVec
	breakups   *prometheus.CounterVec
	hitEntries prometheus.Gauge
}

func New(reg prometheus.Registerer) *Mining {
	m := &Mining{
		strikes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "strikes_total",
			Help:      "Strike damage applications to cluster elements.",
		}),
		destroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "elements_destroyed_total",
			Help:      "Blocks removed by committed mining transactions.",
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commits_total",
			Help:      "Mining transactions by result.",
		}, []string{"result"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "drops_total",
			Help:      "Drop resolutions by outcome.",
		}, []string{"outcome"}),
		breakups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "standalone_breakups_total",
			Help:      "Rubble breakups by result.",
		}, []string{"result"}),
		hitEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hit_cache_entries",
			Help:      "Pending damage entries across all live hit caches.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.strikes, m.destroyed, m.commits, m.drops, m.breakups, m.hitEntries)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Mining) Strike(string, model.Element, float64) { m.strikes.Inc() }

func (m *Mining) Committed(_ string, destroyed int, err error) {
	m.commits.WithLabelValues(result(err)).Inc()
	if err == nil && destroyed > 0 {
		m.destroyed.Add(float64(destroyed))
	}
}

func (m *Mining) Dropped(_ string, _ model.Element, out drops.Outcome) {
	m.drops.WithLabelValues(out.Kind.String()).Inc()
}

func (m *Mining) BrokeUp(_ string, _ model.Standalone, err error) {
	m.breakups.WithLabelValues(result(err)).Inc()
}

// AddHitEntries moves the hit cache gauge by delta.
func (m *Mining) AddHitEntries(delta int) {
	if delta != 0 {
		m.hitEntries.Add(float64(delta))
	}
}

func (m *Mining) HitEntries() prometheus.Gauge { return m.hitEntries }
