package metrics

import (
	"errors"
	"strconv"

	"github.com/Borislavv/transfer-cache/pkg/transfercache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var MetricRegisterErrorMessage = "failed to register metric"

// Meter publishes transfer-cache state to prometheus. Counters are fed from
// periodic stats snapshots, keeping the cache hot paths free of metric calls.
type Meter interface {
	Report(stats []transfercache.Stats)
}

type Metrics struct {
	capacityGauge  *prometheus.GaugeVec
	occupancyGauge *prometheus.GaugeVec
	insertHits     *prometheus.CounterVec
	insertMisses   *prometheus.CounterVec
	removeHits     *prometheus.CounterVec
	removeMisses   *prometheus.CounterVec
	grows          *prometheus.CounterVec
	shrinks        *prometheus.CounterVec

	prev map[int]transfercache.Stats
}

func New() (*Metrics, error) {
	labels := []string{"size_class"}

	m := &Metrics{
		capacityGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transfer_cache_capacity_batches",
			Help: "Current capacity of the transfer cache in batches.",
		}, labels),
		occupancyGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transfer_cache_occupancy_batches",
			Help: "Currently occupied slots of the transfer cache in batches.",
		}, labels),
		insertHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_cache_insert_hits_total",
			Help: "Inserts serviced by the transfer cache ring.",
		}, labels),
		insertMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_cache_insert_misses_total",
			Help: "Inserts overflowed to the central free list.",
		}, labels),
		removeHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_cache_remove_hits_total",
			Help: "Removes serviced by the transfer cache ring.",
		}, labels),
		removeMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_cache_remove_misses_total",
			Help: "Removes fallen through to the central free list.",
		}, labels),
		grows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_cache_grows_total",
			Help: "Capacity slots gained from sibling caches.",
		}, labels),
		shrinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transfer_cache_shrinks_total",
			Help: "Capacity slots released to sibling caches.",
		}, labels),
		prev: make(map[int]transfercache.Stats),
	}

	for _, c := range []prometheus.Collector{
		m.capacityGauge, m.occupancyGauge,
		m.insertHits, m.insertMisses,
		m.removeHits, m.removeMisses,
		m.grows, m.shrinks,
	} {
		if err := prometheus.Register(c); err != nil {
			log.Err(err).Msg(MetricRegisterErrorMessage)
			return nil, errors.New(MetricRegisterErrorMessage)
		}
	}

	return m, nil
}

// Report publishes one round of stats snapshots. Monotonic counters are
// converted to deltas against the previous round.
func (m *Metrics) Report(stats []transfercache.Stats) {
	for _, st := range stats {
		sc := strconv.Itoa(st.SizeClass)
		prev := m.prev[st.SizeClass]

		m.capacityGauge.WithLabelValues(sc).Set(float64(st.Capacity))
		m.occupancyGauge.WithLabelValues(sc).Set(float64(st.Occupancy))

		m.insertHits.WithLabelValues(sc).Add(float64(st.InsertHits - prev.InsertHits))
		m.insertMisses.WithLabelValues(sc).Add(float64(st.InsertMisses - prev.InsertMisses))
		m.removeHits.WithLabelValues(sc).Add(float64(st.RemoveHits - prev.RemoveHits))
		m.removeMisses.WithLabelValues(sc).Add(float64(st.RemoveMisses - prev.RemoveMisses))
		m.grows.WithLabelValues(sc).Add(float64(st.Grows - prev.Grows))
		m.shrinks.WithLabelValues(sc).Add(float64(st.Shrinks - prev.Shrinks))

		m.prev[st.SizeClass] = st
	}
}
