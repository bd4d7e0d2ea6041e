package main

import (
	"github.com/miretskiy/billiards/simulator"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Prometheus metrics (gauges)
	promMetrics = struct {
		virtualTime   prometheus.Gauge
		kineticEnergy prometheus.Gauge
		momentumY     prometheus.Gauge
		particles     prometheus.Gauge
		queueLength   prometheus.Gauge
		staleEvents   prometheus.Gauge
		events        *prometheus.GaugeVec
	}{
		virtualTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billiards_virtual_time",
			Help: "Virtual time of the last resolved event or tick",
		}),
		kineticEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billiards_kinetic_energy",
			Help: "Total kinetic energy (should stay constant)",
		}),
		momentumY: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billiards_momentum_y",
			Help: "Total momentum along the periodic axis (should stay constant)",
		}),
		particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billiards_particles",
			Help: "Number of particles placed",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billiards_queue_length",
			Help: "Pending events, stale predictions included",
		}),
		staleEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "billiards_stale_events",
			Help: "Predictions discarded because a participant collided first",
		}),
		events: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "billiards_events",
			Help: "Resolved events by type",
		}, []string{"type"}),
	}
)

func initPrometheusMetrics() {
	prometheus.MustRegister(
		promMetrics.virtualTime,
		promMetrics.kineticEnergy,
		promMetrics.momentumY,
		promMetrics.particles,
		promMetrics.queueLength,
		promMetrics.staleEvents,
		promMetrics.events,
	)
}

func updatePrometheusMetrics(metrics *simulator.Metrics) {
	promMetrics.virtualTime.Set(metrics.Timestamp)
	promMetrics.kineticEnergy.Set(metrics.KineticEnergy)
	promMetrics.momentumY.Set(metrics.MomentumY)
	promMetrics.particles.Set(float64(metrics.ParticleCount))
	promMetrics.queueLength.Set(float64(metrics.QueueLength))
	promMetrics.staleEvents.Set(float64(metrics.StaleEvents))

	promMetrics.events.WithLabelValues(simulator.EventTypePairCollision.String()).Set(float64(metrics.PairCollisions))
	promMetrics.events.WithLabelValues(simulator.EventTypeWallHit.String()).Set(float64(metrics.WallCollisions))
	promMetrics.events.WithLabelValues(simulator.EventTypeCellTransition.String()).Set(float64(metrics.CellTransitions))
}
