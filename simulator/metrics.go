package simulator

// Metrics tracks event throughput and the conserved quantities of the box
type Metrics struct {
	Timestamp float64 `json:"timestamp"` // Virtual time

	// Cumulative counters
	EventsProcessed int `json:"eventsProcessed"` // Valid events resolved, cell transitions included
	PairCollisions  int `json:"pairCollisions"`  // Particle-particle bounces
	WallCollisions  int `json:"wallCollisions"`  // Particle-wall bounces
	CellTransitions int `json:"cellTransitions"` // Grid re-homing events
	StaleEvents     int `json:"staleEvents"`     // Predictions discarded on pop

	// Current state
	QueueLength   int     `json:"queueLength"`   // Pending events, stale ones included
	ParticleCount int     `json:"particleCount"` // Particles actually placed
	KineticEnergy float64 `json:"kineticEnergy"` // Sum of 1/2 m v^2
	MomentumX     float64 `json:"momentumX"`     // Not conserved: walls reverse it
	MomentumY     float64 `json:"momentumY"`     // Conserved: y has no walls
}

// NewMetrics creates a new metrics tracker
func NewMetrics() *Metrics {
	return &Metrics{}
}

// recordEvent counts a resolved event
func (m *Metrics) recordEvent(t EventType) {
	m.EventsProcessed++
	switch t {
	case EventTypePairCollision:
		m.PairCollisions++
	case EventTypeWallHit:
		m.WallCollisions++
	case EventTypeCellTransition:
		m.CellTransitions++
	}
}

// observe refreshes the state-derived fields
func (m *Metrics) observe(now float64, particles []Particle, queueLen int) {
	m.Timestamp = now
	m.QueueLength = queueLen
	m.ParticleCount = len(particles)
	m.KineticEnergy = 0
	m.MomentumX = 0
	m.MomentumY = 0
	for i := range particles {
		p := &particles[i]
		m.KineticEnergy += p.KineticEnergy()
		m.MomentumX += p.Mass * p.Vx
		m.MomentumY += p.Mass * p.Vy
	}
}

// Clone returns a copy of the metrics
func (m *Metrics) Clone() *Metrics {
	c := *m
	return &c
}
