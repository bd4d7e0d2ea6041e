package simulator

// ParticleState is the per-particle view handed to renderers
type ParticleState struct {
	Rx     float64 `json:"rx" msgpack:"rx"`
	Ry     float64 `json:"ry" msgpack:"ry"`
	Vx     float64 `json:"vx" msgpack:"vx"`
	Vy     float64 `json:"vy" msgpack:"vy"`
	Radius float64 `json:"radius" msgpack:"r"`
}

// Snapshot is the box as of VirtualTime, in particle index order
type Snapshot struct {
	VirtualTime float64         `json:"virtualTime" msgpack:"t"`
	Width       float64         `json:"width" msgpack:"w"`
	Height      float64         `json:"height" msgpack:"h"`
	Particles   []ParticleState `json:"particles" msgpack:"p"`
}

// Snapshot copies the current particle positions
func (s *Simulator) Snapshot() *Snapshot {
	snap := &Snapshot{
		VirtualTime: s.virtualTime,
		Width:       s.config.Width,
		Height:      s.config.Height,
		Particles:   make([]ParticleState, len(s.particles)),
	}
	for i := range s.particles {
		p := &s.particles[i]
		snap.Particles[i] = ParticleState{Rx: p.Rx, Ry: p.Ry, Vx: p.Vx, Vy: p.Vy, Radius: p.Radius}
	}
	return snap
}
