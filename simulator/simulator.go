package simulator

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
)

const (
	// maxPlacementFailures bounds consecutive rejected placements before the
	// box settles for fewer particles than requested.
	maxPlacementFailures = 100000

	// escapeEpsilon pushes cell exits just past the boundary so the particle
	// lands inside the next cell instead of on the shared edge.
	escapeEpsilon = 1e-10
)

// Simulator is an event-driven hard-disk simulator with NO concurrency primitives.
// All state is accessed single-threaded via Update() and Step().
// The caller (cmd/server, cmd/termview) manages pacing and threading.
type Simulator struct {
	config      SimConfig
	particles   []Particle
	grid        *Grid
	queue       *EventQueue
	metrics     *Metrics
	virtualTime float64

	// Event logging callback (optional, for UI/debugging)
	LogEvent func(msg string)
	// LogOutput receives log lines as well; nil means stdout
	LogOutput io.Writer
}

// NewSimulator validates the config, places up to MaxParticles
// non-overlapping disks and predicts their first events.
func NewSimulator(config SimConfig) (*Simulator, error) {
	sim, err := sampleSimulator(config)
	if err != nil {
		return nil, err
	}
	sim.logPlacement()
	return sim, nil
}

func sampleSimulator(config SimConfig) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if config.RandomSeed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	} else {
		rng = rand.New(rand.NewSource(config.RandomSeed))
	}
	return newSimulator(config, placeParticles(config, rng)), nil
}

func (s *Simulator) logPlacement() {
	if len(s.particles) < s.config.MaxParticles {
		s.logEvent("[INIT] placement gave up after %d consecutive failures: placed %d/%d particles",
			maxPlacementFailures, len(s.particles), s.config.MaxParticles)
		return
	}
	s.logEvent("[INIT] placed %d particles in %.1fx%.1f box", len(s.particles), s.config.Width, s.config.Height)
}

// NewSimulatorWithParticles builds a box from an explicit layout instead of
// sampling one. Particles are copied; every radius must be covered by the
// config's largest radius, and no two disks may overlap.
func NewSimulatorWithParticles(config SimConfig, particles []Particle) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	maxRadius := config.MaxRadius()
	own := make([]Particle, len(particles))
	copy(own, particles)
	for i := range own {
		p := &own[i]
		if p.Radius <= 0 || p.Radius > maxRadius {
			return nil, ErrInvalidParticles(fmt.Sprintf("particle %d radius %g outside (0, %g]", i, p.Radius, maxRadius))
		}
		if p.Mass <= 0 {
			return nil, ErrInvalidParticles(fmt.Sprintf("particle %d mass must be > 0", i))
		}
		if p.Rx < p.Radius || p.Rx > config.Width-p.Radius {
			return nil, ErrInvalidParticles(fmt.Sprintf("particle %d at x=%g crosses a wall", i, p.Rx))
		}
		p.Ry -= math.Floor(p.Ry/config.Height) * config.Height
		for j := 0; j < i; j++ {
			if p.overlaps(&own[j], config.Height) {
				return nil, ErrInvalidParticles(fmt.Sprintf("particles %d and %d overlap", j, i))
			}
		}
	}

	return newSimulator(config, own), nil
}

func newSimulator(config SimConfig, particles []Particle) *Simulator {
	s := &Simulator{
		config:    config,
		particles: particles,
		grid:      NewGrid(config.Width, config.Height, config.MaxRadius(), particles),
		queue:     NewEventQueue(),
		metrics:   NewMetrics(),
	}
	for i := range s.particles {
		s.predict(i, 0)
	}
	return s
}

// placeParticles rejection-samples non-overlapping disks. Running out of the
// failure budget is not an error: the box just holds fewer particles.
func placeParticles(config SimConfig, rng *rand.Rand) []Particle {
	particles := make([]Particle, 0, config.MaxParticles)
	speeds := NewSpeedDistribution(config.SpeedDistribution)
	failures := 0
	for len(particles) < config.MaxParticles && failures < maxPlacementFailures {
		radius := config.Radii[rng.Intn(len(config.Radii))]
		rx := (config.Width-2*radius)*rng.Float64() + radius
		ry := config.Height * rng.Float64()
		theta := 2 * math.Pi * rng.Float64()
		speed := speeds.Sample(rng, config.Speed)
		p := NewParticle(rx, ry, speed*math.Cos(theta), speed*math.Sin(theta), radius, radius)

		overlapping := false
		for i := range particles {
			if p.overlaps(&particles[i], config.Height) {
				overlapping = true
				break
			}
		}
		if overlapping {
			failures++
			continue
		}
		failures = 0
		particles = append(particles, p)
	}
	return particles
}

// predict pushes every event particle i can take part in before it leaves
// its cell. Partners outside the 3x3 neighbourhood are unreachable until
// the cell transition fires, and that transition predicts again.
func (s *Simulator) predict(i int, t float64) {
	p := &s.particles[i]
	c := s.grid.CellOf(i)
	b := s.grid.Bounds(c)

	escape := t + p.TimeToEscapeCell(b.XMin-escapeEpsilon, b.XMax+escapeEpsilon, b.YMin-escapeEpsilon, b.YMax+escapeEpsilon)
	if !math.IsInf(escape, 1) {
		s.queue.Push(NewCellTransitionEvent(escape, i, p.Collisions))
	}

	if s.grid.IsBoundary(c) {
		tt := t + nonNegative(p.TimeToHitVerticalWall(0, s.config.Width))
		if tt < escape {
			s.queue.Push(NewWallHitEvent(tt, i, p.Collisions))
		}
	}

	for _, nc := range s.grid.Neighbors(c) {
		for _, j := range s.grid.Residents(nc) {
			if j == i {
				continue
			}
			q := &s.particles[j]
			tt := t + nonNegative(p.TimeToHit(q, s.config.Height))
			if tt < escape {
				s.queue.Push(NewPairCollisionEvent(tt, i, j, p.Collisions, q.Collisions))
			}
		}
	}
}

// nonNegative clamps a contact time that rounding placed slightly in the past
func nonNegative(dt float64) float64 {
	if dt < 0 {
		return 0
	}
	return dt
}

// advanceTo moves every particle forward to time target.
// Virtual time must NEVER go backwards.
func (s *Simulator) advanceTo(target float64) {
	dt := target - s.virtualTime
	if dt <= 0 {
		return
	}
	for i := range s.particles {
		s.particles[i].Move(dt, s.config.Height)
	}
	s.virtualTime = target
}

// resolveCollision applies a wall or pair bounce at the current time and
// re-predicts the particles it touched. Their collision counts change, which
// invalidates everything else queued for them.
func (s *Simulator) resolveCollision(event Event) {
	t := s.virtualTime
	switch e := event.(type) {
	case *PairCollisionEvent:
		a, b := e.Particles()
		s.particles[a].BounceOff(&s.particles[b], s.config.Height)
		s.predict(a, t)
		s.predict(b, t)
	case *WallHitEvent:
		p := e.Particle()
		s.particles[p].BounceOffVerticalWall()
		s.predict(p, t)
	default:
		panic(fmt.Sprintf("not a collision event: %T", e))
	}
	s.metrics.recordEvent(event.Type())
}

// resolveGridEvent re-homes a particle whose centre just left its cell.
// Everyone is moved to the event time first so the new cell is computed
// from a current position.
func (s *Simulator) resolveGridEvent(event *CellTransitionEvent) {
	p := event.Particle()
	s.grid.Remove(p)
	s.advanceTo(event.Timestamp())
	s.grid.Insert(p, s.grid.CellIndex(s.particles[p].Rx, s.particles[p].Ry))
	s.predict(p, s.virtualTime)
	s.metrics.recordEvent(EventTypeCellTransition)
}

// Update resolves the next physical event (wall or pair collision) and
// returns its time. t is the current global time, i.e. the value returned by
// the previous call (0 initially). Cell transitions and stale predictions
// met on the way are handled silently. Returns +Inf once the queue is empty.
//
// Update does not return while only cell transitions remain, e.g. a lone
// particle moving parallel to the walls. Drivers that cannot rule that out
// should use UpdateWithin or Step.
func (s *Simulator) Update(t float64) float64 {
	next, _ := s.UpdateWithin(t, math.Inf(1))
	return next
}

// UpdateWithin is Update bounded by horizon. If a wall or pair collision
// happens by horizon it is resolved and its time returned with ok true.
// Otherwise every event due by horizon is resolved, particles drift to
// horizon and ok is false. An empty queue returns +Inf without moving anything.
func (s *Simulator) UpdateWithin(t, horizon float64) (next float64, ok bool) {
	s.virtualTime = t
	for !s.queue.IsEmpty() {
		event := s.queue.Peek()
		if !event.Valid(s.particles) {
			s.queue.Pop()
			s.metrics.StaleEvents++
			continue
		}
		if event.Timestamp() > horizon {
			break
		}
		s.queue.Pop()
		if grid, isGrid := event.(*CellTransitionEvent); isGrid {
			s.resolveGridEvent(grid)
			continue
		}

		s.advanceTo(event.Timestamp())
		s.resolveCollision(event)
		return event.Timestamp(), true
	}

	if s.queue.IsEmpty() {
		return math.Inf(1), false
	}
	s.advanceTo(horizon)
	return horizon, false
}

// Step advances the simulation by deltaT of virtual time.
// Every event due within the step is resolved in order, then all particles
// drift to the end of the step so renderers see positions at the tick time.
func (s *Simulator) Step(deltaT float64) {
	if deltaT <= 0 {
		return
	}
	targetTime := s.virtualTime + deltaT

	for {
		if _, ok := s.UpdateWithin(s.virtualTime, targetTime); !ok {
			break
		}
	}
	s.advanceTo(targetTime)
}

// Reset resets the simulation to a freshly sampled box with the same config
func (s *Simulator) Reset() error {
	newSim, err := sampleSimulator(s.config)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}

	// Preserve the logging hooks if they were set
	logEvent, logOutput := s.LogEvent, s.LogOutput
	*s = *newSim
	s.LogEvent, s.LogOutput = logEvent, logOutput
	s.logPlacement()
	return nil
}

// UpdateConfig validates and stores a new config. Any change rebuilds the box.
func (s *Simulator) UpdateConfig(newConfig SimConfig) error {
	if err := newConfig.Validate(); err != nil {
		return err
	}
	if s.config.Equal(newConfig) {
		return nil
	}

	s.logEvent("[CONFIG] config changed - resetting simulation (t=%.3f)", s.virtualTime)
	s.config = newConfig
	if err := s.Reset(); err != nil {
		return fmt.Errorf("failed to reset simulation: %w", err)
	}
	return nil
}

// Config returns a copy of the current configuration
func (s *Simulator) Config() SimConfig {
	c := s.config
	c.Radii = append([]float64(nil), s.config.Radii...)
	return c
}

// VirtualTime returns the time the particle positions refer to
func (s *Simulator) VirtualTime() float64 {
	return s.virtualTime
}

// IsQueueEmpty returns true if no events are pending
func (s *Simulator) IsQueueEmpty() bool {
	return s.queue.IsEmpty()
}

// QueueLen returns the number of pending events, stale ones included
func (s *Simulator) QueueLen() int {
	return s.queue.Len()
}

// NumParticles returns how many particles were actually placed
func (s *Simulator) NumParticles() int {
	return len(s.particles)
}

// Particles returns a copy of the particles in index order
func (s *Simulator) Particles() []Particle {
	out := make([]Particle, len(s.particles))
	copy(out, s.particles)
	return out
}

// Grid exposes the spatial index for inspection. Callers must not mutate it.
func (s *Simulator) Grid() *Grid {
	return s.grid
}

// Metrics returns a copy of current metrics
func (s *Simulator) Metrics() *Metrics {
	s.metrics.observe(s.virtualTime, s.particles, s.queue.Len())
	return s.metrics.Clone()
}

func (s *Simulator) logEvent(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	out := s.LogOutput
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, msg)
	if s.LogEvent != nil {
		s.LogEvent(msg)
	}
}
