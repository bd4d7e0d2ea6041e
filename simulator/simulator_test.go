package simulator

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// boxConfig returns a 100x100 box for explicit layouts with unit radii
func boxConfig() SimConfig {
	return SimConfig{
		Width:  100,
		Height: 100,
		Radii:  []float64{1},
		Speed:  1,
	}
}

// gasConfig returns a seeded, moderately dense random box
func gasConfig(seed int64) SimConfig {
	return SimConfig{
		Width:        200,
		Height:       200,
		MaxParticles: 150,
		Radii:        []float64{2, 3, 4},
		Speed:        1,
		RandomSeed:   seed,
	}
}

func newExplicit(t *testing.T, particles ...Particle) *Simulator {
	t.Helper()
	sim, err := NewSimulatorWithParticles(boxConfig(), particles)
	require.NoError(t, err)
	return sim
}

func totalEnergy(particles []Particle) float64 {
	e := 0.0
	for i := range particles {
		e += particles[i].KineticEnergy()
	}
	return e
}

func totalMomentumY(particles []Particle) float64 {
	py := 0.0
	for i := range particles {
		py += particles[i].Mass * particles[i].Vy
	}
	return py
}

// requireConsistent checks the per-particle invariants that must hold
// between events.
func requireConsistent(t *testing.T, sim *Simulator) {
	t.Helper()
	const slack = 1e-8
	cfg := sim.Config()
	for i, p := range sim.Particles() {
		require.GreaterOrEqual(t, p.Rx, p.Radius-slack, "particle %d crossed the left wall", i)
		require.LessOrEqual(t, p.Rx, cfg.Width-p.Radius+slack, "particle %d crossed the right wall", i)
		require.GreaterOrEqual(t, p.Ry, 0.0, "particle %d ry not wrapped", i)
		require.Less(t, p.Ry, cfg.Height, "particle %d ry not wrapped", i)

		b := sim.Grid().Bounds(sim.Grid().CellOf(i))
		require.True(t,
			p.Rx >= b.XMin-slack && p.Rx <= b.XMax+slack && p.Ry >= b.YMin-slack && p.Ry <= b.YMax+slack,
			"particle %d at (%g, %g) outside its recorded cell %+v", i, p.Rx, p.Ry, b)
	}
}

func TestHeadOnCollisionSwapsVelocities(t *testing.T) {
	sim := newExplicit(t,
		NewParticle(40, 50, 1, 0, 1, 1),
		NewParticle(60, 50, -1, 0, 1, 1),
	)

	next := sim.Update(0)
	require.InDelta(t, 9.0, next, tol)
	require.Equal(t, next, sim.VirtualTime())

	ps := sim.Particles()
	require.InDelta(t, -1.0, ps[0].Vx, tol)
	require.InDelta(t, 1.0, ps[1].Vx, tol)
	require.InDelta(t, 0.0, ps[0].Vy, tol)
	require.InDelta(t, 0.0, ps[1].Vy, tol)
	require.InDelta(t, 49.0, ps[0].Rx, tol)
	require.InDelta(t, 51.0, ps[1].Rx, tol)
	require.Equal(t, 1, ps[0].Collisions)
	require.Equal(t, 1, ps[1].Collisions)

	m := sim.Metrics()
	require.Equal(t, 1, m.PairCollisions)
	require.Equal(t, 0, m.WallCollisions)
	require.Greater(t, m.CellTransitions, 0)
}

func TestWallHitReversesVelocity(t *testing.T) {
	sim := newExplicit(t, NewParticle(90, 50, 2, 0, 1, 1))

	next := sim.Update(0)
	require.InDelta(t, 4.5, next, tol)

	p := sim.Particles()[0]
	require.InDelta(t, -2.0, p.Vx, tol)
	require.Equal(t, 0.0, p.Vy)
	require.InDelta(t, 99.0, p.Rx, tol)
	require.InDelta(t, 50.0, p.Ry, tol)

	// Across the box to the other wall: 98 units at speed 2
	next = sim.Update(next)
	require.InDelta(t, 53.5, next, tol)
	require.InDelta(t, 2.0, sim.Particles()[0].Vx, tol)
	require.Equal(t, 2, sim.Metrics().WallCollisions)
}

func TestCradleSequence(t *testing.T) {
	// A hits B, B hits C, then A reaches the left wall and catches B again
	sim := newExplicit(t,
		NewParticle(20, 50, 1, 0, 1, 1),
		NewParticle(30, 50, -1, 0, 1, 1),
		NewParticle(40, 50, -1, 0, 1, 1),
	)

	expected := []float64{4, 8, 27, 31}
	now := 0.0
	for i, want := range expected {
		now = sim.Update(now)
		require.InDelta(t, want, now, tol, "event %d", i)
		requireConsistent(t, sim)
	}

	m := sim.Metrics()
	require.Equal(t, 3, m.PairCollisions)
	require.Equal(t, 1, m.WallCollisions)
}

func TestPeriodicWrapOnlyCellTransitions(t *testing.T) {
	sim := newExplicit(t, NewParticle(50, 90, 0, 1, 1, 1))

	sim.Step(20)
	require.InDelta(t, 20.0, sim.VirtualTime(), tol)

	p := sim.Particles()[0]
	require.InDelta(t, 10.0, p.Ry, 1e-8)
	require.Equal(t, 50.0, p.Rx)
	require.Equal(t, 0.0, p.Vx)
	require.Equal(t, 1.0, p.Vy)
	require.Equal(t, 0, p.Collisions)

	m := sim.Metrics()
	require.Equal(t, 0, m.PairCollisions)
	require.Equal(t, 0, m.WallCollisions)
	require.Greater(t, m.CellTransitions, 0)
	require.Equal(t, m.CellTransitions, m.EventsProcessed)
	requireConsistent(t, sim)

	// Only the next cell transition is pending
	require.Equal(t, 1, sim.QueueLen())
	require.Equal(t, 0, sim.queue.CountByType(EventTypeWallHit))
	require.Equal(t, 0, sim.queue.CountByType(EventTypePairCollision))
}

func TestUpdateWithinHorizon(t *testing.T) {
	t.Run("only cell transitions gives up at the horizon", func(t *testing.T) {
		sim := newExplicit(t, NewParticle(50, 90, 0, 1, 1, 1))

		next, ok := sim.UpdateWithin(0, 50)
		require.False(t, ok)
		require.Equal(t, 50.0, next)
		require.Equal(t, 50.0, sim.VirtualTime())
		require.InDelta(t, 40.0, sim.Particles()[0].Ry, 1e-8)
		requireConsistent(t, sim)

		m := sim.Metrics()
		require.Equal(t, 0, m.PairCollisions+m.WallCollisions)
		require.Greater(t, m.CellTransitions, 0)

		// Still nothing physical a full period later
		next, ok = sim.UpdateWithin(next, next+100)
		require.False(t, ok)
		require.Equal(t, 150.0, next)
	})

	t.Run("collision beyond the horizon waits", func(t *testing.T) {
		sim := newExplicit(t,
			NewParticle(40, 50, 1, 0, 1, 1),
			NewParticle(60, 50, -1, 0, 1, 1),
		)

		next, ok := sim.UpdateWithin(0, 5)
		require.False(t, ok)
		require.Equal(t, 5.0, next)
		require.InDelta(t, 45.0, sim.Particles()[0].Rx, tol)
		require.Equal(t, 0, sim.Particles()[0].Collisions)

		next, ok = sim.UpdateWithin(next, 100)
		require.True(t, ok)
		require.InDelta(t, 9.0, next, tol)
		require.InDelta(t, -1.0, sim.Particles()[0].Vx, tol)
	})

	t.Run("empty queue", func(t *testing.T) {
		sim := newExplicit(t, NewParticle(50, 50, 0, 0, 1, 1))
		next, ok := sim.UpdateWithin(0, 10)
		require.False(t, ok)
		require.True(t, math.IsInf(next, 1))
	})
}

func TestStationaryParticleSchedulesNothing(t *testing.T) {
	sim := newExplicit(t, NewParticle(50, 50, 0, 0, 1, 1))
	require.True(t, sim.IsQueueEmpty())
	require.True(t, math.IsInf(sim.Update(0), 1))
}

func TestEmptyBoxReportsNoFurtherEvents(t *testing.T) {
	sim := newExplicit(t)
	require.Equal(t, 0, sim.NumParticles())
	require.True(t, math.IsInf(sim.Update(0), 1))

	sim.Step(5)
	require.InDelta(t, 5.0, sim.VirtualTime(), tol)
}

func TestMovingParticleHitsStationaryOne(t *testing.T) {
	// Equal masses: the mover stops, the target takes its velocity
	sim := newExplicit(t,
		NewParticle(50, 10, 0, 2, 1, 1),
		NewParticle(50, 30, 0, 0, 1, 1),
	)
	require.InDelta(t, 9.0, sim.Update(0), tol)
	ps := sim.Particles()
	require.InDelta(t, 0.0, ps[0].Vy, tol)
	require.InDelta(t, 2.0, ps[1].Vy, tol)
}

func TestCollisionAcrossPeriodicSeam(t *testing.T) {
	sim := newExplicit(t,
		NewParticle(50, 96, 0, 1, 1, 1),
		NewParticle(50, 4, 0, -1, 1, 1),
	)
	// Gap through the seam is 8 - 2 = 6, closing speed 2
	require.InDelta(t, 3.0, sim.Update(0), tol)
	ps := sim.Particles()
	require.InDelta(t, -1.0, ps[0].Vy, tol)
	require.InDelta(t, 1.0, ps[1].Vy, tol)
	requireConsistent(t, sim)
}

func TestRandomGasInvariants(t *testing.T) {
	sim, err := NewSimulator(gasConfig(7))
	require.NoError(t, err)
	require.Greater(t, sim.NumParticles(), 100)
	requireConsistent(t, sim)

	initial := sim.Particles()
	energy := totalEnergy(initial)
	momentumY := totalMomentumY(initial)

	now := 0.0
	for step := 0; step < 3000; step++ {
		next := sim.Update(now)
		require.False(t, math.IsInf(next, 1), "queue ran dry at step %d", step)
		require.GreaterOrEqual(t, next, now, "clock went backwards at step %d", step)
		now = next

		if step%50 == 0 {
			ps := sim.Particles()
			requireConsistent(t, sim)
			require.InEpsilon(t, energy, totalEnergy(ps), 1e-9)
			require.InDelta(t, momentumY, totalMomentumY(ps), 1e-8)
		}
	}

	ps := sim.Particles()
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			require.True(t, closeEnough(&ps[i], &ps[j], 200), "particles %d and %d overlap", i, j)
		}
	}

	// Discarding stale events never touches collision counters
	m := sim.Metrics()
	require.Greater(t, m.StaleEvents, 0)
	collisions := 0
	for i := range ps {
		collisions += ps[i].Collisions
	}
	require.Equal(t, 2*m.PairCollisions+m.WallCollisions, collisions)
	require.Equal(t, 3000, m.PairCollisions+m.WallCollisions)
}

// requireNoOverlap fails on any pair closer than contact. A missed
// collision shows up here as two disks passing through each other.
func requireNoOverlap(t *testing.T, sim *Simulator, event int) {
	t.Helper()
	ps := sim.Particles()
	h := sim.Config().Height
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			if !closeEnough(&ps[i], &ps[j], h) {
				dx, dy := ps[i].separation(&ps[j], h)
				t.Fatalf("event %d (t=%.4f): particles %d and %d overlap, distance %g < %g",
					event, sim.VirtualTime(), i, j, math.Hypot(dx, dy), ps[i].Radius+ps[j].Radius)
			}
		}
	}
}

func TestLongRunNoMissedCollisions(t *testing.T) {
	const radius = 2.0
	cell := cellSizeFactor * radius

	tests := []struct {
		name      string
		width     float64
		height    float64
		particles int
		speeds    SpeedDistributionType
		wantNx    int
	}{
		{"minimum rows", 100, minRows*cell + 0.1, 30, SpeedMaxwell, 24},
		{"minimum rows fixed speed", 100, minRows*cell + 0.1, 30, SpeedFixed, 24},
		{"single column", 6, 100, 15, SpeedMaxwell, 1},
		{"two columns", 9, 60, 20, SpeedUniform, 2},
		{"two columns minimum rows", 9, minRows*cell + 0.1, 4, SpeedExponential, 2},
	}

	const (
		seeds      = 5
		events     = 20000
		checkEvery = 25
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(1); seed <= seeds; seed++ {
				cfg := SimConfig{
					Width:             tt.width,
					Height:            tt.height,
					MaxParticles:      tt.particles,
					Radii:             []float64{radius},
					Speed:             1,
					RandomSeed:        seed,
					SpeedDistribution: tt.speeds,
				}
				require.NoError(t, cfg.Validate())
				sim, err := NewSimulator(cfg)
				require.NoError(t, err)
				sim.LogOutput = io.Discard

				nx, ny := sim.Grid().Dims()
				require.Equal(t, tt.wantNx, nx)
				require.GreaterOrEqual(t, ny, minRows)
				requireNoOverlap(t, sim, 0)

				energy := totalEnergy(sim.Particles())
				now := 0.0
				for n := 1; n <= events; n++ {
					next, ok := sim.UpdateWithin(now, now+1000)
					require.True(t, ok, "seed %d: no collision within 1000 time units of t=%g", seed, now)
					require.GreaterOrEqual(t, next, now)
					now = next
					if n%checkEvery == 0 {
						requireNoOverlap(t, sim, n)
					}
				}
				requireConsistent(t, sim)
				require.InEpsilon(t, energy, totalEnergy(sim.Particles()), 1e-8)
			}
		})
	}
}

// closeEnough tolerates contact-level overlap left by rounding
func closeEnough(a, b *Particle, height float64) bool {
	dx, dy := a.separation(b, height)
	sigma := a.Radius + b.Radius
	return math.Sqrt(dx*dx+dy*dy) > sigma-1e-6
}

func TestStepMatchesTargetTime(t *testing.T) {
	sim, err := NewSimulator(gasConfig(11))
	require.NoError(t, err)
	energy := totalEnergy(sim.Particles())

	for i := 1; i <= 200; i++ {
		sim.Step(0.5)
		require.InDelta(t, 0.5*float64(i), sim.VirtualTime(), 1e-9)
	}
	requireConsistent(t, sim)
	require.InEpsilon(t, energy, totalEnergy(sim.Particles()), 1e-9)

	// Update picks up from wherever Step left the clock
	now := sim.VirtualTime()
	next := sim.Update(now)
	require.GreaterOrEqual(t, next, now)
	requireConsistent(t, sim)

	sim.Step(0)
	sim.Step(-1)
	require.Equal(t, next, sim.VirtualTime())
}

func TestDeterministicEvolution(t *testing.T) {
	a, err := NewSimulator(gasConfig(99))
	require.NoError(t, err)
	b, err := NewSimulator(gasConfig(99))
	require.NoError(t, err)
	require.Equal(t, a.Particles(), b.Particles())

	ta, tb := 0.0, 0.0
	for i := 0; i < 500; i++ {
		ta = a.Update(ta)
		tb = b.Update(tb)
	}
	require.Equal(t, ta, tb)
	require.Equal(t, a.Particles(), b.Particles())
}

func TestSampledSpeeds(t *testing.T) {
	t.Run("fixed gives every particle the configured speed", func(t *testing.T) {
		cfg := gasConfig(21)
		cfg.Speed = 1.5
		sim, err := NewSimulator(cfg)
		require.NoError(t, err)
		for _, p := range sim.Particles() {
			require.InDelta(t, 1.5, math.Hypot(p.Vx, p.Vy), 1e-12)
		}
	})

	t.Run("maxwell spreads speeds and still conserves energy", func(t *testing.T) {
		cfg := gasConfig(21)
		cfg.SpeedDistribution = SpeedMaxwell
		sim, err := NewSimulator(cfg)
		require.NoError(t, err)

		ps := sim.Particles()
		lo, hi := math.Inf(1), 0.0
		for _, p := range ps {
			v := math.Hypot(p.Vx, p.Vy)
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		require.Less(t, lo, 0.5)
		require.Greater(t, hi, 1.5)

		energy := totalEnergy(ps)
		sim.Step(100)
		requireConsistent(t, sim)
		require.InEpsilon(t, energy, totalEnergy(sim.Particles()), 1e-9)
	})
}

func TestDegradedPlacement(t *testing.T) {
	cfg := SimConfig{
		Width:        20,
		Height:       40,
		MaxParticles: 1000,
		Radii:        []float64{4},
		Speed:        1,
		RandomSeed:   3,
	}
	sim, err := NewSimulator(cfg)
	require.NoError(t, err)
	require.Greater(t, sim.NumParticles(), 0)
	require.Less(t, sim.NumParticles(), 1000)

	ps := sim.Particles()
	for i := range ps {
		require.InDelta(t, 1.0, math.Hypot(ps[i].Vx, ps[i].Vy), 1e-12)
		require.Equal(t, ps[i].Radius, ps[i].Mass)
		for j := 0; j < i; j++ {
			require.False(t, ps[i].overlaps(&ps[j], cfg.Height))
		}
	}
}

func TestNewSimulatorWithParticlesRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name      string
		particles []Particle
	}{
		{"overlap", []Particle{NewParticle(50, 50, 0, 0, 1, 1), NewParticle(51, 50, 0, 0, 1, 1)}},
		{"overlap across seam", []Particle{NewParticle(50, 99.5, 0, 0, 1, 1), NewParticle(50, 0.5, 0, 0, 1, 1)}},
		{"crosses wall", []Particle{NewParticle(0.5, 50, 0, 0, 1, 1)}},
		{"radius too large", []Particle{NewParticle(50, 50, 0, 0, 2, 1)}},
		{"zero mass", []Particle{NewParticle(50, 50, 0, 0, 1, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulatorWithParticles(boxConfig(), tt.particles)
			require.Error(t, err)
			require.IsType(t, SimError{}, err)
		})
	}

	t.Run("invalid config", func(t *testing.T) {
		cfg := boxConfig()
		cfg.Width = 0
		_, err := NewSimulatorWithParticles(cfg, nil)
		require.Error(t, err)
	})

	t.Run("ry is wrapped", func(t *testing.T) {
		sim, err := NewSimulatorWithParticles(boxConfig(), []Particle{NewParticle(50, 150, 0, 0, 1, 1)})
		require.NoError(t, err)
		require.InDelta(t, 50.0, sim.Particles()[0].Ry, tol)
	})
}

func TestParticlesReturnsCopy(t *testing.T) {
	sim := newExplicit(t, NewParticle(50, 50, 1, 0, 1, 1))
	ps := sim.Particles()
	ps[0].Vx = 100
	require.Equal(t, 1.0, sim.Particles()[0].Vx)
}

func TestSnapshot(t *testing.T) {
	sim := newExplicit(t,
		NewParticle(40, 50, 1, 0, 1, 1),
		NewParticle(60, 50, -1, 0, 1, 1),
	)
	sim.Step(2)

	snap := sim.Snapshot()
	require.Equal(t, 2.0, snap.VirtualTime)
	require.Equal(t, 100.0, snap.Width)
	require.Equal(t, 100.0, snap.Height)
	require.Len(t, snap.Particles, 2)
	require.InDelta(t, 42.0, snap.Particles[0].Rx, tol)
	require.InDelta(t, 58.0, snap.Particles[1].Rx, tol)
	require.Equal(t, 1.0, snap.Particles[0].Radius)
}

func TestReset(t *testing.T) {
	cfg := gasConfig(5)
	sim, err := NewSimulator(cfg)
	require.NoError(t, err)
	fresh := sim.Particles()

	var logged []string
	var out strings.Builder
	sim.LogEvent = func(msg string) { logged = append(logged, msg) }
	sim.LogOutput = &out
	now := 0.0
	for i := 0; i < 100; i++ {
		now = sim.Update(now)
	}
	require.Greater(t, sim.VirtualTime(), 0.0)

	require.NoError(t, sim.Reset())
	require.Equal(t, 0.0, sim.VirtualTime())
	require.Equal(t, fresh, sim.Particles())
	require.Equal(t, 0, sim.Metrics().EventsProcessed)
	require.NotNil(t, sim.LogEvent)
	require.Same(t, &out, sim.LogOutput)
	require.Len(t, logged, 1)
	require.Contains(t, logged[0], "[INIT] placed 150 particles")
	require.Contains(t, out.String(), "[INIT]")
	require.False(t, sim.IsQueueEmpty())
}

func TestUpdateConfig(t *testing.T) {
	sim, err := NewSimulator(gasConfig(5))
	require.NoError(t, err)
	sim.Step(1)

	t.Run("invalid config is rejected", func(t *testing.T) {
		bad := gasConfig(5)
		bad.Radii = nil
		require.Error(t, sim.UpdateConfig(bad))
		require.InDelta(t, 1.0, sim.VirtualTime(), tol)
	})

	t.Run("unchanged config keeps running state", func(t *testing.T) {
		require.NoError(t, sim.UpdateConfig(gasConfig(5)))
		require.InDelta(t, 1.0, sim.VirtualTime(), tol)
	})

	t.Run("changed config rebuilds", func(t *testing.T) {
		cfg := gasConfig(5)
		cfg.MaxParticles = 10
		require.NoError(t, sim.UpdateConfig(cfg))
		require.Equal(t, 0.0, sim.VirtualTime())
		require.Equal(t, 10, sim.NumParticles())
		require.Equal(t, 10, sim.Config().MaxParticles)
	})
}

func TestMetricsSnapshot(t *testing.T) {
	sim, err := NewSimulator(gasConfig(21))
	require.NoError(t, err)
	now := 0.0
	for i := 0; i < 200; i++ {
		now = sim.Update(now)
	}

	m := sim.Metrics()
	require.Equal(t, now, m.Timestamp)
	require.Equal(t, sim.NumParticles(), m.ParticleCount)
	require.Equal(t, sim.QueueLen(), m.QueueLength)
	require.InDelta(t, totalEnergy(sim.Particles()), m.KineticEnergy, 1e-9)
	require.Equal(t, m.PairCollisions+m.WallCollisions+m.CellTransitions, m.EventsProcessed)

	// Metrics returns a copy
	m.PairCollisions = -1
	require.NotEqual(t, -1, sim.Metrics().PairCollisions)
}
