package simulator

import "fmt"

// EventType represents the type of simulation event
type EventType int

const (
	EventTypeWallHit EventType = iota
	EventTypePairCollision
	EventTypeCellTransition
)

func (et EventType) String() string {
	switch et {
	case EventTypeWallHit:
		return "wall_hit"
	case EventTypePairCollision:
		return "pair_collision"
	case EventTypeCellTransition:
		return "cell_transition"
	default:
		return "unknown"
	}
}

// Event is a timestamped prediction about one or two particles.
// Events hold particle indices and the collision counts seen at prediction
// time; they never touch particle state themselves.
type Event interface {
	Timestamp() float64 // Virtual time of the predicted event
	Type() EventType
	// Valid reports whether every participant still has the collision count
	// it had when the event was predicted.
	Valid(particles []Particle) bool
	String() string
}

// WallHitEvent is a particle reaching one of the vertical walls
type WallHitEvent struct {
	timestamp  float64
	particle   int
	collisions int
}

func NewWallHitEvent(timestamp float64, particle, collisions int) *WallHitEvent {
	return &WallHitEvent{
		timestamp:  timestamp,
		particle:   particle,
		collisions: collisions,
	}
}

func (e *WallHitEvent) Timestamp() float64 { return e.timestamp }
func (e *WallHitEvent) Type() EventType    { return EventTypeWallHit }
func (e *WallHitEvent) Particle() int      { return e.particle }
func (e *WallHitEvent) Valid(particles []Particle) bool {
	return particles[e.particle].Collisions == e.collisions
}
func (e *WallHitEvent) String() string {
	return fmt.Sprintf("WallHit(t=%.6f, p=%d)", e.timestamp, e.particle)
}

// PairCollisionEvent is two particles touching
type PairCollisionEvent struct {
	timestamp   float64
	a, b        int
	aCollisions int
	bCollisions int
}

func NewPairCollisionEvent(timestamp float64, a, b, aCollisions, bCollisions int) *PairCollisionEvent {
	return &PairCollisionEvent{
		timestamp:   timestamp,
		a:           a,
		b:           b,
		aCollisions: aCollisions,
		bCollisions: bCollisions,
	}
}

func (e *PairCollisionEvent) Timestamp() float64 { return e.timestamp }
func (e *PairCollisionEvent) Type() EventType    { return EventTypePairCollision }
func (e *PairCollisionEvent) Particles() (int, int) {
	return e.a, e.b
}
func (e *PairCollisionEvent) Valid(particles []Particle) bool {
	return particles[e.a].Collisions == e.aCollisions && particles[e.b].Collisions == e.bCollisions
}
func (e *PairCollisionEvent) String() string {
	return fmt.Sprintf("PairCollision(t=%.6f, a=%d, b=%d)", e.timestamp, e.a, e.b)
}

// CellTransitionEvent is a particle's centre leaving its grid cell.
// It is bookkeeping only and never changes a velocity.
type CellTransitionEvent struct {
	timestamp  float64
	particle   int
	collisions int
}

func NewCellTransitionEvent(timestamp float64, particle, collisions int) *CellTransitionEvent {
	return &CellTransitionEvent{
		timestamp:  timestamp,
		particle:   particle,
		collisions: collisions,
	}
}

func (e *CellTransitionEvent) Timestamp() float64 { return e.timestamp }
func (e *CellTransitionEvent) Type() EventType    { return EventTypeCellTransition }
func (e *CellTransitionEvent) Particle() int      { return e.particle }
func (e *CellTransitionEvent) Valid(particles []Particle) bool {
	return particles[e.particle].Collisions == e.collisions
}
func (e *CellTransitionEvent) String() string {
	return fmt.Sprintf("CellTransition(t=%.6f, p=%d)", e.timestamp, e.particle)
}
