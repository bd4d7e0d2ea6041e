package simulator

import "math"

// Particle is a rigid disk moving in free flight between collisions.
// The box is walled along x and periodic along y, so every method that
// needs the periodic image takes the box height.
type Particle struct {
	Rx     float64 `json:"rx"`
	Ry     float64 `json:"ry"`
	Vx     float64 `json:"vx"`
	Vy     float64 `json:"vy"`
	Radius float64 `json:"radius"`
	Mass   float64 `json:"mass"`

	// Collisions is bumped on every velocity change and is the validity
	// token for events predicted before that change.
	Collisions int `json:"collisions"`
}

// NewParticle creates a particle with zero collisions
func NewParticle(rx, ry, vx, vy, radius, mass float64) Particle {
	return Particle{Rx: rx, Ry: ry, Vx: vx, Vy: vy, Radius: radius, Mass: mass}
}

// Move integrates the position over dt and wraps ry into [0, height).
func (p *Particle) Move(dt, height float64) {
	p.Rx += p.Vx * dt
	p.Ry += p.Vy * dt
	p.Ry -= math.Floor(p.Ry/height) * height
	// ry slightly below zero can round up to exactly height
	if p.Ry >= height {
		p.Ry -= height
	}
}

// separation returns that - p using the nearest periodic image along y.
func (p *Particle) separation(that *Particle, height float64) (dx, dy float64) {
	dx = that.Rx - p.Rx
	dy = that.Ry - p.Ry
	dy -= math.Round(dy/height) * height
	return dx, dy
}

// TimeToHit returns the time until p and that touch, or +Inf if they never will
// on their current trajectories.
func (p *Particle) TimeToHit(that *Particle, height float64) float64 {
	if p == that {
		return math.Inf(1)
	}
	dx, dy := p.separation(that, height)
	dvx := that.Vx - p.Vx
	dvy := that.Vy - p.Vy
	dvdr := dx*dvx + dy*dvy
	if dvdr >= 0 {
		return math.Inf(1)
	}
	dvdv := dvx*dvx + dvy*dvy
	if dvdv == 0 {
		return math.Inf(1)
	}
	drdr := dx*dx + dy*dy
	sigma := p.Radius + that.Radius
	d := dvdr*dvdr - dvdv*(drdr-sigma*sigma)
	if d < 0 {
		return math.Inf(1)
	}
	return -(dvdr + math.Sqrt(d)) / dvdv
}

// TimeToHitVerticalWall returns the time until the disk touches the wall at
// xmin or xmax in its direction of travel.
func (p *Particle) TimeToHitVerticalWall(xmin, xmax float64) float64 {
	switch {
	case p.Vx > 0:
		return (xmax - p.Radius - p.Rx) / p.Vx
	case p.Vx < 0:
		return (xmin + p.Radius - p.Rx) / p.Vx
	default:
		return math.Inf(1)
	}
}

// TimeToHitHorizontalWall is the y-axis counterpart of TimeToHitVerticalWall.
// The periodic box never schedules it; it exists for fully walled layouts.
func (p *Particle) TimeToHitHorizontalWall(ymin, ymax float64) float64 {
	switch {
	case p.Vy > 0:
		return (ymax - p.Radius - p.Ry) / p.Vy
	case p.Vy < 0:
		return (ymin + p.Radius - p.Ry) / p.Vy
	default:
		return math.Inf(1)
	}
}

// TimeToEscapeCell returns when the centre leaves the rectangle
// [xmin,xmax]x[ymin,ymax]. Callers widen the rectangle by a small margin so
// the centre ends up strictly inside the next cell.
func (p *Particle) TimeToEscapeCell(xmin, xmax, ymin, ymax float64) float64 {
	dtx := math.Inf(1)
	if p.Vx > 0 {
		dtx = (xmax - p.Rx) / p.Vx
	} else if p.Vx < 0 {
		dtx = (xmin - p.Rx) / p.Vx
	}

	dty := math.Inf(1)
	if p.Vy > 0 {
		dty = (ymax - p.Ry) / p.Vy
	} else if p.Vy < 0 {
		dty = (ymin - p.Ry) / p.Vy
	}

	return math.Min(dtx, dty)
}

// BounceOff applies the elastic normal impulse between two touching disks.
func (p *Particle) BounceOff(that *Particle, height float64) {
	dx, dy := p.separation(that, height)
	dvx := that.Vx - p.Vx
	dvy := that.Vy - p.Vy
	drdr := dx*dx + dy*dy
	dvdr := dx*dvx + dy*dvy

	c := 2 * dvdr / (drdr * (p.Mass + that.Mass))
	c1 := that.Mass * c
	c2 := p.Mass * c

	p.Vx += c1 * dx
	p.Vy += c1 * dy
	that.Vx -= c2 * dx
	that.Vy -= c2 * dy

	p.Collisions++
	that.Collisions++
}

func (p *Particle) BounceOffVerticalWall() {
	p.Vx = -p.Vx
	p.Collisions++
}

func (p *Particle) BounceOffHorizontalWall() {
	p.Vy = -p.Vy
	p.Collisions++
}

// KineticEnergy returns 1/2 m v^2
func (p *Particle) KineticEnergy() float64 {
	return 0.5 * p.Mass * (p.Vx*p.Vx + p.Vy*p.Vy)
}

// overlaps reports whether the two disks intersect (periodic along y).
func (p *Particle) overlaps(that *Particle, height float64) bool {
	dx, dy := p.separation(that, height)
	sigma := p.Radius + that.Radius
	return dx*dx+dy*dy < sigma*sigma
}
