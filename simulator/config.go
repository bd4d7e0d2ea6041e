package simulator

import (
	"fmt"
	"slices"
)

// minRows is the smallest periodic grid on which every neighbourhood
// partner is closer than half the period.
const minRows = 4

// SimConfig holds the construction parameters of a box.
// The box is walled along x (width) and periodic along y (height).
type SimConfig struct {
	Width        float64   `json:"width" yaml:"width"`               // Distance between the two walls
	Height       float64   `json:"height" yaml:"height"`             // Period of the y axis
	MaxParticles int       `json:"maxParticles" yaml:"maxParticles"` // Upper bound; placement may accept fewer
	Radii        []float64 `json:"radii" yaml:"radii"`               // Allowed radii, drawn uniformly per particle
	Speed        float64   `json:"speed" yaml:"speed"`               // Mean initial speed of sampled particles
	RandomSeed   int64     `json:"randomSeed" yaml:"randomSeed"`     // Random seed for reproducibility (0 = use time-based seed)

	SpeedDistribution SpeedDistributionType `json:"speedDistribution" yaml:"speedDistribution"` // fixed gives every particle exactly Speed
}

// DefaultConfig returns a medium-density box with three particle sizes
func DefaultConfig() SimConfig {
	return SimConfig{
		Width:        500,
		Height:       500,
		MaxParticles: 200,
		Radii:        []float64{4, 6, 8},
		Speed:        1,
		RandomSeed:   0,

		SpeedDistribution: SpeedFixed,
	}
}

// MaxRadius returns the largest configured radius
func (c *SimConfig) MaxRadius() float64 {
	if len(c.Radii) == 0 {
		return 0
	}
	return slices.Max(c.Radii)
}

// Equal reports whether two configs describe the same box
func (c SimConfig) Equal(o SimConfig) bool {
	return c.Width == o.Width && c.Height == o.Height &&
		c.MaxParticles == o.MaxParticles && c.Speed == o.Speed &&
		c.RandomSeed == o.RandomSeed && c.SpeedDistribution == o.SpeedDistribution &&
		slices.Equal(c.Radii, o.Radii)
}

// Validate checks if configuration values are usable
func (c *SimConfig) Validate() error {
	if c.Width <= 0 {
		return ErrInvalidConfig("width must be > 0")
	}
	if c.Height <= 0 {
		return ErrInvalidConfig("height must be > 0")
	}
	if c.MaxParticles < 0 {
		return ErrInvalidConfig("maxParticles must be >= 0")
	}
	if len(c.Radii) == 0 {
		return ErrInvalidConfig("radii must not be empty")
	}
	for _, r := range c.Radii {
		if r <= 0 {
			return ErrInvalidConfig(fmt.Sprintf("radius %g must be > 0", r))
		}
		if 2*r >= c.Width {
			return ErrInvalidConfig(fmt.Sprintf("radius %g does not fit between the walls (width %g)", r, c.Width))
		}
	}
	if c.Speed < 0 {
		return ErrInvalidConfig("speed must be >= 0")
	}
	if c.SpeedDistribution < SpeedFixed || c.SpeedDistribution > SpeedMaxwell {
		return ErrInvalidConfig(fmt.Sprintf("unknown speed distribution %s", c.SpeedDistribution))
	}

	// Rows wrap. A partner in the 3x3 neighbourhood can sit two rows away,
	// which must stay within half the period or the nearest image points the
	// wrong way round the seam. That takes at least four rows.
	nx, ny := gridDims(c.Width, c.Height, c.MaxRadius())
	if nx < 1 {
		return ErrInvalidConfig(fmt.Sprintf("width %g is smaller than one grid cell (%g)", c.Width, cellSizeFactor*c.MaxRadius()))
	}
	if ny < minRows {
		return ErrInvalidConfig(fmt.Sprintf("height %g must hold at least %d grid cells of %g", c.Height, minRows, cellSizeFactor*c.MaxRadius()))
	}
	return nil
}
