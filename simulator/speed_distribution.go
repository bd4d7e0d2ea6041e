package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"gopkg.in/yaml.v3"
)

// SpeedDistributionType selects how initial particle speeds are drawn
type SpeedDistributionType int

const (
	SpeedFixed SpeedDistributionType = iota
	SpeedUniform
	SpeedExponential
	SpeedMaxwell
)

// String returns the string representation of SpeedDistributionType
func (dt SpeedDistributionType) String() string {
	switch dt {
	case SpeedFixed:
		return "fixed"
	case SpeedUniform:
		return "uniform"
	case SpeedExponential:
		return "exponential"
	case SpeedMaxwell:
		return "maxwell"
	default:
		return fmt.Sprintf("unknown(%d)", int(dt))
	}
}

// ParseSpeedDistributionType parses a string into a SpeedDistributionType
func ParseSpeedDistributionType(s string) (SpeedDistributionType, error) {
	switch s {
	case "fixed", "":
		return SpeedFixed, nil
	case "uniform":
		return SpeedUniform, nil
	case "exponential":
		return SpeedExponential, nil
	case "maxwell":
		return SpeedMaxwell, nil
	default:
		return SpeedFixed, fmt.Errorf("invalid speed distribution: %s (must be 'fixed', 'uniform', 'exponential', or 'maxwell')", s)
	}
}

// MarshalJSON implements json.Marshaler for SpeedDistributionType
func (dt SpeedDistributionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON implements json.Unmarshaler for SpeedDistributionType
func (dt *SpeedDistributionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseSpeedDistributionType(s)
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for SpeedDistributionType
func (dt SpeedDistributionType) MarshalYAML() (interface{}, error) {
	return dt.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for SpeedDistributionType
func (dt *SpeedDistributionType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseSpeedDistributionType(s)
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// SpeedDistribution draws a non-negative speed whose expectation is mean
type SpeedDistribution interface {
	Sample(rng *rand.Rand, mean float64) float64
}

// FixedSpeed gives every particle exactly the mean speed. It consumes no randomness.
type FixedSpeed struct{}

func (d *FixedSpeed) Sample(rng *rand.Rand, mean float64) float64 {
	return mean
}

// UniformSpeed samples uniformly from [0, 2*mean)
type UniformSpeed struct{}

func (d *UniformSpeed) Sample(rng *rand.Rand, mean float64) float64 {
	return 2 * mean * rng.Float64()
}

// ExponentialSpeed samples with exponential bias toward rest
type ExponentialSpeed struct{}

func (d *ExponentialSpeed) Sample(rng *rand.Rand, mean float64) float64 {
	// Inverse transform: X = -ln(U) * mean
	u := rng.Float64()
	if u == 0 {
		u = 1e-10 // Avoid log(0)
	}
	return -math.Log(u) * mean
}

// MaxwellSpeed samples the 2D Maxwell-Boltzmann (Rayleigh) speed
// distribution, the equilibrium a hard-disk gas relaxes to.
type MaxwellSpeed struct{}

func (d *MaxwellSpeed) Sample(rng *rand.Rand, mean float64) float64 {
	// Rayleigh mean is sigma*sqrt(pi/2)
	sigma := mean / math.Sqrt(math.Pi/2)
	u := rng.Float64()
	if u == 0 {
		u = 1e-10
	}
	return sigma * math.Sqrt(-2*math.Log(u))
}

// NewSpeedDistribution creates a distribution based on type
func NewSpeedDistribution(distType SpeedDistributionType) SpeedDistribution {
	switch distType {
	case SpeedUniform:
		return &UniformSpeed{}
	case SpeedExponential:
		return &ExponentialSpeed{}
	case SpeedMaxwell:
		return &MaxwellSpeed{}
	default:
		return &FixedSpeed{}
	}
}
