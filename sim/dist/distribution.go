// Package dist provides the parameterized distribution samplers that drive
// process durations and transfer quantities. Samplers are pure given the
// RNG handed to Sample, so a fixed seed replays a fixed draw sequence.
package dist

import (
	"fmt"
	"math"
	"math/rand"
)

// Sampler draws values from a parameterized distribution.
type Sampler interface {
	// Sample returns one draw. Callers that need non-negative values
	// (durations, quantities) floor the result themselves; bounded kinds
	// (uniform, triangular, truncated-normal) never leave their support.
	Sample(rng *rand.Rand) float64
}

// Spec parameterizes a distribution, as written in model files.
type Spec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// ConstantSampler always returns the same fixed value. Zero variance; the
// usual choice for regression scenarios and fixed-cycle equipment.
type ConstantSampler struct {
	value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) float64 {
	return s.value
}

// UniformSampler draws uniformly from [min, max).
type UniformSampler struct {
	min, max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	return s.min + rng.Float64()*(s.max-s.min)
}

// TriangularSampler draws from a triangular distribution on [min, max]
// with the given mode, via inverse CDF.
type TriangularSampler struct {
	min, mode, max float64
}

func (s *TriangularSampler) Sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	span := s.max - s.min
	cut := (s.mode - s.min) / span
	if u < cut {
		return s.min + math.Sqrt(u*span*(s.mode-s.min))
	}
	return s.max - math.Sqrt((1-u)*span*(s.max-s.mode))
}

// NormalSampler draws from an unbounded normal distribution. Draws can be
// negative; use truncated-normal when the model needs a bounded support.
type NormalSampler struct {
	mean, stdDev float64
}

func (s *NormalSampler) Sample(rng *rand.Rand) float64 {
	return rng.NormFloat64()*s.stdDev + s.mean
}

// maxTruncDraws bounds the truncated-normal rejection loop. Parameter validation
// keeps the window sane, but a window far out in the tail could still make
// rejection arbitrarily slow; after this many misses the draw is clamped.
const maxTruncDraws = 100

// TruncNormalSampler draws from a normal distribution restricted to
// [min, max] by rejection sampling.
type TruncNormalSampler struct {
	mean, stdDev float64
	min, max     float64
}

func (s *TruncNormalSampler) Sample(rng *rand.Rand) float64 {
	for i := 0; i < maxTruncDraws; i++ {
		val := rng.NormFloat64()*s.stdDev + s.mean
		if val >= s.min && val <= s.max {
			return val
		}
	}
	return math.Min(s.max, math.Max(s.min, s.mean))
}

// ExponentialSampler draws from an exponential distribution with the given
// mean. Inter-arrival times for source components, typically.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * s.mean
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// NewSampler creates a Sampler from a Spec. All parameter validation
// happens here, at build time; Sample never fails at run time.
func NewSampler(spec Spec) (Sampler, error) {
	switch spec.Type {
	case "constant":
		if err := requireParam(spec.Params, "value"); err != nil {
			return nil, err
		}
		v := spec.Params["value"]
		if !(v >= 0) {
			return nil, fmt.Errorf("constant value must be non-negative, got %f", v)
		}
		return &ConstantSampler{value: v}, nil

	case "uniform":
		if err := requireParam(spec.Params, "min", "max"); err != nil {
			return nil, err
		}
		lo, hi := spec.Params["min"], spec.Params["max"]
		if !(lo < hi) {
			return nil, fmt.Errorf("uniform min must be less than max, got [%f, %f)", lo, hi)
		}
		return &UniformSampler{min: lo, max: hi}, nil

	case "triangular":
		if err := requireParam(spec.Params, "min", "mode", "max"); err != nil {
			return nil, err
		}
		lo, mode, hi := spec.Params["min"], spec.Params["mode"], spec.Params["max"]
		if !(lo < hi) {
			return nil, fmt.Errorf("triangular min must be less than max, got [%f, %f]", lo, hi)
		}
		if !(lo <= mode && mode <= hi) {
			return nil, fmt.Errorf("triangular mode %f outside [%f, %f]", mode, lo, hi)
		}
		return &TriangularSampler{min: lo, mode: mode, max: hi}, nil

	case "normal":
		if err := requireParam(spec.Params, "mean", "std_dev"); err != nil {
			return nil, err
		}
		sd := spec.Params["std_dev"]
		if !(sd > 0) {
			return nil, fmt.Errorf("normal std_dev must be positive, got %f", sd)
		}
		return &NormalSampler{mean: spec.Params["mean"], stdDev: sd}, nil

	case "truncated-normal":
		if err := requireParam(spec.Params, "mean", "std_dev", "min", "max"); err != nil {
			return nil, err
		}
		sd := spec.Params["std_dev"]
		if !(sd > 0) {
			return nil, fmt.Errorf("truncated-normal std_dev must be positive, got %f", sd)
		}
		lo, hi := spec.Params["min"], spec.Params["max"]
		if !(lo < hi) {
			return nil, fmt.Errorf("truncated-normal min must be less than max, got [%f, %f]", lo, hi)
		}
		return &TruncNormalSampler{
			mean:   spec.Params["mean"],
			stdDev: sd,
			min:    lo,
			max:    hi,
		}, nil

	case "exponential":
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		mean := spec.Params["mean"]
		if !(mean > 0) {
			return nil, fmt.Errorf("exponential mean must be positive, got %f", mean)
		}
		return &ExponentialSampler{mean: mean}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}

// Validate reports whether a Spec would construct. Used by model validation
// so every bad distribution in a file is caught before assembly.
func Validate(spec Spec) error {
	_, err := NewSampler(spec)
	return err
}
