package core

import (
	"math/rand/v2"
)

// NoiseGenerator provides the seeded random draws used by the simulation.
// A generator is owned by exactly one truck-day (or one fault factory) and is
// never shared between goroutines.
type NoiseGenerator struct {
	rng *rand.Rand
}

// NewNoiseGenerator creates a generator whose stream depends only on seed
func NewNoiseGenerator(seed int64) *NoiseGenerator {
	s := uint64(seed)
	return &NoiseGenerator{
		rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15)),
	}
}

// Gaussian returns a value from a Gaussian distribution with given mean and stdDev
func (ng *NoiseGenerator) Gaussian(mean, stdDev float64) float64 {
	return mean + ng.rng.NormFloat64()*stdDev
}

// GaussianNoise returns target scaled by (1 + N(0, noisePercent))
func (ng *NoiseGenerator) GaussianNoise(target, noisePercent float64) float64 {
	return target * (1 + ng.rng.NormFloat64()*noisePercent)
}

// ClippedGaussian samples N(mid, width/4) and clips it into r
func (ng *NoiseGenerator) ClippedGaussian(r Range) float64 {
	return r.Clamp(ng.Gaussian(r.Mid(), r.Width()/4))
}

// Uniform returns a uniform random value in [min, max)
func (ng *NoiseGenerator) Uniform(min, max float64) float64 {
	return min + ng.rng.Float64()*(max-min)
}

// UniformRange returns a uniform random value inside r
func (ng *NoiseGenerator) UniformRange(r Range) float64 {
	return ng.Uniform(r.Lo, r.Hi)
}

// UniformInt returns a uniform random integer in [min, max]
func (ng *NoiseGenerator) UniformInt(min, max int) int {
	return min + ng.rng.IntN(max-min+1)
}

// Float64 returns a uniform value in [0, 1)
func (ng *NoiseGenerator) Float64() float64 {
	return ng.rng.Float64()
}

// Bool returns true with the given probability
func (ng *NoiseGenerator) Bool(probability float64) bool {
	return ng.rng.Float64() < probability
}

// Seed draws a child seed in [0, 2^31) for derived generators
func (ng *NoiseGenerator) Seed() int64 {
	return ng.rng.Int64N(1 << 31)
}

// Shuffle permutes n elements using swap
func (ng *NoiseGenerator) Shuffle(n int, swap func(i, j int)) {
	ng.rng.Shuffle(n, swap)
}

// SelectWeighted selects from a slice of weights, returning the index
func (ng *NoiseGenerator) SelectWeighted(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := ng.rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r < cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// ClampPositive ensures a value is non-negative
func ClampPositive(value float64) float64 {
	if value < 0 {
		return 0
	}
	return value
}

// Clamp ensures a value is within bounds
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
