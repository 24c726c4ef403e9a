// Package degradation models the severity of a single fault instance over time.
package degradation

import (
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// Life-fraction cut points between stages
const (
	Stage2Fraction = 0.60
	Stage3Fraction = 0.75
	Stage4Fraction = 0.95
)

const (
	steepness     = 5.0
	noiseMemory   = 0.95
	noiseBaseGain = 0.5
)

// Model is an exponential severity curve perturbed by a bounded,
// mean-reverting noise path. The noise path is computed once in New and
// never written again, so a Model can be shared across goroutines.
type Model struct {
	severity0  float64
	lambdaRate float64
	sigma      float64
	totalHours int
	noise      []float64
}

// New precomputes the hourly noise path for one fault instance
func New(severity0, lambdaRate, sigma float64, totalHours int, seed int64) *Model {
	if totalHours < 0 {
		totalHours = 0
	}
	ng := core.NewNoiseGenerator(seed)

	noise := make([]float64, totalHours+1)
	for i := 1; i < len(noise); i++ {
		noise[i] = noiseMemory*noise[i-1] + ng.Gaussian(0, 1)
	}

	maxAbs := 1e-8
	for _, v := range noise {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	for i := range noise {
		noise[i] /= maxAbs
	}

	return &Model{
		severity0:  severity0,
		lambdaRate: lambdaRate,
		sigma:      sigma,
		totalHours: totalHours,
		noise:      noise,
	}
}

// TotalHours returns the horizon after which severity is pinned to 1
func (m *Model) TotalHours() int {
	return m.totalHours
}

// Sigma returns the noise amplitude
func (m *Model) Sigma() float64 {
	return m.sigma
}

// LambdaRate returns the nominal base degradation rate
func (m *Model) LambdaRate() float64 {
	return m.lambdaRate
}

// Severity0 returns the nominal initial severity
func (m *Model) Severity0() float64 {
	return m.severity0
}

// SeverityAt returns the severity in [0, 1] at t hours since onset
func (m *Model) SeverityAt(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= float64(m.totalHours) {
		return 1
	}

	frac := t / float64(m.totalHours)
	base := (math.Exp(steepness*frac) - 1) / (math.Exp(steepness) - 1)

	raw := base + m.sigma*m.noiseAt(t)*base*noiseBaseGain
	return core.Clamp(raw, 0, 1)
}

func (m *Model) noiseAt(t float64) float64 {
	idx := int(t)
	last := len(m.noise) - 1
	if idx >= last {
		return m.noise[last]
	}
	frac := t - float64(idx)
	return m.noise[idx] + frac*(m.noise[idx+1]-m.noise[idx])
}

// StageAt maps t hours since onset to a stage using the life fraction
// t/totalLife. A non-positive totalLife counts as fully progressed.
func StageAt(t, totalLife float64) core.Stage {
	if t <= 0 {
		return core.StageHealthy
	}

	lifeFrac := 1.0
	if totalLife > 0 {
		lifeFrac = t / totalLife
	}

	switch {
	case lifeFrac < Stage2Fraction:
		return core.StageHealthy
	case lifeFrac < Stage3Fraction:
		return core.Stage2
	case lifeFrac < Stage4Fraction:
		return core.Stage3
	default:
		return core.Stage4
	}
}

// StageAt is the method form of the package-level StageAt
func (m *Model) StageAt(t, totalLife float64) core.Stage {
	return StageAt(t, totalLife)
}
