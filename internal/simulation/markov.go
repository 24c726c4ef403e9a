// Package simulation drives the operating regime of a truck: the operating
// mode chain, RPM and load traces, and ambient temperature.
package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// ErrInvalidTransitionMatrix is returned when a transition matrix is not a
// row-stochastic NumModes x NumModes matrix
var ErrInvalidTransitionMatrix = errors.New("invalid transition matrix")

const (
	rowSumTolerance  = 1e-6
	powerIterations  = 10000
	powerConvergence = 1e-12
)

// MarkovChain samples operating modes at one-window resolution.
// The matrix is copied at construction and never modified.
type MarkovChain struct {
	p [][]float64
}

// NewMarkovChain validates and copies a transition matrix
func NewMarkovChain(matrix [][]float64) (*MarkovChain, error) {
	if len(matrix) != core.NumModes {
		return nil, fmt.Errorf("%w: %d rows, want %d", ErrInvalidTransitionMatrix, len(matrix), core.NumModes)
	}

	p := make([][]float64, core.NumModes)
	for i, row := range matrix {
		if len(row) != core.NumModes {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidTransitionMatrix, i, len(row), core.NumModes)
		}
		sum := 0.0
		for j, v := range row {
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("%w: entry [%d][%d] = %v", ErrInvalidTransitionMatrix, i, j, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > rowSumTolerance {
			return nil, fmt.Errorf("%w: row %d sums to %v", ErrInvalidTransitionMatrix, i, sum)
		}
		p[i] = append([]float64(nil), row...)
	}

	return &MarkovChain{p: p}, nil
}

// Transition returns the probability of moving from one mode to another
func (m *MarkovChain) Transition(from, to core.OperatingMode) float64 {
	return m.p[from][to]
}

// SimulateDay returns the mode of each window of one day. Each window
// records the current mode and then samples the next one.
func (m *MarkovChain) SimulateDay(rng *core.NoiseGenerator, initial core.OperatingMode) []core.OperatingMode {
	states := make([]core.OperatingMode, core.WindowsPerDay)
	state := initial
	for i := range states {
		states[i] = state
		state = core.OperatingMode(rng.SelectWeighted(m.p[state]))
	}
	return states
}

// StationaryDistribution returns the long-run share of each mode, found by
// power iteration on the left eigenvector for eigenvalue 1
func (m *MarkovChain) StationaryDistribution() []float64 {
	n := len(m.p)
	pi := make([]float64, n)
	for i := range pi {
		pi[i] = 1 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < powerIterations; iter++ {
		for j := range next {
			next[j] = 0
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				next[j] += pi[i] * m.p[i][j]
			}
		}

		diff := 0.0
		for j := range next {
			diff += math.Abs(next[j] - pi[j])
		}
		pi, next = next, pi
		if diff < powerConvergence {
			break
		}
	}

	sum := 0.0
	for _, v := range pi {
		sum += v
	}
	for i := range pi {
		pi[i] /= sum
	}
	return pi
}
