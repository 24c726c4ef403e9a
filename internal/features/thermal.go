package features

import (
	"fmt"
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
)

// ThermalSynth runs the first-order-lag temperature model for one window
// and summarizes each trace into 6 statistics plus 3 differentials
type ThermalSynth struct {
	params  config.ThermalParams
	refTemp float64
}

// NewThermalSynth checks that every temperature sensor has a physical range
func NewThermalSynth(p config.ThermalParams, ambientRef float64) (*ThermalSynth, error) {
	for _, s := range core.TempSensors {
		if _, ok := p.SensorRange[s]; !ok {
			return nil, fmt.Errorf("no physical range for %s", s)
		}
	}
	if p.StepsPerWindow < 2 {
		return nil, fmt.Errorf("thermal steps per window must be at least 2, got %d", p.StepsPerWindow)
	}
	return &ThermalSynth{params: p, refTemp: ambientRef}, nil
}

// Target is the steady-state temperature a sensor lags towards
func (ts *ThermalSynth) Target(b fleet.ThermalBaseline, load, ambient, offset float64) float64 {
	return b.IdleTemp + b.DeltaLoad*load + ts.params.AmbientGain*(ambient-ts.refTemp) + offset
}

// Synthesize writes the thermal block of v and returns the end-of-window
// temperatures and the mean T3
func (ts *ThermalSynth) Synthesize(v *Vector, load, ambient float64, baselines map[string]fleet.ThermalBaseline,
	fx ThermalEffects, prev core.ThermalState, rng *core.NoiseGenerator) (core.ThermalState, float64) {

	steps := ts.params.StepsPerWindow
	traces := make(map[string][]float64, len(core.TempSensors))

	for _, s := range core.TempSensors {
		b := baselines[s]
		bounds := ts.params.SensorRange[s]
		target := ts.Target(b, load, ambient, fx.Offsets[s])

		cur, ok := prev[s]
		if !ok {
			cur = b.IdleTemp
		}

		trace := make([]float64, steps)
		for i := range trace {
			if b.Tau > 0 {
				cur += (target - cur) / b.Tau
			} else {
				cur = target
			}
			cur += rng.Gaussian(0, ts.params.NoiseStd)
			cur = bounds.Clamp(cur)
			trace[i] = cur
		}
		traces[s] = trace
	}

	if fx.TurboFactor > 0 {
		t4 := traces[core.T4]
		delta := mean(traces[core.T3]) - mean(t4)
		if delta > 0 {
			bounds := ts.params.SensorRange[core.T4]
			shift := delta * fx.TurboFactor
			for i := range t4 {
				t4[i] = bounds.Clamp(t4[i] + shift)
			}
		}
	}

	c := &cursor{dst: v.thermal()}
	means := make(map[string]float64, len(core.TempSensors))
	final := make(core.ThermalState, len(core.TempSensors))
	for _, s := range core.TempSensors {
		tr := traces[s]
		m := mean(tr)
		lo, hi := minMax(tr)
		means[s] = m
		final[s] = tr[len(tr)-1]
		c.put(m, stdDev(tr, m), hi, lo, hi-lo, slope(tr))
	}

	exceed := 0
	for _, x := range traces[core.T3] {
		if x > ts.params.EGTAlarm {
			exceed++
		}
	}
	c.put(
		means[core.T3]-means[core.T4],
		means[core.T1]-means[core.T5],
		float64(exceed),
	)

	return final, means[core.T3]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation
func stdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// slope is the least-squares slope of xs against 0..n-1
func slope(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	xm := (n - 1) / 2
	ym := mean(xs)
	num, den := 0.0, 0.0
	for i, y := range xs {
		dx := float64(i) - xm
		num += dx * (y - ym)
		den += dx * dx
	}
	return num / den
}
