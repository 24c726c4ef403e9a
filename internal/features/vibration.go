package features

import (
	"fmt"
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

const (
	rmsFloor        = 0.001
	kurtosisFloor   = 2.0
	bandEnergyFloor = 1e-8
	rollOffHz       = 1000.0
)

// Spectral kurtosis peak-frequency ranges in Hz
var (
	skFreqBearing = core.R(2000, 10000)
	skFreqTurbo   = core.R(1000, 5000)
	skFreqDefault = core.R(500, 5000)
	skBase        = core.R(1, 5)
)

// VibrationSynth produces the 180 vibration features of a window directly
// in feature space
type VibrationSynth struct {
	params config.VibrationParams
}

// NewVibrationSynth checks that the configured band layout matches the
// column contract
func NewVibrationSynth(p config.VibrationParams) (*VibrationSynth, error) {
	for _, s := range core.Accelerometers {
		if _, ok := p.RMSBase[s]; !ok {
			return nil, fmt.Errorf("no RMS baseline for %s", s)
		}
		bands := p.Bands(s)
		want := SensorBands(s)
		if len(bands) != len(want) {
			return nil, fmt.Errorf("%s has %d bands, want %d", s, len(bands), len(want))
		}
		for i, b := range bands {
			if b.Name != want[i] {
				return nil, fmt.Errorf("%s band %d is %q, want %q", s, i, b.Name, want[i])
			}
			if b.Freq.Width() <= 0 {
				return nil, fmt.Errorf("%s band %q has empty frequency range", s, b.Name)
			}
		}
	}
	return &VibrationSynth{params: p}, nil
}

// Synthesize writes the vibration block of v
func (vs *VibrationSynth) Synthesize(v *Vector, load float64, fx VibrationEffects, rng *core.NoiseGenerator) {
	c := &cursor{dst: v.vibration()}
	for _, s := range core.Accelerometers {
		vs.sensor(c, s, load, fx, rng)
	}
}

func (vs *VibrationSynth) sensor(c *cursor, s string, load float64, fx VibrationEffects, rng *core.NoiseGenerator) {
	p := vs.params
	noise := p.NoiseFraction
	logN := math.Log(float64(p.SubWindows(s)))
	bands := p.Bands(s)

	rmsBase := rng.UniformRange(p.RMSBase[s]) * (0.7 + 0.3*load)

	for range core.Axes {
		rms := fx.Apply(s+"_rms", rmsBase) * (1 + rng.Gaussian(0, 0.05))
		rms = math.Max(rms, rmsFloor)

		kurt := fx.Apply(s+"_kurtosis", p.KurtosisBase+rng.Gaussian(0, 0.2))
		kurt = math.Max(kurt, kurtosisFloor)

		crest := fx.Apply(s+"_crest_factor", rng.UniformRange(p.CrestFactor))
		peak := rms * crest

		c.put(
			rms*(1+rng.Gaussian(0, noise*0.3)),
			rms*math.Abs(rng.Gaussian(0.05, 0.02)),
			peak*(1+rng.Gaussian(0, noise)),
			crest*(1+rng.Gaussian(0, noise*0.5)),
			kurt*(1+rng.Gaussian(0, noise*0.3)),
			kurt*(1+0.15*logN*rng.Uniform(0.5, 1.5)),
		)

		total := rms * rms
		for _, b := range bands {
			lo, hi := b.Freq.Lo, b.Freq.Hi
			bw := b.Freq.Width()

			energy := total / (1 + b.Freq.Mid()/rollOffHz)
			energy = math.Max(fx.Apply(s+"_"+b.Name+"_energy", energy), bandEnergyFloor)
			density := energy / bw

			energyMean := density * (1 + rng.Gaussian(0, noise))
			energyStd := density * math.Abs(rng.Gaussian(0.1, 0.03))

			peakFreq := rng.Uniform(lo+0.2*bw, hi-0.2*bw)
			if fx.Has(s + "_" + b.Name + "_peak_shift") {
				peakFreq = lo + 0.4*bw
			}

			centroid := b.Freq.Clamp(b.Freq.Mid() + rng.Gaussian(0, 0.05*bw))

			c.put(energyMean, energyStd, peakFreq, centroid)
		}
	}

	sk := fx.Apply(s+"_sk_max", rng.UniformRange(skBase))
	skValue := sk * (1 + rng.Gaussian(0, noise))

	var skFreq float64
	switch {
	case fx.Has(s + "_mid_high_peak_shift"):
		skFreq = rng.UniformRange(skFreqBearing)
	case fx.Has(s + "_broadband_energy"):
		skFreq = rng.UniformRange(skFreqTurbo)
	default:
		skFreq = rng.UniformRange(skFreqDefault)
	}
	c.put(skValue, skFreq)
}
