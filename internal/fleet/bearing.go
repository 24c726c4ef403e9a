package fleet

import (
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
)

// BearingFrequencies are the characteristic defect frequencies in Hz
type BearingFrequencies struct {
	BPFO float64 `json:"bpfo"`
	BPFI float64 `json:"bpfi"`
	BSF  float64 `json:"bsf"`
	FTF  float64 `json:"ftf"`
}

// ShaftFrequency converts RPM to Hz
func ShaftFrequency(rpm float64) float64 {
	return rpm / 60
}

func ratioCos(g config.BearingGeometry) float64 {
	if g.PitchDiameterMM <= 0 {
		return 0
	}
	return g.BallDiameterMM / g.PitchDiameterMM * math.Cos(g.ContactAngleDeg*math.Pi/180)
}

// BPFO is the ball pass frequency of the outer race
func BPFO(g config.BearingGeometry, rpm float64) float64 {
	return float64(g.Balls) / 2 * ShaftFrequency(rpm) * (1 - ratioCos(g))
}

// BPFI is the ball pass frequency of the inner race
func BPFI(g config.BearingGeometry, rpm float64) float64 {
	return float64(g.Balls) / 2 * ShaftFrequency(rpm) * (1 + ratioCos(g))
}

// BSF is the ball spin frequency
func BSF(g config.BearingGeometry, rpm float64) float64 {
	if g.BallDiameterMM <= 0 {
		return 0
	}
	rc := ratioCos(g)
	return g.PitchDiameterMM / (2 * g.BallDiameterMM) * ShaftFrequency(rpm) * (1 - rc*rc)
}

// FTF is the fundamental train (cage) frequency
func FTF(g config.BearingGeometry, rpm float64) float64 {
	return ShaftFrequency(rpm) / 2 * (1 - ratioCos(g))
}

// Frequencies computes all four defect frequencies at once
func Frequencies(g config.BearingGeometry, rpm float64) BearingFrequencies {
	return BearingFrequencies{
		BPFO: BPFO(g, rpm),
		BPFI: BPFI(g, rpm),
		BSF:  BSF(g, rpm),
		FTF:  FTF(g, rpm),
	}
}
