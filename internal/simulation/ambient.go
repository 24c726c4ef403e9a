package simulation

import (
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
)

const (
	daysPerYear    = 365.0
	seasonalPeakAt = 90.0
	dailyPeakHour  = 14.0
	secondsPerDay  = 86400.0
)

// AmbientModel is a seasonal plus diurnal sinusoid
type AmbientModel struct {
	params config.AmbientParams
}

// NewAmbientModel creates an ambient model from its parameters
func NewAmbientModel(p config.AmbientParams) AmbientModel {
	return AmbientModel{params: p}
}

// Temperature returns the ambient temperature in °C
func (a AmbientModel) Temperature(dayIndex, secondOfDay int) float64 {
	seasonal := a.params.SeasonalAmp * math.Sin(2*math.Pi*(float64(dayIndex)-seasonalPeakAt)/daysPerYear)
	hourFrac := float64(secondOfDay) / secondsPerDay
	daily := a.params.DailyAmp * math.Sin(2*math.Pi*(hourFrac-dailyPeakHour/24))
	return a.params.Mean + seasonal + daily
}
