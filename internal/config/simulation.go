package config

import (
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// Simulation is the parameter set of the physics and fault models.
// DefaultSimulation returns a fresh value on every call; consumers treat it
// as read-only so several configurations can run side by side.
type Simulation struct {
	Fleet     FleetParams
	Markov    MarkovParams
	Ambient   AmbientParams
	Thermal   ThermalParams
	Vibration VibrationParams
	Faults    FaultParams
	Engines   map[core.EngineType]EngineParams
}

// FleetParams sizes the fleet and its fault mix
type FleetParams struct {
	Size              int
	ModernFraction    float64
	Days              int
	SplitTrain        int
	SplitVal          int
	SplitTest         int
	HealthyFraction   float64
	SingleFraction    float64
	DoubleFraction    float64
	MaxOnsetFraction  float64
	BaseTimestampUnix int64
}

// TotalHours is the simulated horizon in hours
func (f FleetParams) TotalHours() float64 {
	return float64(f.Days * core.HoursPerDay)
}

// MarkovParams holds the operating-mode chain and per-mode ranges
type MarkovParams struct {
	Transition     [][]float64
	RPM            map[core.EngineType][core.NumModes]core.Range
	Load           [core.NumModes]core.Range
	SmoothingAlpha float64
}

// AmbientParams holds the seasonal and diurnal ambient model
type AmbientParams struct {
	Mean        float64
	SeasonalAmp float64
	DailyAmp    float64
	RefTemp     float64
}

// ThermalParams holds sensor ranges and the thermal synthesis constants
type ThermalParams struct {
	SensorRange     map[string]core.Range
	OffsetCap       map[string]float64
	NoiseStd        float64
	AmbientGain     float64
	EGTAlarm        float64
	StepsPerWindow  int
	LoadProxyT3Idle map[core.EngineType]float64
	LoadProxyT3Full map[core.EngineType]float64
}

// VibrationParams holds healthy vibration baselines and band layout
type VibrationParams struct {
	RMSBase         map[string]core.Range
	KurtosisBase    float64
	CrestFactor     core.Range
	NoiseFraction   float64
	SubWindowsAcc12 int
	SubWindowsAcc3  int
	BandsAcc12      []Band
	BandsAcc3       []Band
}

// Band is a named frequency band in Hz
type Band struct {
	Name string
	Freq core.Range
}

// Bands returns the band layout for the given accelerometer
func (v VibrationParams) Bands(sensor string) []Band {
	if sensor == core.Acc3 {
		return v.BandsAcc3
	}
	return v.BandsAcc12
}

// SubWindows returns the number of vibration sub-windows aggregated per window
func (v VibrationParams) SubWindows(sensor string) int {
	if sensor == core.Acc3 {
		return v.SubWindowsAcc3
	}
	return v.SubWindowsAcc12
}

// BearingGeometry describes a rolling-element bearing
type BearingGeometry struct {
	Balls           int     `json:"n_balls"`
	BallDiameterMM  float64 `json:"ball_dia_mm"`
	PitchDiameterMM float64 `json:"pitch_dia_mm"`
	ContactAngleDeg float64 `json:"contact_angle_deg"`
}

// ThermalBaselineRange is the sampling range of one sensor's baseline
type ThermalBaselineRange struct {
	Idle      core.Range
	Cruise    core.Range
	DeltaLoad core.Range
	Tau       core.Range
}

// EngineParams describes one engine family
type EngineParams struct {
	Displacement core.Range
	MainBearings int
	CruiseRPM    core.Range
	Bearing      BearingGeometry
	Thermal      map[string]ThermalBaselineRange
	TurboDelta   core.Range
}

// DefaultIdleTemps returns the idle-range midpoints used when no thermal state
// has been carried over from a previous day
func (e EngineParams) DefaultIdleTemps() core.ThermalState {
	out := make(core.ThermalState, len(e.Thermal))
	for sensor, b := range e.Thermal {
		out[sensor] = b.Idle.Mid()
	}
	return out
}

// DegradationParams are the fixed noise parameters of a fault's degradation curve
type DegradationParams struct {
	Lambda float64
	Sigma  float64
}

// BearingDegradation is the per-engine sampling range of FM-01
type BearingDegradation struct {
	Lambda  core.Range
	Sigma   core.Range
	TStage2 core.Range
	DT23    core.Range
	DT34    core.Range
}

// StageTarget is the vibration target range of a bearing stage
type StageTarget struct {
	RMS      core.Range
	Kurtosis core.Range
	SK       core.Range
}

// FaultParams holds every fault family's sampling ranges
type FaultParams struct {
	Severity0       float64
	LifeMarginHours int

	Bearing       map[core.EngineType]BearingDegradation
	BearingStages [4]StageTarget // indexed by core.Stage

	CoolingDelta       core.Range
	CoolingProgression core.Range
	Cooling            DegradationParams

	ValveEnergyMultiplier core.Range
	ValveKurtosisIncrease core.Range
	ValveProgression      core.Range
	Valve                 DegradationParams

	OilDelta       core.Range
	OilProgression core.Range
	Oil            DegradationParams

	TurboFactor      core.Range
	TurboProgression core.Range
	Turbo            DegradationParams

	InjectorDeltaT3     core.Range
	InjectorDeltaFull   core.Range
	InjectorProgression core.Range
	InjectorWearMax     float64
	Injector            DegradationParams

	EGRDeltaT5     core.Range
	EGRLeakT1      core.Range
	EGRLeakT5      core.Range
	EGRLeakPerHour float64
	EGRFoulingMax  float64
	EGRProgression core.Range
	EGR            DegradationParams

	DPFDeltaT3       core.Range
	DPFRegenInterval core.Range
	DPFProgression   core.Range
	DPFClearance     float64
	DPFFloor         float64
	DPF              DegradationParams
}

// DefaultSimulation returns the reference parameter set
func DefaultSimulation() Simulation {
	return Simulation{
		Fleet: FleetParams{
			Size:              200,
			ModernFraction:    0.80,
			Days:              183,
			SplitTrain:        120,
			SplitVal:          50,
			SplitTest:         30,
			HealthyFraction:   0.30,
			SingleFraction:    0.40,
			DoubleFraction:    0.20,
			MaxOnsetFraction:  0.70,
			BaseTimestampUnix: 1735689600, // 2025-01-01T00:00:00Z
		},
		Markov: MarkovParams{
			Transition: [][]float64{
				{0.70, 0.25, 0.04, 0.01},
				{0.10, 0.60, 0.25, 0.05},
				{0.02, 0.15, 0.75, 0.08},
				{0.05, 0.20, 0.70, 0.05},
			},
			RPM: map[core.EngineType][core.NumModes]core.Range{
				core.EngineModern: {core.R(600, 800), core.R(1000, 1400), core.R(1400, 1550), core.R(1600, 2100)},
				core.EngineOlder:  {core.R(600, 800), core.R(1000, 1400), core.R(1500, 1700), core.R(1600, 2100)},
			},
			Load:           [core.NumModes]core.Range{core.R(0, 0.1), core.R(0.2, 0.5), core.R(0.6, 0.9), core.R(0.9, 1.2)},
			SmoothingAlpha: 0.2,
		},
		Ambient: AmbientParams{
			Mean:        15,
			SeasonalAmp: 15,
			DailyAmp:    5,
			RefTemp:     25,
		},
		Thermal: ThermalParams{
			SensorRange: map[string]core.Range{
				core.T1: core.R(0, 120),
				core.T2: core.R(0, 150),
				core.T3: core.R(0, 900),
				core.T4: core.R(0, 700),
				core.T5: core.R(0, 600),
				core.T6: core.R(0, 200),
			},
			OffsetCap: map[string]float64{
				core.T1: 50,
				core.T2: 50,
				core.T3: 250,
				core.T4: 200,
				core.T5: 100,
				core.T6: 30,
			},
			NoiseStd:        1.0,
			AmbientGain:     0.5,
			EGTAlarm:        677,
			StepsPerWindow:  core.SecondsPerWindow,
			LoadProxyT3Idle: map[core.EngineType]float64{core.EngineModern: 175, core.EngineOlder: 185},
			LoadProxyT3Full: map[core.EngineType]float64{core.EngineModern: 400, core.EngineOlder: 400},
		},
		Vibration: VibrationParams{
			RMSBase: map[string]core.Range{
				core.Acc1: core.R(0.05, 0.15),
				core.Acc2: core.R(0.05, 0.15),
				core.Acc3: core.R(0.02, 0.08),
			},
			KurtosisBase:    3.0,
			CrestFactor:     core.R(2.5, 4.0),
			NoiseFraction:   0.10,
			SubWindowsAcc12: 2929,
			SubWindowsAcc3:  585,
			BandsAcc12: []Band{
				{Name: "low", Freq: core.R(0, 500)},
				{Name: "mid_low", Freq: core.R(500, 2000)},
				{Name: "mid_high", Freq: core.R(2000, 10000)},
				{Name: "high", Freq: core.R(10000, 25000)},
			},
			BandsAcc3: []Band{
				{Name: "low", Freq: core.R(0, 1000)},
				{Name: "broadband", Freq: core.R(1000, 5000)},
			},
		},
		Faults: FaultParams{
			Severity0:       0.01,
			LifeMarginHours: 100,
			Bearing: map[core.EngineType]BearingDegradation{
				core.EngineModern: {
					Lambda:  core.R(0.0001, 0.0003),
					Sigma:   core.R(0.05, 0.15),
					TStage2: core.R(2000, 4000),
					DT23:    core.R(200, 500),
					DT34:    core.R(50, 150),
				},
				core.EngineOlder: {
					Lambda:  core.R(0.0002, 0.0005),
					Sigma:   core.R(0.10, 0.20),
					TStage2: core.R(1500, 3000),
					DT23:    core.R(150, 400),
					DT34:    core.R(30, 100),
				},
			},
			BearingStages: [4]StageTarget{
				{RMS: core.R(0.05, 0.15), Kurtosis: core.R(2.5, 3.5), SK: core.R(1, 5)},
				{RMS: core.R(0.15, 0.30), Kurtosis: core.R(4, 6), SK: core.R(5, 8)},
				{RMS: core.R(0.30, 1.50), Kurtosis: core.R(6, 10), SK: core.R(10, 20)},
				{RMS: core.R(1.50, 5.00), Kurtosis: core.R(3, 5), SK: core.R(5, 8)},
			},

			CoolingDelta:       core.R(10, 30),
			CoolingProgression: core.R(500, 1500),
			Cooling:            DegradationParams{Lambda: 0.0002, Sigma: 0.08},

			ValveEnergyMultiplier: core.R(3, 8),
			ValveKurtosisIncrease: core.R(1, 3),
			ValveProgression:      core.R(1000, 3000),
			Valve:                 DegradationParams{Lambda: 0.0002, Sigma: 0.10},

			OilDelta:       core.R(10, 30),
			OilProgression: core.R(500, 1500),
			Oil:            DegradationParams{Lambda: 0.0002, Sigma: 0.08},

			TurboFactor:      core.R(0.2, 0.4),
			TurboProgression: core.R(500, 1000),
			Turbo:            DegradationParams{Lambda: 0.0003, Sigma: 0.10},

			InjectorDeltaT3:     core.R(30, 80),
			InjectorDeltaFull:   core.R(50, 100),
			InjectorProgression: core.R(1000, 2000),
			InjectorWearMax:     0.22,
			Injector:            DegradationParams{Lambda: 0.0002, Sigma: 0.08},

			EGRDeltaT5:     core.R(20, 60),
			EGRLeakT1:      core.R(10, 30),
			EGRLeakT5:      core.R(30, 80),
			EGRLeakPerHour: 0.002,
			EGRFoulingMax:  0.4,
			EGRProgression: core.R(500, 1500),
			EGR:            DegradationParams{Lambda: 0.0003, Sigma: 0.12},

			DPFDeltaT3:       core.R(100, 200),
			DPFRegenInterval: core.R(200, 400),
			DPFProgression:   core.R(100, 500),
			DPFClearance:     0.3,
			DPFFloor:         0.5,
			DPF:              DegradationParams{Lambda: 0.0005, Sigma: 0.15},
		},
		Engines: map[core.EngineType]EngineParams{
			core.EngineModern: {
				Displacement: core.R(12.7, 15.0),
				MainBearings: 7,
				CruiseRPM:    core.R(1400, 1550),
				Bearing:      BearingGeometry{Balls: 12, BallDiameterMM: 20, PitchDiameterMM: 120},
				Thermal: map[string]ThermalBaselineRange{
					core.T1: {Idle: core.R(60, 70), Cruise: core.R(85, 95), DeltaLoad: core.R(25, 35), Tau: core.R(60, 120)},
					core.T2: {Idle: core.R(70, 80), Cruise: core.R(95, 110), DeltaLoad: core.R(25, 40), Tau: core.R(90, 180)},
					core.T3: {Idle: core.R(150, 200), Cruise: core.R(315, 482), DeltaLoad: core.R(240, 350), Tau: core.R(15, 30)},
					core.T4: {Idle: core.R(100, 130), Cruise: core.R(110, 160), DeltaLoad: core.R(5, 30), Tau: core.R(20, 40)},
					core.T5: {Idle: core.R(80, 100), Cruise: core.R(150, 250), DeltaLoad: core.R(70, 180), Tau: core.R(30, 60)},
					core.T6: {Idle: core.R(30, 40), Cruise: core.R(50, 80), DeltaLoad: core.R(20, 50), Tau: core.R(10, 20)},
				},
				TurboDelta: core.R(200, 280),
			},
			core.EngineOlder: {
				Displacement: core.R(10.4, 14.3),
				MainBearings: 7,
				CruiseRPM:    core.R(1500, 1700),
				Bearing:      BearingGeometry{Balls: 10, BallDiameterMM: 18, PitchDiameterMM: 110},
				Thermal: map[string]ThermalBaselineRange{
					core.T1: {Idle: core.R(65, 75), Cruise: core.R(85, 95), DeltaLoad: core.R(25, 35), Tau: core.R(60, 120)},
					core.T2: {Idle: core.R(80, 90), Cruise: core.R(90, 110), DeltaLoad: core.R(25, 40), Tau: core.R(90, 180)},
					core.T3: {Idle: core.R(160, 210), Cruise: core.R(300, 500), DeltaLoad: core.R(240, 350), Tau: core.R(15, 30)},
					core.T4: {Idle: core.R(110, 140), Cruise: core.R(120, 170), DeltaLoad: core.R(5, 30), Tau: core.R(20, 40)},
					core.T5: {Idle: core.R(90, 110), Cruise: core.R(160, 240), DeltaLoad: core.R(70, 180), Tau: core.R(30, 60)},
					core.T6: {Idle: core.R(35, 45), Cruise: core.R(50, 75), DeltaLoad: core.R(20, 50), Tau: core.R(10, 20)},
				},
				TurboDelta: core.R(150, 250),
			},
		},
	}
}
