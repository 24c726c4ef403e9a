package faults

import (
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// Bearing is FM-01: main bearing wear on acc1 or acc2
type Bearing struct {
	Sensor string
	Stages [4]config.StageTarget
}

// Cooling is FM-02: coolant temperature rise
type Cooling struct {
	DeltaT1Max float64
}

// ValveTrain is FM-03: mid-low band energy and impulsiveness on acc1/acc2
type ValveTrain struct {
	EnergyMultiplierMax float64
	KurtosisIncreaseMax float64
}

// Oil is FM-04: oil temperature rise with load
type Oil struct {
	DeltaT2Max float64
}

// Turbo is FM-05: turbocharger efficiency loss
type Turbo struct {
	FactorMax float64
}

// Injector is FM-06: injector wear raising pre-turbo EGT
type Injector struct {
	DeltaT3Max    float64
	DeltaInjector float64
	WearMax       float64
}

// EGR is FM-07: cooler fouling with leak events in late stages
type EGR struct {
	DeltaT5Max  float64
	LeakT1      float64
	LeakT5      float64
	LeakPerHour float64
	FoulingMax  float64
	Seed        int64
}

// DPF is FM-08: particulate filter blockage partially cleared by regens
type DPF struct {
	DeltaT3Max    float64
	RegenInterval float64
	Clearance     float64
	Floor         float64
}

func (Bearing) Kind() Kind    { return KindBearing }
func (Cooling) Kind() Kind    { return KindCooling }
func (ValveTrain) Kind() Kind { return KindValveTrain }
func (Oil) Kind() Kind        { return KindOil }
func (Turbo) Kind() Kind      { return KindTurbo }
func (Injector) Kind() Kind   { return KindInjector }
func (EGR) Kind() Kind        { return KindEGR }
func (DPF) Kind() Kind        { return KindDPF }

func (Bearing) sealed()    {}
func (Cooling) sealed()    {}
func (ValveTrain) sealed() {}
func (Oil) sealed()        {}
func (Turbo) sealed()      {}
func (Injector) sealed()   {}
func (EGR) sealed()        {}
func (DPF) sealed()        {}

func (p Bearing) effects(stage core.Stage, sev, load float64) Effect {
	if stage == core.StageHealthy {
		return Effect{}
	}

	target := p.Stages[stage]
	frac := math.Min(1, sev)
	rms := target.RMS.Lerp(frac)
	loadFactor := 0.7 + 0.3*load

	e := newEffect()
	s := p.Sensor
	e.Vibration[s+"_rms"] = VibrationEffect{Set, rms * loadFactor}
	e.Vibration[s+"_kurtosis"] = VibrationEffect{Set, target.Kurtosis.Lerp(frac)}
	e.Vibration[s+"_sk_max"] = VibrationEffect{Set, target.SK.Lerp(frac)}
	e.Vibration[s+"_crest_factor"] = VibrationEffect{Set, 3.0}
	e.Vibration[s+"_mid_high_energy"] = VibrationEffect{Multiply, 1 + 10*sev}
	e.Vibration[s+"_mid_high_peak_shift"] = VibrationEffect{Set, 1}
	return e
}

func (p Cooling) effects(sev, load float64) Effect {
	e := newEffect()
	e.Thermal[core.T1] = p.DeltaT1Max * sev * (0.5 + 0.5*load)
	return e
}

func (p ValveTrain) effects(sev float64) Effect {
	e := newEffect()
	for _, s := range []string{core.Acc1, core.Acc2} {
		e.Vibration[s+"_mid_low_energy"] = VibrationEffect{Multiply, 1 + sev*p.EnergyMultiplierMax}
		e.Vibration[s+"_kurtosis"] = VibrationEffect{Add, sev * p.KurtosisIncreaseMax}
		e.Vibration[s+"_rms"] = VibrationEffect{Multiply, 1 + 0.5*sev}
	}
	return e
}

func (p Oil) effects(sev, load float64) Effect {
	e := newEffect()
	e.Thermal[core.T2] = p.DeltaT2Max * sev * load
	return e
}

func (p Turbo) effects(stage core.Stage, sev float64) Effect {
	e := newEffect()
	e.Thermal[TurboFactorKey] = sev * p.FactorMax
	if stage >= core.Stage3 {
		e.Vibration[core.Acc3+"_broadband_energy"] = VibrationEffect{Multiply, 1 + 3*sev}
		e.Vibration[core.Acc3+"_rms"] = VibrationEffect{Multiply, 1 + 1.5*sev}
	}
	return e
}

func (p Injector) effects(sev float64) Effect {
	wear := sev * p.WearMax
	e := newEffect()
	e.Thermal[core.T3] = p.DeltaInjector * wear
	for _, s := range []string{core.Acc1, core.Acc2} {
		e.Vibration[s+"_high_energy"] = VibrationEffect{Multiply, 1 + 5*sev}
		e.Vibration[s+"_rms"] = VibrationEffect{Multiply, 1 + 0.3*sev}
		e.Vibration[s+"_kurtosis"] = VibrationEffect{Add, sev}
	}
	return e
}

// LeakThreshold is the per-window leak probability at the given severity
func (p EGR) LeakThreshold(sev float64) float64 {
	return p.LeakPerHour / 60 * sev
}

func (p EGR) effects(stage core.Stage, sev, t float64) Effect {
	e := newEffect()
	e.Thermal[core.T5] = p.DeltaT5Max * sev * p.FoulingMax

	if stage >= core.Stage3 && LeakHash(p.Seed, t) < p.LeakThreshold(sev) {
		e.Thermal[core.T1] += p.LeakT1
		e.Thermal[core.T5] += p.LeakT5
	}
	return e
}

// EffectiveSeverity is the blockage left after the regens completed by dt
// hours since onset, floored so long-run blockage still grows
func (p DPF) EffectiveSeverity(sev, dt float64) float64 {
	n := 0.0
	if p.RegenInterval > 0 {
		n = math.Floor(dt / p.RegenInterval)
	}
	eff := sev * math.Pow(1-p.Clearance, n)
	return math.Min(sev, math.Max(eff, p.Floor*sev))
}

func (p DPF) effects(sev, dt float64) Effect {
	e := newEffect()
	e.Thermal[core.T3] = p.DeltaT3Max * p.EffectiveSeverity(sev, dt)
	return e
}
