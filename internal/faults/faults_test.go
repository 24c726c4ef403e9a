package faults

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/degradation"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestLeakHashVectors(t *testing.T) {
	tests := []struct {
		seed   int64
		tHours float64
		want   float64
	}{
		{42, 100.5, 0.07883939836078668},
		{7, 0.0, 0.7947138364925634},
		{123456, 2000.25, 0.4959351015521967},
	}

	for _, tt := range tests {
		got := LeakHash(tt.seed, tt.tHours)
		if !approx(got, tt.want, 1e-15) {
			t.Errorf("LeakHash(%d, %v) = %.17g, want %.17g", tt.seed, tt.tHours, got, tt.want)
		}
		if got < 0 || got >= 1 {
			t.Errorf("LeakHash(%d, %v) = %v outside [0,1)", tt.seed, tt.tHours, got)
		}
	}
}

func TestLeakHashDeterministic(t *testing.T) {
	for h := 0.0; h < 10; h += 1.0 / 60 {
		if LeakHash(99, h) != LeakHash(99, h) {
			t.Fatalf("LeakHash not deterministic at %v", h)
		}
	}
	if LeakHash(1, 5) == LeakHash(2, 5) {
		t.Fatal("different seeds produced the same hash")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q) error: %v", k.String(), err)
		}
		if got != k {
			t.Fatalf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}

	for _, bad := range []string{"", "FM-00", "FM-09", "fm-01", "bearing"} {
		if _, err := ParseKind(bad); !errors.Is(err, ErrUnknownFaultKind) {
			t.Errorf("ParseKind(%q) error = %v, want ErrUnknownFaultKind", bad, err)
		}
	}
}

func TestBearingEffects(t *testing.T) {
	p := Bearing{Sensor: core.Acc2, Stages: config.DefaultSimulation().Faults.BearingStages}

	if e := p.effects(core.StageHealthy, 0.5, 0.5); !e.IsZero() {
		t.Fatalf("healthy stage produced effects: %+v", e)
	}

	e := p.effects(core.Stage3, 0.5, 1.0)
	checks := map[string]VibrationEffect{
		"acc2_rms":                 {Set, 0.9},
		"acc2_kurtosis":            {Set, 8},
		"acc2_sk_max":              {Set, 15},
		"acc2_crest_factor":        {Set, 3},
		"acc2_mid_high_energy":     {Multiply, 6},
		"acc2_mid_high_peak_shift": {Set, 1},
	}
	for key, want := range checks {
		got, ok := e.Vibration[key]
		if !ok {
			t.Fatalf("missing effect %s", key)
		}
		if got.Mode != want.Mode || !approx(got.Value, want.Value, 1e-9) {
			t.Errorf("%s = %+v, want %+v", key, got, want)
		}
	}
	if _, ok := e.Vibration["acc1_rms"]; ok {
		t.Error("bearing on acc2 touched acc1")
	}

	idle := p.effects(core.Stage3, 0.5, 0)
	if !approx(idle.Vibration["acc2_rms"].Value, 0.9*0.7, 1e-9) {
		t.Errorf("rms at zero load = %v, want %v", idle.Vibration["acc2_rms"].Value, 0.63)
	}
}

func TestThermalVariants(t *testing.T) {
	tests := []struct {
		name   string
		effect Effect
		key    string
		want   float64
	}{
		{"cooling full load", Cooling{DeltaT1Max: 20}.effects(0.5, 1), core.T1, 10},
		{"cooling no load", Cooling{DeltaT1Max: 20}.effects(0.5, 0), core.T1, 5},
		{"oil", Oil{DeltaT2Max: 30}.effects(0.5, 0.5), core.T2, 7.5},
		{"injector", Injector{DeltaInjector: 100, WearMax: 0.22}.effects(1), core.T3, 22},
		{"egr fouling", EGR{DeltaT5Max: 50, FoulingMax: 0.4}.effects(core.Stage2, 1, 10), core.T5, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.effect.Thermal[tt.key]; !approx(got, tt.want, 1e-9) {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestValveTrainTouchesBothBlockSensors(t *testing.T) {
	e := ValveTrain{EnergyMultiplierMax: 5, KurtosisIncreaseMax: 2}.effects(0.5)
	for _, s := range []string{core.Acc1, core.Acc2} {
		if got := e.Vibration[s+"_mid_low_energy"]; got.Mode != Multiply || !approx(got.Value, 3.5, 1e-9) {
			t.Errorf("%s mid_low_energy = %+v", s, got)
		}
		if got := e.Vibration[s+"_kurtosis"]; got.Mode != Add || !approx(got.Value, 1, 1e-9) {
			t.Errorf("%s kurtosis = %+v", s, got)
		}
		if got := e.Vibration[s+"_rms"]; got.Mode != Multiply || !approx(got.Value, 1.25, 1e-9) {
			t.Errorf("%s rms = %+v", s, got)
		}
	}
	if len(e.Thermal) != 0 {
		t.Errorf("valve train produced thermal effects: %v", e.Thermal)
	}
}

func TestTurboStages(t *testing.T) {
	p := Turbo{FactorMax: 0.4}

	early := p.effects(core.Stage2, 0.5)
	if !approx(early.Thermal[TurboFactorKey], 0.2, 1e-9) {
		t.Fatalf("turbo factor = %v, want 0.2", early.Thermal[TurboFactorKey])
	}
	if len(early.Vibration) != 0 {
		t.Fatalf("stage2 turbo produced vibration effects: %v", early.Vibration)
	}

	late := p.effects(core.Stage3, 0.5)
	if got := late.Vibration["acc3_broadband_energy"].Value; !approx(got, 2.5, 1e-9) {
		t.Errorf("acc3 broadband multiplier = %v, want 2.5", got)
	}
	if got := late.Vibration["acc3_rms"].Value; !approx(got, 1.75, 1e-9) {
		t.Errorf("acc3 rms multiplier = %v, want 1.75", got)
	}
}

func TestEGRLeak(t *testing.T) {
	always := EGR{DeltaT5Max: 50, LeakT1: 20, LeakT5: 40, LeakPerHour: 1e12, FoulingMax: 0.4, Seed: 3}
	never := always
	never.LeakPerHour = 0

	e := always.effects(core.Stage3, 1, 100)
	if !approx(e.Thermal[core.T1], 20, 1e-9) || !approx(e.Thermal[core.T5], 60, 1e-9) {
		t.Fatalf("leak effect = %v, want t1=20 t5=60", e.Thermal)
	}

	e = always.effects(core.Stage2, 1, 100)
	if _, ok := e.Thermal[core.T1]; ok {
		t.Fatal("leak fired before stage3")
	}

	e = never.effects(core.Stage4, 1, 100)
	if _, ok := e.Thermal[core.T1]; ok {
		t.Fatal("leak fired with zero leak rate")
	}
}

func TestDPFEffectiveSeverityFloor(t *testing.T) {
	p := DPF{DeltaT3Max: 150, RegenInterval: 100, Clearance: 0.3, Floor: 0.5}

	tests := []struct {
		name string
		sev  float64
		dt   float64
		want float64
	}{
		{"before first regen", 0.8, 50, 0.8},
		{"one regen", 0.8, 150, 0.56},
		{"two regens", 0.8, 250, 0.4},
		{"many regens hits floor", 0.8, 1000, 0.4},
		{"zero severity", 0, 1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.EffectiveSeverity(tt.sev, tt.dt)
			if !approx(got, tt.want, 1e-9) {
				t.Errorf("EffectiveSeverity(%v, %v) = %v, want %v", tt.sev, tt.dt, got, tt.want)
			}
			if got > tt.sev+1e-12 {
				t.Errorf("effective severity %v exceeds severity %v", got, tt.sev)
			}
		})
	}

	if got := p.effects(0.8, 1000).Thermal[core.T3]; !approx(got, 60, 1e-9) {
		t.Errorf("t3 offset = %v, want 60", got)
	}
}

func TestFaultLifecycle(t *testing.T) {
	model := degradation.New(0.01, 0.0002, 0.1, 600, 5)
	f := NewFault(100, 500, model, Cooling{DeltaT1Max: 20})

	if f.ID() != "FM-02" {
		t.Fatalf("ID = %s, want FM-02", f.ID())
	}
	if got := f.Severity(50); got != 0 {
		t.Fatalf("severity before onset = %v", got)
	}
	if e := f.Effects(50, 1500, 1); !e.IsZero() {
		t.Fatalf("effects before onset: %+v", e)
	}
	if got := f.RUL(100); got != 500 {
		t.Fatalf("RUL at onset = %v, want 500", got)
	}
	if got := f.RUL(1000); got != 0 {
		t.Fatalf("RUL past end = %v, want 0", got)
	}

	tests := []struct {
		t     float64
		stage core.Stage
		path  string
	}{
		{200, core.StageHealthy, PathNormal},
		{430, core.Stage2, PathNormal},
		{500, core.Stage3, PathImminent},
		{550, core.Stage3, PathCritical},
		{590, core.Stage4, PathCritical},
	}
	for _, tt := range tests {
		if got := f.Stage(tt.t); got != tt.stage {
			t.Errorf("Stage(%v) = %v, want %v", tt.t, got, tt.stage)
		}
		if got := f.PathALabel(tt.t); got != tt.path {
			t.Errorf("PathALabel(%v) = %v, want %v", tt.t, got, tt.path)
		}
	}

	// past the degradation horizon severity is exactly 1
	e := f.Effects(800, 1500, 1)
	if !approx(e.Thermal[core.T1], 20, 1e-9) {
		t.Fatalf("t1 at full severity = %v, want 20", e.Thermal[core.T1])
	}
}

func TestEffectsArePure(t *testing.T) {
	rng := core.NewNoiseGenerator(11)
	params := config.DefaultSimulation().Faults

	for _, k := range Kinds() {
		f, err := New(k, 0, core.EngineModern, params, rng)
		if err != nil {
			t.Fatalf("New(%v): %v", k, err)
		}
		at := f.TotalLifeHours() * 0.9
		first := f.Effects(at, 1475, 0.7)
		for i := 0; i < 3; i++ {
			if again := f.Effects(at, 1475, 0.7); !reflect.DeepEqual(first, again) {
				t.Fatalf("%v: Effects differ between identical calls", k)
			}
		}
	}
}

func TestFactory(t *testing.T) {
	params := config.DefaultSimulation().Faults

	a := core.NewNoiseGenerator(21)
	b := core.NewNoiseGenerator(21)
	for _, k := range Kinds() {
		fa, err := New(k, 250, core.EngineOlder, params, a)
		if err != nil {
			t.Fatalf("New(%v): %v", k, err)
		}
		fb, _ := New(k, 250, core.EngineOlder, params, b)

		if fa.Kind() != k {
			t.Errorf("kind = %v, want %v", fa.Kind(), k)
		}
		if fa.OnsetHours() != 250 {
			t.Errorf("%v onset = %v, want 250", k, fa.OnsetHours())
		}
		if fa.TotalLifeHours() <= 0 {
			t.Errorf("%v total life = %v, want positive", k, fa.TotalLifeHours())
		}
		if !reflect.DeepEqual(fa.Params(), fb.Params()) || fa.TotalLifeHours() != fb.TotalLifeHours() {
			t.Errorf("%v: same rng seed produced different faults", k)
		}
	}
}

func TestFactoryBearing(t *testing.T) {
	params := config.DefaultSimulation().Faults
	rng := core.NewNoiseGenerator(3)

	for i := 0; i < 20; i++ {
		f, err := New(KindBearing, 0, core.EngineModern, params, rng)
		if err != nil {
			t.Fatal(err)
		}
		if life := f.TotalLifeHours(); life < 2250 || life > 4650 {
			t.Fatalf("bearing life %v outside [2250, 4650]", life)
		}
		p := f.Params().(Bearing)
		if p.Sensor != core.Acc1 && p.Sensor != core.Acc2 {
			t.Fatalf("bearing sensor = %q", p.Sensor)
		}
	}
}

func TestFactoryUnknownKind(t *testing.T) {
	rng := core.NewNoiseGenerator(1)
	_, err := New(Kind(42), 0, core.EngineModern, config.DefaultSimulation().Faults, rng)
	if !errors.Is(err, ErrUnknownFaultKind) {
		t.Fatalf("error = %v, want ErrUnknownFaultKind", err)
	}
}
