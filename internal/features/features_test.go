package features

import (
	"math"
	"testing"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/fleet"
)

func modernBaselines(seed int64) map[string]fleet.ThermalBaseline {
	sim := config.DefaultSimulation()
	return fleet.NewEngineProfile(core.EngineModern, sim.Engines[core.EngineModern], core.NewNoiseGenerator(seed)).Thermal
}

func flatBaselines(idle, tau float64) map[string]fleet.ThermalBaseline {
	out := make(map[string]fleet.ThermalBaseline)
	for _, s := range core.TempSensors {
		out[s] = fleet.ThermalBaseline{IdleTemp: idle, CruiseTemp: idle, Tau: tau}
	}
	return out
}

func TestColumnCounts(t *testing.T) {
	if got := len(Columns()); got != 221 {
		t.Fatalf("Columns() = %d, want 221", got)
	}
	all := AllColumns()
	if len(all) != 229 {
		t.Fatalf("AllColumns() = %d, want 229", len(all))
	}
	if all[0] != "timestamp" || all[4] != "rpm_est" || all[228] != "path_a_label" {
		t.Fatalf("unexpected column layout: %s, %s, %s", all[0], all[4], all[228])
	}

	seen := make(map[string]bool)
	for _, c := range all {
		if seen[c] {
			t.Fatalf("duplicate column %s", c)
		}
		seen[c] = true
	}
}

func TestColumnOrder(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"rpm_est", 0},
		{"load_proxy", 1},
		{"acc1_rms_x_mean", 2},
		{"acc1_band_low_energy_x_mean", 8},
		{"acc1_sk_max_value", 68},
		{"acc2_rms_x_mean", 70},
		{"acc3_rms_x_mean", 138},
		{"acc3_sk_max_freq", 181},
		{"t1_mean", 182},
		{"t3_t4_delta", 218},
		{"t3_exceedance_duration", 220},
	}
	for _, tt := range tests {
		got, ok := Index(tt.name)
		if !ok || got != tt.want {
			t.Errorf("Index(%q) = %d, %v, want %d", tt.name, got, ok, tt.want)
		}
	}
	if _, ok := Index("nope"); ok {
		t.Error("Index of unknown column succeeded")
	}
}

func TestMergeVibration(t *testing.T) {
	a := faults.Effect{Vibration: map[string]faults.VibrationEffect{
		"acc1_kurtosis":            {Mode: faults.Set, Value: 8},
		"acc1_mid_high_energy":     {Mode: faults.Multiply, Value: 2},
		"acc2_kurtosis":            {Mode: faults.Add, Value: 1},
		"acc1_mid_high_peak_shift": {Mode: faults.Set, Value: 1},
	}}
	b := faults.Effect{Vibration: map[string]faults.VibrationEffect{
		"acc1_kurtosis":            {Mode: faults.Set, Value: 6},
		"acc1_mid_high_energy":     {Mode: faults.Multiply, Value: 3},
		"acc2_kurtosis":            {Mode: faults.Add, Value: 2},
		"acc1_mid_high_peak_shift": {Mode: faults.Set, Value: 0.5},
	}}

	for _, order := range [][]faults.Effect{{a, b}, {b, a}} {
		m := MergeVibration(order)
		if got := m["acc1_kurtosis"].Value; got < 8 {
			t.Errorf("max-wins kurtosis = %v, want >= 8", got)
		}
		if got := m["acc1_mid_high_energy"].Value; got != 6 {
			t.Errorf("multiplied energy = %v, want 6", got)
		}
		if got := m["acc2_kurtosis"].Value; got != 3 {
			t.Errorf("added kurtosis = %v, want 3", got)
		}
	}

	if got := MergeVibration([]faults.Effect{a, b})["acc1_mid_high_peak_shift"].Value; got != 0.5 {
		t.Errorf("last-wins set = %v, want 0.5", got)
	}
	if m := MergeVibration(nil); len(m) != 0 {
		t.Errorf("merge of nothing = %v", m)
	}
}

func TestMergeVibrationMixedModes(t *testing.T) {
	vib := func(key string, mode faults.Mode, v float64) faults.Effect {
		return faults.Effect{Vibration: map[string]faults.VibrationEffect{key: {Mode: mode, Value: v}}}
	}

	tests := []struct {
		name      string
		key       string
		first     faults.Effect
		second    faults.Effect
		wantMode  faults.Mode
		wantValue float64
		base      float64
		applied   float64
	}{
		{"set then multiply", "acc1_rms", vib("acc1_rms", faults.Set, 0.5), vib("acc1_rms", faults.Multiply, 4), faults.Multiply, 2, 0.25, 0.5},
		{"multiply then set", "acc1_rms", vib("acc1_rms", faults.Multiply, 4), vib("acc1_rms", faults.Set, 0.5), faults.Set, 0.5, 0.25, 0.5},
		{"set then add on shape key", "acc1_kurtosis", vib("acc1_kurtosis", faults.Set, 8), vib("acc1_kurtosis", faults.Add, 1), faults.Add, 9, 3, 12},
		{"add then set on shape key keeps max", "acc1_kurtosis", vib("acc1_kurtosis", faults.Add, 10), vib("acc1_kurtosis", faults.Set, 8), faults.Set, 10, 3, 10},
		{"multiply then add", "acc2_rms", vib("acc2_rms", faults.Multiply, 2), vib("acc2_rms", faults.Add, 1), faults.Add, 3, 1, 4},
		{"set then set on plain key is last wins", "acc1_rms", vib("acc1_rms", faults.Set, 0.9), vib("acc1_rms", faults.Set, 0.5), faults.Set, 0.5, 0.25, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MergeVibration([]faults.Effect{tt.first, tt.second})
			got := m[tt.key]
			if got.Mode != tt.wantMode || got.Value != tt.wantValue {
				t.Fatalf("merged = %v %v, want %v %v", got.Mode, got.Value, tt.wantMode, tt.wantValue)
			}
			if v := m.Apply(tt.key, tt.base); v != tt.applied {
				t.Errorf("Apply(%v) = %v, want %v", tt.base, v, tt.applied)
			}
		})
	}
}

func TestMergeThermalCaps(t *testing.T) {
	p := config.DefaultSimulation().Thermal
	e := faults.Effect{Thermal: map[string]float64{core.T3: 100, core.T1: 30, faults.TurboFactorKey: 0.2}}
	e2 := faults.Effect{Thermal: map[string]float64{core.T3: 100, core.T1: 30, faults.TurboFactorKey: 0.35}}

	m := MergeThermal([]faults.Effect{e, e, e2}, p)
	if m.Offsets[core.T3] != 250 {
		t.Errorf("t3 offset = %v, want capped 250", m.Offsets[core.T3])
	}
	if m.Offsets[core.T1] != 50 {
		t.Errorf("t1 offset = %v, want capped 50", m.Offsets[core.T1])
	}
	if m.TurboFactor != 0.35 {
		t.Errorf("turbo factor = %v, want 0.35", m.TurboFactor)
	}
	if _, ok := m.Offsets[faults.TurboFactorKey]; ok {
		t.Error("turbo factor leaked into offsets")
	}
}

func newThermal(t *testing.T, noise float64) *ThermalSynth {
	t.Helper()
	sim := config.DefaultSimulation()
	sim.Thermal.NoiseStd = noise
	ts, err := NewThermalSynth(sim.Thermal, sim.Ambient.RefTemp)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func TestThermalBoundsUnderStackedOffsets(t *testing.T) {
	sim := config.DefaultSimulation()
	ts := newThermal(t, sim.Thermal.NoiseStd)

	huge := faults.Effect{Thermal: map[string]float64{}}
	for _, s := range core.TempSensors {
		huge.Thermal[s] = 1e6
	}
	fx := MergeThermal([]faults.Effect{huge, huge, huge}, sim.Thermal)

	rng := core.NewNoiseGenerator(3)
	prev := core.ThermalState{}
	baselines := modernBaselines(1)
	for w := 0; w < 200; w++ {
		var v Vector
		prev, _ = ts.Synthesize(&v, 1.2, 45, baselines, fx, prev, rng)
		for _, s := range core.TempSensors {
			r := sim.Thermal.SensorRange[s]
			if !r.Contains(v.Get(s+"_max")) || !r.Contains(v.Get(s+"_min")) {
				t.Fatalf("window %d %s outside %v: min %v max %v", w, s, r, v.Get(s+"_min"), v.Get(s+"_max"))
			}
			if !r.Contains(prev[s]) {
				t.Fatalf("final %s = %v outside %v", s, prev[s], r)
			}
		}
		if !v.Finite() {
			t.Fatalf("window %d has non-finite features", w)
		}
	}
}

func TestThermalZeroTauJumpsToTarget(t *testing.T) {
	ts := newThermal(t, 0)
	var v Vector
	final, t3 := ts.Synthesize(&v, 0, 25, flatBaselines(80, 0), ThermalEffects{}, core.ThermalState{core.T1: 10}, core.NewNoiseGenerator(1))

	if t3 != 80 || final[core.T1] != 80 {
		t.Fatalf("t3 mean %v, final t1 %v, want 80", t3, final[core.T1])
	}
	if v.Get("t1_std") != 0 || v.Get("t1_slope") != 0 || v.Get("t1_range") != 0 {
		t.Fatalf("flat trace has std %v slope %v range %v", v.Get("t1_std"), v.Get("t1_slope"), v.Get("t1_range"))
	}
}

func TestThermalExceedance(t *testing.T) {
	ts := newThermal(t, 0)
	var v Vector
	ts.Synthesize(&v, 0, 25, flatBaselines(700, 0), ThermalEffects{}, nil, core.NewNoiseGenerator(1))
	if got := v.Get("t3_exceedance_duration"); got != 60 {
		t.Fatalf("exceedance = %v, want 60", got)
	}

	ts.Synthesize(&v, 0, 25, flatBaselines(600, 0), ThermalEffects{}, nil, core.NewNoiseGenerator(1))
	if got := v.Get("t3_exceedance_duration"); got != 0 {
		t.Fatalf("exceedance = %v, want 0", got)
	}
}

func TestThermalSlope(t *testing.T) {
	ts := newThermal(t, 0)
	var v Vector
	// warming from 20 towards 100 with a long time constant rises every second
	ts.Synthesize(&v, 0, 25, flatBaselines(100, 100), ThermalEffects{}, core.ThermalState{
		core.T1: 20, core.T2: 20, core.T3: 20, core.T4: 20, core.T5: 20, core.T6: 20,
	}, core.NewNoiseGenerator(1))
	if s := v.Get("t1_slope"); s <= 0 {
		t.Fatalf("warming slope = %v, want positive", s)
	}
}

func TestTurboShrinksDelta(t *testing.T) {
	ts := newThermal(t, 1)
	baselines := modernBaselines(4)
	prev := config.DefaultSimulation().Engines[core.EngineModern].DefaultIdleTemps()

	var base, turbo Vector
	ts.Synthesize(&base, 0.75, 20, baselines, ThermalEffects{}, prev, core.NewNoiseGenerator(8))
	ts.Synthesize(&turbo, 0.75, 20, baselines, ThermalEffects{TurboFactor: 0.3}, prev, core.NewNoiseGenerator(8))

	d0, d1 := base.Get("t3_t4_delta"), turbo.Get("t3_t4_delta")
	if d0 <= 0 {
		t.Fatalf("healthy delta = %v, want positive", d0)
	}
	if math.Abs(d1-0.7*d0) > 1e-6 {
		t.Fatalf("turbo delta = %v, want %v", d1, 0.7*d0)
	}
}

func TestLoadProxy(t *testing.T) {
	p := config.DefaultSimulation().Thermal
	tests := []struct {
		t3     float64
		engine core.EngineType
		want   float64
	}{
		{175, core.EngineModern, 0},
		{400, core.EngineModern, 1},
		{185, core.EngineOlder, 0},
		{292.5, core.EngineOlder, 0.5},
	}
	for _, tt := range tests {
		if got := LoadProxy(tt.t3, 0.3, tt.engine, p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LoadProxy(%v, %s) = %v, want %v", tt.t3, tt.engine, got, tt.want)
		}
	}

	p.LoadProxyT3Full[core.EngineModern] = p.LoadProxyT3Idle[core.EngineModern]
	if got := LoadProxy(300, 0.42, core.EngineModern, p); got != 0.42 {
		t.Errorf("LoadProxy with empty span = %v, want fallback 0.42", got)
	}
}

func TestVibrationHealthyAndBearing(t *testing.T) {
	sim := config.DefaultSimulation()
	vs, err := NewVibrationSynth(sim.Vibration)
	if err != nil {
		t.Fatal(err)
	}

	var healthy Vector
	vs.Synthesize(&healthy, 0.7, nil, core.NewNoiseGenerator(2))
	if !healthy.Finite() {
		t.Fatal("healthy vibration has non-finite values")
	}
	if rms := healthy.Get("acc1_rms_x_mean"); rms < 0.02 || rms > 0.3 {
		t.Fatalf("healthy acc1 rms = %v", rms)
	}
	if k := healthy.Get("acc1_kurtosis_x_mean"); k < 2 || k > 4.5 {
		t.Fatalf("healthy kurtosis = %v", k)
	}
	if f := healthy.Get("acc1_sk_max_freq"); f < 500 || f > 5000 {
		t.Fatalf("healthy sk freq = %v", f)
	}

	bearing := faults.Effect{Vibration: map[string]faults.VibrationEffect{
		"acc1_rms":                 {Mode: faults.Set, Value: 0.9},
		"acc1_kurtosis":            {Mode: faults.Set, Value: 8},
		"acc1_sk_max":              {Mode: faults.Set, Value: 15},
		"acc1_crest_factor":        {Mode: faults.Set, Value: 3},
		"acc1_mid_high_energy":     {Mode: faults.Multiply, Value: 6},
		"acc1_mid_high_peak_shift": {Mode: faults.Set, Value: 1},
	}}
	var faulty Vector
	vs.Synthesize(&faulty, 0.7, MergeVibration([]faults.Effect{bearing}), core.NewNoiseGenerator(2))

	if k := faulty.Get("acc1_kurtosis_x_mean"); k < 6 {
		t.Errorf("bearing kurtosis = %v, want >= 6", k)
	}
	if k := faulty.Get("acc1_kurtosis_x_max"); k < faulty.Get("acc1_kurtosis_x_mean")*0.9 {
		t.Errorf("max kurtosis %v below mean", k)
	}
	if rms := faulty.Get("acc1_rms_x_mean"); rms < 0.6 {
		t.Errorf("bearing rms = %v, want near 0.9", rms)
	}
	for _, ax := range core.Axes {
		if f := faulty.Get("acc1_band_mid_high_peak_freq_" + ax + "_mean"); f != 5200 {
			t.Errorf("shifted peak freq %s = %v, want 5200", ax, f)
		}
	}
	if f := faulty.Get("acc1_sk_max_freq"); f < 2000 || f > 10000 {
		t.Errorf("bearing sk freq = %v", f)
	}
	if sk := faulty.Get("acc1_sk_max_value"); sk < 10 {
		t.Errorf("bearing sk = %v", sk)
	}
}

func TestVibrationRejectsBandDrift(t *testing.T) {
	p := config.DefaultSimulation().Vibration
	p.BandsAcc3 = p.BandsAcc3[:1]
	if _, err := NewVibrationSynth(p); err == nil {
		t.Fatal("expected band layout error")
	}
}

func TestSynthesizerWindow(t *testing.T) {
	sim := config.DefaultSimulation()
	s, err := NewSynthesizer(sim)
	if err != nil {
		t.Fatal(err)
	}

	in := WindowInput{
		RPM:       1475,
		Load:      0.75,
		Ambient:   18,
		Engine:    core.EngineModern,
		Baselines: modernBaselines(9),
		Prev:      sim.Engines[core.EngineModern].DefaultIdleTemps(),
	}
	v1, temps := s.Window(in, core.NewNoiseGenerator(77))
	v2, _ := s.Window(in, core.NewNoiseGenerator(77))

	if v1 != v2 {
		t.Fatal("identical inputs and seeds produced different vectors")
	}
	if !v1.Finite() {
		t.Fatal("non-finite features")
	}
	if len(temps) != 6 {
		t.Fatalf("final temps has %d sensors, want 6", len(temps))
	}
	if rpm := v1.Get("rpm_est"); math.Abs(rpm-1475) > 1475*0.2 {
		t.Fatalf("rpm_est = %v", rpm)
	}
	if d := v1.Get("t3_t4_delta"); math.Abs(d-(v1.Get("t3_mean")-v1.Get("t4_mean"))) > 1e-9 {
		t.Fatalf("t3_t4_delta inconsistent with means: %v", d)
	}
	if len(v1.Map()) != NumFeatures {
		t.Fatalf("Map() has %d entries", len(v1.Map()))
	}
}
