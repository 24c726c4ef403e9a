package fleet

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
)

func newTestFleet(t *testing.T, size int, seed int64) *Fleet {
	t.Helper()
	sim := config.DefaultSimulation()
	sim.Fleet.Size = size
	f, err := NewFleet(sim.Fleet, sim.Engines, seed)
	if err != nil {
		t.Fatalf("NewFleet: %v", err)
	}
	return f
}

func TestBearingFrequencies(t *testing.T) {
	g := config.DefaultSimulation().Engines[core.EngineModern].Bearing

	got := Frequencies(g, 1475)
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"BPFO", got.BPFO, 122.9},
		{"BPFI", got.BPFI, 172.1},
		{"BSF", got.BSF, 71.7},
		{"FTF", got.FTF, 10.24},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 0.1 {
			t.Errorf("%s = %v, want ≈%v", tt.name, tt.got, tt.want)
		}
	}

	if zero := Frequencies(g, 0); zero != (BearingFrequencies{}) {
		t.Errorf("frequencies at rpm 0 = %+v, want all zero", zero)
	}
}

func TestBearingFrequenciesDegenerateGeometry(t *testing.T) {
	got := Frequencies(config.BearingGeometry{}, 1500)
	for _, v := range []float64{got.BPFO, got.BPFI, got.BSF, got.FTF} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite frequency for empty geometry: %+v", got)
		}
	}
}

func TestNewFleetSplits(t *testing.T) {
	f := newTestFleet(t, 200, 42)

	if len(f.Trucks) != 200 {
		t.Fatalf("trucks = %d, want 200", len(f.Trucks))
	}
	if f.Metadata.ModernCount != 160 || f.Metadata.OlderCount != 40 {
		t.Fatalf("modern/older = %d/%d, want 160/40", f.Metadata.ModernCount, f.Metadata.OlderCount)
	}

	want := map[Split]Stratum{
		SplitTrain: {Total: 120, Modern: 96, Older: 24},
		SplitVal:   {Total: 50, Modern: 40, Older: 10},
		SplitTest:  {Total: 30, Modern: 24, Older: 6},
	}
	got := f.Stratification()
	for s, w := range want {
		if got[s] != w {
			t.Errorf("%s stratum = %+v, want %+v", s, got[s], w)
		}
	}

	for i, tr := range f.Trucks {
		if tr.ID != i+1 {
			t.Fatalf("truck %d has id %d", i, tr.ID)
		}
		if tr.Seed != 42+int64(tr.ID) {
			t.Fatalf("truck %d seed = %d", tr.ID, tr.Seed)
		}
		wantEngine := core.EngineModern
		if tr.ID > 160 {
			wantEngine = core.EngineOlder
		}
		if tr.EngineType != wantEngine {
			t.Fatalf("truck %d engine = %s, want %s", tr.ID, tr.EngineType, wantEngine)
		}
	}
}

func TestNewFleetSmall(t *testing.T) {
	f := newTestFleet(t, 10, 7)
	got := f.Stratification()
	total := got[SplitTrain].Total + got[SplitVal].Total + got[SplitTest].Total
	if total != 10 {
		t.Fatalf("split totals %+v sum to %d, want 10", got, total)
	}
	if got[SplitTrain].Modern != 4 || got[SplitVal].Modern != 2 || got[SplitTest].Modern != 2 {
		t.Fatalf("modern split counts %+v", got)
	}
}

func TestNewFleetDeterministic(t *testing.T) {
	a := newTestFleet(t, 200, 42)
	b := newTestFleet(t, 200, 42)
	for i := range a.Trucks {
		if a.Trucks[i].Split != b.Trucks[i].Split {
			t.Fatalf("truck %d split differs", a.Trucks[i].ID)
		}
		if a.Trucks[i].Profile.Thermal[core.T3] != b.Trucks[i].Profile.Thermal[core.T3] {
			t.Fatalf("truck %d profile differs", a.Trucks[i].ID)
		}
	}

	c := newTestFleet(t, 200, 43)
	same := 0
	for i := range a.Trucks {
		if a.Trucks[i].Split == c.Trucks[i].Split {
			same++
		}
	}
	if same == len(a.Trucks) {
		t.Fatal("different seeds produced identical splits")
	}
}

func TestNewFleetRejectsEmpty(t *testing.T) {
	sim := config.DefaultSimulation()
	sim.Fleet.Size = 0
	if _, err := NewFleet(sim.Fleet, sim.Engines, 1); err == nil {
		t.Fatal("expected error for empty fleet")
	}
}

func TestEngineProfile(t *testing.T) {
	sim := config.DefaultSimulation()
	for _, engine := range []core.EngineType{core.EngineModern, core.EngineOlder} {
		params := sim.Engines[engine]
		p := NewEngineProfile(engine, params, core.NewNoiseGenerator(5))

		if len(p.Thermal) != len(core.TempSensors) {
			t.Fatalf("%s: %d thermal baselines", engine, len(p.Thermal))
		}
		for _, s := range core.TempSensors {
			b := p.Thermal[s]
			r := params.Thermal[s]
			if !r.Idle.Contains(b.IdleTemp) || !r.DeltaLoad.Contains(b.DeltaLoad) || !r.Tau.Contains(b.Tau) {
				t.Errorf("%s %s baseline %+v outside ranges", engine, s, b)
			}
			if math.Abs(b.CruiseTemp-(b.IdleTemp+b.DeltaLoad)) > 1e-9 {
				t.Errorf("%s %s cruise %v != idle+delta", engine, s, b.CruiseTemp)
			}
		}
		if p.MainBearings != 7 {
			t.Errorf("%s main bearings = %d", engine, p.MainBearings)
		}
	}
}

func TestWriteMetadata(t *testing.T) {
	f := newTestFleet(t, 200, 42)
	dir := t.TempDir()
	if err := f.WriteMetadata(dir); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}

	wantLines := map[Split]int{SplitTrain: 120, SplitVal: 50, SplitTest: 30}
	for s, n := range wantLines {
		data, err := os.ReadFile(filepath.Join(dir, MetadataDir, string(s)+"_trucks.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if got := len(strings.Split(strings.TrimSpace(string(data)), "\n")); got != n {
			t.Errorf("%s ids = %d, want %d", s, got, n)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, MetadataDir, "fleet_stratification.json")); err != nil {
		t.Fatalf("stratification file: %v", err)
	}
}

func TestAssignFaults(t *testing.T) {
	sim := config.DefaultSimulation()
	f := newTestFleet(t, 200, 42)

	schedule, err := AssignFaults(f.Trucks, 42, sim)
	if err != nil {
		t.Fatalf("AssignFaults: %v", err)
	}

	byCount := make(map[int]int)
	byKind := make(map[faults.Kind]int)
	maxOnset := sim.Fleet.TotalHours() * sim.Fleet.MaxOnsetFraction
	for _, tr := range f.Trucks {
		fs := schedule[tr.ID]
		byCount[len(fs)]++
		seen := make(map[faults.Kind]bool)
		for _, fl := range fs {
			if seen[fl.Kind()] {
				t.Fatalf("truck %d has %s twice", tr.ID, fl.ID())
			}
			seen[fl.Kind()] = true
			byKind[fl.Kind()]++
			if fl.OnsetHours() < 0 || fl.OnsetHours() >= maxOnset {
				t.Fatalf("onset %v outside [0, %v)", fl.OnsetHours(), maxOnset)
			}
		}
	}

	want := map[int]int{0: 60, 1: 80, 2: 40, 3: 20}
	for c, n := range want {
		if byCount[c] != n {
			t.Errorf("trucks with %d faults = %d, want %d", c, byCount[c], n)
		}
	}
	if schedule.Healthy() != 60 {
		t.Errorf("Healthy() = %d, want 60", schedule.Healthy())
	}
	for _, k := range faults.Kinds() {
		if byKind[k] < 20 {
			t.Errorf("%s assigned %d times, want balanced share", k, byKind[k])
		}
	}
}

func TestAssignFaultsDeterministic(t *testing.T) {
	sim := config.DefaultSimulation()
	f := newTestFleet(t, 50, 9)

	a, err := AssignFaults(f.Trucks, 9, sim)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := AssignFaults(f.Trucks, 9, sim)
	for id, fs := range a {
		if len(fs) != len(b[id]) {
			t.Fatalf("truck %d fault count differs", id)
		}
		for i := range fs {
			if fs[i].Kind() != b[id][i].Kind() || fs[i].OnsetHours() != b[id][i].OnsetHours() {
				t.Fatalf("truck %d fault %d differs", id, i)
			}
		}
	}
}

func TestValidationSchedule(t *testing.T) {
	f := newTestFleet(t, 20, 42)
	schedule := ValidationSchedule(f.Trucks, config.DefaultSimulation().Faults)

	if len(schedule) != ValidationTrucks {
		t.Fatalf("schedule covers %d trucks, want %d", len(schedule), ValidationTrucks)
	}

	want := [][]faults.Kind{
		nil, nil,
		{faults.KindBearing}, {faults.KindBearing},
		{faults.KindTurbo}, {faults.KindTurbo},
		{faults.KindInjector}, {faults.KindInjector},
		{faults.KindBearing, faults.KindTurbo}, {faults.KindBearing, faults.KindTurbo},
	}
	for i, kinds := range want {
		fs := schedule[f.Trucks[i].ID]
		if len(fs) != len(kinds) {
			t.Fatalf("truck %d has %d faults, want %d", i, len(fs), len(kinds))
		}
		for j, k := range kinds {
			if fs[j].Kind() != k {
				t.Errorf("truck %d fault %d = %s, want %s", i, j, fs[j].Kind(), k)
			}
		}
	}

	// bearing checkpoint trucks start day 0 in stage3
	if got := schedule[f.Trucks[2].ID][0].Stage(0); got != core.Stage3 {
		t.Fatalf("bearing checkpoint stage at t=0 = %v, want stage3", got)
	}
}
