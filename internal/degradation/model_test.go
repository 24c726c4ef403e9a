package degradation

import (
	"math"
	"testing"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

func TestSeverityEndpoints(t *testing.T) {
	m := New(0.01, 0.0002, 0.15, 500, 7)

	for _, tt := range []float64{-100, -1, 0} {
		if got := m.SeverityAt(tt); got != 0 {
			t.Fatalf("SeverityAt(%v) = %v, want 0", tt, got)
		}
	}
	for _, tt := range []float64{500, 500.5, 10000} {
		if got := m.SeverityAt(tt); got != 1 {
			t.Fatalf("SeverityAt(%v) = %v, want 1", tt, got)
		}
	}
}

func TestSeverityBounded(t *testing.T) {
	for _, sigma := range []float64{0, 0.1, 0.5, 2, 10} {
		m := New(0.01, 0.0002, sigma, 300, 11)
		for tt := 0.0; tt <= 320; tt += 0.37 {
			s := m.SeverityAt(tt)
			if s < 0 || s > 1 || math.IsNaN(s) {
				t.Fatalf("sigma=%v SeverityAt(%v) = %v out of [0,1]", sigma, tt, s)
			}
		}
	}
}

func TestSeverityTrendsUpward(t *testing.T) {
	m := New(0.01, 0.0002, 0.1, 1000, 3)
	early := m.SeverityAt(100)
	late := m.SeverityAt(900)
	if late <= early {
		t.Fatalf("expected late severity %v > early %v", late, early)
	}
}

func TestDeterminism(t *testing.T) {
	a := New(0.01, 0.0003, 0.12, 800, 99)
	b := New(0.01, 0.0003, 0.12, 800, 99)
	for tt := -1.0; tt < 810; tt += 1.3 {
		if a.SeverityAt(tt) != b.SeverityAt(tt) {
			t.Fatalf("SeverityAt(%v) differs between identical models", tt)
		}
	}

	c := New(0.01, 0.0003, 0.12, 800, 100)
	same := true
	for tt := 1.0; tt < 800; tt += 10 {
		if a.SeverityAt(tt) != c.SeverityAt(tt) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical curves")
	}
}

func TestZeroHorizon(t *testing.T) {
	m := New(0.01, 0.0002, 0.1, 0, 1)
	if got := m.SeverityAt(0.5); got != 1 {
		t.Fatalf("SeverityAt with zero horizon = %v, want 1", got)
	}
}

func TestStageAt(t *testing.T) {
	tests := []struct {
		name      string
		t         float64
		totalLife float64
		want      core.Stage
	}{
		{"before onset", -5, 100, core.StageHealthy},
		{"at onset", 0, 100, core.StageHealthy},
		{"early", 59.999, 100, core.StageHealthy},
		{"stage2 boundary", 60, 100, core.Stage2},
		{"stage2 upper", 74.999, 100, core.Stage2},
		{"stage3 boundary", 75, 100, core.Stage3},
		{"stage3 upper", 94.999, 100, core.Stage3},
		{"stage4 boundary", 95, 100, core.Stage4},
		{"end of life", 100, 100, core.Stage4},
		{"past end", 250, 100, core.Stage4},
		{"zero life", 1, 0, core.Stage4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StageAt(tt.t, tt.totalLife); got != tt.want {
				t.Errorf("StageAt(%v, %v) = %v, want %v", tt.t, tt.totalLife, got, tt.want)
			}
		})
	}
}
