// Package validation checks a generated dataset against the expected
// physical behaviour: feature ranges per condition, degradation
// progression and cross-feature consistency.
package validation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

// Check families
const (
	CheckRange       = "range"
	CheckProgression = "progression"
	CheckCross       = "cross_feature"
)

// Conditions the range checks run on
const (
	CondHealthy     = "healthy"
	CondFM01Stage3  = "fm01_stage3"
	CondFM06Degrade = "fm06_degraded"
)

// Default thresholds
const (
	DefaultTolerance = 0.20
	cruiseLoad       = 0.5
	maxRPM           = 3000
	rulTrucks        = 5
	rulEdgeWindows   = 10
)

// Expectation is the expected range of one feature under one condition.
// Cruise restricts the check to windows with load_proxy above 0.5.
type Expectation struct {
	Feature string
	Range   core.Range
	Cruise  bool
}

// DefaultExpectations are the reference feature ranges per condition
func DefaultExpectations() map[string][]Expectation {
	return map[string][]Expectation{
		CondHealthy: {
			{Feature: "acc1_rms_x_mean", Range: core.R(0.05, 0.15)},
			{Feature: "acc1_kurtosis_x_mean", Range: core.R(2.5, 4.0)},
			{Feature: "acc1_sk_max_value", Range: core.R(1.0, 5.0)},
			{Feature: "t3_mean", Range: core.R(315, 482), Cruise: true},
			{Feature: "t3_t4_delta", Range: core.R(200, 280), Cruise: true},
		},
		CondFM01Stage3: {
			{Feature: "acc1_rms_x_mean", Range: core.R(0.30, 1.50)},
			{Feature: "acc1_kurtosis_x_mean", Range: core.R(6.0, 10.0)},
			{Feature: "acc1_sk_max_value", Range: core.R(10.0, 20.0)},
			{Feature: "t3_mean", Range: core.R(315, 482), Cruise: true},
		},
		CondFM06Degrade: {
			{Feature: "acc1_rms_x_mean", Range: core.R(0.10, 0.25)},
			{Feature: "acc1_kurtosis_x_mean", Range: core.R(3.0, 5.0)},
			{Feature: "t3_mean", Range: core.R(400, 530), Cruise: true},
		},
	}
}

// Result is the outcome of one check
type Result struct {
	Check     string     `json:"check"`
	Condition string     `json:"condition"`
	Feature   string     `json:"feature"`
	Expected  core.Range `json:"expected"`
	Min       float64    `json:"min"`
	Max       float64    `json:"max"`
	Mean      float64    `json:"mean"`
	Passed    bool       `json:"passed"`
	Message   string     `json:"message,omitempty"`
}

// Report collects check results
type Report struct {
	Results []Result `json:"results"`
}

// Passed reports whether every check passed
func (r *Report) Passed() bool {
	return r.NFailed() == 0
}

// NPassed counts passed checks
func (r *Report) NPassed() int {
	n := 0
	for _, res := range r.Results {
		if res.Passed {
			n++
		}
	}
	return n
}

// NFailed counts failed checks
func (r *Report) NFailed() int {
	return len(r.Results) - r.NPassed()
}

// Summary renders the report as text, one line per check
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation: %d passed, %d failed\n", r.NPassed(), r.NFailed())
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %s %s/%s: mean=%.4f range=[%.4f, %.4f]",
			status, res.Check, res.Condition, res.Feature, res.Mean, res.Min, res.Max)
		if res.Message != "" {
			b.WriteString(" " + res.Message)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Run validates every stored truck-day, or the first sampleTrucks trucks
// when sampleTrucks is positive
func Run(ctx context.Context, r storage.Reader, sampleTrucks int) (*Report, error) {
	days, err := r.Days(ctx)
	if err != nil {
		return nil, err
	}

	v := New(DefaultExpectations(), DefaultTolerance)
	trucks := make(map[int]bool)
	for _, k := range days {
		if sampleTrucks > 0 && !trucks[k.TruckID] && len(trucks) >= sampleTrucks {
			continue
		}
		trucks[k.TruckID] = true

		rows, err := r.ReadDay(ctx, k.TruckID, k.DayIndex)
		if err != nil {
			return nil, fmt.Errorf("truck %d day %d: %w", k.TruckID, k.DayIndex, err)
		}
		v.Add(rows)
	}

	report := v.Report()
	log.Info().
		Int("trucks", len(trucks)).
		Int("passed", report.NPassed()).
		Int("failed", report.NFailed()).
		Msg("Validation finished")
	return report, nil
}

// stat is a streaming min/max/mean
type stat struct {
	n        int
	sum      float64
	min, max float64
}

func (s *stat) add(x float64) {
	if s.n == 0 || x < s.min {
		s.min = x
	}
	if s.n == 0 || x > s.max {
		s.max = x
	}
	s.n++
	s.sum += x
}

func (s *stat) mean() float64 {
	if s.n == 0 {
		return math.NaN()
	}
	return s.sum / float64(s.n)
}
