package validation

import (
	"fmt"
	"sort"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/storage"
)

// rulTrace keeps the first and last RUL values of a faulty truck
type rulTrace struct {
	first []float64
	last  []float64
}

func (t *rulTrace) add(rul float64) {
	if len(t.first) < rulEdgeWindows {
		t.first = append(t.first, rul)
	}
	t.last = append(t.last, rul)
	if len(t.last) > rulEdgeWindows {
		t.last = t.last[1:]
	}
}

// Validator accumulates statistics over rows added in time order per truck.
// It never holds more than a few values per check.
type Validator struct {
	expect    map[string][]Expectation
	tolerance float64

	ranges     map[string]map[string]*stat
	stageRMS   map[string]*stat
	rul        map[int]*rulTrace
	rulOrder   []int
	cruiseT3T4 map[string]*stat
	highBand   map[string]*stat
	rpm        stat
}

// New creates a validator for the given expectations
func New(expect map[string][]Expectation, tolerance float64) *Validator {
	v := &Validator{
		expect:     expect,
		tolerance:  tolerance,
		ranges:     make(map[string]map[string]*stat),
		stageRMS:   make(map[string]*stat),
		rul:        make(map[int]*rulTrace),
		cruiseT3T4: make(map[string]*stat),
		highBand:   make(map[string]*stat),
	}
	for cond, exps := range expect {
		v.ranges[cond] = make(map[string]*stat, len(exps))
		for _, e := range exps {
			v.ranges[cond][e.Feature] = &stat{}
		}
	}
	return v
}

// condition classifies a row for the range checks, "" if none applies
func condition(r storage.Row) string {
	switch {
	case r.Label.IsHealthy():
		return CondHealthy
	case r.Label.FaultMode == "FM-01" && r.Label.FaultSeverity == core.Stage3.SeverityLabel():
		return CondFM01Stage3
	case r.Label.FaultMode == "FM-06" && (r.Label.FaultSeverity == core.Stage3.SeverityLabel() ||
		r.Label.FaultSeverity == core.Stage4.SeverityLabel()):
		return CondFM06Degrade
	default:
		return ""
	}
}

func statFor(m map[string]*stat, key string) *stat {
	s, ok := m[key]
	if !ok {
		s = &stat{}
		m[key] = s
	}
	return s
}

// Add accumulates rows
func (v *Validator) Add(rows []storage.Row) {
	for i := range rows {
		r := &rows[i]
		cruise := r.Features.Get("load_proxy") > cruiseLoad

		if cond := condition(*r); cond != "" {
			for _, e := range v.expect[cond] {
				if e.Cruise && !cruise {
					continue
				}
				v.ranges[cond][e.Feature].add(r.Features.Get(e.Feature))
			}
		}

		statFor(v.stageRMS, r.Label.FaultSeverity).add(r.Features.Get("acc1_rms_x_mean"))
		v.rpm.add(r.Features.Get("rpm_est"))
		statFor(v.highBand, r.Label.FaultMode).add(r.Features.Get("acc1_band_high_energy_x_mean"))
		if cruise {
			statFor(v.cruiseT3T4, r.Label.FaultMode).add(r.Features.Get("t3_t4_delta"))
		}

		if !r.Label.IsHealthy() {
			t, ok := v.rul[r.TruckID]
			if !ok {
				if len(v.rulOrder) >= rulTrucks {
					continue
				}
				t = &rulTrace{}
				v.rul[r.TruckID] = t
				v.rulOrder = append(v.rulOrder, r.TruckID)
			}
			t.add(r.Label.RULHours)
		}
	}
}

// Report evaluates all checks on the rows added so far
func (v *Validator) Report() *Report {
	report := &Report{}
	report.Results = append(report.Results, v.rangeResults()...)
	report.Results = append(report.Results, v.progressionResults()...)
	report.Results = append(report.Results, v.crossResults()...)
	return report
}

func (v *Validator) rangeResults() []Result {
	conds := make([]string, 0, len(v.expect))
	for c := range v.expect {
		conds = append(conds, c)
	}
	sort.Strings(conds)

	var out []Result
	for _, cond := range conds {
		for _, e := range v.expect[cond] {
			s := v.ranges[cond][e.Feature]
			if s.n == 0 {
				continue
			}
			lo := e.Range.Lo * (1 - v.tolerance)
			hi := e.Range.Hi * (1 + v.tolerance)
			m := s.mean()
			res := Result{
				Check:     CheckRange,
				Condition: cond,
				Feature:   e.Feature,
				Expected:  e.Range,
				Min:       s.min,
				Max:       s.max,
				Mean:      m,
				Passed:    m >= lo && m <= hi,
			}
			if !res.Passed {
				res.Message = fmt.Sprintf("mean outside [%.4f, %.4f]", lo, hi)
			}
			out = append(out, res)
		}
	}
	return out
}

func (v *Validator) progressionResults() []Result {
	var out []Result

	prev := 0.0
	for _, st := range []core.Stage{core.StageHealthy, core.Stage2, core.Stage3, core.Stage4} {
		s, ok := v.stageRMS[st.SeverityLabel()]
		if !ok || s.n == 0 {
			continue
		}
		m := s.mean()
		res := Result{
			Check:     CheckProgression,
			Condition: st.SeverityLabel(),
			Feature:   "acc1_rms_x_mean",
			Min:       s.min,
			Max:       s.max,
			Mean:      m,
			Passed:    m >= prev*(1-v.tolerance),
		}
		if !res.Passed {
			res.Message = fmt.Sprintf("below previous stage mean %.4f", prev)
		}
		out = append(out, res)
		prev = m
	}

	for _, id := range v.rulOrder {
		t := v.rul[id]
		if len(t.last) < rulEdgeWindows {
			continue
		}
		start, end := mean(t.first), mean(t.last)
		res := Result{
			Check:     CheckProgression,
			Condition: fmt.Sprintf("truck_%03d", id),
			Feature:   "rul_hours",
			Min:       end,
			Max:       start,
			Mean:      (start + end) / 2,
			Passed:    end <= start,
		}
		if !res.Passed {
			res.Message = fmt.Sprintf("RUL rose from %.1fh to %.1fh", start, end)
		}
		out = append(out, res)
	}
	return out
}

func (v *Validator) crossResults() []Result {
	var out []Result

	healthy, hok := v.cruiseT3T4["HEALTHY"]
	turbo, tok := v.cruiseT3T4["FM-05"]
	if hok && tok {
		hd, td := healthy.mean(), turbo.mean()
		res := Result{
			Check:     CheckCross,
			Condition: "cruise",
			Feature:   "t3_t4_delta",
			Min:       min(hd, td),
			Max:       max(hd, td),
			Mean:      td,
			Passed:    hd > 0 && td > 0,
		}
		switch {
		case !res.Passed:
			res.Message = fmt.Sprintf("non-positive delta: healthy=%.1f FM-05=%.1f", hd, td)
		case td >= hd:
			res.Message = fmt.Sprintf("FM-05 delta %.1f not below healthy %.1f", td, hd)
		}
		out = append(out, res)
	}

	hb, hok := v.highBand["HEALTHY"]
	inj, iok := v.highBand["FM-06"]
	if hok && iok {
		res := Result{
			Check:     CheckCross,
			Condition: "FM-06",
			Feature:   "acc1_band_high_energy_x_mean",
			Min:       hb.mean(),
			Max:       inj.mean(),
			Mean:      inj.mean(),
			Passed:    inj.mean() > hb.mean(),
		}
		if !res.Passed {
			res.Message = fmt.Sprintf("FM-06 %.6f not above healthy %.6f", inj.mean(), hb.mean())
		}
		out = append(out, res)
	}

	if v.rpm.n > 0 {
		res := Result{
			Check:     CheckCross,
			Condition: "all",
			Feature:   "rpm_est",
			Expected:  core.R(0, maxRPM),
			Min:       v.rpm.min,
			Max:       v.rpm.max,
			Mean:      v.rpm.mean(),
			Passed:    v.rpm.min >= 0 && v.rpm.max <= maxRPM,
		}
		if !res.Passed {
			res.Message = "rpm estimate outside [0, 3000]"
		}
		out = append(out, res)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
