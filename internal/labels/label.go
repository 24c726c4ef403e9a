// Package labels derives per-window ground truth from fault state alone,
// never from generated features.
package labels

import (
	"encoding/json"
	"math"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
)

// Healthy is the fault_mode and fault_severity of a window without an
// active fault
const Healthy = "HEALTHY"

// StoredInfiniteRUL is how an infinite RUL is written to storage and JSON
const StoredInfiniteRUL = -1.0

// Label is the ground truth of one window
type Label struct {
	FaultMode     string  `json:"fault_mode"`
	FaultSeverity string  `json:"fault_severity"`
	RULHours      float64 `json:"rul_hours"`
	PathALabel    string  `json:"path_a_label"`
}

// HealthyLabel is the label of a truck without faults
func HealthyLabel() Label {
	return Label{
		FaultMode:     Healthy,
		FaultSeverity: Healthy,
		RULHours:      math.Inf(1),
		PathALabel:    faults.PathNormal,
	}
}

// IsHealthy reports whether no fault has reached stage2
func (l Label) IsHealthy() bool {
	return l.FaultMode == Healthy
}

// StoredRUL returns the RUL with +Inf mapped to StoredInfiniteRUL
func (l Label) StoredRUL() float64 {
	if math.IsInf(l.RULHours, 1) {
		return StoredInfiniteRUL
	}
	return l.RULHours
}

// MarshalJSON encodes an infinite RUL as StoredInfiniteRUL
func (l Label) MarshalJSON() ([]byte, error) {
	type plain Label
	p := plain(l)
	p.RULHours = l.StoredRUL()
	return json.Marshal(p)
}

// FromStored rebuilds a label read back from storage
func FromStored(mode, severity string, rul float64, path string) Label {
	if rul < 0 {
		rul = math.Inf(1)
	}
	return Label{FaultMode: mode, FaultSeverity: severity, RULHours: rul, PathALabel: path}
}

// Compute labels time t from the worst fault: the most advanced stage,
// ties broken by the lowest RUL. When even the worst fault is still healthy
// the window is HEALTHY but carries that fault's RUL.
func Compute(t float64, active []*faults.Fault) Label {
	if len(active) == 0 {
		return HealthyLabel()
	}

	var (
		worst     *faults.Fault
		worstRank = -1
		worstRUL  = math.Inf(1)
	)
	for _, f := range active {
		rank := f.Stage(t).Rank()
		rul := f.RUL(t)
		if rank > worstRank || (rank == worstRank && rul < worstRUL) {
			worst, worstRank, worstRUL = f, rank, rul
		}
	}

	if worst == nil || worstRank == core.StageHealthy.Rank() {
		l := HealthyLabel()
		if worst != nil {
			l.RULHours = worstRUL
		}
		return l
	}

	return Label{
		FaultMode:     worst.ID(),
		FaultSeverity: worst.Stage(t).SeverityLabel(),
		RULHours:      worstRUL,
		PathALabel:    worst.PathALabel(t),
	}
}
