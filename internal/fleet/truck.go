package fleet

import (
	"fmt"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// Split is the dataset partition a truck belongs to
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// Splits lists the partitions in file order
func Splits() []Split {
	return []Split{SplitTrain, SplitVal, SplitTest}
}

// Truck is one fleet member
type Truck struct {
	ID         int             `json:"truck_id"`
	EngineType core.EngineType `json:"engine_type"`
	Profile    EngineProfile   `json:"profile"`
	Seed       int64           `json:"seed"`
	Split      Split           `json:"split"`
}

// DaySeed is the seed of one truck-day's noise generator
func (t Truck) DaySeed(dayIndex int) int64 {
	return t.Seed*1000 + int64(dayIndex)
}

func (t Truck) String() string {
	return fmt.Sprintf("truck_%03d", t.ID)
}
