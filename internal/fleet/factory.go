package fleet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
)

// MetadataDir is the directory under the output root holding fleet files
const MetadataDir = "metadata"

// Metadata summarizes the fleet composition and splits
type Metadata struct {
	TotalTrucks int   `json:"total_trucks"`
	ModernCount int   `json:"modern_count"`
	OlderCount  int   `json:"older_count"`
	TrainIDs    []int `json:"train_ids"`
	ValIDs      []int `json:"val_ids"`
	TestIDs     []int `json:"test_ids"`
	Seed        int64 `json:"seed"`
}

// IDs returns the truck ids of a split
func (m Metadata) IDs(s Split) []int {
	switch s {
	case SplitTrain:
		return m.TrainIDs
	case SplitVal:
		return m.ValIDs
	default:
		return m.TestIDs
	}
}

// Stratum counts trucks of one split by engine type
type Stratum struct {
	Total  int `json:"total"`
	Modern int `json:"modern"`
	Older  int `json:"older"`
}

// Fleet is the complete set of trucks of one run
type Fleet struct {
	Trucks   []Truck
	Metadata Metadata
}

// NewFleet creates p.Size trucks with ids 1..N, modern engines first.
// Splits are stratified by engine type: modern counts are rounded down
// proportionally and older trucks fill the remaining split totals.
func NewFleet(p config.FleetParams, engines map[core.EngineType]config.EngineParams, seed int64) (*Fleet, error) {
	if p.Size < 1 {
		return nil, fmt.Errorf("fleet size must be positive, got %d", p.Size)
	}
	for _, e := range []core.EngineType{core.EngineModern, core.EngineOlder} {
		if _, ok := engines[e]; !ok {
			return nil, fmt.Errorf("missing engine parameters for %s", e)
		}
	}

	nModern := int(float64(p.Size) * p.ModernFraction)
	nOlder := p.Size - nModern

	rng := core.NewNoiseGenerator(seed)
	modernIDs := idRange(1, nModern)
	olderIDs := idRange(nModern+1, p.Size)
	rng.Shuffle(len(modernIDs), func(i, j int) { modernIDs[i], modernIDs[j] = modernIDs[j], modernIDs[i] })
	rng.Shuffle(len(olderIDs), func(i, j int) { olderIDs[i], olderIDs[j] = olderIDs[j], olderIDs[i] })

	total := p.SplitTrain + p.SplitVal + p.SplitTest
	if total <= 0 {
		return nil, fmt.Errorf("split sizes must sum to a positive total, got %d", total)
	}
	mTrain := nModern * p.SplitTrain / total
	mVal := nModern * p.SplitVal / total
	oTrain := min(max(0, p.SplitTrain-mTrain), nOlder)
	oVal := min(max(0, p.SplitVal-mVal), nOlder-oTrain)

	splits := make(map[int]Split, p.Size)
	assign(splits, modernIDs, mTrain, mVal)
	assign(splits, olderIDs, oTrain, oVal)

	f := &Fleet{Trucks: make([]Truck, 0, p.Size)}
	for id := 1; id <= p.Size; id++ {
		engine := core.EngineModern
		if id > nModern {
			engine = core.EngineOlder
		}
		truckSeed := seed + int64(id)
		f.Trucks = append(f.Trucks, Truck{
			ID:         id,
			EngineType: engine,
			Profile:    NewEngineProfile(engine, engines[engine], core.NewNoiseGenerator(truckSeed)),
			Seed:       truckSeed,
			Split:      splits[id],
		})
	}

	f.Metadata = Metadata{
		TotalTrucks: p.Size,
		ModernCount: nModern,
		OlderCount:  nOlder,
		TrainIDs:    f.idsOf(SplitTrain),
		ValIDs:      f.idsOf(SplitVal),
		TestIDs:     f.idsOf(SplitTest),
		Seed:        seed,
	}

	log.Debug().
		Int("trucks", p.Size).
		Int("modern", nModern).
		Int("older", nOlder).
		Int("train", len(f.Metadata.TrainIDs)).
		Int("val", len(f.Metadata.ValIDs)).
		Int("test", len(f.Metadata.TestIDs)).
		Msg("Fleet created")

	return f, nil
}

func idRange(from, to int) []int {
	if to < from {
		return nil
	}
	ids := make([]int, 0, to-from+1)
	for id := from; id <= to; id++ {
		ids = append(ids, id)
	}
	return ids
}

func assign(splits map[int]Split, ids []int, nTrain, nVal int) {
	for i, id := range ids {
		switch {
		case i < nTrain:
			splits[id] = SplitTrain
		case i < nTrain+nVal:
			splits[id] = SplitVal
		default:
			splits[id] = SplitTest
		}
	}
}

func (f *Fleet) idsOf(s Split) []int {
	var ids []int
	for _, t := range f.Trucks {
		if t.Split == s {
			ids = append(ids, t.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// Truck looks a truck up by id
func (f *Fleet) Truck(id int) (Truck, bool) {
	if id < 1 || id > len(f.Trucks) {
		return Truck{}, false
	}
	return f.Trucks[id-1], true
}

// Limit keeps only the first n trucks
func (f *Fleet) Limit(n int) {
	if n >= 0 && n < len(f.Trucks) {
		f.Trucks = f.Trucks[:n]
	}
}

// Stratification counts each split by engine type
func (f *Fleet) Stratification() map[Split]Stratum {
	out := make(map[Split]Stratum, 3)
	for _, t := range f.Trucks {
		s := out[t.Split]
		s.Total++
		if t.EngineType == core.EngineModern {
			s.Modern++
		} else {
			s.Older++
		}
		out[t.Split] = s
	}
	return out
}

// WriteMetadata writes one id list per split plus the stratification table
// into <outputDir>/metadata
func (f *Fleet) WriteMetadata(outputDir string) error {
	dir := filepath.Join(outputDir, MetadataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	for _, s := range Splits() {
		var b strings.Builder
		for _, id := range f.Metadata.IDs(s) {
			b.WriteString(strconv.Itoa(id))
			b.WriteByte('\n')
		}
		path := filepath.Join(dir, string(s)+"_trucks.txt")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	strat, err := json.MarshalIndent(f.Stratification(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode stratification: %w", err)
	}
	path := filepath.Join(dir, "fleet_stratification.json")
	if err := os.WriteFile(path, append(strat, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
