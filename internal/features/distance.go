package features

import (
	"fmt"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
	"github.com/signalsfoundry/oran-handover-dataset/internal/geometry"
)

// ComputeDistances fills Distances and CellDist on every sample. Distances
// follow the order of towers; CellID indexes them 1-based.
func ComputeDistances(samples []dataset.UESample, towers []dataset.Tower) error {
	positions := make([]geometry.Point, len(towers))
	for i, t := range towers {
		positions[i] = t.Position()
	}

	for i := range samples {
		s := &samples[i]
		if s.CellID < 1 || s.CellID > len(positions) {
			return fmt.Errorf("ComputeDistances: node %d at %s: cellid %d with %d towers: %w",
				s.NodeID, KeyOf(s), s.CellID, len(positions), ErrUnknownCell)
		}
		s.Distances = s.Position().DistancesTo(positions)
		s.CellDist = s.Distances[s.CellID-1]
	}
	return nil
}
