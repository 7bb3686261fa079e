package features

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
)

func standardTowers() []dataset.Tower {
	return []dataset.Tower{
		{NodeID: 1, X: 0, Y: 0},
		{NodeID: 2, X: 10, Y: 0},
		{NodeID: 3, X: 0, Y: 10},
	}
}

func TestComputeDistancesServingCellDistance(t *testing.T) {
	samples := []dataset.UESample{
		{NodeID: 1, CellID: 1, X: 1, Y: 2},
		{NodeID: 2, CellID: 2, X: 9, Y: 1},
		{NodeID: 3, CellID: 1, X: 3, Y: 4},
	}
	if err := ComputeDistances(samples, standardTowers()); err != nil {
		t.Fatalf("ComputeDistances: %v", err)
	}

	for _, s := range samples {
		if len(s.Distances) != 3 {
			t.Fatalf("node %d: len(Distances) = %d, want 3", s.NodeID, len(s.Distances))
		}
		if s.CellDist != s.Distances[s.CellID-1] {
			t.Fatalf("node %d: CellDist = %v, want Distances[%d] = %v",
				s.NodeID, s.CellDist, s.CellID-1, s.Distances[s.CellID-1])
		}
	}

	want := []float64{math.Sqrt(5), math.Sqrt(85), math.Sqrt(65)}
	for i, w := range want {
		if samples[0].Distances[i] != w {
			t.Fatalf("Distances[%d] = %v, want %v", i, samples[0].Distances[i], w)
		}
	}
	if samples[2].CellDist != 5 {
		t.Fatalf("CellDist for (3,4) to tower 1 = %v, want 5", samples[2].CellDist)
	}
}

func TestComputeDistancesRejectsUnknownCell(t *testing.T) {
	for _, cell := range []int{0, 4} {
		samples := []dataset.UESample{{NodeID: 1, CellID: cell}}
		if err := ComputeDistances(samples, standardTowers()); !errors.Is(err, ErrUnknownCell) {
			t.Fatalf("cellid %d: err = %v, want ErrUnknownCell", cell, err)
		}
	}
}
