package features

import (
	"cmp"
	"math"
	"slices"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
)

// TrainingRow is one model input in distance-ranked layout.
type TrainingRow struct {
	// Distances are ascending; rank 0 is the nearest tower.
	Distances []float64
	// CellMeans[r] is the cell mean loss of the tower at rank r.
	CellMeans []float64
	Loss      float64
	// ServingRank is the rank of the serving tower by proximity.
	ServingRank int
}

type rankedCell struct {
	distance float64
	mean     float64
	serving  bool
}

// Canonicalize orders the sample's towers by ascending distance, carrying the
// matching cell mean and the serving marker along with each distance.
func Canonicalize(s dataset.UESample) TrainingRow {
	cells := make([]rankedCell, len(s.Distances))
	for i, d := range s.Distances {
		mean := math.NaN()
		if i < len(s.CellMeans) {
			mean = s.CellMeans[i]
		}
		cells[i] = rankedCell{distance: d, mean: mean, serving: i == s.CellID-1}
	}
	slices.SortStableFunc(cells, func(a, b rankedCell) int {
		return cmp.Compare(a.distance, b.distance)
	})

	row := TrainingRow{
		Distances: make([]float64, len(cells)),
		CellMeans: make([]float64, len(cells)),
		Loss:      s.Loss,
	}
	for r, c := range cells {
		row.Distances[r] = c.distance
		row.CellMeans[r] = c.mean
		if c.serving {
			row.ServingRank = r
		}
	}
	return row
}
