package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
)

// AggregateCellMeans returns, per group, the mean loss observed on each cell.
// Slot i holds cell id i+1; cells without observations are NaN.
func AggregateCellMeans(optimal []dataset.UESample, towerCount int) map[GroupKey][]float64 {
	losses := make(map[GroupKey][][]float64)
	for _, s := range optimal {
		k := KeyOf(&s)
		perCell, ok := losses[k]
		if !ok {
			perCell = make([][]float64, towerCount)
			losses[k] = perCell
		}
		if s.CellID >= 1 && s.CellID <= towerCount {
			perCell[s.CellID-1] = append(perCell[s.CellID-1], s.Loss)
		}
	}

	means := make(map[GroupKey][]float64, len(losses))
	for k, perCell := range losses {
		row := make([]float64, towerCount)
		for i, l := range perCell {
			if len(l) == 0 {
				row[i] = math.NaN()
				continue
			}
			row[i] = stat.Mean(l, nil)
		}
		means[k] = row
	}
	return means
}

// AttachCellMeans copies each group's cell means onto every sample of the
// group.
func AttachCellMeans(optimal []dataset.UESample, means map[GroupKey][]float64) {
	for i := range optimal {
		row := means[KeyOf(&optimal[i])]
		optimal[i].CellMeans = append([]float64(nil), row...)
	}
}
