package features

import "github.com/signalsfoundry/oran-handover-dataset/internal/dataset"

// Normalize divides every distance by the largest one in place.
func Normalize(row *TrainingRow) {
	n := len(row.Distances)
	if n == 0 {
		return
	}
	far := row.Distances[n-1]
	for i := range row.Distances {
		row.Distances[i] /= far
	}
}

// BuildRows canonicalizes and normalizes every optimal sample.
func BuildRows(optimal []dataset.UESample) []TrainingRow {
	rows := make([]TrainingRow, len(optimal))
	for i, s := range optimal {
		rows[i] = Canonicalize(s)
		Normalize(&rows[i])
	}
	return rows
}
