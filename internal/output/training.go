// Package output serializes pipeline results to disk.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/signalsfoundry/oran-handover-dataset/internal/features"
)

// Columns returns the training.data column layout for towerCount towers.
func Columns(towerCount int) []string {
	cols := make([]string, 0, 2*towerCount+2)
	for r := 0; r < towerCount; r++ {
		cols = append(cols, fmt.Sprintf("distance_rank%d", r))
	}
	for r := 0; r < towerCount; r++ {
		cols = append(cols, fmt.Sprintf("cell_mean_rank%d", r))
	}
	return append(cols, "loss", "cellid")
}

// EncodeTraining writes rows as space-separated records with no header:
// distances, cell means, loss, serving rank.
func EncodeTraining(w io.Writer, rows []features.TrainingRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = ' '

	var record []string
	for i, row := range rows {
		record = record[:0]
		for _, d := range row.Distances {
			record = append(record, FormatFloat(d))
		}
		for _, m := range row.CellMeans {
			record = append(record, FormatFloat(m))
		}
		record = append(record, FormatFloat(row.Loss), strconv.Itoa(row.ServingRank))
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("EncodeTraining: row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTraining writes rows to path. The file only appears once it is
// complete.
func WriteTraining(path string, rows []features.TrainingRow) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodeTraining(w, rows)
	})
}

// FormatFloat renders v the way the dataset consumers expect: shortest
// round-trip digits, a trailing ".0" on integral values, scientific
// notation outside [1e-4, 1e16), and an empty field for NaN.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %q: %w", path, err)
	}
	return nil
}
