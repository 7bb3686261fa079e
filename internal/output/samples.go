package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
)

// sampleRecord is the inspection layout of one selected UE sample.
type sampleRecord struct {
	Scenario       int     `csv:"scenario"`
	RunID          int     `csv:"run-id"`
	StartConfig    int     `csv:"start-config"`
	SimulationTime int64   `csv:"simulationtime"`
	NodeID         int     `csv:"nodeid"`
	CellID         int     `csv:"cellid"`
	X              float64 `csv:"x"`
	Y              float64 `csv:"y"`
	Loss           float64 `csv:"loss"`
	MeanLoss       float64 `csv:"mean_loss"`
	CellDist       float64 `csv:"cell_dist"`
}

// EncodeSamples writes the selected samples as a headed CSV table.
func EncodeSamples(w io.Writer, samples []dataset.UESample) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	for i, s := range samples {
		rec := sampleRecord{
			Scenario:       s.Scenario,
			RunID:          s.RunID,
			StartConfig:    s.StartConfig,
			SimulationTime: s.SimulationTime,
			NodeID:         s.NodeID,
			CellID:         s.CellID,
			X:              s.X,
			Y:              s.Y,
			Loss:           s.Loss,
			MeanLoss:       s.MeanLoss,
			CellDist:       s.CellDist,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("EncodeSamples: row %d: %w", i, err)
		}
	}
	if len(samples) == 0 {
		if err := enc.EncodeHeader(sampleRecord{}); err != nil {
			return fmt.Errorf("EncodeSamples: header: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamples writes the selected samples to path.
func WriteSamples(path string, samples []dataset.UESample) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodeSamples(w, samples)
	})
}
