// Package dataset discovers simulation runs on disk and loads their UE
// telemetry and cell tower positions.
package dataset

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/oran-handover-dataset/internal/geometry"
)

var (
	// ErrNoRuns is returned when a results directory holds no run databases.
	ErrNoRuns = errors.New("no run databases found")
	// ErrMalformedPath is returned when a run path lacks a required integer
	// parameter segment.
	ErrMalformedPath = errors.New("malformed run path")
	// ErrTowerCount is returned when the number of loaded towers differs from
	// the configured tower count.
	ErrTowerCount = errors.New("unexpected tower count")
	// ErrNoSamples is returned when the run databases hold no UE reports.
	ErrNoSamples = errors.New("no UE samples in run databases")
)

// Required path parameters.
const (
	ParamScenario    = "scenario"
	ParamStartConfig = "start-config"
	ParamRunID       = "run-id"
)

// RunParams describes one simulation run directory.
type RunParams struct {
	Scenario    int
	StartConfig int
	RunID       int
	Path        string

	// Ints and Extra hold every other key=value segment, split by whether
	// the value is all digits.
	Ints  map[string]int
	Extra map[string]string
}

func (r RunParams) String() string {
	return fmt.Sprintf("scenario=%d/start-config=%d/run-id=%d", r.Scenario, r.StartConfig, r.RunID)
}

// UESample is one UE report at one simulation instant of one run, plus the
// features derived from it as the pipeline progresses.
type UESample struct {
	NodeID         int
	Loss           float64
	CellID         int // 1-based serving cell
	X, Y           float64
	SimulationTime int64

	Scenario    int
	RunID       int
	StartConfig int

	// MeanLoss is the mean Loss of every UE at SimulationTime in the run.
	MeanLoss float64

	// Distances holds one entry per tower, in tower enumeration order.
	Distances []float64
	// CellDist is Distances[CellID-1].
	CellDist float64
	// CellMeans holds the per-cell mean loss of the sample's group, indexed
	// by CellID-1. NaN marks a cell with no observations.
	CellMeans []float64
}

// Position returns the UE position.
func (s *UESample) Position() geometry.Point {
	return geometry.Point{X: s.X, Y: s.Y}
}

// Tower is a static eNB position; its NodeID is the cell id it serves.
type Tower struct {
	NodeID int
	X, Y   float64
}

// Position returns the tower position.
func (t Tower) Position() geometry.Point {
	return geometry.Point{X: t.X, Y: t.Y}
}
