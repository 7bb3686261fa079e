// Package features turns loaded UE samples into fixed-width training rows:
// distances to every tower, the optimal start configuration per instant,
// per-cell loss means and a distance-ranked layout.
package features

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
)

var (
	// ErrUnknownCell is returned when a sample's serving cell has no tower.
	ErrUnknownCell = errors.New("serving cell outside tower range")
	// ErrNoReferenceNode is returned when a group holds no sample of the
	// reference UE.
	ErrNoReferenceNode = errors.New("no reference node sample in group")
)

// GroupKey identifies one simulation instant of one run across all start
// configurations.
type GroupKey struct {
	Scenario       int
	RunID          int
	SimulationTime int64
}

func (k GroupKey) String() string {
	return fmt.Sprintf("scenario=%d/run-id=%d/simulationtime=%d", k.Scenario, k.RunID, k.SimulationTime)
}

// KeyOf returns the group a sample belongs to.
func KeyOf(s *dataset.UESample) GroupKey {
	return GroupKey{Scenario: s.Scenario, RunID: s.RunID, SimulationTime: s.SimulationTime}
}

func compareKeys(a, b GroupKey) int {
	if c := cmp.Compare(a.Scenario, b.Scenario); c != 0 {
		return c
	}
	if c := cmp.Compare(a.RunID, b.RunID); c != 0 {
		return c
	}
	return cmp.Compare(a.SimulationTime, b.SimulationTime)
}
