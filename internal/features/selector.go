package features

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
)

// Group is the set of samples sharing a GroupKey, in load order.
type Group struct {
	Key     GroupKey
	Samples []dataset.UESample
}

// GroupSamples partitions samples by GroupKey. Groups come back in ascending
// key order; samples inside a group keep their input order.
func GroupSamples(samples []dataset.UESample) []Group {
	index := make(map[GroupKey]int)
	var groups []Group
	for _, s := range samples {
		k := KeyOf(&s)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Samples = append(groups[i].Samples, s)
	}
	slices.SortFunc(groups, func(a, b Group) int { return compareKeys(a.Key, b.Key) })
	return groups
}

// WinningStartConfig returns the start-config of the reference node sample
// with the lowest (MeanLoss, CellDist). Exact ties keep the earliest sample.
func WinningStartConfig(g Group, referenceNodeID int) (int, error) {
	var candidates []dataset.UESample
	for _, s := range g.Samples {
		if s.NodeID == referenceNodeID {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("WinningStartConfig: %s: node %d: %w", g.Key, referenceNodeID, ErrNoReferenceNode)
	}

	slices.SortStableFunc(candidates, func(a, b dataset.UESample) int {
		if c := cmp.Compare(a.MeanLoss, b.MeanLoss); c != 0 {
			return c
		}
		return cmp.Compare(a.CellDist, b.CellDist)
	})
	return candidates[0].StartConfig, nil
}

// SelectOptimal keeps, for every group, only the samples of the start-config
// chosen by the reference node. The result is ordered by group key.
func SelectOptimal(samples []dataset.UESample, referenceNodeID int) ([]dataset.UESample, int, error) {
	groups := GroupSamples(samples)

	optimal := make([]dataset.UESample, 0, len(samples))
	for _, g := range groups {
		config, err := WinningStartConfig(g, referenceNodeID)
		if err != nil {
			return nil, 0, err
		}
		for _, s := range g.Samples {
			if s.StartConfig == config {
				optimal = append(optimal, s)
			}
		}
	}
	return optimal, len(groups), nil
}
