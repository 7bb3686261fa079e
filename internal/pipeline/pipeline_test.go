package pipeline

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/oran-handover-dataset/internal/config"
	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset/datasettest"
	"github.com/signalsfoundry/oran-handover-dataset/internal/features"
	"github.com/signalsfoundry/oran-handover-dataset/internal/observability"
	"github.com/signalsfoundry/oran-handover-dataset/internal/output"
)

// twoRunFixture writes two start-configs of one run: config 1 has the lower
// mean loss and must win.
func twoRunFixture(t *testing.T, root string) {
	t.Helper()
	towers := datasettest.StandardTowers()
	datasettest.WriteRun(t, root, datasettest.Run{
		Scenario: 0, StartConfig: 0, RunID: 0,
		Reports: []datasettest.Report{
			{NodeID: 1, Time: 1, Loss: 0.2, CellID: 1, X: 1, Y: 2},
			{NodeID: 2, Time: 1, Loss: 0.4, CellID: 2, X: 9, Y: 1},
		},
		Towers: towers,
	})
	datasettest.WriteRun(t, root, datasettest.Run{
		Scenario: 0, StartConfig: 1, RunID: 0,
		Reports: []datasettest.Report{
			{NodeID: 1, Time: 1, Loss: 0.1, CellID: 2, X: 1, Y: 2},
			{NodeID: 2, Time: 1, Loss: 0.1, CellID: 2, X: 9, Y: 1},
		},
		Towers: towers,
	})
}

func testConfig(t *testing.T, results string) config.Config {
	t.Helper()
	cfg, err := config.NewLoader().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	out := t.TempDir()
	cfg.ResultsDir = results
	cfg.OutputPath = filepath.Join(out, "training.data")
	cfg.ManifestPath = filepath.Join(out, "training.data.yaml")
	cfg.SamplesPath = filepath.Join(out, "optimal.csv")
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	root := t.TempDir()
	twoRunFixture(t, root)
	cfg := testConfig(t, root)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}
	var progress bytes.Buffer
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	res, err := New(cfg,
		WithMetrics(collector),
		WithProgress(&progress),
		WithClock(func() time.Time { return fixed }),
	).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Runs != 2 || res.UESamples != 4 || res.Groups != 1 {
		t.Fatalf("result counts = runs %d samples %d groups %d, want 2/4/1", res.Runs, res.UESamples, res.Groups)
	}
	for _, s := range res.Optimal {
		if s.StartConfig != 1 {
			t.Fatalf("optimal sample from start-config %d, want 1", s.StartConfig)
		}
	}

	// UE 1 at (1,2) served by tower 2; UE 2 at (9,1) served by tower 2.
	want := []features.TrainingRow{
		{
			Distances:   []float64{math.Sqrt(5) / math.Sqrt(85), math.Sqrt(65) / math.Sqrt(85), 1},
			CellMeans:   []float64{math.NaN(), math.NaN(), 0.1},
			Loss:        0.1,
			ServingRank: 2,
		},
		{
			Distances:   []float64{math.Sqrt(2) / math.Sqrt(162), math.Sqrt(82) / math.Sqrt(162), 1},
			CellMeans:   []float64{0.1, math.NaN(), math.NaN()},
			Loss:        0.1,
			ServingRank: 0,
		},
	}
	if len(res.Rows) != len(want) {
		t.Fatalf("len(rows) = %d, want %d", len(res.Rows), len(want))
	}
	for i, w := range want {
		assertRow(t, i, res.Rows[i], w)
	}

	var expected bytes.Buffer
	if err := output.EncodeTraining(&expected, want); err != nil {
		t.Fatalf("EncodeTraining: %v", err)
	}
	got, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != expected.String() {
		t.Fatalf("training.data =\n%s\nwant:\n%s", got, expected.String())
	}
	for _, line := range strings.Split(strings.TrimSuffix(string(got), "\n"), "\n") {
		if n := len(strings.Split(line, " ")); n != 8 {
			t.Fatalf("line %q has %d columns, want 8", line, n)
		}
	}

	f, err := os.Open(cfg.ManifestPath)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer f.Close()
	m, err := output.ReadManifest(f)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if m.Rows != 2 || m.Runs != 2 || m.BatchID != res.BatchID || m.GeneratedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("manifest = %+v", m)
	}

	if _, err := os.Stat(cfg.SamplesPath); err != nil {
		t.Fatalf("selected samples not written: %v", err)
	}

	if got := testutil.ToFloat64(collector.RunsLoaded); got != 2 {
		t.Fatalf("pipeline_runs_loaded_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.TrainingRows); got != 2 {
		t.Fatalf("pipeline_training_rows = %v, want 2", got)
	}
	if progress.Len() == 0 {
		t.Fatalf("expected progress output")
	}
}

func TestRunFailsWithoutReferenceNode(t *testing.T) {
	root := t.TempDir()
	datasettest.WriteRun(t, root, datasettest.Run{
		Reports: []datasettest.Report{{NodeID: 2, Time: 1, Loss: 0.1, CellID: 1, X: 1, Y: 1}},
		Towers:  datasettest.StandardTowers(),
	})
	cfg := testConfig(t, root)

	_, err := New(cfg).Run(context.Background())
	if !errors.Is(err, features.ErrNoReferenceNode) {
		t.Fatalf("err = %v, want ErrNoReferenceNode", err)
	}
	assertNoOutput(t, cfg)
}

func TestRunHonoursConfiguredReferenceNode(t *testing.T) {
	root := t.TempDir()
	datasettest.WriteRun(t, root, datasettest.Run{
		Reports: []datasettest.Report{{NodeID: 2, Time: 1, Loss: 0.1, CellID: 1, X: 1, Y: 1}},
		Towers:  datasettest.StandardTowers(),
	})
	cfg := testConfig(t, root)
	cfg.ReferenceNodeID = 2

	res, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(res.Rows))
	}
}

func TestRunRejectsTowerCountMismatch(t *testing.T) {
	root := t.TempDir()
	datasettest.WriteRun(t, root, datasettest.Run{
		Reports: []datasettest.Report{{NodeID: 1, Time: 1, Loss: 0.1, CellID: 1, X: 1, Y: 1}},
		Towers:  datasettest.StandardTowers()[:2],
	})
	cfg := testConfig(t, root)

	if _, err := New(cfg).Run(context.Background()); !errors.Is(err, dataset.ErrTowerCount) {
		t.Fatalf("err = %v, want ErrTowerCount", err)
	}
	assertNoOutput(t, cfg)
}

func TestRunEmptyResultsIsError(t *testing.T) {
	cfg := testConfig(t, t.TempDir())
	if _, err := New(cfg).Run(context.Background()); !errors.Is(err, dataset.ErrNoRuns) {
		t.Fatalf("err = %v, want ErrNoRuns", err)
	}
	assertNoOutput(t, cfg)
}

func TestRunEmptyRunDatabaseIsError(t *testing.T) {
	root := t.TempDir()
	datasettest.WriteRun(t, root, datasettest.Run{Towers: datasettest.StandardTowers()})
	cfg := testConfig(t, root)

	if _, err := New(cfg).Run(context.Background()); !errors.Is(err, dataset.ErrNoSamples) {
		t.Fatalf("err = %v, want ErrNoSamples", err)
	}
	assertNoOutput(t, cfg)
}

func TestRunFailedManifestRemovesWrittenFiles(t *testing.T) {
	root := t.TempDir()
	twoRunFixture(t, root)
	cfg := testConfig(t, root)
	// A directory in place of the manifest makes the final rename fail.
	if err := os.MkdirAll(filepath.Join(cfg.ManifestPath, "occupied"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := New(cfg).Run(context.Background()); err == nil {
		t.Fatalf("expected error when the manifest cannot be written")
	}
	assertNoOutput(t, cfg)
	if _, err := os.Stat(cfg.SamplesPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("selected samples left after failed run (stat err = %v)", err)
	}
}

// TestRunEquidistantTowersKeepServingRank places both UEs at (1,1), where
// towers 2 and 3 are equally far. The reference UE is served by tower 3 and
// must keep rank 2 after tower 2 in the ranking.
func TestRunEquidistantTowersKeepServingRank(t *testing.T) {
	root := t.TempDir()
	towers := datasettest.StandardTowers()
	datasettest.WriteRun(t, root, datasettest.Run{
		Scenario: 0, StartConfig: 0, RunID: 0,
		Reports: []datasettest.Report{
			{NodeID: 1, Time: 1, Loss: 0.2, CellID: 3, X: 1, Y: 1},
			{NodeID: 2, Time: 1, Loss: 0.1, CellID: 1, X: 1, Y: 1},
		},
		Towers: towers,
	})
	datasettest.WriteRun(t, root, datasettest.Run{
		Scenario: 0, StartConfig: 1, RunID: 0,
		Reports: []datasettest.Report{
			{NodeID: 1, Time: 1, Loss: 0.5, CellID: 3, X: 1, Y: 1},
			{NodeID: 2, Time: 1, Loss: 0.5, CellID: 1, X: 1, Y: 1},
		},
		Towers: towers,
	})
	cfg := testConfig(t, root)

	res, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, s := range res.Optimal {
		if s.StartConfig != 0 {
			t.Fatalf("optimal sample from start-config %d, want 0", s.StartConfig)
		}
	}

	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read training data: %v", err)
	}
	want := "0.15617376188860607 1.0 1.0 0.1  0.2 0.2 2\n" +
		"0.15617376188860607 1.0 1.0 0.1  0.2 0.1 0\n"
	if string(data) != want {
		t.Fatalf("training data =\n%q\nwant\n%q", data, want)
	}
}

func TestRunCorruptDatabaseAbortsBatch(t *testing.T) {
	root := t.TempDir()
	twoRunFixture(t, root)
	bad := datasettest.RunDir(root, datasettest.Run{Scenario: 1})
	if err := os.MkdirAll(bad, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(bad, dataset.DefaultDBName), []byte("not a database"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := testConfig(t, root)

	if _, err := New(cfg).Run(context.Background()); err == nil {
		t.Fatalf("expected error for corrupt run database")
	}
	assertNoOutput(t, cfg)
}

func assertRow(t *testing.T, i int, got, want features.TrainingRow) {
	t.Helper()
	if got.ServingRank != want.ServingRank {
		t.Fatalf("row %d: ServingRank = %d, want %d", i, got.ServingRank, want.ServingRank)
	}
	if got.Loss != want.Loss {
		t.Fatalf("row %d: Loss = %v, want %v", i, got.Loss, want.Loss)
	}
	for r := range want.Distances {
		if got.Distances[r] != want.Distances[r] {
			t.Fatalf("row %d: distance_rank%d = %v, want %v", i, r, got.Distances[r], want.Distances[r])
		}
		wm, gm := want.CellMeans[r], got.CellMeans[r]
		if math.IsNaN(wm) != math.IsNaN(gm) || (!math.IsNaN(wm) && math.Abs(wm-gm) > 1e-12) {
			t.Fatalf("row %d: cell_mean_rank%d = %v, want %v", i, r, gm, wm)
		}
	}
}

func assertNoOutput(t *testing.T, cfg config.Config) {
	t.Helper()
	if _, err := os.Stat(cfg.OutputPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("training data exists after failed run (stat err = %v)", err)
	}
}
