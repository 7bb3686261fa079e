package dataset

import (
	"context"
	"database/sql"
	"fmt"

	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/oran-handover-dataset/internal/logging"
)

// StaticTimestamp is the simulationtime the simulator uses for final, static
// node positions.
const StaticTimestamp int64 = 2000000000

const ueQuery = `SELECT nodeapploss.nodeid, loss, cellid, x, y, nodeapploss.simulationtime
	FROM nodeapploss
	INNER JOIN lteuecell
	ON nodeapploss.nodeid = lteuecell.nodeid
	AND nodeapploss.simulationtime = lteuecell.simulationtime
	INNER JOIN nodelocation
	ON lteuecell.nodeid = nodelocation.nodeid
	AND lteuecell.simulationtime = nodelocation.simulationtime
	ORDER BY nodeapploss.simulationtime, nodeapploss.nodeid`

const enbQuery = `SELECT nodelocation.nodeid, x, y
	FROM nodelocation
	INNER JOIN lteenb
	ON nodelocation.nodeid = lteenb.nodeid
	AND nodelocation.simulationtime = ?
	ORDER BY nodelocation.nodeid`

// Loader reads run databases. Every query opens its own read-only connection
// and closes it before returning.
type Loader struct {
	staticTimestamp int64
	log             logging.Logger
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithStaticTimestamp overrides the sentinel used to select tower positions.
func WithStaticTimestamp(ts int64) LoaderOption {
	return func(l *Loader) { l.staticTimestamp = ts }
}

// WithLogger attaches a logger to the Loader.
func WithLogger(log logging.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader constructs a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		staticTimestamp: StaticTimestamp,
		log:             logging.Noop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadRun returns the UE samples of one run, tagged with the run parameters
// and with MeanLoss attached.
func (l *Loader) LoadRun(ctx context.Context, run RunParams) ([]UESample, error) {
	db, err := openReadOnly(run.Path)
	if err != nil {
		return nil, fmt.Errorf("LoadRun %s: %w", run, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, ueQuery)
	if err != nil {
		return nil, fmt.Errorf("LoadRun %s: query: %w", run, err)
	}
	defer rows.Close()

	var samples []UESample
	for rows.Next() {
		s := UESample{
			Scenario:    run.Scenario,
			RunID:       run.RunID,
			StartConfig: run.StartConfig,
		}
		if err := rows.Scan(&s.NodeID, &s.Loss, &s.CellID, &s.X, &s.Y, &s.SimulationTime); err != nil {
			return nil, fmt.Errorf("LoadRun %s: scan: %w", run, err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadRun %s: rows: %w", run, err)
	}

	AttachMeanLoss(samples)
	l.log.Debug(ctx, "run loaded",
		logging.String("run", run.String()),
		logging.Int("samples", len(samples)),
		logging.Float("run_mean_loss", runMeanLoss(samples)),
	)
	return samples, nil
}

// LoadTowers returns the static eNB positions recorded in the database at
// path, in node id order.
func (l *Loader) LoadTowers(ctx context.Context, path string) ([]Tower, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, fmt.Errorf("LoadTowers %q: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, enbQuery, l.staticTimestamp)
	if err != nil {
		return nil, fmt.Errorf("LoadTowers %q: query: %w", path, err)
	}
	defer rows.Close()

	var towers []Tower
	for rows.Next() {
		var t Tower
		if err := rows.Scan(&t.NodeID, &t.X, &t.Y); err != nil {
			return nil, fmt.Errorf("LoadTowers %q: scan: %w", path, err)
		}
		towers = append(towers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadTowers %q: rows: %w", path, err)
	}

	l.log.Debug(ctx, "towers loaded",
		logging.String("path", path),
		logging.Int("towers", len(towers)),
		logging.Int64("static_timestamp", l.staticTimestamp),
	)
	return towers, nil
}

// AttachMeanLoss sets MeanLoss on every sample to the mean Loss of all
// samples sharing its SimulationTime. samples must belong to a single run.
func AttachMeanLoss(samples []UESample) {
	byTime := make(map[int64][]float64)
	for _, s := range samples {
		byTime[s.SimulationTime] = append(byTime[s.SimulationTime], s.Loss)
	}
	means := make(map[int64]float64, len(byTime))
	for t, losses := range byTime {
		means[t] = stat.Mean(losses, nil)
	}
	for i := range samples {
		samples[i].MeanLoss = means[samples[i].SimulationTime]
	}
}

func openReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func runMeanLoss(samples []UESample) float64 {
	if len(samples) == 0 {
		return 0
	}
	losses := make([]float64, len(samples))
	for i, s := range samples {
		losses[i] = s.Loss
	}
	return stat.Mean(losses, nil)
}
