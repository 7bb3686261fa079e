// Package pipeline runs the training-data generation batch end to end:
// enumerate runs, load telemetry, derive features and write the dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/oran-handover-dataset/internal/config"
	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
	"github.com/signalsfoundry/oran-handover-dataset/internal/features"
	"github.com/signalsfoundry/oran-handover-dataset/internal/logging"
	"github.com/signalsfoundry/oran-handover-dataset/internal/observability"
	"github.com/signalsfoundry/oran-handover-dataset/internal/output"
)

// Result summarises a completed batch.
type Result struct {
	BatchID   string
	Runs      int
	UESamples int
	Groups    int
	Towers    []dataset.Tower
	Optimal   []dataset.UESample
	Rows      []features.TrainingRow
}

// Pipeline holds the configuration and collaborators of one batch.
type Pipeline struct {
	cfg      config.Config
	log      logging.Logger
	metrics  *observability.PipelineCollector
	progress io.Writer
	now      func() time.Time
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log logging.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithMetrics records batch metrics on c.
func WithMetrics(c *observability.PipelineCollector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// WithProgress renders a per-run loading progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.progress = w }
}

// WithClock overrides the time source used for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New constructs a Pipeline for cfg.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		log: logging.Noop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the batch. Any failure aborts the batch and leaves no output
// files behind.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, log := logging.WithBatchLogger(ctx, p.log)
	res := &Result{BatchID: logging.BatchIDFromContext(ctx)}

	var runs []dataset.RunParams
	err := p.stage(ctx, observability.StageEnumerate, func(ctx context.Context) error {
		var err error
		runs, err = dataset.EnumerateRuns(p.cfg.ResultsDir, p.cfg.DBName)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Runs = len(runs)
	log.Info(ctx, "runs discovered", logging.Int("runs", len(runs)), logging.String("results_dir", p.cfg.ResultsDir))

	var samples []dataset.UESample
	err = p.stage(ctx, observability.StageLoad, func(ctx context.Context) error {
		var err error
		res.Towers, samples, err = p.load(ctx, log, runs)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.UESamples = len(samples)
	log.Info(ctx, "samples loaded", logging.Int("samples", len(samples)), logging.Int("towers", len(res.Towers)))

	err = p.stage(ctx, observability.StageDistance, func(context.Context) error {
		return features.ComputeDistances(samples, res.Towers)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, observability.StageSelect, func(context.Context) error {
		var err error
		res.Optimal, res.Groups, err = features.SelectOptimal(samples, p.cfg.ReferenceNodeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.metrics.GroupsResolved(res.Groups)
	log.Info(ctx, "optimal configurations selected",
		logging.Int("groups", res.Groups),
		logging.Int("rows", len(res.Optimal)),
		logging.Int("reference_node_id", p.cfg.ReferenceNodeID),
	)

	err = p.stage(ctx, observability.StageCellStats, func(context.Context) error {
		features.AttachCellMeans(res.Optimal, features.AggregateCellMeans(res.Optimal, p.cfg.TowerCount))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, observability.StageFeatures, func(context.Context) error {
		res.Rows = features.BuildRows(res.Optimal)
		if len(res.Rows) == 0 {
			return fmt.Errorf("features: no training rows built: %w", dataset.ErrNoSamples)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, observability.StageWrite, func(ctx context.Context) error {
		return p.write(ctx, log, res)
	})
	if err != nil {
		return nil, err
	}
	p.metrics.DatasetWritten(len(res.Rows), p.now())
	log.Info(ctx, "training data written",
		logging.String("output", p.cfg.OutputPath),
		logging.Int("rows", len(res.Rows)),
	)
	return res, nil
}

func (p *Pipeline) load(ctx context.Context, log logging.Logger, runs []dataset.RunParams) ([]dataset.Tower, []dataset.UESample, error) {
	loader := dataset.NewLoader(
		dataset.WithStaticTimestamp(p.cfg.StaticTimestamp),
		dataset.WithLogger(log),
	)

	// Every run shares the deployment of the first one.
	towers, err := loader.LoadTowers(ctx, runs[0].Path)
	if err != nil {
		return nil, nil, err
	}
	if len(towers) != p.cfg.TowerCount {
		return nil, nil, fmt.Errorf("load: %q has %d towers, configured %d: %w",
			runs[0].Path, len(towers), p.cfg.TowerCount, dataset.ErrTowerCount)
	}

	var bar *progressbar.ProgressBar
	if p.progress != nil {
		bar = progressbar.NewOptions(len(runs),
			progressbar.OptionSetWriter(p.progress),
			progressbar.OptionSetDescription("loading runs"),
			progressbar.OptionShowCount(),
		)
		defer bar.Finish()
	}

	var samples []dataset.UESample
	for _, run := range runs {
		loaded, err := loader.LoadRun(ctx, run)
		if err != nil {
			return nil, nil, err
		}
		samples = append(samples, loaded...)
		p.metrics.RunLoaded(len(loaded))
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if len(samples) == 0 {
		return nil, nil, fmt.Errorf("load: %d runs under %q: %w", len(runs), p.cfg.ResultsDir, dataset.ErrNoSamples)
	}
	return towers, samples, nil
}

// write emits training data first and then its side files. A failed side
// file removes everything this batch wrote.
func (p *Pipeline) write(ctx context.Context, log logging.Logger, res *Result) (err error) {
	var written []string
	defer func() {
		if err == nil {
			return
		}
		for _, path := range written {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn(ctx, "cleanup after failed write", logging.String("path", path), logging.Err(rmErr))
			}
		}
	}()

	if err := output.WriteTraining(p.cfg.OutputPath, res.Rows); err != nil {
		return err
	}
	written = append(written, p.cfg.OutputPath)

	if p.cfg.SamplesPath != "" {
		if err := output.WriteSamples(p.cfg.SamplesPath, res.Optimal); err != nil {
			return err
		}
		written = append(written, p.cfg.SamplesPath)
		log.Debug(ctx, "selected samples written", logging.String("path", p.cfg.SamplesPath))
	}

	if p.cfg.ManifestPath != "" {
		if err := output.WriteManifest(p.cfg.ManifestPath, p.manifest(res)); err != nil {
			return err
		}
		log.Debug(ctx, "manifest written", logging.String("path", p.cfg.ManifestPath))
	}
	return nil
}

func (p *Pipeline) manifest(res *Result) output.Manifest {
	towers := make([]output.TowerRecord, len(res.Towers))
	for i, t := range res.Towers {
		towers[i] = output.TowerRecord{NodeID: t.NodeID, X: t.X, Y: t.Y}
	}
	return output.Manifest{
		BatchID:     res.BatchID,
		GeneratedAt: p.now().UTC().Format(time.RFC3339),
		ResultsDir:  p.cfg.ResultsDir,
		Output:      p.cfg.OutputPath,
		Columns:     output.Columns(p.cfg.TowerCount),
		Runs:        res.Runs,
		UESamples:   res.UESamples,
		Groups:      res.Groups,
		Rows:        len(res.Rows),
		ReferenceID: p.cfg.ReferenceNodeID,
		Towers:      towers,
	}
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.StartStage(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.ObserveStage(name, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("pipeline.failed", true))
		return err
	}
	return nil
}
