package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/oran-handover-dataset/internal/campaign"
	"github.com/signalsfoundry/oran-handover-dataset/internal/config"
	"github.com/signalsfoundry/oran-handover-dataset/internal/logging"
	"github.com/signalsfoundry/oran-handover-dataset/internal/observability"
	"github.com/signalsfoundry/oran-handover-dataset/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	loader := config.NewLoader()
	var configPath string

	cmd := &cobra.Command{
		Use:   "gen-training-data",
		Short: "Build the handover training dataset from simulation results",
		Long: `gen-training-data reads every oran-repository.db below the results
directory (scenario=*/start-config=*/run-id=*/run=0), keeps the start
configuration that minimises loss for the reference UE at each simulation
instant, and writes distance-ranked feature rows to training.data.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := loader.LoadFile(configPath); err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			cfg, err := loader.Resolve()
			if err != nil {
				return report(cmd.ErrOrStderr(), err)
			}
			return run(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.BoolP("overwrite", "o", false, "regenerate the campaign from scratch, deleting previous results")
	flags.String("results-dir", "./results-train", "campaign results directory")
	flags.String("output", "training.data", "training data output file")
	flags.String("manifest", "training.data.yaml", "dataset manifest file (empty to skip)")
	flags.String("samples", "", "CSV dump of the selected samples (empty to skip)")
	flags.Int("tower-count", 3, "number of cell towers in the deployment")
	flags.Int("reference-node", 1, "node id whose metrics decide the start configuration")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile on success")
	flags.Bool("progress", false, "show a progress bar while loading runs")

	for key, name := range map[string]string{
		config.KeyOverwrite:       "overwrite",
		config.KeyResultsDir:      "results-dir",
		config.KeyOutputPath:      "output",
		config.KeyManifestPath:    "manifest",
		config.KeySamplesPath:     "samples",
		config.KeyTowerCount:      "tower-count",
		config.KeyReferenceNodeID: "reference-node",
		config.KeyLogLevel:        "log-level",
		config.KeyLogFormat:       "log-format",
		config.KeyMetricsTextfile: "metrics-file",
		config.KeyProgress:        "progress",
	} {
		if err := loader.BindFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	log := logging.NewWithWriter(cfg.Logging, stderr)
	ctx, log = logging.WithBatchLogger(ctx, log)
	ctx = logging.ContextWithLogger(ctx, log)

	tracing := observability.TracingConfigFromEnv()
	tracing.Attributes = observability.BatchAttributes(
		logging.BatchIDFromContext(ctx), cfg.ResultsDir, cfg.TowerCount, cfg.ReferenceNodeID)
	shutdown, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		return err
	}

	c := &campaign.Campaign{
		ResultsDir: cfg.ResultsDir,
		Command:    cfg.CampaignCommand,
		Stdout:     stdout,
		Stderr:     stderr,
	}
	if err := c.Prepare(ctx, cfg.Overwrite); err != nil {
		log.Error(ctx, "campaign results unavailable", logging.Err(err))
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(collector),
	}
	if cfg.Progress {
		opts = append(opts, pipeline.WithProgress(stderr))
	}

	res, err := pipeline.New(cfg, opts...).Run(ctx)
	if err != nil {
		log.Error(ctx, "training data generation failed", logging.Err(err))
		return err
	}

	if err := collector.WriteTextfile(cfg.MetricsTextfile); err != nil {
		log.Warn(ctx, "metrics textfile not written", logging.Err(err))
	}

	fmt.Fprintf(stdout, "wrote %d training rows from %d runs to %s\n", len(res.Rows), res.Runs, cfg.OutputPath)
	return nil
}

func report(w io.Writer, err error) error {
	fmt.Fprintf(w, "error: %v\n", err)
	return err
}
