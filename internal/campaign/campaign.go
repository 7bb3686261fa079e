// Package campaign prepares the simulation results folder the pipeline reads.
// The campaign itself is an external command; this package only decides
// whether to wipe prior results and invokes the command when configured.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/signalsfoundry/oran-handover-dataset/internal/logging"
)

// ErrNoResults is returned when no results directory exists after the
// campaign step.
var ErrNoResults = errors.New("results directory does not exist")

// ErrNoCommand is returned when overwrite is requested but no campaign
// command is configured to regenerate the results.
var ErrNoCommand = errors.New("overwrite requires a campaign command")

// ResultsDirEnv carries the results directory to the campaign command.
const ResultsDirEnv = "GENTRAIN_RESULTS_DIR"

// OverwriteFlag is appended to the campaign command when overwriting.
const OverwriteFlag = "--overwrite"

// Campaign describes how results are produced.
type Campaign struct {
	ResultsDir string
	// Command is argv of the external campaign runner; empty means results
	// were produced out of band.
	Command []string

	// Log defaults to the logger carried by the context.
	Log    logging.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// Prepare makes ResultsDir ready for reading. With overwrite set, prior
// results are deleted and the campaign command is asked to start over.
// Overwrite without a command is rejected and leaves ResultsDir untouched.
func (c *Campaign) Prepare(ctx context.Context, overwrite bool) error {
	log := c.Log
	if log == nil {
		log = logging.LoggerFromContext(ctx)
	}

	if overwrite {
		if len(c.Command) == 0 {
			return fmt.Errorf("campaign: %q: %w", c.ResultsDir, ErrNoCommand)
		}
		if err := c.removeResults(ctx, log); err != nil {
			return err
		}
	}

	if len(c.Command) > 0 {
		if err := c.run(ctx, overwrite, log); err != nil {
			return err
		}
	}

	info, err := os.Stat(c.ResultsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("campaign: %q: %w", c.ResultsDir, ErrNoResults)
		}
		return fmt.Errorf("campaign: stat %q: %w", c.ResultsDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("campaign: %q is not a directory", c.ResultsDir)
	}
	return nil
}

func (c *Campaign) removeResults(ctx context.Context, log logging.Logger) error {
	clean := filepath.Clean(c.ResultsDir)
	if clean == "." || clean == string(filepath.Separator) || c.ResultsDir == "" {
		return fmt.Errorf("campaign: refusing to remove results directory %q", c.ResultsDir)
	}
	if _, err := os.Stat(clean); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	log.Warn(ctx, "removing previous results", logging.String("results_dir", clean))
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("campaign: remove %q: %w", clean, err)
	}
	return nil
}

func (c *Campaign) run(ctx context.Context, overwrite bool, log logging.Logger) error {
	args := append([]string(nil), c.Command[1:]...)
	if overwrite {
		args = append(args, OverwriteFlag)
	}

	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Env = append(os.Environ(), ResultsDirEnv+"="+c.ResultsDir)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	log.Info(ctx, "running campaign",
		logging.String("command", c.Command[0]),
		logging.Any("args", args),
		logging.Bool("overwrite", overwrite),
	)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("campaign: %s: %w", c.Command[0], err)
	}
	return nil
}
