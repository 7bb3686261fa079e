// Package config resolves pipeline settings from defaults, an optional YAML
// file, GENTRAIN_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/oran-handover-dataset/internal/dataset"
	"github.com/signalsfoundry/oran-handover-dataset/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. GENTRAIN_RESULTS_DIR.
const EnvPrefix = "GENTRAIN"

// Keys.
const (
	KeyResultsDir      = "results_dir"
	KeyDBName          = "db_name"
	KeyOutputPath      = "output.path"
	KeyManifestPath    = "output.manifest"
	KeySamplesPath     = "output.samples"
	KeyTowerCount      = "pipeline.tower_count"
	KeyReferenceNodeID = "pipeline.reference_node_id"
	KeyStaticTimestamp = "pipeline.static_timestamp"
	KeyCampaignCommand = "campaign.command"
	KeyOverwrite       = "campaign.overwrite"
	KeyLogLevel        = "logging.level"
	KeyLogFormat       = "logging.format"
	KeyMetricsTextfile = "metrics.textfile"
	KeyProgress        = "progress"
)

// Config is the resolved pipeline configuration.
type Config struct {
	ResultsDir string
	DBName     string

	OutputPath   string
	ManifestPath string
	SamplesPath  string

	TowerCount      int
	ReferenceNodeID int
	StaticTimestamp int64

	CampaignCommand []string
	Overwrite       bool

	Logging         logging.Config
	MetricsTextfile string
	Progress        bool
}

// Loader wraps a viper instance carrying the pipeline defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and environment overrides set up.
func NewLoader() *Loader {
	v := viper.New()

	v.SetDefault(KeyResultsDir, "./results-train")
	v.SetDefault(KeyDBName, dataset.DefaultDBName)

	v.SetDefault(KeyOutputPath, "training.data")
	v.SetDefault(KeyManifestPath, "training.data.yaml")
	v.SetDefault(KeySamplesPath, "")

	v.SetDefault(KeyTowerCount, 3)
	v.SetDefault(KeyReferenceNodeID, 1)
	v.SetDefault(KeyStaticTimestamp, dataset.StaticTimestamp)

	v.SetDefault(KeyCampaignCommand, []string{})
	v.SetDefault(KeyOverwrite, false)

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsTextfile, "")
	v.SetDefault(KeyProgress, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

// LoadFile merges a YAML config file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	return nil
}

// BindFlag ties key to a command-line flag; an explicitly set flag wins over
// file and environment values.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("config: bind %q: nil flag", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Set overrides a key.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Resolve returns the validated configuration.
func (l *Loader) Resolve() (Config, error) {
	cfg := Config{
		ResultsDir:      l.v.GetString(KeyResultsDir),
		DBName:          l.v.GetString(KeyDBName),
		OutputPath:      l.v.GetString(KeyOutputPath),
		ManifestPath:    l.v.GetString(KeyManifestPath),
		SamplesPath:     l.v.GetString(KeySamplesPath),
		TowerCount:      l.v.GetInt(KeyTowerCount),
		ReferenceNodeID: l.v.GetInt(KeyReferenceNodeID),
		StaticTimestamp: l.v.GetInt64(KeyStaticTimestamp),
		CampaignCommand: l.v.GetStringSlice(KeyCampaignCommand),
		Overwrite:       l.v.GetBool(KeyOverwrite),
		Logging: logging.Config{
			Level:  l.v.GetString(KeyLogLevel),
			Format: l.v.GetString(KeyLogFormat),
		},
		MetricsTextfile: l.v.GetString(KeyMetricsTextfile),
		Progress:        l.v.GetBool(KeyProgress),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.ResultsDir == "" {
		errs = append(errs, errors.New("results_dir is empty"))
	}
	if c.DBName == "" {
		errs = append(errs, errors.New("db_name is empty"))
	}
	if c.OutputPath == "" {
		errs = append(errs, errors.New("output.path is empty"))
	}
	if c.TowerCount < 1 {
		errs = append(errs, fmt.Errorf("pipeline.tower_count = %d, want >= 1", c.TowerCount))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
