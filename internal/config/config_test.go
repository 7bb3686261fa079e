package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaults(t *testing.T) {
	cfg, err := NewLoader().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.ResultsDir != "./results-train" {
		t.Fatalf("ResultsDir = %q", cfg.ResultsDir)
	}
	if cfg.DBName != "oran-repository.db" {
		t.Fatalf("DBName = %q", cfg.DBName)
	}
	if cfg.OutputPath != "training.data" {
		t.Fatalf("OutputPath = %q", cfg.OutputPath)
	}
	if cfg.TowerCount != 3 || cfg.ReferenceNodeID != 1 || cfg.StaticTimestamp != 2000000000 {
		t.Fatalf("pipeline defaults = %d/%d/%d", cfg.TowerCount, cfg.ReferenceNodeID, cfg.StaticTimestamp)
	}
	if cfg.Overwrite {
		t.Fatalf("Overwrite defaulted to true")
	}
	if len(cfg.CampaignCommand) != 0 {
		t.Fatalf("CampaignCommand = %v, want empty", cfg.CampaignCommand)
	}
}

func TestFileEnvAndFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gentrain.yaml")
	content := strings.Join([]string{
		"results_dir: /data/results",
		"output:",
		"  path: /data/file.data",
		"pipeline:",
		"  tower_count: 4",
		"  reference_node_id: 9",
		"campaign:",
		"  command: [\"./ns3\", \"run\"]",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("GENTRAIN_PIPELINE_REFERENCE_NODE_ID", "5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output", "", "")
	if err := fs.Parse([]string{"--output", "/flag/training.data"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := l.BindFlag(KeyOutputPath, fs.Lookup("output")); err != nil {
		t.Fatalf("BindFlag: %v", err)
	}

	cfg, err := l.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.ResultsDir != "/data/results" {
		t.Fatalf("ResultsDir = %q, want file value", cfg.ResultsDir)
	}
	if cfg.TowerCount != 4 {
		t.Fatalf("TowerCount = %d, want 4", cfg.TowerCount)
	}
	if cfg.ReferenceNodeID != 5 {
		t.Fatalf("ReferenceNodeID = %d, want env override 5", cfg.ReferenceNodeID)
	}
	if cfg.OutputPath != "/flag/training.data" {
		t.Fatalf("OutputPath = %q, want flag value", cfg.OutputPath)
	}
	if len(cfg.CampaignCommand) != 2 || cfg.CampaignCommand[0] != "./ns3" {
		t.Fatalf("CampaignCommand = %v", cfg.CampaignCommand)
	}
}

func TestValidateRejectsBadTowerCount(t *testing.T) {
	l := NewLoader()
	l.Set(KeyTowerCount, 0)
	if _, err := l.Resolve(); err == nil || !strings.Contains(err.Error(), "tower_count") {
		t.Fatalf("Resolve err = %v, want tower_count error", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
