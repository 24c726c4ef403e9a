package main

import (
	"testing"
	"time"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/generator"
)

func baseConfig() *config.Config {
	return &config.Config{
		FleetSize:     200,
		Days:          183,
		Seed:          42,
		OutputDir:     "output",
		Workers:       1,
		SkipExisting:  true,
		FailurePolicy: config.FailureIsolate,
		LogLevel:      "info",
		Store:         config.StoreSQLite,
		HTTPPort:      8787,
		OPCUAPort:     4840,

		ReplayInterval: time.Second,
	}
}

func TestParseFlagsOverridesEnv(t *testing.T) {
	cfg := baseConfig()
	opts, err := parseFlags(cfg, []string{
		"-trucks", "5", "-days", "2", "-seed", "7", "-workers", "3",
		"-single-truck", "4", "-skip-existing=false", "-verbose", "-validate",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.trucks != 5 || opts.singleTruck != 4 || opts.singleDay != generator.AllDays || !opts.validate {
		t.Errorf("options = %+v", opts)
	}
	if cfg.Days != 2 || cfg.Seed != 7 || cfg.Workers != 3 || cfg.SkipExisting {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg := baseConfig()
	opts, err := parseFlags(cfg, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.trucks != 200 || opts.validationCheckpoint || cfg.Days != 183 {
		t.Errorf("defaults changed: %+v %+v", opts, cfg)
	}
}

func TestParseFlagsRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero trucks", []string{"-trucks", "0"}},
		{"bad policy", []string{"-failure-policy", "retry"}},
		{"unknown flag", []string{"-parquet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFlags(baseConfig(), tt.args); err == nil {
				t.Fatalf("parseFlags(%v) succeeded", tt.args)
			}
		})
	}
}
