package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	In       string
	PGDSN    string
	RunID    string
	Color    bool
	LogLevel string
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"in":        "./data/results.jsonl",
		"color":     true,
		"log-level": "info",
	})
	if err != nil {
		return ReportConfig{}, err
	}

	cfg := ReportConfig{
		In:       v.GetString("in"),
		PGDSN:    v.GetString("pg-dsn"),
		RunID:    v.GetString("run-id"),
		Color:    v.GetBool("color"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.PGDSN != "" && cfg.RunID == "" {
		return ReportConfig{}, fmt.Errorf("run-id is required when reading from postgres")
	}
	if cfg.PGDSN == "" && cfg.In == "" {
		return ReportConfig{}, fmt.Errorf("input path is required")
	}
	return cfg, nil
}
