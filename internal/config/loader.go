package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	// Resource budget
	MaxModels      int     `json:"max_models" yaml:"max_models" toml:"max_models"`
	MaxMemoryMB    int     `json:"max_memory_mb" yaml:"max_memory_mb" toml:"max_memory_mb"`
	MaxAccelMB     int     `json:"max_accel_mb" yaml:"max_accel_mb" toml:"max_accel_mb"`
	MemoryMarginMB int     `json:"memory_margin_mb" yaml:"memory_margin_mb" toml:"memory_margin_mb"`
	WarnFraction   float64 `json:"warn_fraction" yaml:"warn_fraction" toml:"warn_fraction"`
	CritFraction   float64 `json:"crit_fraction" yaml:"crit_fraction" toml:"crit_fraction"`

	// Resource monitor
	SampleIntervalSeconds int `json:"sample_interval_seconds" yaml:"sample_interval_seconds" toml:"sample_interval_seconds"`
	SmoothingWindow       int `json:"smoothing_window" yaml:"smoothing_window" toml:"smoothing_window"`
	StaleAfterSeconds     int `json:"stale_after_seconds" yaml:"stale_after_seconds" toml:"stale_after_seconds"`

	// Queueing and lifecycle timeouts
	MaxQueueDepth       int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWaitSeconds      int `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
	DrainTimeoutSeconds int `json:"drain_timeout_seconds" yaml:"drain_timeout_seconds" toml:"drain_timeout_seconds"`
	SessionTurnCap      int `json:"session_turn_cap" yaml:"session_turn_cap" toml:"session_turn_cap"`

	// Engine tunables
	EngineCtx     int `json:"engine_ctx" yaml:"engine_ctx" toml:"engine_ctx"`
	EngineThreads int `json:"engine_threads" yaml:"engine_threads" toml:"engine_threads"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
