package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a gomoded config file is searched,
// in order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"gomoded.yaml",
	"gomoded.yml",
	"/etc/gomode/gomoded.yaml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "GOMODE_CONFIG_PATH"

// Config holds the settings needed to run a gomodeworker.Worker. It has no
// opinion about what services the host program supervises -- only about the
// process-level concerns the Worker collaborator owns: logging, the
// shutdown deadline, the metrics listener, and the pidfile.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Shutdown ShutdownConfig `koanf:"shutdown"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Pidfile  string         `koanf:"pidfile"`
	TreeName string         `koanf:"tree_name"`
}

// LogConfig configures the structured log sink.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ShutdownConfig bounds the stop() drain/escalate sequence (spec.md §4.3
// step 5, §7 Timeout).
type ShutdownConfig struct {
	Deadline   time.Duration `koanf:"deadline"`
	ForceGrace time.Duration `koanf:"force_grace"`
}

// MetricsConfig controls the optional Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// defaultConfig returns sensible defaults, applied before the config file
// and environment variables are layered on top.
func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Shutdown: ShutdownConfig{
			Deadline:   30 * time.Second,
			ForceGrace: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
		Pidfile:  "",
		TreeName: "gomode",
	}
}

// LoadWithKoanf loads a Config from three layers, in increasing priority:
//
//  1. Defaults: built-in sensible defaults.
//  2. Config file: optional YAML file (see DefaultConfigPaths / ConfigPathEnvVar).
//  3. Environment variables: GOMODE_LOG_LEVEL, GOMODE_SHUTDOWN_DEADLINE, etc.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("GOMODE_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps GOMODE_-prefixed environment variable names to koanf
// dotted paths, e.g. GOMODE_LOG_LEVEL -> log.level.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "GOMODE_"))
	mappings := map[string]string{
		"log_level":            "log.level",
		"log_format":           "log.format",
		"log_caller":           "log.caller",
		"shutdown_deadline":    "shutdown.deadline",
		"shutdown_force_grace": "shutdown.force_grace",
		"metrics_enabled":      "metrics.enabled",
		"metrics_addr":         "metrics.addr",
		"pidfile":              "pidfile",
		"tree_name":            "tree_name",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a fresh Koanf instance for advanced usage (e.g.
// hot-reload scenarios with caller-supplied mutex protection).
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// Validate checks the Config for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Shutdown.Deadline <= 0 {
		return fmt.Errorf("shutdown.deadline must be positive, got %s", c.Shutdown.Deadline)
	}
	if c.Shutdown.ForceGrace < 0 {
		return fmt.Errorf("shutdown.force_grace must not be negative, got %s", c.Shutdown.ForceGrace)
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of trace|debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q is not one of json|console", c.Log.Format)
	}
	return nil
}
