/*
Package config loads the process-level settings for a gomodeworker.Worker.

This package is deliberately small: the service-lifecycle core
(github.com/tomtom215/gomode/service and its subpackages) has no
configuration of its own, by design -- every tunable (shutdown deadline,
force-cancel grace, timer period, crash policy) is set in Go code by the host
program that builds the supervision tree. This package only configures the
ambient concerns that sit *outside* the core: log level/format, the overall
shutdown deadline handed to the root service's Stop, the optional Prometheus
listener address, and the pidfile path.

# Configuration Sources

Three layers, lowest to highest priority:

  - Defaults: built-in sensible defaults.
  - Config file: optional YAML file, found via DefaultConfigPaths or
    GOMODE_CONFIG_PATH.
  - Environment variables: GOMODE_LOG_LEVEL, GOMODE_SHUTDOWN_DEADLINE, etc.

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}
	worker := gomodeworker.New(cfg, root)
	if err := worker.Run(ctx); err != nil {
	    log.Fatal(err)
	}

# Thread Safety

Config is immutable after LoadWithKoanf returns.
*/
package config
