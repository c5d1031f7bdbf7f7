// Command gomoded is an example host program for the gomode supervision
// core: it loads a Config, builds a small supervision tree (a root
// heartbeat node with one child worker), and runs it to completion under
// gomodeworker.Worker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/gomode/gomodeworker"
	"github.com/tomtom215/gomode/internal/config"
	"github.com/tomtom215/gomode/internal/logging"
	"github.com/tomtom215/gomode/internal/telemetry"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gomoded: load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Caller:    cfg.Log.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	sink := logging.NewZerologSink()
	hook := telemetry.New(nil)

	root := buildTree(cfg.TreeName, sink, hook, cfg.Shutdown.ForceGrace)

	var opts []gomodeworker.Option
	opts = append(opts, gomodeworker.WithSink(sink))
	if cfg.Metrics.Enabled {
		opts = append(opts, gomodeworker.WithDebugMux(gomodeworker.NewDebugMux(cfg.Metrics.Addr, root, nil)))
	}

	w := gomodeworker.New(cfg, root, opts...)
	if err := w.Run(context.Background()); err != nil {
		logging.Error().Err(err).Msg("gomoded exited with error")
		os.Exit(1)
	}
}
