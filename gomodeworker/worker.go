// Package gomodeworker is the example host-program library for a gomode
// supervision tree: signal delivery, the root context, pidfile lifecycle,
// and an optional debug/metrics HTTP mux. It is a consumer of the
// github.com/tomtom215/gomode/service embedding API, never the other way
// around -- the core packages know nothing about this one.
package gomodeworker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/gomode/internal/config"
	"github.com/tomtom215/gomode/service"
	"github.com/tomtom215/gomode/service/svclog"
)

// Worker runs a root service.Base to completion: it starts the tree,
// waits for either an OS signal, cancellation of the ctx passed to Run, or
// the root crashing, then drains the tree within the configured shutdown
// deadline. A root whose Run returns without crashing does not end the
// wait.
type Worker struct {
	cfg  *config.Config
	root *service.Base
	sink svclog.Sink

	mux *DebugMux // nil unless WithDebugMux is used
}

// Option configures a Worker at construction time.
type Option func(*Worker)

// WithSink overrides where the worker's own lifecycle lines go. Defaults
// to svclog.Nop{}; normally set to the same sink passed to the root via
// service.WithSink.
func WithSink(sink svclog.Sink) Option {
	return func(w *Worker) { w.sink = sink }
}

// WithDebugMux attaches a debug/metrics HTTP mux that starts alongside the
// root and stops alongside it.
func WithDebugMux(mux *DebugMux) Option {
	return func(w *Worker) { w.mux = mux }
}

// New builds a Worker that runs root under cfg's shutdown deadline.
func New(cfg *config.Config, root *service.Base, opts ...Option) *Worker {
	w := &Worker{
		cfg:  cfg,
		root: root,
		sink: svclog.Nop{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts root, blocks until SIGINT/SIGTERM arrives or root crashes on
// its own, then stops root within cfg.Shutdown.Deadline. It returns the
// root's crash exception, if stopping was triggered by one, or nil on a
// clean signal-triggered shutdown. ctx being cancelled by the caller is
// treated the same as a signal.
func (w *Worker) Run(ctx context.Context) error {
	var pf *pidfile
	if w.cfg.Pidfile != "" {
		var err error
		if pf, err = writePidfile(w.cfg.Pidfile); err != nil {
			return err
		}
		defer pf.remove()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := w.root.Start(ctx); err != nil {
		return err
	}
	w.sink.Info("tree started", svclog.Str("node", w.root.Name()))

	if w.mux != nil {
		if err := w.mux.Start(ctx); err != nil {
			w.sink.Warn("debug mux failed to start", svclog.Err(err))
		}
	}

	crashed := make(chan struct{})
	go func() {
		_ = w.root.WaitUntilCrashed(context.Background())
		close(crashed)
	}()

	select {
	case <-ctx.Done():
		w.sink.Info("shutdown signal received")
	case <-crashed:
		w.sink.Error("root crashed", svclog.Err(w.root.Exception()))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), w.cfg.Shutdown.Deadline)
	defer cancel()

	if w.mux != nil {
		_ = w.mux.Stop(stopCtx)
	}

	stopErr := w.root.Stop(stopCtx)
	if unstopped := w.root.UnstoppedReport(); len(unstopped) > 0 {
		w.sink.Warn("nodes did not fully stop", svclog.Int("count", len(unstopped)))
		for _, name := range unstopped {
			w.sink.Warn("node failed to stop", svclog.Str("node", name))
		}
	}

	if exc := w.root.Exception(); exc != nil {
		return exc
	}
	if stopErr != nil && !errors.Is(stopErr, context.Canceled) {
		return stopErr
	}
	return nil
}

// pidfile tracks the path written by writePidfile so it can be removed on
// exit.
type pidfile struct {
	path string
}

func writePidfile(path string) (*pidfile, error) {
	contents := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return nil, err
	}
	return &pidfile{path: path}, nil
}

func (p *pidfile) remove() {
	if p == nil {
		return
	}
	_ = os.Remove(p.path)
}
