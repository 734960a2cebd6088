package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joshyorko/makelint/internal/config"
	"github.com/joshyorko/makelint/internal/logging"
	"github.com/joshyorko/makelint/internal/orchestrator"
	"github.com/joshyorko/makelint/internal/progress"
)

func abs(path string) (string, error) {
	return filepath.Abs(path)
}

func printDump(cfg *config.Configuration) error {
	out, err := cfg.Dump()
	if err != nil {
		return err
	}
	logging.Stdout("%s", out)
	return nil
}

// runPipeline builds the engine from cfg and drives one pipeline pass, or -
// when cfg.Watch is set - keeps rerunning on every source-tree change until
// interrupted. Its own exit code (OR-accumulated across every tool run) is
// what the process finally exits with, matching makelint.__main__'s
// `sys.exit(status)`.
func runPipeline(cfg *config.Configuration) error {
	var sink progress.Sink = progress.Null
	switch {
	case cfg.Quiet:
		sink = progress.Null
	case flagTUI:
		sink = progress.NewTeaReporter()
	default:
		sink = progress.NewTextReporter()
	}
	engine := orchestrator.New(cfg, sink)

	var status int
	var err error
	if cfg.Watch {
		ctx, cancel := context.WithCancel(context.Background())
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			cancel()
		}()
		status, err = engine.RunWatch(ctx, 0)
	} else {
		status, err = engine.RunOnce()
	}

	if err != nil {
		logging.Error("pipeline", err)
		exit(2, "makelint: %v", err)
	}
	if status != 0 {
		exit(status, "")
	}
	return nil
}
