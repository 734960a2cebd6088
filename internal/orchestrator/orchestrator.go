// Package orchestrator sequences the phases spec.md §4 describes -
// Discovery, Digester, Dependency Mapper, and one Tool Runner pass per
// configured tool - into a single pipeline run, and optionally repeats that
// pipeline on every source-tree change when watch mode is enabled.
//
// Grounded on makelint/__init__.py:main/run_once, the function that drives
// discover_sourcetree -> digest_sourcetree_content -> map_dependencies ->
// execute_tool_ontree in sequence.
package orchestrator

import (
	"context"
	"path/filepath"
	"regexp"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/joshyorko/makelint/internal/config"
	"github.com/joshyorko/makelint/internal/depmap"
	"github.com/joshyorko/makelint/internal/digest"
	"github.com/joshyorko/makelint/internal/discovery"
	"github.com/joshyorko/makelint/internal/logging"
	"github.com/joshyorko/makelint/internal/mergelog"
	"github.com/joshyorko/makelint/internal/pathutil"
	"github.com/joshyorko/makelint/internal/progress"
	"github.com/joshyorko/makelint/internal/toolrunner"
)

// Engine owns one configuration and drives pipeline runs against it.
type Engine struct {
	Config   *config.Configuration
	Progress progress.Sink
}

// New returns an Engine ready to run, falling back to progress.Null when
// sink is nil.
func New(cfg *config.Configuration, sink progress.Sink) *Engine {
	if sink == nil {
		sink = progress.Null
	}
	return &Engine{Config: cfg, Progress: sink}
}

// RunOnce drives exactly one pass of Discovery -> Digester -> Dependency
// Mapper -> (Tool Runner * len(tools)), in that order, and returns the
// OR-accumulated exit status across every tool run. A non-nil error means a
// fatal condition (spec.md §7) aborted the pipeline before it could finish.
func (e *Engine) RunOnce() (int, error) {
	cfg := e.Config
	defer e.Progress.Done()

	logging.Info("discovering source tree: %s", cfg.SourceTree)
	if err := discovery.Run(discovery.Options{
		SourceTree:      cfg.SourceTree,
		TargetTree:      cfg.TargetTree,
		IncludePatterns: cfg.IncludePatternsCompiled(),
		ExcludePatterns: cfg.ExcludePatternsCompiled(),
		Progress:        e.Progress,
	}); err != nil {
		return 1, errors.Wrap(err, "discovery phase")
	}

	logging.Info("digesting tracked files")
	if err := digest.Run(digest.Options{
		SourceTree: cfg.SourceTree,
		TargetTree: cfg.TargetTree,
		Jobs:       cfg.Jobs,
		Progress:   e.Progress,
		ToolIdx:    0,
	}); err != nil {
		return 1, errors.Wrap(err, "digest phase")
	}

	logging.Info("mapping dependencies")
	if err := depmap.Run(depmap.Options{
		SourceTree:         cfg.SourceTree,
		TargetTree:         cfg.TargetTree,
		Jobs:               cfg.Jobs,
		Progress:           e.Progress,
		ToolIdx:            0,
		DepProbe:           cfg.DepProbe,
		Env:                cfg.EnvOrOS(),
		SwallowProbeErrors: cfg.SwallowProbeErrors,
	}); err != nil {
		return 1, errors.Wrap(err, "dependency mapper phase")
	}

	var mergedLog *mergelog.Log
	if cfg.MergeLog != "" {
		var err error
		mergedLog, err = mergelog.Open(cfg.MergeLog)
		if err != nil {
			return 1, errors.Wrap(err, "opening merged log")
		}
		defer mergedLog.Close()
	}

	status := 0
	tools := cfg.ToolList()
	for idx, tool := range tools {
		if cfg.FailFast && status != 0 {
			logging.Warning("fail_fast: skipping remaining tools after %s", tools[idx-1].Name())
			break
		}
		logging.Info("running tool: %s", tool.Name())
		code, err := toolrunner.Run(toolrunner.Options{
			SourceTree: cfg.SourceTree,
			TargetTree: cfg.TargetTree,
			Tool:       tool,
			Env:        cfg.EnvOrOS(),
			FailFast:   cfg.FailFast,
			MergedLog:  mergedLog,
			Progress:   e.Progress,
			Jobs:       cfg.Jobs,
			ToolIdx:    idx + 1,
		})
		status |= code
		if err != nil {
			return status, errors.Wrapf(err, "tool runner phase (%s)", tool.Name())
		}
	}
	return status, nil
}

// RunWatch runs RunOnce once immediately, then again every time fsnotify
// observes a write/create/remove/rename under the source tree, debounced so
// a burst of edits (an editor's save, a git checkout) collapses into one
// rerun. It returns only when ctx is cancelled or a fatal error occurs.
//
// Grounded on SPEC_FULL.md §4.6's watch-mode addition; the original had no
// equivalent (makelint ran once per invocation and relied on an external
// file watcher or Makefile rule).
func (e *Engine) RunWatch(ctx context.Context, debounce time.Duration) (int, error) {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}

	status, err := e.RunOnce()
	if err != nil {
		return status, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return status, errors.Wrap(err, "starting filesystem watcher")
	}
	defer watcher.Close()

	if err := addTreeRecursive(watcher, e.Config.SourceTree, e.Config.SourceTree, e.Config.ExcludePatternsCompiled()); err != nil {
		return status, errors.Wrap(err, "watching source tree")
	}

	var timer *time.Timer
	timerC := func() <-chan time.Time {
		if timer == nil {
			return nil
		}
		return timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return status, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return status, nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create && pathutil.IsDir(event.Name) {
				_ = watcher.Add(event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return status, nil
			}
			logging.Error("watch", watchErr)

		case <-timerC():
			timer = nil
			logging.Info("change detected, rerunning")
			status, err = e.RunOnce()
			if err != nil {
				return status, err
			}
		}
	}
}

// addTreeRecursive registers dir and every surviving subdirectory with
// watcher. fsnotify watches are not recursive on any platform, so the
// engine mirrors Discovery's own exclude-pattern filtering here to avoid
// watching directories the pipeline would prune anyway (vendor trees,
// caches, the mirror tree itself if it's nested under the source tree).
func addTreeRecursive(watcher *fsnotify.Watcher, root, dir string, excludes []*regexp.Regexp) error {
	if err := watcher.Add(dir); err != nil {
		return err
	}
	names, err := pathutil.SubdirNames(dir)
	if err != nil {
		return nil
	}
	for _, name := range names {
		childDir := filepath.Join(dir, name)
		rel, _ := pathutil.RelPath(root, childDir)
		if matchesAny(excludes, rel) {
			continue
		}
		if err := addTreeRecursive(watcher, root, childDir, excludes); err != nil {
			return err
		}
	}
	return nil
}

func matchesAny(patterns []*regexp.Regexp, relpath string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(relpath) {
			return true
		}
	}
	return false
}
