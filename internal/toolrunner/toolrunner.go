// Package toolrunner implements spec.md §4.5: for each (file, tool) pair,
// decide freshness against the dependency-map digest, invoke the tool in a
// child process, write a stamp, and optionally append failure output to a
// merged log.
//
// Grounded on makelint/__init__.py:execute_tool_ontree,
// toolstamp_is_uptodate, cat_log.
package toolrunner

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/joshyorko/makelint/internal/config"
	"github.com/joshyorko/makelint/internal/depmap"
	"github.com/joshyorko/makelint/internal/discovery"
	"github.com/joshyorko/makelint/internal/logging"
	"github.com/joshyorko/makelint/internal/mergelog"
	"github.com/joshyorko/makelint/internal/pathutil"
	"github.com/joshyorko/makelint/internal/progress"
	"github.com/joshyorko/makelint/internal/walktree"
	"github.com/joshyorko/makelint/internal/workerpool"
)

const failStampContent = "fail"

// errStopWalk unwinds walktree.Walk early once fail-fast has tripped or a
// fatal error has been recorded; it is never surfaced to the caller.
var errStopWalk = errors.New("toolrunner: stop walk")

// Options configures one Tool Runner pass (one call per configured tool,
// per spec.md §4.6).
type Options struct {
	SourceTree string
	TargetTree string
	Tool       config.Tool
	Env        map[string]string
	FailFast   bool
	MergedLog  *mergelog.Log
	Progress   progress.Sink
	Jobs       int
	ToolIdx    int
}

// Run executes opts.Tool against every tracked file whose stamp is not
// fresh. The returned int is the OR-accumulated exit status across every
// (file, tool) outcome this run observed, including replayed cached
// failures - never fatal by itself. The returned error is reserved for
// fatal filesystem/merged-log failures (spec.md §7), at which point the
// run aborts without finishing the remaining files.
func Run(opts Options) (int, error) {
	pool := workerpool.New(opts.Jobs)
	defer pool.Close()

	opts.Progress.Update(progress.Counters{ToolIdx: opts.ToolIdx, Tool: opts.Tool.Name()})

	var (
		mu            sync.Mutex
		cachedFailure int
		fatalErr      error
	)
	setFatal := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if fatalErr == nil {
			fatalErr = err
		}
	}
	isFatal := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fatalErr != nil
	}

	fileIdx := 0
	walkErr := walktree.Walk(opts.TargetTree, func(targetDir, relDir string) error {
		if isFatal() {
			return errStopWalk
		}

		filenames := discovery.ReadManifest(filepath.Join(targetDir, discovery.ManifestFilename))
		sort.Strings(filenames)

		for _, filename := range filenames {
			if opts.FailFast {
				select {
				case <-pool.Cancelled():
					return errStopWalk
				default:
				}
			}

			fileIdx++
			opts.Progress.Update(progress.Counters{FileIdx: fileIdx})

			sourceRelpath := filepath.Join(relDir, filename)
			stampPath := opts.Tool.GetStamp(targetDir, filename)
			depPath := filepath.Join(targetDir, filename+depmap.DepSuffix)
			logPath := stampPath + ".log"

			if isUpToDate(stampPath, depPath) {
				content, _ := pathutil.ReadTrimmed(stampPath)
				if content != failStampContent {
					continue
				}
				mu.Lock()
				cachedFailure = 1
				mu.Unlock()

				header := sourceRelpath + " (cached)"
				if err := opts.MergedLog.Append(header, logPath); err != nil {
					setFatal(errors.Wrap(err, "appending cached failure to merged log"))
					return errStopWalk
				}
				if opts.FailFast {
					pool.Cancel()
					return errStopWalk
				}
				continue
			}

			if pathutil.Exists(stampPath) {
				os.Remove(stampPath)
			}

			relpath, stamp, dep, log := sourceRelpath, stampPath, depPath, logPath
			pool.Submit(func() int {
				code, err := runOne(opts, relpath, stamp, dep, log)
				if err != nil {
					setFatal(err)
					return 1
				}
				if code != 0 && opts.FailFast {
					pool.Cancel()
				}
				return code
			})
		}
		return nil
	})
	if walkErr != nil && walkErr != errStopWalk {
		return cachedFailure, walkErr
	}

	poolStatus := pool.Wait()
	status := cachedFailure | poolStatus

	if fatalErr != nil {
		return status, fatalErr
	}
	return status, nil
}

// isUpToDate implements toolstamp_is_uptodate: fast path (a) mtime(stamp) >
// mtime(depmap), authoritative path (b) content(stamp) == content(dep.sha1).
func isUpToDate(stampPath, depPath string) bool {
	if !pathutil.Exists(stampPath) {
		return false
	}
	if pathutil.NewerThan(stampPath, depPath) {
		return true
	}
	stampContent, err := pathutil.ReadTrimmed(stampPath)
	if err != nil {
		return false
	}
	digestContent, err := pathutil.ReadTrimmed(depPath + ".sha1")
	if err != nil {
		return false
	}
	return stampContent == digestContent
}

// runOne is the child worker: spec.md §4.5's "Child worker" steps.
func runOne(opts Options, sourceRelpath, stampPath, depPath, logPath string) (int, error) {
	logfile, err := os.Create(logPath)
	if err != nil {
		return 1, errors.Wrapf(err, "creating log %s", logPath)
	}

	result := opts.Tool.Execute(opts.SourceTree, sourceRelpath, opts.Env, logfile)
	logfile.Close()

	if result == 0 {
		logging.Debug("%s: okay", stampPath)
		digestPath := depPath + ".sha1"
		content, err := os.ReadFile(digestPath)
		if err != nil {
			return 1, errors.Wrapf(err, "reading dep digest %s", digestPath)
		}
		if err := os.WriteFile(stampPath, content, 0o644); err != nil {
			return 1, errors.Wrapf(err, "writing stamp %s", stampPath)
		}
		os.Remove(logPath)
		return 0, nil
	}

	logging.Info("%s: failed", stampPath)
	if err := os.WriteFile(stampPath, []byte(failStampContent), 0o644); err != nil {
		return 1, errors.Wrapf(err, "writing fail stamp %s", stampPath)
	}
	if err := opts.MergedLog.Append(sourceRelpath, logPath); err != nil {
		return 1, errors.Wrap(err, "appending failure to merged log")
	}
	return 1, nil
}
