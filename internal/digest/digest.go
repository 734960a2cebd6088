// Package digest implements spec.md §4.3: the Digester phase. It walks the
// mirror tree (never the source tree again after Discovery), reads each
// directory's manifest, and ensures a fresh ".sha1" sidecar exists for
// every tracked file.
//
// Grounded on makelint/__init__.py:digest_sourcetree_content.
package digest

import (
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/joshyorko/makelint/internal/discovery"
	"github.com/joshyorko/makelint/internal/hasher"
	"github.com/joshyorko/makelint/internal/pathutil"
	"github.com/joshyorko/makelint/internal/progress"
	"github.com/joshyorko/makelint/internal/walktree"
	"github.com/joshyorko/makelint/internal/workerpool"
)

const SidecarSuffix = ".sha1"

// Options configures one Digester run.
type Options struct {
	SourceTree string
	TargetTree string
	Jobs       int
	Progress   progress.Sink
	ToolIdx    int
}

// Run ensures every tracked file has an up-to-date content digest sidecar.
func Run(opts Options) error {
	pool := workerpool.New(opts.Jobs)
	defer pool.Close()

	fileIdx := 0
	nFiles := 0

	var errMu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	err := walktree.Walk(opts.TargetTree, func(targetDir, relDir string) error {
		filenames := discovery.ReadManifest(filepath.Join(targetDir, discovery.ManifestFilename))
		sort.Strings(filenames)
		nFiles += len(filenames)
		opts.Progress.Update(progress.Counters{NFiles: nFiles, ToolIdx: opts.ToolIdx, Tool: "sha1"})

		sourceDir := filepath.Join(opts.SourceTree, relDir)
		for _, filename := range filenames {
			fileIdx++
			opts.Progress.Update(progress.Counters{FileIdx: fileIdx})

			sourcePath := filepath.Join(sourceDir, filename)
			digestPath := filepath.Join(targetDir, filename+SidecarSuffix)
			if pathutil.Exists(digestPath) && pathutil.NewerThan(digestPath, sourcePath) {
				continue
			}
			sourcePath, digestPath := sourcePath, digestPath
			pool.Submit(func() int {
				if err := hasher.DigestFile(sourcePath, digestPath); err != nil {
					recordErr(errors.Wrapf(err, "digesting %s", sourcePath))
					return 1
				}
				return 0
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	pool.Wait()
	return firstErr
}
