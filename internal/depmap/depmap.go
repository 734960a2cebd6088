// Package depmap implements spec.md §4.4: the Dependency Mapper phase.
//
// For each tracked file it produces a JSON dependency map (".dep") plus the
// map's own content digest (".dep.sha1"), and it decides whether an
// existing map is still fresh before deciding to re-probe.
//
// Grounded on makelint/__init__.py:map_dependencies,
// map_sourcetree_dependencies, depmap_is_uptodate.
package depmap

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"github.com/joshyorko/makelint/internal/discovery"
	"github.com/joshyorko/makelint/internal/hasher"
	"github.com/joshyorko/makelint/internal/logging"
	"github.com/joshyorko/makelint/internal/pathutil"
	"github.com/joshyorko/makelint/internal/progress"
	"github.com/joshyorko/makelint/internal/walktree"
	"github.com/joshyorko/makelint/internal/workerpool"
)

const (
	DepSuffix       = ".dep"
	DepDigestSuffix = ".dep.sha1"
)

// Item is one entry of a dependency map: spec.md §3's DependencyItem.
// Path is either source-tree-relative (Digest set from that file's current
// ".sha1" sidecar, if any) or absolute (Digest empty/null).
type Item struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Digest string `json:"digest,omitempty"`
}

// Options configures one Dependency Mapper run.
type Options struct {
	SourceTree         string
	TargetTree         string
	Jobs               int
	Progress           progress.Sink
	ToolIdx            int
	DepProbe           string
	Env                map[string]string
	SwallowProbeErrors bool
}

// Run ensures every tracked file has a fresh dependency map.
func Run(opts Options) error {
	pool := workerpool.New(opts.Jobs)
	defer pool.Close()

	fileIdx := 0
	var errMu sync.Mutex
	var firstErr error
	recordErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	opts.Progress.Update(progress.Counters{ToolIdx: opts.ToolIdx, Tool: "depmap"})

	err := walktree.Walk(opts.TargetTree, func(targetDir, relDir string) error {
		filenames := discovery.ReadManifest(filepath.Join(targetDir, discovery.ManifestFilename))
		sort.Strings(filenames)

		for _, filename := range filenames {
			fileIdx++
			opts.Progress.Update(progress.Counters{FileIdx: fileIdx})

			relFile := filepath.Join(relDir, filename)
			if IsUpToDate(opts.SourceTree, opts.TargetTree, relFile) {
				continue
			}
			pool.Submit(func() int {
				if err := mapOne(opts, relFile); err != nil {
					recordErr(errors.Wrapf(err, "mapping dependencies for %s", relFile))
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

// mapOne invokes the probe subprocess for one file and writes its ".dep"
// and ".dep.sha1" sidecars. Grounded on map_dependencies.
func mapOne(opts Options, relFile string) error {
	logging.Debug("mapping dependencies: %s", relFile)

	depPath := filepath.Join(opts.TargetTree, relFile+DepSuffix)
	if _, err := pathutil.EnsureParentDirectory(depPath); err != nil {
		return err
	}

	argv, err := shlex.Split(opts.DepProbe)
	if err != nil || len(argv) == 0 {
		return errors.New("dep_probe command is empty or invalid")
	}
	argv = append(argv, "--module-relpath", relFile, "--source-tree", opts.SourceTree, "--target-tree", opts.TargetTree)

	cmd := exec.Command(argv[0], argv[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	cmd.Env = envSlice(opts.Env)

	runErr := cmd.Run()
	if runErr != nil && !opts.SwallowProbeErrors {
		return errors.Wrapf(runErr, "probe failed for %s", relFile)
	}
	if runErr != nil {
		logging.Debug("probe exited non-zero for %s (accepting partial output): %v", relFile, runErr)
	}

	content := stdout.Bytes()
	if len(content) == 0 {
		content = []byte("[]\n")
	}
	if err := os.WriteFile(depPath, content, 0o644); err != nil {
		return errors.Wrapf(err, "writing dep map %s", depPath)
	}

	digestPath := depPath + ".sha1"
	digest := hasher.DigestBytes(content)
	if err := os.WriteFile(digestPath, []byte(digest+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "writing dep map digest %s", digestPath)
	}
	return nil
}

func envSlice(env map[string]string) []string {
	if env == nil {
		return os.Environ()
	}
	out := make([]string, 0, len(env))
	for key, value := range env {
		out = append(out, key+"="+value)
	}
	return out
}

// IsUpToDate implements depmap_is_uptodate: the map is fresh exactly when
// every rule in spec.md §4.4's freshness check holds.
func IsUpToDate(sourceTree, targetTree, relFile string) bool {
	depPath := filepath.Join(targetTree, relFile+DepSuffix)
	digestPath := depPath + ".sha1"

	if !pathutil.Exists(depPath) || !pathutil.Exists(digestPath) {
		return false
	}

	depMtime := pathutil.ModTime(depPath)
	digestMtime := pathutil.ModTime(digestPath)
	if digestMtime.Before(depMtime) {
		logging.Warning("depmap mtime is later than its digest: %s", relFile)
		return false
	}

	items, err := readItems(depPath)
	if err != nil {
		return false
	}

	for _, item := range items {
		if filepath.IsAbs(item.Path) {
			if !pathutil.Exists(item.Path) {
				logging.Debug("%s disappeared", item.Path)
				return false
			}
			if pathutil.ModTime(item.Path).After(depMtime) {
				logging.Debug("%s is newer", item.Path)
				return false
			}
			continue
		}

		itemDigestPath := filepath.Join(targetTree, item.Path+".sha1")
		itemSourcePath := filepath.Join(sourceTree, item.Path)
		if !pathutil.Exists(itemDigestPath) {
			// No digest sidecar means this dependency was excluded from
			// tracking during Discovery, but the source file itself may
			// still exist - treated as an excluded-but-extant external.
			if !pathutil.Exists(itemSourcePath) {
				logging.Debug("%s disappeared", item.Path)
				return false
			}
			if pathutil.ModTime(itemSourcePath).After(depMtime) {
				logging.Debug("%s is newer", item.Path)
				return false
			}
			continue
		}

		if pathutil.ModTime(itemDigestPath).Before(depMtime) {
			// The dependency map is newer than this particular file, so
			// this file does not invalidate it.
			continue
		}

		digest, err := hasher.ReadDigest(itemDigestPath)
		if err != nil {
			return false
		}
		if digest == item.Digest {
			continue
		}
		return false
	}
	return true
}

func readItems(depPath string) ([]Item, error) {
	content, err := os.ReadFile(depPath)
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, err
	}
	return items, nil
}
