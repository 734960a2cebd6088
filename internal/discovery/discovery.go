// Package discovery implements spec.md §4.2: the depth-first walk that
// produces one manifest per mirror directory and keeps the mirror tree's
// directory set in sync with the source tree's, net of exclude filters.
//
// Grounded on makelint/__init__.py:discover_sourcetree. Per SPEC_FULL.md's
// §4.2 note, this reimplementation fixes the original's relpath_dir-reuse
// bug (spec.md §9's third open question): each file's own relative path is
// checked against the exclude patterns, never a directory-loop leftover.
package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"

	"github.com/joshyorko/makelint/internal/logging"
	"github.com/joshyorko/makelint/internal/pathutil"
	"github.com/joshyorko/makelint/internal/progress"
)

const ManifestFilename = "manifest.txt"

// Options configures one Discovery run.
type Options struct {
	SourceTree      string
	TargetTree      string
	IncludePatterns []*regexp.Regexp
	ExcludePatterns []*regexp.Regexp
	Progress        progress.Sink
}

// Run performs the full walk described in spec.md §4.2.
func Run(opts Options) error {
	if _, err := pathutil.EnsureDirectory(opts.TargetTree); err != nil {
		return errors.Wrapf(err, "creating target tree %s", opts.TargetTree)
	}

	dirIdx := 0
	nDirs := 1
	err := walk(opts, opts.SourceTree, "", &dirIdx, &nDirs)
	opts.Progress.Update(progress.Counters{DirIdx: nDirs, NDirs: nDirs})
	return err
}

// walk processes one source directory (identified by its relative path) and
// recurses into its surviving children, mirroring os.walk's top-down order
// in the original but driven explicitly so we control recursion order and
// can prune before descending.
func walk(opts Options, sourceDir, relpath string, dirIdx, nDirs *int) error {
	*dirIdx++
	opts.Progress.Update(progress.Counters{DirIdx: *dirIdx, NDirs: *nDirs})

	targetDir := filepath.Join(opts.TargetTree, relpath)
	if _, err := pathutil.EnsureDirectory(targetDir); err != nil {
		return errors.Wrapf(err, "creating mirror directory %s", targetDir)
	}

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return errors.Wrapf(err, "reading directory %s", sourceDir)
	}

	var dirNames, fileNames []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirNames = append(dirNames, entry.Name())
		} else {
			fileNames = append(fileNames, entry.Name())
		}
	}
	sort.Strings(dirNames)
	sort.Strings(fileNames)

	var survivingDirs []string
	for _, name := range dirNames {
		if name == "." || name == ".." {
			continue
		}
		childRel := filepath.Join(relpath, name)
		if matchesAny(opts.ExcludePatterns, childRel) {
			continue
		}
		survivingDirs = append(survivingDirs, name)
	}
	*nDirs += len(survivingDirs)

	manifestPath := filepath.Join(targetDir, ManifestFilename)
	rewrite := true
	if pathutil.Exists(manifestPath) && pathutil.NewerThan(manifestPath, sourceDir) {
		rewrite = false
	}

	if rewrite {
		var survivingFiles []string
		for _, name := range fileNames {
			fileRel := filepath.Join(relpath, name)
			if matchesAny(opts.ExcludePatterns, fileRel) {
				continue
			}
			if !matchesAny(opts.IncludePatterns, fileRel) {
				continue
			}
			survivingFiles = append(survivingFiles, name)
		}
		if err := writeManifest(manifestPath, survivingFiles); err != nil {
			return errors.Wrapf(err, "writing manifest %s", manifestPath)
		}
	}

	if err := pruneStaleMirrors(targetDir, survivingDirs); err != nil {
		return err
	}

	for _, name := range survivingDirs {
		childSourceDir := filepath.Join(sourceDir, name)
		childRel := filepath.Join(relpath, name)
		if err := walk(opts, childSourceDir, childRel, dirIdx, nDirs); err != nil {
			return err
		}
	}
	return nil
}

func writeManifest(manifestPath string, fileNames []string) error {
	outfile, err := os.Create(manifestPath)
	if err != nil {
		return err
	}
	defer outfile.Close()
	for _, name := range fileNames {
		if _, err := outfile.WriteString(name + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// pruneStaleMirrors recursively deletes any mirror subdirectory whose
// source counterpart no longer survives filtering - the set difference
// spec.md §3's "Ownership and lifecycle" describes.
func pruneStaleMirrors(targetDir string, survivingDirs []string) error {
	mirrorDirs, err := pathutil.SubdirNames(targetDir)
	if err != nil {
		return errors.Wrapf(err, "listing mirror directory %s", targetDir)
	}
	keep := make(map[string]bool, len(survivingDirs))
	for _, name := range survivingDirs {
		keep[name] = true
	}
	for _, name := range mirrorDirs {
		if keep[name] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(targetDir, name)); err != nil {
			return errors.Wrapf(err, "removing stale mirror directory %s", name)
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

// ReadManifest reads a manifest's tracked base filenames.
//
// A malformed manifest (one that fails to open) is treated as empty and
// logged at warning level here - spec.md §7's "Manifest parse error" rule -
// rather than returned as a fatal error, so ReadManifest itself never fails
// the pipeline.
func ReadManifest(manifestPath string) []string {
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		logging.Warning("reading manifest %s, treating it as empty: %v", manifestPath, err)
		return nil
	}
	var names []string
	start := 0
	for i := 0; i <= len(content); i++ {
		if i == len(content) || content[i] == '\n' {
			line := string(content[start:i])
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			if line != "" {
				names = append(names, line)
			}
			start = i + 1
		}
	}
	return names
}
