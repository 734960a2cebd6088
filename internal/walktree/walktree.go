// Package walktree provides the stable, mirror-tree-only directory walk
// that the Digester, Dependency Mapper, and Tool Runner phases all share.
// Walking the mirror (not the source) tree after Discovery means later
// phases get a consistent view of "tracked files" for the rest of the run,
// per spec.md §4.3's rationale.
package walktree

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Visit is called once per mirror directory, in stable (sorted)
// directory-name order, with the absolute mirror directory path and its
// path relative to the mirror tree root ("" for the root itself).
type Visit func(targetDir, relDir string) error

// Walk performs a depth-first, name-sorted walk of targetTree, matching the
// original's `dirnames[:] = sorted(dirnames)` stable-walk convention.
func Walk(targetTree string, visit Visit) error {
	return walk(targetTree, targetTree, "", visit)
}

func walk(targetTree, dir, relDir string, visit Visit) error {
	if err := visit(dir, relDir); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "reading mirror directory %s", dir)
	}
	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
		}
	}
	sort.Strings(subdirs)

	for _, name := range subdirs {
		childDir := filepath.Join(dir, name)
		childRel := filepath.Join(relDir, name)
		if err := walk(targetTree, childDir, childRel, visit); err != nil {
			return err
		}
	}
	return nil
}
