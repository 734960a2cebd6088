// Command makelint-depprobe is the default dependency-probe: given one Go
// source file, relative to a source tree, it prints a JSON array holding the
// file itself plus every file inside that same source tree it imports,
// directly or transitively.
//
// This is the concrete default for spec.md §6.3's probe contract: it is
// invoked as `makelint-depprobe --module-relpath <rel> --source-tree <dir>
// --target-tree <dir>` and writes `[{"path":...,"name":...,"digest":...}]`
// to stdout. The probe owns content-digest lookups for the files it
// reports (via their existing ".sha1" sidecars in the mirror tree), never
// the core engine - keeping the engine itself free of any import-graph
// knowledge, per SPEC_FULL.md §6.3/§9.
//
// Grounded on makelint/get_dependencies.py, which inspected sys.modules
// after exec()'ing the target file - a trick with no Go analogue. Go's own
// go/parser + go/ast import-list inspection is the idiomatic stand-in: it
// resolves imports statically, instead of by executing the file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type dependencyItem struct {
	Path   string `json:"path"`
	Name   string `json:"name"`
	Digest string `json:"digest,omitempty"`
}

func main() {
	var moduleRelpath, sourceTree, targetTree string
	flag.StringVar(&moduleRelpath, "module-relpath", "", "File to probe, relative to --source-tree.")
	flag.StringVar(&sourceTree, "source-tree", "", "Root of the source tree.")
	flag.StringVar(&targetTree, "target-tree", "", "Root of the mirror tree (for digest lookups).")
	flag.Parse()

	if moduleRelpath == "" || sourceTree == "" {
		fmt.Fprintln(os.Stderr, "makelint-depprobe: --module-relpath and --source-tree are required")
		os.Exit(1)
	}

	items, err := probe(sourceTree, targetTree, moduleRelpath)
	if err != nil {
		// Swallowing policy lives in the caller (internal/depmap, per
		// cfg.SwallowProbeErrors); a probe always exits non-zero on a real
		// failure and still emits whatever partial list it has.
		fmt.Fprintf(os.Stderr, "makelint-depprobe: %v\n", err)
		emit(items)
		os.Exit(1)
	}
	emit(items)
}

func emit(items []dependencyItem) {
	if items == nil {
		items = []dependencyItem{}
	}
	out, err := json.Marshal(items)
	if err != nil {
		fmt.Fprintln(os.Stderr, "makelint-depprobe: marshaling output:", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}

// probe parses the target file's import declarations and reports every
// import path that resolves to a directory inside sourceTree, following the
// imports of each reported file in turn - the file's transitive same-module
// dependency closure - plus a self-entry for moduleRelpath
// itself. Standard-library and third-party module imports are not
// reported: they are not tracked files the engine has a cache entry for,
// so they can never invalidate a stamp per spec.md's model.
//
// The self-entry matters because a file never imports its own package: without
// it, depmap.IsUpToDate would see an unchanged item set across a content-only
// edit and never rewrite the dependency map, leaving the tool stamp's mtime
// fast path stale and the tool never re-run on the changed file.
func probe(sourceTree, targetTree, moduleRelpath string) ([]dependencyItem, error) {
	absPath := filepath.Join(sourceTree, moduleRelpath)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, absPath, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	items := []dependencyItem{selfItem(targetTree, moduleRelpath)}
	seen[moduleRelpath] = true

	modulePath, moduleRoot, err := resolveModule(sourceTree)
	if err != nil {
		// No go.mod reachable from the source tree: nothing can resolve to
		// an in-tree package, so the rest of the dependency closure is
		// empty - a file outside any module has no trackable same-module
		// imports - but the self-entry above still stands.
		return items, nil
	}

	pending := file.Imports
	for len(pending) > 0 {
		imp := pending[0]
		pending = pending[1:]
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(importPath, modulePath) {
			continue
		}
		pkgRel := strings.TrimPrefix(strings.TrimPrefix(importPath, modulePath), "/")
		pkgDir := filepath.Join(moduleRoot, filepath.FromSlash(pkgRel))

		files, err := packageGoFiles(pkgDir)
		if err != nil {
			continue
		}
		for _, filename := range files {
			relFromSource, err := filepath.Rel(sourceTree, filepath.Join(pkgDir, filename))
			if err != nil || strings.HasPrefix(relFromSource, "..") {
				continue
			}
			if seen[relFromSource] {
				continue
			}
			seen[relFromSource] = true

			// Queue this file's own imports so the closure is transitive.
			if dep, err := parser.ParseFile(fset, filepath.Join(pkgDir, filename), nil, parser.ImportsOnly); err == nil {
				pending = append(pending, dep.Imports...)
			}

			item := dependencyItem{Path: relFromSource, Name: filename}
			if targetTree != "" {
				if digest, ok := readDigest(filepath.Join(targetTree, relFromSource+".sha1")); ok {
					item.Digest = digest
				}
			}
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// selfItem builds the dependency item for the probed file itself, so its
// own digest gates depmap.IsUpToDate the same way any imported file's does.
func selfItem(targetTree, moduleRelpath string) dependencyItem {
	item := dependencyItem{Path: moduleRelpath, Name: filepath.Base(moduleRelpath)}
	if targetTree != "" {
		if digest, ok := readDigest(filepath.Join(targetTree, moduleRelpath+".sha1")); ok {
			item.Digest = digest
		}
	}
	return item
}

// resolveModule walks upward from dir looking for go.mod and returns the
// module's declared path plus the directory it lives in.
func resolveModule(dir string) (modulePath, moduleRoot string, err error) {
	current := dir
	for {
		gomod := filepath.Join(current, "go.mod")
		if content, readErr := os.ReadFile(gomod); readErr == nil {
			for _, line := range strings.Split(string(content), "\n") {
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "module ") {
					return strings.TrimSpace(strings.TrimPrefix(line, "module ")), current, nil
				}
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", "", fmt.Errorf("no go.mod found above %s", dir)
		}
		current = parent
	}
}

func packageGoFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func readDigest(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(content)), true
}
