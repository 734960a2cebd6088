// Package pathutil centralizes the filesystem primitives the engine's
// phases share, the way the teacher's pathlib package does for rcc.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Exists reports whether pathname exists at all (file or directory).
func Exists(pathname string) bool {
	_, err := os.Stat(pathname)
	return err == nil
}

// IsDir reports whether pathname exists and is a directory.
func IsDir(pathname string) bool {
	stat, err := os.Stat(pathname)
	return err == nil && stat.IsDir()
}

// ModTime returns the modification time of pathname, or the zero time if it
// does not exist.
func ModTime(pathname string) time.Time {
	stat, err := os.Stat(pathname)
	if err != nil {
		return time.Time{}
	}
	return stat.ModTime()
}

// NewerThan reports whether a's mtime is strictly after b's. Missing files
// are treated as infinitely old, so a missing `a` is never newer and a
// missing `b` makes any existing `a` newer.
func NewerThan(a, b string) bool {
	return ModTime(a).After(ModTime(b))
}

// EnsureDirectory creates pathname (and parents) if it does not already
// exist, returning the path for chaining.
func EnsureDirectory(pathname string) (string, error) {
	if IsDir(pathname) {
		return pathname, nil
	}
	if err := os.MkdirAll(pathname, 0o755); err != nil {
		return "", err
	}
	return pathname, nil
}

// EnsureParentDirectory ensures the parent directory of filename exists.
func EnsureParentDirectory(filename string) (string, error) {
	return EnsureDirectory(filepath.Dir(filename))
}

// RelPath is filepath.Rel with the original's "." -> "" normalization, so
// path joins against an empty relative root behave the same as joining
// against the root itself (os.path.join("", "foo") == "foo" in Python).
func RelPath(base, target string) (string, error) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// ReadTrimmed reads pathname and returns its content with surrounding
// whitespace trimmed, the way stamp/digest sidecar files are compared.
func ReadTrimmed(pathname string) (string, error) {
	content, err := os.ReadFile(pathname)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

// SubdirNames returns the names of direct child directories of dir.
func SubdirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
