// Package mergelog implements the shared failure log spec.md §4.5/§5
// describes: multiple tool-runner workers append "header + body" blocks to
// one file, serialized with an OS advisory exclusive lock so the blocks
// never interleave (the original's fcntl.flock(merged_log, LOCK_EX)).
//
// Split unix/windows the way the teacher splits htfs/mount_unix.go and
// htfs/mount_windows.go for platform-specific filesystem primitives.
package mergelog

import (
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Log is a handle on the merged log file. One Log is shared by every
// worker in a single Tool Runner phase invocation.
type Log struct {
	file *os.File
	mu   sync.Mutex
}

// Open creates/truncates path for a fresh merged-log run. Matches the
// original's open(cfg.merge_log, "w").
func Open(path string) (*Log, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening merged log %s", path)
	}
	return &Log{file: file}, nil
}

// Append writes one header+body block under an exclusive lock, reading the
// body from logPath. A write failure here is fatal per spec.md §7.
func (l *Log) Append(header, logPath string) error {
	if l == nil {
		return nil
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		return errors.Wrapf(err, "reading log %s", logPath)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := lockExclusive(l.file); err != nil {
		return errors.Wrap(err, "locking merged log")
	}
	defer unlock(l.file)

	if _, err := fmt.Fprintf(l.file, "%s\n%s\n", header, underline(header)); err != nil {
		return err
	}
	if _, err := l.file.Write(content); err != nil {
		return err
	}
	if _, err := l.file.WriteString("\n\n"); err != nil {
		return err
	}
	return nil
}

func underline(header string) string {
	out := make([]byte, len(header))
	for i := range out {
		out[i] = '='
	}
	return string(out)
}

// Close closes the merged log file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.file.Close()
}
