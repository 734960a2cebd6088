package digest_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshyorko/makelint/internal/digest"
	"github.com/joshyorko/makelint/internal/discovery"
	"github.com/joshyorko/makelint/internal/hasher"
	"github.com/joshyorko/makelint/internal/pathutil"
	"github.com/joshyorko/makelint/internal/progress"
)

func setupMirror(t *testing.T, source, target string, files map[string]string) {
	t.Helper()
	for relpath, content := range files {
		full := filepath.Join(source, relpath)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	require.NoError(t, os.MkdirAll(target, 0o755))
	manifestDirs := map[string][]string{}
	for relpath := range files {
		dir := filepath.Dir(relpath)
		if dir == "." {
			dir = ""
		}
		manifestDirs[dir] = append(manifestDirs[dir], filepath.Base(relpath))
	}
	for dir, names := range manifestDirs {
		mirrorDir := filepath.Join(target, dir)
		require.NoError(t, os.MkdirAll(mirrorDir, 0o755))
		var contents string
		for _, name := range names {
			contents += name + "\n"
		}
		require.NoError(t, os.WriteFile(filepath.Join(mirrorDir, discovery.ManifestFilename), []byte(contents), 0o644))
	}
}

func TestRunWritesDigestForEachTrackedFile(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	setupMirror(t, source, target, map[string]string{
		"a.go":        "package a\n",
		"sub/b.go":    "package sub\n",
	})

	err := digest.Run(digest.Options{
		SourceTree: source,
		TargetTree: target,
		Jobs:       2,
		Progress:   progress.Null,
	})
	require.NoError(t, err)

	digestA, err := hasher.ReadDigest(filepath.Join(target, "a.go"+digest.SidecarSuffix))
	require.NoError(t, err)
	require.Len(t, digestA, 40)

	digestB, err := hasher.ReadDigest(filepath.Join(target, "sub", "b.go"+digest.SidecarSuffix))
	require.NoError(t, err)
	require.Len(t, digestB, 40)
}

func TestRunSkipsUpToDateDigest(t *testing.T) {
	source := t.TempDir()
	target := t.TempDir()
	setupMirror(t, source, target, map[string]string{"a.go": "package a\n"})

	opts := digest.Options{SourceTree: source, TargetTree: target, Jobs: 1, Progress: progress.Null}
	require.NoError(t, digest.Run(opts))

	digestPath := filepath.Join(target, "a.go"+digest.SidecarSuffix)
	before := pathutil.ModTime(digestPath)

	// Age the digest forward so it is unambiguously newer than the source
	// file even on filesystems with coarse mtime resolution, then rerun:
	// the digest must be left untouched since the source file didn't change.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(digestPath, future, future))

	require.NoError(t, digest.Run(opts))
	after := pathutil.ModTime(digestPath)
	require.Equal(t, future.Unix(), after.Unix())
	require.NotEqual(t, before.Unix(), after.Unix())
}
