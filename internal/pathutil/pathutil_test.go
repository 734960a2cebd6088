package pathutil_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshyorko/makelint/internal/pathutil"
)

func TestExistsAndIsDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	require.True(t, pathutil.Exists(dir))
	require.True(t, pathutil.Exists(file))
	require.True(t, pathutil.IsDir(dir))
	require.False(t, pathutil.IsDir(file))
	require.False(t, pathutil.Exists(filepath.Join(dir, "missing")))
}

func TestNewerThan(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "older.txt")
	newer := filepath.Join(dir, "newer.txt")
	require.NoError(t, os.WriteFile(older, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	require.NoError(t, os.WriteFile(newer, []byte("x"), 0o644))

	require.True(t, pathutil.NewerThan(newer, older))
	require.False(t, pathutil.NewerThan(older, newer))
	require.False(t, pathutil.NewerThan(filepath.Join(dir, "missing"), older))
}

func TestEnsureDirectoryAndParent(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	_, err := pathutil.EnsureDirectory(nested)
	require.NoError(t, err)
	require.True(t, pathutil.IsDir(nested))

	file := filepath.Join(dir, "d", "e", "f.txt")
	_, err = pathutil.EnsureParentDirectory(file)
	require.NoError(t, err)
	require.True(t, pathutil.IsDir(filepath.Join(dir, "d", "e")))
}

func TestRelPath(t *testing.T) {
	rel, err := pathutil.RelPath("/a/b", "/a/b")
	require.NoError(t, err)
	require.Equal(t, "", rel)

	rel, err = pathutil.RelPath("/a/b", "/a/b/c.txt")
	require.NoError(t, err)
	require.Equal(t, "c.txt", rel)
}

func TestReadTrimmed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stamp")
	require.NoError(t, os.WriteFile(path, []byte("  abc123  \n"), 0o644))

	content, err := pathutil.ReadTrimmed(path)
	require.NoError(t, err)
	require.Equal(t, "abc123", content)
}

func TestSubdirNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub1"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644))

	names, err := pathutil.SubdirNames(dir)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"sub1", "sub2"}, names)
}
