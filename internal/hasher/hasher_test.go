package hasher_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshyorko/makelint/internal/hasher"
)

func TestDigestFileMatchesKnownSHA1(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(source, []byte("hello world\n"), 0o644))

	digestPath := filepath.Join(dir, "hello.txt.sha1")
	require.NoError(t, hasher.DigestFile(source, digestPath))

	digest, err := hasher.ReadDigest(digestPath)
	require.NoError(t, err)
	require.Equal(t, "22596363b3de40b06f981fb85d82312e8c0ed511", digest)
}

func TestDigestBytesMatchesDigestFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`[{"path":"a.go","name":"a.go"}]`)
	source := filepath.Join(dir, "dep.json")
	require.NoError(t, os.WriteFile(source, content, 0o644))

	digestPath := filepath.Join(dir, "dep.json.sha1")
	require.NoError(t, hasher.DigestFile(source, digestPath))
	fromFile, err := hasher.ReadDigest(digestPath)
	require.NoError(t, err)

	require.Equal(t, fromFile, hasher.DigestBytes(content))
}

func TestReadDigestMissingFile(t *testing.T) {
	_, err := hasher.ReadDigest(filepath.Join(t.TempDir(), "missing.sha1"))
	require.Error(t, err)
}
