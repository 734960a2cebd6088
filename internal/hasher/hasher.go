// Package hasher computes the content digest of a single file: spec.md
// §4.1 in its entirety. It is the leaf of the engine's dependency graph -
// every other phase either produces or consumes a ".sha1" sidecar this
// package writes.
package hasher

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

const chunkSize = 4096

// DigestFile streams sourcePath in 4 KiB chunks through SHA-1 and writes the
// lowercase hex digest, followed by a newline, to digestPath. Any read or
// write failure is fatal to the caller (no retries, matching the original).
func DigestFile(sourcePath, digestPath string) error {
	infile, err := os.Open(sourcePath)
	if err != nil {
		return errors.Wrapf(err, "opening %s for digest", sourcePath)
	}
	defer infile.Close()

	hash := sha1.New()
	buffer := make([]byte, chunkSize)
	// Wrapping infile hides *os.File's WriteTo, which io.CopyBuffer would
	// otherwise use in place of buffer.
	if _, err := io.CopyBuffer(hash, struct{ io.Reader }{infile}, buffer); err != nil {
		return errors.Wrapf(err, "reading %s for digest", sourcePath)
	}

	outfile, err := os.Create(digestPath)
	if err != nil {
		return errors.Wrapf(err, "creating digest %s", digestPath)
	}
	defer outfile.Close()

	if _, err := outfile.WriteString(hex.EncodeToString(hash.Sum(nil)) + "\n"); err != nil {
		return errors.Wrapf(err, "writing digest %s", digestPath)
	}
	return nil
}

// DigestBytes is a small helper used by the dependency mapper to hash its
// own already-in-memory dep-map document without a round trip through disk
// before the final write.
func DigestBytes(content []byte) string {
	hash := sha1.Sum(content)
	return hex.EncodeToString(hash[:])
}

// ReadDigest reads and trims a previously written digest sidecar.
func ReadDigest(digestPath string) (string, error) {
	content, err := os.ReadFile(digestPath)
	if err != nil {
		return "", err
	}
	return trimNewline(content), nil
}

func trimNewline(content []byte) string {
	for len(content) > 0 && (content[len(content)-1] == '\n' || content[len(content)-1] == '\r') {
		content = content[:len(content)-1]
	}
	return string(content)
}
