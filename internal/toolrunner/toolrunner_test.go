package toolrunner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshyorko/makelint/internal/depmap"
	"github.com/joshyorko/makelint/internal/discovery"
	"github.com/joshyorko/makelint/internal/hasher"
	"github.com/joshyorko/makelint/internal/mergelog"
	"github.com/joshyorko/makelint/internal/progress"
	"github.com/joshyorko/makelint/internal/toolrunner"
)

// fakeTool is a minimal config.Tool stand-in that lets each test script the
// exit code and output without shelling out to a real binary.
type fakeTool struct {
	name    string
	results map[string]fakeResult
	calls   []string
}

type fakeResult struct {
	code   int
	output string
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) GetStamp(mirrorDir, filename string) string {
	return filepath.Join(mirrorDir, filename+"."+f.name)
}

func (f *fakeTool) Execute(sourceTree, sourceRelpath string, env map[string]string, out *os.File) int {
	f.calls = append(f.calls, sourceRelpath)
	result := f.results[sourceRelpath]
	if result.output != "" {
		out.WriteString(result.output)
	}
	return result.code
}

func setup(t *testing.T) (source, target string) {
	t.Helper()
	source = t.TempDir()
	target = t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(source, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(target, discovery.ManifestFilename), []byte("a.go\n"), 0o644))

	depContent := []byte(`[]`)
	depPath := filepath.Join(target, "a.go"+depmap.DepSuffix)
	require.NoError(t, os.WriteFile(depPath, depContent, 0o644))
	digest := hasher.DigestBytes(depContent)
	require.NoError(t, os.WriteFile(depPath+".sha1", []byte(digest+"\n"), 0o644))
	return source, target
}

func TestRunSucceedsAndWritesStamp(t *testing.T) {
	source, target := setup(t)
	tool := &fakeTool{name: "lint", results: map[string]fakeResult{"a.go": {code: 0}}}

	status, err := toolrunner.Run(toolrunner.Options{
		SourceTree: source,
		TargetTree: target,
		Tool:       tool,
		Progress:   progress.Null,
		Jobs:       2,
	})
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Len(t, tool.calls, 1)

	stampPath := filepath.Join(target, "a.go.lint")
	depDigest, err := hasher.ReadDigest(filepath.Join(target, "a.go"+depmap.DepSuffix+".sha1"))
	require.NoError(t, err)
	stampDigest, err := hasher.ReadDigest(stampPath)
	require.NoError(t, err)
	require.Equal(t, depDigest, stampDigest)
}

func TestRunSkipsUpToDateFile(t *testing.T) {
	source, target := setup(t)
	tool := &fakeTool{name: "lint", results: map[string]fakeResult{"a.go": {code: 0}}}

	opts := toolrunner.Options{SourceTree: source, TargetTree: target, Tool: tool, Progress: progress.Null, Jobs: 1}
	_, err := toolrunner.Run(opts)
	require.NoError(t, err)
	require.Len(t, tool.calls, 1)

	_, err = toolrunner.Run(opts)
	require.NoError(t, err)
	require.Len(t, tool.calls, 1, "second run must not re-invoke the tool for an up-to-date stamp")
}

func TestRunRecordsFailureAndAppendsMergedLog(t *testing.T) {
	source, target := setup(t)
	tool := &fakeTool{name: "lint", results: map[string]fakeResult{"a.go": {code: 1, output: "E: broken\n"}}}

	logPath := filepath.Join(target, "merged.log")
	log, err := mergelog.Open(logPath)
	require.NoError(t, err)

	status, err := toolrunner.Run(toolrunner.Options{
		SourceTree: source,
		TargetTree: target,
		Tool:       tool,
		Progress:   progress.Null,
		Jobs:       1,
		MergedLog:  log,
	})
	require.NoError(t, err)
	require.Equal(t, 1, status)
	require.NoError(t, log.Close())

	stampPath := filepath.Join(target, "a.go.lint")
	content, err := os.ReadFile(stampPath)
	require.NoError(t, err)
	require.Equal(t, "fail", string(content))

	merged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(merged), "a.go")
	require.Contains(t, string(merged), "E: broken")
}

func TestRunReplaysCachedFailure(t *testing.T) {
	source, target := setup(t)
	tool := &fakeTool{name: "lint", results: map[string]fakeResult{"a.go": {code: 1, output: "E: broken\n"}}}

	firstLogPath := filepath.Join(target, "merged1.log")
	firstLog, err := mergelog.Open(firstLogPath)
	require.NoError(t, err)
	_, err = toolrunner.Run(toolrunner.Options{
		SourceTree: source, TargetTree: target, Tool: tool,
		Progress: progress.Null, Jobs: 1, MergedLog: firstLog,
	})
	require.NoError(t, err)
	require.NoError(t, firstLog.Close())
	require.Len(t, tool.calls, 1)

	secondLogPath := filepath.Join(target, "merged2.log")
	secondLog, err := mergelog.Open(secondLogPath)
	require.NoError(t, err)
	status, err := toolrunner.Run(toolrunner.Options{
		SourceTree: source, TargetTree: target, Tool: tool,
		Progress: progress.Null, Jobs: 1, MergedLog: secondLog,
	})
	require.NoError(t, err)
	require.NoError(t, secondLog.Close())

	require.Equal(t, 1, status)
	require.Len(t, tool.calls, 1, "a cached failure must not re-invoke the tool")

	merged, err := os.ReadFile(secondLogPath)
	require.NoError(t, err)
	require.Contains(t, string(merged), "(cached)")
}
