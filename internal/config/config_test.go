package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshyorko/makelint/internal/config"
)

func TestDefaultConfiguration(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, []string{"flake8", "pylint"}, cfg.Tools)
	require.True(t, cfg.SwallowProbeErrors)
	require.Equal(t, "makelint-depprobe", cfg.DepProbe)
	require.Greater(t, cfg.Jobs, 0)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Default().Tools, cfg.Tools)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.Default().Jobs, cfg.Jobs)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".makelint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools: ["golangci-lint", "pylint"]
fail_fast: true
jobs: 3
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"golangci-lint", "pylint"}, cfg.Tools)
	require.True(t, cfg.FailFast)
	require.Equal(t, 3, cfg.Jobs)
}

func TestCompileResolvesToolsAndPatterns(t *testing.T) {
	cfg := config.Default()
	cfg.SourceTree = t.TempDir()
	cfg.IncludePatterns = []string{`\.go$`}
	cfg.Tools = []string{"pylint", "flake8"}

	require.NoError(t, cfg.Compile())
	require.Len(t, cfg.IncludePatternsCompiled(), 1)
	require.Len(t, cfg.ToolList(), 2)
	require.Equal(t, "pylint", cfg.ToolList()[0].Name())
}

func TestCompileRequiresSourceTree(t *testing.T) {
	cfg := config.Default()
	require.Error(t, cfg.Compile())
}

func TestCompileRejectsBadPattern(t *testing.T) {
	cfg := config.Default()
	cfg.SourceTree = t.TempDir()
	cfg.IncludePatterns = []string{"(unclosed"}
	require.Error(t, cfg.Compile())
}

func TestPylintGetsOutputFormatFlag(t *testing.T) {
	tool := config.NewSimpleTool("pylint")
	require.Equal(t, "pylint", tool.Name())
	require.Equal(t, []string{"pylint", "--output-format=text", "a.py"}, tool.Builder(tool.Argv, "a.py"))
}

func TestDefaultConfigPathPrefersYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".makelint.json"), []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".makelint.yaml"), []byte("tools: []\n"), 0o644))
	require.Equal(t, filepath.Join(dir, ".makelint.yaml"), config.DefaultConfigPath(dir))
}

func TestDefaultConfigPathEmptyWhenAbsent(t *testing.T) {
	require.Equal(t, "", config.DefaultConfigPath(t.TempDir()))
}
