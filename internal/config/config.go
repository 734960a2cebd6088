// Package config implements spec.md §6.2's Configuration, loaded the way
// the teacher's CLI layers config: flags override a config file, which
// overrides built-in defaults. Grounded on makelint/configuration.py's
// Configuration object, adapted from an exec()'d Python module to a
// spf13/viper-backed YAML/JSON/TOML file, per SPEC_FULL.md §6.2.
package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Configuration mirrors every field of the original's Configuration object,
// plus the SPEC_FULL.md additions (Watch, DepProbe, SwallowProbeErrors).
type Configuration struct {
	IncludePatterns []string          `mapstructure:"include_patterns"`
	ExcludePatterns []string          `mapstructure:"exclude_patterns"`
	SourceTree      string            `mapstructure:"source_tree"`
	TargetTree      string            `mapstructure:"target_tree"`
	Tools           []string          `mapstructure:"tools"`
	Env             map[string]string `mapstructure:"env"`
	FailFast        bool              `mapstructure:"fail_fast"`
	MergeLog        string            `mapstructure:"merge_log"`
	Quiet           bool              `mapstructure:"quiet"`
	Jobs            int               `mapstructure:"jobs"`

	Watch              bool   `mapstructure:"watch"`
	DepProbe           string `mapstructure:"dep_probe"`
	SwallowProbeErrors bool   `mapstructure:"swallow_probe_errors"`

	// compiled, derived from IncludePatterns/ExcludePatterns on Compile().
	includeRegexps []*regexp.Regexp
	excludeRegexps []*regexp.Regexp
	tools          []Tool
}

// FieldNames lists the config fields in the same order the original's
// ConfigObject.get_field_names() would. Dump and the command-line flags in
// cmd/makelint are written out field by field and do not read this list.
var FieldNames = []string{
	"include_patterns", "exclude_patterns", "source_tree", "target_tree",
	"tools", "env", "fail_fast", "merge_log", "quiet", "jobs",
	"watch", "dep_probe", "swallow_probe_errors",
}

// VarDocs is the help text table, carried over from configuration.VARDOCS.
var VarDocs = map[string]string{
	"include_patterns": "Regular expression patterns matched against a file's " +
		"relative path; a file is tracked only if at least one pattern matches.",
	"exclude_patterns": "Regular expression patterns matched against a " +
		"relative path (file or directory); any match prunes it from the walk.",
	"source_tree": "The root of the search tree for inclusion.",
	"target_tree": "The root of the mirror tree where cache state is written.",
	"tools": "Tools to execute, in order. A bare name is a SimpleTool; " +
		"\"pylint\" gets --output-format=text automatically.",
	"env":                  "Environment passed to every tool and probe subprocess.",
	"fail_fast":            "Stop on the first tool failure instead of running to completion.",
	"merge_log":            "If set, failing tool output is merged into this single file.",
	"quiet":                "Suppress the progress UI.",
	"jobs":                 "Maximum number of concurrent workers per phase.",
	"watch":                "Keep running, re-invoking the pipeline on source tree changes.",
	"dep_probe":            "Command used to resolve one file's dependency closure.",
	"swallow_probe_errors": "Accept a probe's partial output even on nonzero exit.",
}

// Default returns the built-in defaults, equivalent to Configuration()'s
// constructor defaults in the original.
func Default() *Configuration {
	cwd, _ := os.Getwd()
	return &Configuration{
		IncludePatterns:    []string{`.*\.go$`},
		ExcludePatterns:    nil,
		TargetTree:         cwd,
		Tools:              []string{"flake8", "pylint"},
		Env:                nil,
		FailFast:           false,
		MergeLog:           "",
		Quiet:              false,
		Jobs:               runtime.NumCPU(),
		Watch:              false,
		DepProbe:           "makelint-depprobe",
		SwallowProbeErrors: true,
	}
}

// Load reads configPath (if non-empty) over the defaults using viper, which
// auto-detects YAML/JSON/TOML by extension - the idiomatic Go stand-in for
// the original's exec()'d `.makelint.py`. Env values read from the file get
// ${VAR} expansion against the current process environment. An empty
// configPath returns the defaults untouched, matching load_config(None).
func Load(configPath string) (*Configuration, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", configPath)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", configPath)
	}
	for key, value := range cfg.Env {
		cfg.Env[key] = os.ExpandEnv(value)
	}
	return cfg, nil
}

// DefaultConfigPath returns "<sourceTree>/.makelint.yaml" if it exists,
// else tries .yml/.json/.toml, else "".
func DefaultConfigPath(sourceTree string) string {
	if sourceTree == "" {
		return ""
	}
	for _, ext := range []string{"yaml", "yml", "json", "toml"} {
		candidate := sourceTree + "/.makelint." + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Compile compiles the include/exclude patterns and resolves the tool list
// into Tool implementations. Call this once after all overrides (flags,
// file, defaults) have been applied.
func (c *Configuration) Compile() error {
	c.includeRegexps = nil
	for _, pattern := range c.IncludePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return errors.Wrapf(err, "compiling include pattern %q", pattern)
		}
		c.includeRegexps = append(c.includeRegexps, compiled)
	}
	c.excludeRegexps = nil
	for _, pattern := range c.ExcludePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return errors.Wrapf(err, "compiling exclude pattern %q", pattern)
		}
		c.excludeRegexps = append(c.excludeRegexps, compiled)
	}

	c.tools = nil
	for _, name := range c.Tools {
		c.tools = append(c.tools, NewSimpleTool(name))
	}

	if c.SourceTree == "" {
		return fmt.Errorf("source_tree is required")
	}
	if c.Jobs < 1 {
		c.Jobs = runtime.NumCPU()
	}
	return nil
}

// IncludePatternsCompiled returns the compiled include regexps. Compile
// must have been called first.
func (c *Configuration) IncludePatternsCompiled() []*regexp.Regexp { return c.includeRegexps }

// ExcludePatternsCompiled returns the compiled exclude regexps.
func (c *Configuration) ExcludePatternsCompiled() []*regexp.Regexp { return c.excludeRegexps }

// ToolList returns the resolved Tool implementations, in configured order.
func (c *Configuration) ToolList() []Tool { return c.tools }

// AddTool appends a custom Tool implementation (for embedders wiring a
// structured tool object instead of a bare command name).
func (c *Configuration) AddTool(tool Tool) {
	c.tools = append(c.tools, tool)
}

// EnvOrOS returns c.Env if set, otherwise the current process environment
// as a map - equivalent to the original's get_default(env, os.environ.copy()).
func (c *Configuration) EnvOrOS() map[string]string {
	if c.Env != nil {
		return c.Env
	}
	out := map[string]string{}
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}
