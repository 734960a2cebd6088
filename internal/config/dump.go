package config

import (
	"gopkg.in/yaml.v3"
)

// dumpable is a plain-data mirror of Configuration for serialization -
// Configuration itself carries unexported compiled fields that must not
// round-trip through YAML.
type dumpable struct {
	IncludePatterns    []string          `yaml:"include_patterns"`
	ExcludePatterns    []string          `yaml:"exclude_patterns"`
	SourceTree         string            `yaml:"source_tree"`
	TargetTree         string            `yaml:"target_tree"`
	Tools              []string          `yaml:"tools"`
	Env                map[string]string `yaml:"env"`
	FailFast           bool              `yaml:"fail_fast"`
	MergeLog           string            `yaml:"merge_log"`
	Quiet              bool              `yaml:"quiet"`
	Jobs               int               `yaml:"jobs"`
	Watch              bool              `yaml:"watch"`
	DepProbe           string            `yaml:"dep_probe"`
	SwallowProbeErrors bool              `yaml:"swallow_probe_errors"`
}

// Dump renders the effective configuration in the config-file format
// (YAML), matching --dump-config's contract in spec.md §6.1.
func (c *Configuration) Dump() (string, error) {
	plain := dumpable{
		IncludePatterns:    c.IncludePatterns,
		ExcludePatterns:    c.ExcludePatterns,
		SourceTree:         c.SourceTree,
		TargetTree:         c.TargetTree,
		Tools:              c.Tools,
		Env:                c.Env,
		FailFast:           c.FailFast,
		MergeLog:           c.MergeLog,
		Quiet:              c.Quiet,
		Jobs:               c.Jobs,
		Watch:              c.Watch,
		DepProbe:           c.DepProbe,
		SwallowProbeErrors: c.SwallowProbeErrors,
	}
	out, err := yaml.Marshal(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
