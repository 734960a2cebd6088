package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joshyorko/makelint/internal/config"
	"github.com/joshyorko/makelint/internal/logging"
)

// Version is the engine's release version, reported by -v/--version and
// the version subcommand.
const Version = "0.1.0"

var (
	configFile  string
	logLevel    string
	dumpConfig  bool
	versionFlag bool

	flagTargetTree         string
	flagTools              []string
	flagIncludePatterns    []string
	flagExcludePatterns    []string
	flagMergeLog           string
	flagDepProbe           string
	flagJobs               int
	flagFailFast           bool
	flagQuiet              bool
	flagWatch              bool
	flagSwallowProbeErrors bool
	flagTUI                bool
)

var rootCmd = &cobra.Command{
	Use:   "makelint <source-tree>",
	Short: "Incremental, cached runner for lint and static-analysis tools.",
	Long: "makelint walks a source tree, tracks each file's content digest " +
		"and dependency closure in a mirror tree, and re-invokes configured " +
		"tools only on files whose cache entry is stale.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRoot,
}

// init wires root.go's own persistent flags plus one flag per configuration
// field, the way the original exposed every Configuration field as a
// `--long_name` argparse option (configuration.py's add_argparse_arguments).
// source_tree comes from the positional argument and env has no flag. Bool
// fields are plain pflag bools with no --no-<flag> form; loadConfig applies
// one only when pflag reports it Changed, so "unset" and "explicitly false"
// (--flag=false) stay distinguishable.
func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "warning", "Minimum log level: debug, info, warning, error.")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "c", "", "Path to a .makelint.(yaml|yml|json|toml) config file.")
	rootCmd.Flags().BoolVar(&dumpConfig, "dump-config", false, "Print the fully resolved configuration and exit.")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "v", false, "Print the version and exit.")

	rootCmd.Flags().StringVar(&flagTargetTree, "target-tree", "", config.VarDocs["target_tree"])
	rootCmd.Flags().StringSliceVar(&flagTools, "tools", nil, config.VarDocs["tools"])
	rootCmd.Flags().StringSliceVar(&flagIncludePatterns, "include-patterns", nil, config.VarDocs["include_patterns"])
	rootCmd.Flags().StringSliceVar(&flagExcludePatterns, "exclude-patterns", nil, config.VarDocs["exclude_patterns"])
	rootCmd.Flags().StringVar(&flagMergeLog, "merge-log", "", config.VarDocs["merge_log"])
	rootCmd.Flags().StringVar(&flagDepProbe, "dep-probe", "", config.VarDocs["dep_probe"])
	rootCmd.Flags().IntVarP(&flagJobs, "jobs", "j", 0, config.VarDocs["jobs"])
	rootCmd.Flags().BoolVar(&flagFailFast, "fail-fast", false, config.VarDocs["fail_fast"])
	rootCmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, config.VarDocs["quiet"])
	rootCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, config.VarDocs["watch"])
	rootCmd.Flags().BoolVar(&flagSwallowProbeErrors, "swallow-probe-errors", false, config.VarDocs["swallow_probe_errors"])
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "Use the full-screen Bubble Tea dashboard instead of the plain-text progress bars.")

	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	if versionFlag {
		fmt.Println(Version)
		return nil
	}

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logging.SetLevel(level)

	sourceTree := ""
	if len(args) == 1 {
		sourceTree = args[0]
	}
	if sourceTree == "" {
		cwd, _ := os.Getwd()
		sourceTree = cwd
	}
	absSourceTree, err := abs(sourceTree)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(absSourceTree, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Compile(); err != nil {
		return err
	}

	if dumpConfig {
		return printDump(cfg)
	}

	return runPipeline(cfg)
}

// loadConfig layers flags over the config file over the built-in defaults,
// matching configuration.load_config(args)'s precedence: defaults are
// overridden by the file, which is overridden by anything the user actually
// typed on the command line (pflag.Changed distinguishes "typed" from
// "default value of an unset flag").
func loadConfig(sourceTree string, flags *pflag.FlagSet) (*config.Configuration, error) {
	path := configFile
	if path == "" {
		path = config.DefaultConfigPath(sourceTree)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.SourceTree = sourceTree

	if flags.Changed("target-tree") {
		cfg.TargetTree = flagTargetTree
	}
	if flags.Changed("tools") {
		cfg.Tools = flagTools
	}
	if flags.Changed("include-patterns") {
		cfg.IncludePatterns = flagIncludePatterns
	}
	if flags.Changed("exclude-patterns") {
		cfg.ExcludePatterns = flagExcludePatterns
	}
	if flags.Changed("merge-log") {
		cfg.MergeLog = flagMergeLog
	}
	if flags.Changed("dep-probe") {
		cfg.DepProbe = flagDepProbe
	}
	if flags.Changed("jobs") {
		cfg.Jobs = flagJobs
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = flagFailFast
	}
	if flags.Changed("quiet") {
		cfg.Quiet = flagQuiet
	}
	if flags.Changed("watch") {
		cfg.Watch = flagWatch
	}
	if flags.Changed("swallow-probe-errors") {
		cfg.SwallowProbeErrors = flagSwallowProbeErrors
	}
	return cfg, nil
}
