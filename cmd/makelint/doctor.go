package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mitchellh/go-ps"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that every configured tool binary is reachable and report running makelint processes.",
	Long: "doctor resolves each configured tool's command against PATH and " +
		"lists any other makelint process currently running, which is useful " +
		"when a watch-mode invocation appears stuck.",
	Args: cobra.MaximumNArgs(1),
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
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

	ok := true
	for _, name := range cfg.Tools {
		bin := firstWord(name)
		if path, err := exec.LookPath(bin); err != nil {
			fmt.Printf("MISSING  %-20s (%v)\n", bin, err)
			ok = false
		} else {
			fmt.Printf("OK       %-20s -> %s\n", bin, path)
		}
	}
	if bin := firstWord(cfg.DepProbe); bin != "" {
		if path, err := exec.LookPath(bin); err != nil {
			fmt.Printf("MISSING  %-20s (%v)\n", bin, err)
			ok = false
		} else {
			fmt.Printf("OK       %-20s -> %s\n", bin, path)
		}
	}

	fmt.Println()
	if err := listRunningProcesses(); err != nil {
		fmt.Printf("could not list processes: %v\n", err)
	}

	if !ok {
		exit(1, "")
	}
	return nil
}

func listRunningProcesses() error {
	processes, err := ps.Processes()
	if err != nil {
		return err
	}
	self := os.Getpid()
	found := false
	for _, p := range processes {
		if p.Pid() == self {
			continue
		}
		exe := p.Executable()
		if exe == "makelint" || exe == "makelint-depprobe" {
			fmt.Printf("running  pid=%-8d ppid=%-8d %s\n", p.Pid(), p.PPid(), exe)
			found = true
		}
	}
	if !found {
		fmt.Println("no other makelint processes running")
	}
	return nil
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' {
			return s[:i]
		}
	}
	return s
}
