// Command makelint runs an incremental lint/static-analysis pipeline over a
// source tree, caching per-file results in a mirror tree so a rerun only
// re-invokes tools on files whose content or dependency closure changed.
//
// Grounded on makelint/__main__.py and cmd/rccremote/main.go's
// init-flags/ExitProtection/main shape, adapted from flag to cobra the way
// the rest of the teacher's cmd package is built.
package main

import (
	"fmt"
	"os"

	"github.com/joshyorko/makelint/internal/logging"
)

func exitProtection() {
	if r := recover(); r != nil {
		if code, ok := r.(exitCode); ok {
			if code.message != "" {
				fmt.Fprintln(os.Stderr, code.message)
			}
			logging.Sync()
			os.Exit(code.code)
		}
		logging.Sync()
		panic(r)
	}
	logging.Sync()
}

// exitCode is panicked by the exit helper so deferred cleanup (flushing
// the async logger) always runs before the process actually exits.
type exitCode struct {
	code    int
	message string
}

func exit(code int, format string, args ...interface{}) {
	panic(exitCode{code: code, message: fmt.Sprintf(format, args...)})
}

func main() {
	defer exitProtection()
	if err := rootCmd.Execute(); err != nil {
		exit(1, "%v", err)
	}
}
