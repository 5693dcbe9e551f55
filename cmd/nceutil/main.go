// Command nceutil is the developer-facing counterpart to the implicit
// SCIE= dispatch a packed launcher answers to at runtime: the same
// pack/split/inspect/help operations (spec.md §4.6, §9), exposed as
// explicit subcommands (help as `boots`) for scripting and debugging, grounded on the
// teacher's extensive cobra command wiring under cmd/.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nce-project/nce/internal/common"
)

var rootCmd = &cobra.Command{
	Use:           "nceutil",
	Short:         "Inspect, split, and (eventually) pack nce scies.",
	Long:          "nceutil is a developer tool for working with nce scies outside of a normal boot: inspecting their manifest, splitting them into component files, and packing new ones.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Turn on debugging output.")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "Turn on tracing output.")
}

var (
	debugFlag bool
	traceFlag bool
)

func applyVerbosity() {
	if debugFlag {
		os.Setenv("NCE_DEBUG", "1")
	}
	if traceFlag {
		os.Setenv("NCE_TRACE", "1")
	}
}

func main() {
	cobra.OnInitialize(applyVerbosity)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		common.WaitLogs()
		os.Exit(1)
	}
	common.WaitLogs()
}
