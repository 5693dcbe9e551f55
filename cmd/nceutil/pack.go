package main

import (
	"fmt"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/nce-project/nce/boot"
)

var (
	packCommand string
	packOutput  string
)

var packCmd = &cobra.Command{
	Use:   "pack [lift.json]",
	Short: "Pack a lift manifest into a scie executable.",
	Long:  "Pack a lift manifest into a scie executable. Not yet implemented; packing a scie is a build-time step this launcher does not perform at runtime.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		liftPath := "lift.json"
		if len(args) > 0 {
			liftPath = args[0]
		}

		if packCommand != "" {
			exeAndArgs, err := shlex.Split(packCommand)
			if err != nil {
				return fmt.Errorf("failed to parse --command %q: %w", packCommand, err)
			}
			if len(exeAndArgs) == 0 {
				return fmt.Errorf("--command %q tokenized to no words", packCommand)
			}
			cmd.Printf("would pack exe=%q args=%v into %q\n", exeAndArgs[0], exeAndArgs[1:], packOutput)
		}

		return boot.Pack(&boot.Loaded{Path: liftPath})
	},
}

func init() {
	packCmd.Flags().StringVar(&packCommand, "command", "", "Shell-quoted exe+args shorthand for the lift manifest's default boot command.")
	packCmd.Flags().StringVar(&packOutput, "output", "", "Path to write the packed scie to (only echoed alongside --command; no default is computed).")
	rootCmd.AddCommand(packCmd)
}
