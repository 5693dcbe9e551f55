package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nce-project/nce/boot"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <scie>",
	Short: "Pretty-print a scie's lift manifest to stdout.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := boot.Load(args[0])
		if err != nil {
			return err
		}
		if loaded.Manifest == nil {
			return fmt.Errorf("%s is a bare stub with no concatenated manifest to inspect", args[0])
		}
		code, err := boot.Inspect(loaded)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("inspect exited with code %d", code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
