package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nce-project/nce/boot"
)

var splitCmd = &cobra.Command{
	Use:   "split <scie> [directory]",
	Short: "Split a scie into its component files: the native stub, every payload file, and its lift.json.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := boot.Load(args[0])
		if err != nil {
			return err
		}
		if loaded.Manifest == nil {
			return fmt.Errorf("%s is a bare stub with no concatenated payload to split", args[0])
		}
		splitArgv := []string{args[0]}
		if len(args) > 1 {
			splitArgv = append(splitArgv, args[1])
		}
		code, err := boot.Split(loaded, splitArgv)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("split exited with code %d", code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(splitCmd)
}
