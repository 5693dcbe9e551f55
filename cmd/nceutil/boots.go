package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nce-project/nce/boot"
)

var bootsCmd = &cobra.Command{
	Use:   "boots <scie>",
	Short: "List a scie's boot commands and their descriptions.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := boot.Load(args[0])
		if err != nil {
			return err
		}
		if loaded.Manifest == nil {
			return fmt.Errorf("%s is a bare stub with no boot commands to list", args[0])
		}
		code, err := boot.Help(loaded)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("boots exited with code %d", code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bootsCmd)
}
