package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangacat/internal/config"

	"github.com/spf13/cobra"
)

var configRenameCmd = &cobra.Command{
	Use:   "rename <old_label> <new_label>",
	Short: "Rename a profile; it stays active if it was",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := args[0], args[1]
		if from == config.DefaultLabel {
			return fmt.Errorf("the %s profile is the fallback for remove and cannot be renamed", config.DefaultLabel)
		}

		if err := config.RenameConfig(from, to); err != nil {
			return err
		}

		path, _ := config.ConfigPathByLabel(to)
		fmt.Printf("Renamed profile %q -> %q (%s)\n", from, to, path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configRenameCmd)
}
