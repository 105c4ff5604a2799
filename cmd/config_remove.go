package cmd

import (
	"fmt"

	"github.com/brogergvhs/mangacat/internal/config"

	"github.com/spf13/cobra"
)

var forceRemove bool

var configRemoveCmd = &cobra.Command{
	Use:   "remove <label>",
	Short: "Delete a profile; the catalog file it points at is kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label := args[0]
		path, err := config.ConfigPathByLabel(label)
		if err != nil {
			return err
		}

		if !forceRemove {
			question := fmt.Sprintf("Delete profile %q (%s)", label, path)
			if active, _ := config.CurrentLabel(); active == label {
				question += fmt.Sprintf(" and fall back to %s", config.DefaultLabel)
			}
			if !confirm(question) {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := config.RemoveConfig(label); err != nil {
			return err
		}

		fmt.Printf("Removed profile %q\n", label)
		return nil
	},
}

func init() {
	configRemoveCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "delete without asking")
	configCmd.AddCommand(configRemoveCmd)
}
