package cmd

import (
	"fmt"
	"strings"

	"github.com/brogergvhs/mangacat/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new config profile from the defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string

		if len(args) == 1 {
			label = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Label for new config",
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return config.ErrEmptyLabel
					}
					return nil
				},
			}

			var err error
			label, err = prompt.Run()
			if err != nil {
				return fmt.Errorf("input cancelled")
			}
		}

		path, err := config.CreateConfig(strings.TrimSpace(label))
		if err != nil {
			return err
		}

		fmt.Printf("Created new config: %s\n", path)
		fmt.Printf("Activate it with `mangacat config switch %s`.\n", label)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configAddCmd)
}
