package cmd

import (
	"errors"
	"fmt"

	"github.com/brogergvhs/mangacat/internal/config"

	"github.com/spf13/cobra"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and activate the Default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if path, err := config.ConfigPathByLabel(config.DefaultLabel); err == nil {
			fmt.Println("Configuration already exists at:")
			fmt.Println("  ", path)
			fmt.Println("Use `mangacat config reset` to recreate it.")
			return nil
		}

		fmt.Println("Configuration will be saved under:")
		fmt.Println("  ", config.ConfigsDir())
		fmt.Println()

		fmt.Println("Default configuration:")
		config.DefaultConfig().Print()
		fmt.Println()

		if !confirm("Create Default config") {
			fmt.Println("Aborted.")
			return nil
		}

		path, err := config.CreateConfig(config.DefaultLabel)
		if err != nil && !errors.Is(err, config.ErrProfileDup) {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		if err := config.SwitchConfig(config.DefaultLabel); err != nil {
			return fmt.Errorf("failed to set active config: %w", err)
		}

		fmt.Println("Config created at:", path)
		fmt.Printf("This config is now active (label: %s).\n", config.DefaultLabel)

		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
