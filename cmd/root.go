package cmd

import (
	"fmt"
	"os"

	"github.com/brogergvhs/mangacat/internal/config"

	"github.com/spf13/cobra"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool
	flagConfigPath   string
)

var rootCmd = &cobra.Command{
	Use:   "mangacat",
	Short: "Manga catalog crawler with additive merges and git publishing",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config and use only CLI flags")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a config YAML file instead of the active profile")
}

// loadConfig merges the selected profile with global flags plus whatever
// command-specific overrides opts carries, then validates the result.
func loadConfig(opts config.Options) (*config.Config, string, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.ConfigPath = flagConfigPath
	opts.Debug = flagDebug

	cfg, used, err := config.LoadMerged(opts)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, used, fmt.Errorf("invalid config (%s): %w", used, err)
	}

	return cfg, used, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
