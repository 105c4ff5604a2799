package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/ui"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Commit and push the current catalog file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(config.Options{})
		if err != nil {
			return err
		}
		if !cfg.Publish.Enabled {
			return errors.New("publishing is disabled (publish.enabled: false)")
		}
		if _, err := os.Stat(cfg.StoriesFile); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return publishCatalog(ctx, cfg, ui.NewLogger(cfg.Debug))
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
