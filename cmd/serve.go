package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/server"
	"github.com/brogergvhs/mangacat/internal/ui"

	"github.com/spf13/cobra"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog as JSON and an HTML story list",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(config.Options{ServeAddr: flagAddr})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg.StoriesFile, server.Options{UnknownAuthor: cfg.UnknownAuthor}, ui.NewLogger(cfg.Debug))
		return srv.Run(ctx, cfg.Serve.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from config, e.g. :8080)")
	rootCmd.AddCommand(serveCmd)
}
