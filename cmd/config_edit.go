package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/brogergvhs/mangacat/internal/config"

	"github.com/spf13/cobra"
)

var configEditCmd = &cobra.Command{
	Use:   "edit [label]",
	Short: "Open a profile in $EDITOR and check selectors, pages and publish settings afterwards",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, err := labelOrActive(args)
		if err != nil {
			return err
		}

		path, err := config.ConfigPathByLabel(label)
		if err != nil {
			return err
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		ed := exec.Command(editor, path)
		ed.Stdin, ed.Stdout, ed.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := ed.Run(); err != nil {
			return fmt.Errorf("%s: %w", editor, err)
		}

		cfg, _, err := config.LoadMerged(config.Options{ConfigPath: path})
		if err != nil {
			return fmt.Errorf("%s no longer parses: %w", label, err)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("warning: %s: %v\n", label, err)
			return nil
		}

		fmt.Printf("%s ok: pages %d-%d from %s\n", label, cfg.StartPage, cfg.EndPage, cfg.ListURL)
		return nil
	},
}

// labelOrActive returns the label given on the command line, or the active
// profile's label.
func labelOrActive(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	label, err := config.CurrentLabel()
	if err != nil {
		return "", fmt.Errorf("no label given and %w", err)
	}

	return label, nil
}

func init() {
	configCmd.AddCommand(configEditCmd)
}
