package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/brogergvhs/mangacat/internal/config"

	"github.com/spf13/cobra"
)

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List config profiles with their listing site, pages and publish target",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := config.ListConfigs()
		if err != nil {
			return fmt.Errorf("cannot read configs directory: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No configs yet. Run `mangacat config init`.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "\tLABEL\tLIST URL\tPAGES\tSTORIES FILE\tPUBLISH")

		for _, c := range list {
			mark := ""
			if c.Active {
				mark = "*"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", mark, c.Label, profileSummary(c.Path))
		}

		if err := w.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
		}
		return nil
	},
}

// profileSummary renders the crawl target of one profile as table cells.
// A profile that fails to parse shows its error instead.
func profileSummary(path string) string {
	cfg, _, err := config.LoadMerged(config.Options{ConfigPath: path})
	if err != nil {
		return fmt.Sprintf("invalid: %v\t\t\t", err)
	}

	publish := "off"
	if cfg.Publish.Enabled {
		publish = cfg.Publish.Remote + "@" + cfg.Publish.Branch
	}

	return fmt.Sprintf("%s\t%d-%d\t%s\t%s", cfg.ListURL, cfg.StartPage, cfg.EndPage, cfg.StoriesFile, publish)
}

func init() {
	configCmd.AddCommand(configListCmd)
}
