package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/ui"

	"github.com/spf13/cobra"
)

var flagMergeStoriesFile string

var mergeCmd = &cobra.Command{
	Use:   "merge <fetched.json>...",
	Short: "Merge story records from JSON files into the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(config.Options{StoriesFile: flagMergeStoriesFile})
		if err != nil {
			return err
		}

		logSvc := ui.NewLogger(cfg.Debug)
		cf, err := openCatalog(cfg.StoriesFile, logSvc)
		if err != nil {
			return err
		}

		tally, err := mergeFiles(cf.store, args, logSvc)
		if err != nil {
			return err
		}

		if err := cf.save(); err != nil {
			return err
		}

		fmt.Printf("Merged into %s: %s\n", cfg.StoriesFile, tally)
		return nil
	},
}

type mergeTally struct {
	Created int
	Updated int
	Added   int
	Skipped int
}

func (t mergeTally) String() string {
	s := fmt.Sprintf("%d new, %d updated, %d chapters added", t.Created, t.Updated, t.Added)
	if t.Skipped > 0 {
		s += fmt.Sprintf(", %d invalid skipped", t.Skipped)
	}

	return s
}

// mergeFiles merges every record of every file into store. Invalid records
// are logged and skipped; unreadable files abort.
func mergeFiles(store *catalog.Store, paths []string, log *ui.Logger) (mergeTally, error) {
	var t mergeTally

	for _, path := range paths {
		records, err := readRecordFile(path)
		if err != nil {
			return t, err
		}

		for i, rec := range records {
			res, err := store.Merge(rec)
			var verr *catalog.ValidationError
			if errors.As(err, &verr) {
				log.Warnf("%s: record %d skipped: %v", path, i, verr)
				t.Skipped++
				continue
			}
			if err != nil {
				return t, err
			}

			switch {
			case res.Created:
				t.Created++
			case res.Added > 0:
				t.Updated++
			}
			t.Added += res.Added
		}
	}

	return t, nil
}

func readRecordFile(path string) ([]catalog.Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	records, err := catalog.ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return records, nil
}

func init() {
	mergeCmd.Flags().StringVar(&flagMergeStoriesFile, "stories-file", "", "catalog file to merge into")
	rootCmd.AddCommand(mergeCmd)
}
