package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=v1.2.3".
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the mangacat version and the commit it was built from",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mangacat %s%s\n", Version, buildRevision())
	},
}

func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 12 {
			return " (" + s.Value[:12] + ")"
		}
	}

	return ""
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
