package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/spigell/cv-screener/cmd.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version and revision",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s %s (revision %s, %s %s/%s)\n", app, version, revision(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return "unknown"
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
