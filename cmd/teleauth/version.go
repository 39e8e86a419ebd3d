package main

import (
	"runtime"

	"github.com/nilopro/teleauth/internal/output"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the current version, commit, and build information for teleauth.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output.Print(output.Success("Version information", map[string]interface{}{
			"version":    output.Version,
			"commit":     output.Commit,
			"build_date": output.BuildDate,
			"go_version": runtime.Version(),
			"platform":   runtime.GOOS + "/" + runtime.GOARCH,
		}))
		return nil
	},
}
