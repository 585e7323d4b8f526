package cmd

import (
	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch getOutputFormat() {
		case "json":
			return output.PrintJSON(VersionInfo.Map())
		default:
			output.PrintMessage(VersionInfo.Full())
			return nil
		}
	},
}
