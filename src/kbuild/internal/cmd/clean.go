package cmd

import (
	"fmt"
	"os"

	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove build outputs",
	Long: `Removes the build output directory and the packaging template
checkout. With --toolchains the toolchain and ccache directories are
removed as well.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().Bool("toolchains", false, "Also remove the toolchain and ccache directories")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	targets := []string{cfg.OutDir, cfg.TemplateDir}
	if withToolchains, _ := cmd.Flags().GetBool("toolchains"); withToolchains {
		targets = append(targets, cfg.ToolchainDir, cfg.CcacheDir)
	}

	for _, dir := range targets {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}

	output.PrintMessage("Cleaned.")
	return nil
}
