package cmd

import (
	"context"
	"fmt"

	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/rsuntk/kbuild/src/kbuild/internal/toolchain"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var toolchainCmd = &cobra.Command{
	Use:   "toolchain",
	Short: "Manage the cross-compilation toolchain",
}

var toolchainFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Provision the toolchain, downloading it if absent",
	Args:  cobra.NoArgs,
	RunE:  runToolchainFetch,
}

func init() {
	toolchainCmd.AddCommand(toolchainFetchCmd)

	toolchainFetchCmd.Flags().Bool("update", false, "Delete the existing toolchain and ccache, then re-provision")
	_ = viper.BindPFlag("update_toolchains", toolchainFetchCmd.Flags().Lookup("update"))
}

func runToolchainFetch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	prov := toolchain.NewProvisioner(cfg.ToolchainDir, cfg.ToolchainURL, cfg.CcacheDir)
	if err := prov.Provision(context.Background(), cfg.UpdateToolchains); err != nil {
		return err
	}

	output.PrintMessage(fmt.Sprintf("Toolchain ready at %s.", cfg.ToolchainDir))
	return nil
}
