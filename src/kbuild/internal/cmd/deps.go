package cmd

import (
	"strings"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/paths"
	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/rsuntk/kbuild/src/kbuild/internal/toolchain"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Validate the build dependencies",
	Long: `Checks that the common host utilities are on the PATH and the
clang binaries exist under the toolchain directory. When no toolchain
directory has been provisioned, the clang binaries are looked up on the
PATH instead, for hosts with a system-wide LLVM install. Exits non-zero
when anything required is missing.`,
	Args: cobra.NoArgs,
	RunE: runDeps,
}

func runDeps(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	deps := toolchain.RequiredDeps()
	var missing []string
	if paths.IsDir(cfg.ToolchainDir) {
		missing = toolchain.ValidateInstall(cfg.ToolchainDir, deps)
	} else {
		missing = toolchain.ValidateAvailability(deps)
	}

	if len(missing) == 0 {
		output.PrintMessage("All build dependencies are available.")
		return nil
	}

	rows := make([][]string, len(missing))
	for i, bin := range missing {
		rows[i] = []string{bin, "missing"}
	}
	output.PrintTable([]string{"BINARY", "STATUS"}, rows)

	return errors.ErrToolchainMissingBinaries.WithMessagef(
		"missing binaries: %s", strings.Join(missing, ", "))
}
