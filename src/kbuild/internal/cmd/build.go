package cmd

import (
	"context"
	"fmt"

	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/rsuntk/kbuild/src/kbuild/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full build pipeline",
	Long: `Provisions the toolchain if needed, generates the kernel
configuration, compiles the boot image, packages it into a flashable
archive, and delivers the archive to the configured destinations.`,
	Args: cobra.NoArgs,
	// Flags are bound here rather than in init so keys shared with other
	// commands (patch_thermal) resolve to this command's flag.
	PreRunE: func(cmd *cobra.Command, args []string) error {
		_ = viper.BindPFlag("update_toolchains", cmd.Flags().Lookup("update-toolchains"))
		_ = viper.BindPFlag("patch_thermal", cmd.Flags().Lookup("patch-thermal"))
		_ = viper.BindPFlag("post_build_clean", cmd.Flags().Lookup("post-build-clean"))
		_ = viper.BindPFlag("jobs", cmd.Flags().Lookup("jobs"))
		return nil
	},
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().Bool("update-toolchains", false, "Force toolchain re-provisioning before building")
	buildCmd.Flags().Bool("patch-thermal", false, "Disable thermal config settings after defconfig")
	buildCmd.Flags().Bool("post-build-clean", false, "Remove packaging checkout and artifact after packaging")
	buildCmd.Flags().IntP("jobs", "j", 0, "Build parallelism (default: number of CPUs)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	result, err := pipeline.New(cfg).Run(context.Background())
	if err != nil {
		return err
	}

	switch getOutputFormat() {
	case "json":
		return output.PrintJSON(map[string]interface{}{
			"device":          cfg.Device,
			"archive":         result.ArchivePath,
			"sha256":          result.Checksum,
			"elapsed_minutes": int(result.Elapsed.Minutes()),
		})
	default:
		output.PrintMessage(fmt.Sprintf("Build succeeded in %d minute(s).", int(result.Elapsed.Minutes())))
		output.PrintTable(
			[]string{"FIELD", "VALUE"},
			[][]string{
				{"Device", cfg.Device},
				{"Archive", result.ArchivePath},
				{"SHA256", result.Checksum},
			},
		)
		return nil
	}
}
