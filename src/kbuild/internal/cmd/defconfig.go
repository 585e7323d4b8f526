package cmd

import (
	"context"
	"fmt"

	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/rsuntk/kbuild/src/kbuild/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var defconfigCmd = &cobra.Command{
	Use:   "defconfig",
	Short: "Regenerate the defconfig snapshot without compiling",
	Long: `Materializes the kernel configuration from the defconfig template,
optionally applies the thermal patch, and writes the resolved configuration
back to the defconfig location in the kernel tree. No compilation happens.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		_ = viper.BindPFlag("patch_thermal", cmd.Flags().Lookup("patch-thermal"))
		return nil
	},
	RunE: runDefconfig,
}

func init() {
	defconfigCmd.Flags().Bool("patch-thermal", false, "Disable thermal config settings in the snapshot")
}

func runDefconfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	snapshot, err := pipeline.New(cfg).RegenDefconfig(context.Background())
	if err != nil {
		return err
	}

	switch getOutputFormat() {
	case "json":
		return output.PrintJSON(map[string]string{"device": cfg.Device, "snapshot": snapshot})
	default:
		output.PrintMessage(fmt.Sprintf("Configuration snapshot written to %s.", snapshot))
		return nil
	}
}
