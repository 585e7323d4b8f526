// Package cmd implements the kbuild command tree.
package cmd

import (
	"os"

	"github.com/rsuntk/kbuild/src/common/cli"
	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/paths"
	"github.com/rsuntk/kbuild/src/common/version"
	"github.com/rsuntk/kbuild/src/kbuild/internal/config"
	"github.com/rsuntk/kbuild/src/kbuild/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// VersionInfo holds version information - set at build time via ldflags
	VersionInfo = version.New()

	// Configuration file path
	cfgFile string

	// Output format (table or json)
	outputFormat string
)

// Linker variables - set via ldflags at build time
var (
	Version        = "dev"
	ReleaseVersion = "0.0.0"
	BuildDate      = "unknown"
	GitCommit      = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "kbuild",
	Short: "Android kernel build pipeline",
	Long: `kbuild automates building an Android kernel: it resolves the
cross-compilation configuration, provisions the clang toolchain, drives the
kernel's make-based build system, packages the boot image into a flashable
AnyKernel archive, and optionally delivers the archive to a Telegram chat
or an S3 mirror.

Running kbuild with no subcommand performs a full build.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return initConfig()
	},
	// No subcommand means a full build
	RunE: runBuild,
}

// Execute runs the root command and maps errors to process exit codes
func Execute() {
	VersionInfo.Version = Version
	VersionInfo.ReleaseVersion = ReleaseVersion
	VersionInfo.BuildDate = BuildDate
	VersionInfo.GitCommit = GitCommit

	if err := rootCmd.Execute(); err != nil {
		output.PrintError(err)
		os.Exit(errors.GetExitCode(err))
	}
}

func init() {
	cli.RegisterConfigFlag(rootCmd, &cfgFile, "~/.config/kbuild/kbuild.yaml")

	rootCmd.PersistentFlags().StringP("device", "d", "", "Target device codename")
	rootCmd.PersistentFlags().String("profiles", "devices.yaml", "Device profile file")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json")

	cli.RegisterLogFlags(rootCmd)

	_ = viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))
	_ = viper.BindPFlag("profiles", rootCmd.PersistentFlags().Lookup("profiles"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(defconfigCmd)
	rootCmd.AddCommand(toolchainCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func initConfig() error {
	opts := cli.DefaultConfigOptions("kbuild", "KBUILD")
	opts.ConfigFile = cfgFile

	if err := cli.InitConfig(opts); err != nil {
		return err
	}

	config.SetDefaults()
	cli.InitLogger("kbuild")
	return nil
}

// resolveConfig loads device profiles and resolves the build configuration
func resolveConfig() (config.BuildConfig, error) {
	profiles, err := config.LoadProfiles(paths.Expand(viper.GetString("profiles")))
	if err != nil {
		return config.BuildConfig{}, err
	}
	return config.Resolve(profiles)
}

// getOutputFormat returns the current output format
func getOutputFormat() string {
	return outputFormat
}
