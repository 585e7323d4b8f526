// Package config resolves the immutable build configuration for a kbuild
// run from flags, environment variables, and optional config files.
package config

import (
	"path/filepath"
	"runtime"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/paths"
	"github.com/spf13/viper"
)

// Default values applied when the environment leaves a setting unset.
const (
	DefaultDevice       = "a03s"
	DefaultArch         = "arm64"
	DefaultCrossPrefix  = "aarch64-linux-gnu-"
	DefaultImageName    = "Image"
	DefaultToolchainURL = "https://github.com/rsuntk/toolchains/releases/download/release/clang-12.0.0.tar.gz"
	DefaultTemplateRepo = "https://github.com/rsuntk/AnyKernel3"
)

// TelegramConfig holds the chat notification credentials. Both fields must
// be set for the notifier to run; otherwise it is skipped silently.
type TelegramConfig struct {
	Token  string
	ChatID string
}

// Configured reports whether both credentials are present
func (t TelegramConfig) Configured() bool {
	return t.Token != "" && t.ChatID != ""
}

// MirrorConfig holds the optional S3-compatible artifact mirror settings
type MirrorConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Configured reports whether the mirror is usable
func (m MirrorConfig) Configured() bool {
	return m.Endpoint != "" && m.Bucket != "" && m.AccessKeyID != ""
}

// BuildConfig is the fully resolved configuration for one pipeline run.
// It is created once at startup and passed by value between stages.
type BuildConfig struct {
	// Device is the target device codename (e.g., "a03s")
	Device string

	// Defconfig is the make target that materializes the kernel config
	Defconfig string

	// KernelDir is the kernel source tree root
	KernelDir string

	// OutDir is the build output directory (make O=)
	OutDir string

	// Arch is the kernel architecture (make ARCH=)
	Arch string

	// CrossCompile is the cross-compiler prefix (make CROSS_COMPILE=)
	CrossCompile string

	// ImageName is the boot image file name produced by the build
	ImageName string

	// ToolchainDir is where the clang toolchain is provisioned
	ToolchainDir string

	// ToolchainURL is the tarball fetched when the toolchain is absent
	ToolchainURL string

	// CcacheDir is the compilation cache removed on forced refresh
	CcacheDir string

	// TemplateRepo is the AnyKernel packaging template repository
	TemplateRepo string

	// TemplateBranch is the template branch matching the device
	TemplateBranch string

	// TemplateDir is the local packaging checkout path
	TemplateDir string

	// Jobs is the make parallelism degree
	Jobs int

	// UpdateToolchains forces toolchain re-provisioning
	UpdateToolchains bool

	// PatchThermal enables the thermal config patch rules
	PatchThermal bool

	// PostBuildClean removes the checkout and artifact after packaging
	PostBuildClean bool

	// HistoryPath is the build history database file
	HistoryPath string

	Telegram TelegramConfig
	Mirror   MirrorConfig
}

// ArtifactPath returns the expected location of the compiled kernel image.
// Its existence after the compile step is the pipeline's success gate.
func (c BuildConfig) ArtifactPath() string {
	return filepath.Join(c.OutDir, "arch", c.Arch, "boot", c.ImageName)
}

// ConfigPath returns the generated .config location inside the output dir
func (c BuildConfig) ConfigPath() string {
	return filepath.Join(c.OutDir, ".config")
}

// SetDefaults registers the viper defaults for every resolvable key
func SetDefaults() {
	viper.SetDefault("device", DefaultDevice)
	viper.SetDefault("arch", DefaultArch)
	viper.SetDefault("cross_compile", DefaultCrossPrefix)
	viper.SetDefault("image", DefaultImageName)
	viper.SetDefault("kernel_dir", ".")
	viper.SetDefault("out_dir", "out")
	viper.SetDefault("toolchain_dir", "~/toolchains/clang")
	viper.SetDefault("toolchain_url", DefaultToolchainURL)
	viper.SetDefault("ccache_dir", "~/.ccache")
	viper.SetDefault("template_repo", DefaultTemplateRepo)
	viper.SetDefault("template_dir", "AnyKernel3")
	viper.SetDefault("history_path", "~/.kbuild/history.db")
	viper.SetDefault("jobs", 0)
}

// Resolve builds a BuildConfig from the current viper state and the
// optional device profile set. It fails before any side effect when the
// device codename resolves to an empty string.
func Resolve(profiles *ProfileSet) (BuildConfig, error) {
	device := viper.GetString("device")
	if device == "" {
		return BuildConfig{}, errors.ErrDeviceRequired
	}

	jobs := viper.GetInt("jobs")
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	cfg := BuildConfig{
		Device:           device,
		Defconfig:        device + "_defconfig",
		KernelDir:        paths.Expand(viper.GetString("kernel_dir")),
		OutDir:           paths.Expand(viper.GetString("out_dir")),
		Arch:             viper.GetString("arch"),
		CrossCompile:     viper.GetString("cross_compile"),
		ImageName:        viper.GetString("image"),
		ToolchainDir:     paths.Expand(viper.GetString("toolchain_dir")),
		ToolchainURL:     viper.GetString("toolchain_url"),
		CcacheDir:        paths.Expand(viper.GetString("ccache_dir")),
		TemplateRepo:     viper.GetString("template_repo"),
		TemplateBranch:   device,
		TemplateDir:      paths.Expand(viper.GetString("template_dir")),
		Jobs:             jobs,
		UpdateToolchains: viper.GetBool("update_toolchains"),
		PatchThermal:     viper.GetBool("patch_thermal"),
		PostBuildClean:   viper.GetBool("post_build_clean"),
		HistoryPath:      paths.Expand(viper.GetString("history_path")),
		Telegram: TelegramConfig{
			Token:  viper.GetString("telegram_token"),
			ChatID: viper.GetString("telegram_chat"),
		},
		Mirror: MirrorConfig{
			Endpoint:        viper.GetString("mirror_endpoint"),
			Region:          viper.GetString("mirror_region"),
			Bucket:          viper.GetString("mirror_bucket"),
			AccessKeyID:     viper.GetString("mirror_access_key"),
			SecretAccessKey: viper.GetString("mirror_secret_key"),
			UsePathStyle:    viper.GetBool("mirror_path_style"),
		},
	}

	// Device profiles override the codename-derived defaults
	if profiles != nil {
		if p, ok := profiles.Lookup(device); ok {
			if p.Defconfig != "" {
				cfg.Defconfig = p.Defconfig
			}
			if p.TemplateBranch != "" {
				cfg.TemplateBranch = p.TemplateBranch
			}
			if p.Image != "" {
				cfg.ImageName = p.Image
			}
		}
	}

	return cfg, nil
}
