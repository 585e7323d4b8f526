// Package builder drives the kernel's make-based build system: one
// invocation to materialize the configuration from the defconfig template,
// one to compile the boot image.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/logs"
	"github.com/rsuntk/kbuild/src/common/paths"
	"github.com/rsuntk/kbuild/src/kbuild/internal/config"
	"github.com/rsuntk/kbuild/src/kbuild/internal/toolchain"
)

var log = logs.NewDefault()

// Builder runs make against a kernel source tree with a resolved config
type Builder struct {
	cfg config.BuildConfig

	// Output receives the raw build system output. Defaults to stdout;
	// the pipeline tees it into <out>/build.log as well.
	Output io.Writer
}

// New creates a Builder for the given configuration
func New(cfg config.BuildConfig) *Builder {
	return &Builder{cfg: cfg, Output: os.Stdout}
}

// Configure materializes the kernel configuration from the defconfig
// template into the output directory.
func (b *Builder) Configure(ctx context.Context) error {
	log.Info("Generating kernel configuration", "defconfig", b.cfg.Defconfig, "out", b.cfg.OutDir)

	if err := b.runMake(ctx, b.cfg.Defconfig); err != nil {
		return errors.ErrDefconfig.WithCause(err)
	}
	if !paths.IsFile(b.cfg.ConfigPath()) {
		return errors.ErrDefconfig.WithMessagef("defconfig produced no .config at %s", b.cfg.ConfigPath())
	}
	return nil
}

// Compile builds the kernel image. The make exit status is checked first;
// the artifact existence check is a second gate so a failing build with a
// stale image from a previous run is still an error.
func (b *Builder) Compile(ctx context.Context) error {
	log.Info("Compiling kernel", "target", b.cfg.ImageName, "jobs", b.cfg.Jobs)

	if err := b.runMake(ctx, fmt.Sprintf("-j%d", b.cfg.Jobs)); err != nil {
		return errors.ErrCompile.WithCause(err)
	}
	if !paths.IsFile(b.cfg.ArtifactPath()) {
		return errors.ErrArtifactMissing.WithMessagef(
			"Compilation failed! %s not found", b.cfg.ArtifactPath())
	}
	return nil
}

// Snapshot copies the resolved .config next to the kernel source for
// later reuse. Used by the regenerate-configuration-only mode, which
// never attempts compilation.
func (b *Builder) Snapshot(destPath string) error {
	data, err := os.ReadFile(b.cfg.ConfigPath())
	if err != nil {
		return errors.ErrDefconfig.WithCause(err)
	}
	if err := paths.EnsureDir(destPath); err != nil {
		return errors.ErrDefconfig.WithCause(err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return errors.ErrDefconfig.WithCause(err)
	}
	log.Info("Configuration snapshot written", "path", destPath)
	return nil
}

// runMake invokes make in the kernel tree with the toolchain environment
func (b *Builder) runMake(ctx context.Context, target string) error {
	args := []string{
		"O=" + b.cfg.OutDir,
		"ARCH=" + b.cfg.Arch,
		target,
	}

	cmd := exec.CommandContext(ctx, "make", args...)
	cmd.Dir = b.cfg.KernelDir
	cmd.Env = b.buildEnv()
	cmd.Stdout = b.Output
	cmd.Stderr = b.Output

	log.Debug("Running make", "args", args, "dir", b.cfg.KernelDir)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("make %s: %w", target, err)
	}
	return nil
}

// buildEnv merges the process environment with the toolchain variables and
// prepends the toolchain bin directory to PATH.
func (b *Builder) buildEnv() []string {
	env := os.Environ()

	binDir := filepath.Join(b.cfg.ToolchainDir, "bin")
	env = append(env, "PATH="+binDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	tcEnv := toolchain.MakeEnv(b.cfg.CrossCompile)
	keys := make([]string, 0, len(tcEnv))
	for k := range tcEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+tcEnv[k])
	}

	return env
}
