// Package pipeline sequences the build stages: toolchain provisioning,
// configuration, optional config patching, compilation, packaging, and
// delivery. Control flows strictly forward; the first fatal error aborts
// the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/logs"
	"github.com/rsuntk/kbuild/src/common/paths"
	"github.com/rsuntk/kbuild/src/kbuild/internal/builder"
	"github.com/rsuntk/kbuild/src/kbuild/internal/config"
	"github.com/rsuntk/kbuild/src/kbuild/internal/history"
	"github.com/rsuntk/kbuild/src/kbuild/internal/kconfig"
	"github.com/rsuntk/kbuild/src/kbuild/internal/notify"
	"github.com/rsuntk/kbuild/src/kbuild/internal/packager"
	"github.com/rsuntk/kbuild/src/kbuild/internal/storage"
	"github.com/rsuntk/kbuild/src/kbuild/internal/toolchain"
)

var log = logs.NewDefault()

// Pipeline runs a full kernel build for one resolved configuration
type Pipeline struct {
	cfg config.BuildConfig

	// RecordHistory controls whether runs are written to the history
	// database. Disabled in tests.
	RecordHistory bool
}

// New creates a Pipeline for the given configuration
func New(cfg config.BuildConfig) *Pipeline {
	return &Pipeline{cfg: cfg, RecordHistory: true}
}

// Run executes the full pipeline and returns the package result.
func (p *Pipeline) Run(ctx context.Context) (*packager.Result, error) {
	start := time.Now()

	result, err := p.run(ctx, start)
	if p.RecordHistory {
		p.record(result, err, time.Since(start))
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, start time.Time) (*packager.Result, error) {
	log.Info("Starting kernel build",
		"device", p.cfg.Device,
		"defconfig", p.cfg.Defconfig,
		"jobs", p.cfg.Jobs)

	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.provision(ctx); err != nil {
		return nil, err
	}

	b := builder.New(p.cfg)
	logFile := p.openBuildLog(b)
	if logFile != nil {
		defer logFile.Close()
	}

	if err := b.Configure(ctx); err != nil {
		return nil, err
	}

	if p.cfg.PatchThermal {
		p.patchThermal()
	}

	if err := b.Compile(ctx); err != nil {
		return nil, err
	}

	// Packaging must never start unless the artifact exists; the packager
	// re-checks, but the compile step above already guarantees it.
	result, err := packager.New(p.cfg).Package(ctx, time.Since(start))
	if err != nil {
		return nil, err
	}

	p.deliver(ctx, result)

	log.Info("Build finished",
		"archive", result.ArchivePath,
		"sha256", result.Checksum,
		"elapsed_minutes", int(result.Elapsed.Minutes()))

	return result, nil
}

// RegenDefconfig materializes the configuration and writes the snapshot
// back to the defconfig template location, without compiling anything.
func (p *Pipeline) RegenDefconfig(ctx context.Context) (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	if err := p.provision(ctx); err != nil {
		return "", err
	}

	b := builder.New(p.cfg)
	if err := b.Configure(ctx); err != nil {
		return "", err
	}

	if p.cfg.PatchThermal {
		p.patchThermal()
	}

	snapshot := filepath.Join(p.cfg.KernelDir, "arch", p.cfg.Arch, "configs", p.cfg.Defconfig)
	if err := b.Snapshot(snapshot); err != nil {
		return "", err
	}
	return snapshot, nil
}

// validate rejects an unusable kernel source tree before any stage runs
func (p *Pipeline) validate() error {
	if !paths.IsDir(p.cfg.KernelDir) {
		return errors.ErrKernelDirInvalid.WithMessagef(
			"Kernel source directory %s does not exist", p.cfg.KernelDir)
	}
	return nil
}

// provision ensures the toolchain exists and its binaries are complete
func (p *Pipeline) provision(ctx context.Context) error {
	prov := toolchain.NewProvisioner(p.cfg.ToolchainDir, p.cfg.ToolchainURL, p.cfg.CcacheDir)
	if err := prov.Provision(ctx, p.cfg.UpdateToolchains); err != nil {
		return err
	}

	if missing := toolchain.ValidateInstall(p.cfg.ToolchainDir, toolchain.RequiredDeps()); len(missing) > 0 {
		log.Warn("Some build binaries were not found", "missing", strings.Join(missing, ", "))
	}
	return nil
}

// patchThermal applies the thermal patch rules to the generated config.
// A wrong setting name or path yields zero replacements; that is logged
// rather than failing the run.
func (p *Pipeline) patchThermal() {
	result, err := kconfig.Patch(p.cfg.ConfigPath(), kconfig.ThermalPatchRules)
	if err != nil {
		log.Warn("Thermal config patch failed", "error", err)
		return
	}
	if result.Total() == 0 {
		log.Warn("Thermal config patch made no replacements", "path", p.cfg.ConfigPath())
		return
	}
	log.Info("Thermal config patched", "replacements", result.Total())
}

// deliver sends the archive to the configured destinations. Delivery
// failures are warnings; the build already succeeded.
func (p *Pipeline) deliver(ctx context.Context, result *packager.Result) {
	sent, err := notify.New(p.cfg.Telegram).Send(ctx, p.cfg.Device, result)
	if err != nil {
		log.Warn("Chat upload failed", "error", err)
	} else if sent {
		log.Info("Notification sent", "chat", p.cfg.Telegram.ChatID)
	}

	if p.cfg.Mirror.Configured() {
		if err := p.mirror(ctx, result); err != nil {
			log.Warn("Mirror upload failed", "error", err)
		}
	}
}

// mirror uploads the archive and its checksum sidecar to object storage
func (p *Pipeline) mirror(ctx context.Context, result *packager.Result) error {
	backend, err := storage.New(storage.Config{
		Type: "s3",
		S3: storage.S3Config{
			Endpoint:        p.cfg.Mirror.Endpoint,
			Region:          p.cfg.Mirror.Region,
			Bucket:          p.cfg.Mirror.Bucket,
			AccessKeyID:     p.cfg.Mirror.AccessKeyID,
			SecretAccessKey: p.cfg.Mirror.SecretAccessKey,
			UsePathStyle:    p.cfg.Mirror.UsePathStyle,
		},
	})
	if err != nil {
		return errors.ErrMirrorUpload.WithCause(err)
	}

	name := filepath.Base(result.ArchivePath)
	key := fmt.Sprintf("kernels/%s/%s", p.cfg.Device, name)

	file, err := os.Open(result.ArchivePath)
	if err != nil {
		return errors.ErrMirrorUpload.WithCause(err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.ErrMirrorUpload.WithCause(err)
	}

	if err := backend.Upload(ctx, key, file, info.Size(), "application/zip"); err != nil {
		return errors.ErrMirrorUpload.WithCause(err)
	}

	sidecar := strings.NewReader(fmt.Sprintf("%s  %s\n", result.Checksum, name))
	if err := backend.Upload(ctx, key+".sha256", sidecar, int64(sidecar.Len()), "text/plain"); err != nil {
		return errors.ErrMirrorUpload.WithCause(err)
	}

	log.Info("Archive mirrored", "location", backend.Location(), "key", key)
	return nil
}

// openBuildLog tees the build system output into <out>/build.log
func (p *Pipeline) openBuildLog(b *builder.Builder) *os.File {
	if err := os.MkdirAll(p.cfg.OutDir, 0755); err != nil {
		log.Warn("Could not create output directory", "dir", p.cfg.OutDir, "error", err)
		return nil
	}
	logFile, err := os.Create(filepath.Join(p.cfg.OutDir, "build.log"))
	if err != nil {
		log.Warn("Could not create build log", "error", err)
		return nil
	}
	b.Output = io.MultiWriter(os.Stdout, logFile)
	return logFile
}

// record writes the run outcome to the history database
func (p *Pipeline) record(result *packager.Result, runErr error, elapsed time.Duration) {
	db, err := history.Open(p.cfg.HistoryPath)
	if err != nil {
		log.Warn("Could not open history database", "error", err)
		return
	}
	defer db.Close()

	rec := &history.Record{
		Device:     p.cfg.Device,
		Defconfig:  p.cfg.Defconfig,
		DurationMs: elapsed.Milliseconds(),
		Status:     history.StatusSuccess,
	}
	if runErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = runErr.Error()
	}
	if result != nil {
		rec.Archive = filepath.Base(result.ArchivePath)
		rec.Checksum = result.Checksum
	}

	if err := db.Insert(rec); err != nil {
		log.Warn("Could not record build run", "error", err)
	}
}
