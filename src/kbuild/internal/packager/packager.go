// Package packager turns a compiled kernel image into a flashable archive:
// it fetches a fresh AnyKernel template checkout, inserts the image, zips
// the tree, and computes the content checksum.
package packager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/logs"
	"github.com/rsuntk/kbuild/src/common/paths"
	"github.com/rsuntk/kbuild/src/kbuild/internal/config"
)

var log = logs.NewDefault()

// UntrackedRevision is the archive-name marker used when the kernel tree
// has no usable git revision metadata.
const UntrackedRevision = "untracked"

// Result describes a successfully produced archive
type Result struct {
	// ArchivePath is the flashable zip in the working directory
	ArchivePath string

	// Checksum is the hex sha256 digest of the archive
	Checksum string

	// Elapsed is the total build duration, reported in the notification
	Elapsed time.Duration
}

// Packager assembles the flashable archive for one build
type Packager struct {
	cfg config.BuildConfig
}

// New creates a Packager for the given configuration
func New(cfg config.BuildConfig) *Packager {
	return &Packager{cfg: cfg}
}

// ArchiveName returns the deterministic archive name for a build:
// rsuntk_<device>-<UTC yyyymmdd-HHMM>-<revision>.zip. Minute resolution
// means two builds of the same revision within the same minute collide
// and the later archive overwrites the earlier one; this matches the
// established artifact naming and is intentional.
func ArchiveName(device string, at time.Time, revision string) string {
	if revision == "" {
		revision = UntrackedRevision
	}
	return fmt.Sprintf("rsuntk_%s-%s-%s.zip", device, at.UTC().Format("20060102-1504"), revision)
}

// Package produces the flashable archive. The compiled artifact must exist
// on disk before this runs; the pipeline enforces that invariant.
func (p *Packager) Package(ctx context.Context, elapsed time.Duration) (*Result, error) {
	artifact := p.cfg.ArtifactPath()
	if !paths.IsFile(artifact) {
		return nil, errors.ErrArtifactMissing.WithMessagef(
			"Compilation failed! %s not found", artifact)
	}

	if err := p.freshCheckout(ctx); err != nil {
		return nil, err
	}

	dest := filepath.Join(p.cfg.TemplateDir, p.cfg.ImageName)
	if err := copyFile(artifact, dest); err != nil {
		return nil, errors.ErrArchive.WithCause(err)
	}

	name := ArchiveName(p.cfg.Device, time.Now(), KernelRevision(p.cfg.KernelDir))
	log.Info("Creating flashable archive", "name", name)

	if err := ZipDir(p.cfg.TemplateDir, name, defaultExclusions); err != nil {
		return nil, errors.ErrArchive.WithCause(err)
	}

	checksum, err := FileChecksum(name)
	if err != nil {
		return nil, errors.ErrArchive.WithCause(err)
	}

	result := &Result{
		ArchivePath: name,
		Checksum:    checksum,
		Elapsed:     elapsed,
	}

	if p.cfg.PostBuildClean {
		p.cleanup(artifact)
	}

	return result, nil
}

// freshCheckout removes any stale template checkout and clones the branch
// matching the build target.
func (p *Packager) freshCheckout(ctx context.Context) error {
	if err := os.RemoveAll(p.cfg.TemplateDir); err != nil {
		return errors.ErrTemplateCheckout.WithCause(err)
	}

	log.Info("Fetching packaging template",
		"repo", p.cfg.TemplateRepo, "branch", p.cfg.TemplateBranch)

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1",
		"-b", p.cfg.TemplateBranch, p.cfg.TemplateRepo, p.cfg.TemplateDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.ErrTemplateCheckout.WithCause(
			fmt.Errorf("git clone: %w: %s", err, strings.TrimSpace(string(out))))
	}
	return nil
}

// cleanup removes the packaging checkout and the intermediate artifact
func (p *Packager) cleanup(artifact string) {
	if err := os.RemoveAll(p.cfg.TemplateDir); err != nil {
		log.Warn("Could not remove packaging checkout", "dir", p.cfg.TemplateDir, "error", err)
	}
	if err := os.Remove(artifact); err != nil {
		log.Warn("Could not remove intermediate artifact", "path", artifact, "error", err)
	}
}

// KernelRevision returns the short hash of the kernel tree's HEAD, or the
// empty string when the tree is not under version control.
func KernelRevision(kernelDir string) string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	cmd.Dir = kernelDir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// FileChecksum returns the hex sha256 digest of a file's contents
func FileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// copyFile copies a regular file, preserving its permission bits
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
