package toolchain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/rsuntk/kbuild/src/common/paths"
)

// Provisioner ensures a toolchain directory is populated before use
type Provisioner struct {
	httpClient *http.Client

	// Dir is the toolchain installation directory
	Dir string

	// URL is the tarball fetched when Dir is absent
	URL string

	// CcacheDir is the compilation cache removed on forced refresh
	CcacheDir string
}

// NewProvisioner creates a provisioner for the given toolchain location
func NewProvisioner(dir, url, ccacheDir string) *Provisioner {
	return &Provisioner{
		httpClient: &http.Client{Timeout: 0}, // downloads can be large
		Dir:        dir,
		URL:        url,
		CcacheDir:  ccacheDir,
	}
}

// Provision guarantees the toolchain directory exists. When it already
// exists and refresh is false, no network call is made. With refresh the
// toolchain and ccache directories are removed and re-provisioned.
func (p *Provisioner) Provision(ctx context.Context, refresh bool) error {
	if paths.IsDir(p.Dir) {
		if !refresh {
			log.Debug("Toolchain present", "dir", p.Dir)
			return nil
		}
		log.Info("Refreshing toolchain", "dir", p.Dir)
		if err := os.RemoveAll(p.Dir); err != nil {
			return errors.ErrToolchainExtract.WithCause(err)
		}
		if p.CcacheDir != "" {
			if err := os.RemoveAll(p.CcacheDir); err != nil {
				log.Warn("Could not remove ccache dir", "dir", p.CcacheDir, "error", err)
			}
		}
	}

	tarball, checksum, err := p.download(ctx)
	if err != nil {
		return err
	}
	defer os.Remove(tarball)

	log.Info("Toolchain downloaded", "sha256", checksum)

	// Extract into a staging directory and rename into place so an
	// interrupted extraction never satisfies the next run's existence check.
	staging := p.Dir + ".partial"
	if err := os.RemoveAll(staging); err != nil {
		return errors.ErrToolchainExtract.WithCause(err)
	}
	if err := ExtractTarball(tarball, staging); err != nil {
		os.RemoveAll(staging)
		return errors.ErrToolchainExtract.WithCause(err)
	}

	if err := paths.EnsureDir(p.Dir); err != nil {
		os.RemoveAll(staging)
		return errors.ErrToolchainExtract.WithCause(err)
	}
	if err := os.Rename(staging, p.Dir); err != nil {
		os.RemoveAll(staging)
		return errors.ErrToolchainExtract.WithCause(err)
	}

	log.Info("Toolchain provisioned", "dir", p.Dir)
	return nil
}

// download fetches the toolchain tarball to a temp file, hashing it while
// streaming. Returns the temp path and the hex sha256 digest.
func (p *Provisioner) download(ctx context.Context) (string, string, error) {
	log.Info("Downloading toolchain", "url", p.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", "", errors.ErrToolchainDownload.WithCause(err)
	}
	req.Header.Set("User-Agent", "kbuild/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", "", errors.ErrToolchainDownload.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", errors.ErrToolchainDownload.WithCause(
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	tempFile, err := os.CreateTemp("", "kbuild-toolchain-*"+filepath.Ext(p.URL))
	if err != nil {
		return "", "", errors.ErrToolchainDownload.WithCause(err)
	}
	tempPath := tempFile.Name()

	hash := sha256.New()
	writer := io.MultiWriter(tempFile, hash)

	if _, err := io.Copy(writer, resp.Body); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return "", "", errors.ErrToolchainDownload.WithCause(err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return "", "", errors.ErrToolchainDownload.WithCause(err)
	}

	return tempPath, hex.EncodeToString(hash.Sum(nil)), nil
}
