package toolchain

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// makeTarGz builds a small .tar.gz fixture with the given file entries
func makeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create tarball: %v", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		header := &tar.Header{
			Name: name,
			Mode: 0755,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
}

func TestExtractTarball_Gzip(t *testing.T) {
	dir := t.TempDir()
	tarball := filepath.Join(dir, "toolchain.tar.gz")
	makeTarGz(t, tarball, map[string]string{
		"bin/clang":  "clang binary",
		"lib/libc.a": "static lib",
	})

	dest := filepath.Join(dir, "out")
	if err := ExtractTarball(tarball, dest); err != nil {
		t.Fatalf("ExtractTarball error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "bin", "clang"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != "clang binary" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestExtractTarball_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	tarball := filepath.Join(dir, "evil.tar.gz")
	makeTarGz(t, tarball, map[string]string{
		"../escape": "nope",
	})

	dest := filepath.Join(dir, "out")
	if err := ExtractTarball(tarball, dest); err == nil {
		t.Fatal("expected error for path traversal entry")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape")); err == nil {
		t.Error("traversal entry was written outside the destination")
	}
}

func TestExtractTarball_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "toolchain.rar")
	if err := os.WriteFile(archive, []byte("not an archive"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := ExtractTarball(archive, filepath.Join(dir, "out")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestProvision_ExistingDirSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	toolchainDir := filepath.Join(dir, "clang")
	if err := os.MkdirAll(toolchainDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	prov := NewProvisioner(toolchainDir, server.URL+"/clang.tar.gz", "")
	if err := prov.Provision(context.Background(), false); err != nil {
		t.Fatalf("Provision error: %v", err)
	}
	if requests != 0 {
		t.Errorf("expected no network call for existing toolchain, got %d requests", requests)
	}
}

func TestProvision_DownloadsAndExtracts(t *testing.T) {
	dir := t.TempDir()
	tarball := filepath.Join(dir, "clang.tar.gz")
	makeTarGz(t, tarball, map[string]string{"bin/clang": "clang binary"})
	payload, err := os.ReadFile(tarball)
	if err != nil {
		t.Fatalf("read tarball: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	toolchainDir := filepath.Join(dir, "toolchains", "clang")
	prov := NewProvisioner(toolchainDir, server.URL+"/clang.tar.gz", "")
	if err := prov.Provision(context.Background(), false); err != nil {
		t.Fatalf("Provision error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(toolchainDir, "bin", "clang")); err != nil {
		t.Errorf("toolchain binary missing after provisioning: %v", err)
	}
	if _, err := os.Stat(toolchainDir + ".partial"); err == nil {
		t.Error("staging directory left behind after success")
	}
}

func TestProvision_RefreshRemovesCcache(t *testing.T) {
	dir := t.TempDir()
	tarball := filepath.Join(dir, "clang.tar.gz")
	makeTarGz(t, tarball, map[string]string{"bin/clang": "v2"})
	payload, err := os.ReadFile(tarball)
	if err != nil {
		t.Fatalf("read tarball: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	toolchainDir := filepath.Join(dir, "clang")
	ccacheDir := filepath.Join(dir, "ccache")
	for _, d := range []string{toolchainDir, ccacheDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(ccacheDir, "stamp"), []byte("old"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	prov := NewProvisioner(toolchainDir, server.URL+"/clang.tar.gz", ccacheDir)
	if err := prov.Provision(context.Background(), true); err != nil {
		t.Fatalf("Provision error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(ccacheDir, "stamp")); err == nil {
		t.Error("ccache contents survived forced refresh")
	}
	if _, err := os.Stat(filepath.Join(toolchainDir, "bin", "clang")); err != nil {
		t.Errorf("refreshed toolchain missing: %v", err)
	}
}

func TestProvision_DownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	toolchainDir := filepath.Join(t.TempDir(), "clang")
	prov := NewProvisioner(toolchainDir, server.URL+"/clang.tar.gz", "")
	if err := prov.Provision(context.Background(), false); err == nil {
		t.Fatal("expected error for 404 download")
	}
	if _, err := os.Stat(toolchainDir); err == nil {
		t.Error("toolchain directory exists after failed provisioning")
	}
}
