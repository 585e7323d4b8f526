package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rsuntk/kbuild/src/kbuild/internal/config"
)

func testConfig(t *testing.T) config.BuildConfig {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "kernel"), 0755); err != nil {
		t.Fatalf("mkdir kernel: %v", err)
	}
	return config.BuildConfig{
		Device:       "a03s",
		Arch:         "arm64",
		Defconfig:    "a03s_defconfig",
		ImageName:    "Image",
		KernelDir:    filepath.Join(dir, "kernel"),
		OutDir:       filepath.Join(dir, "out"),
		ToolchainDir: filepath.Join(dir, "toolchains", "clang"),
		CrossCompile: "aarch64-linux-gnu-",
		Jobs:         4,
	}
}

// fakeMake installs a shell script named make on the PATH that appends its
// arguments to a log file and runs the given body.
func fakeMake(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixture")
	}

	binDir := t.TempDir()
	logPath := filepath.Join(binDir, "make.log")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\n%s\n", logPath, body)
	if err := os.WriteFile(filepath.Join(binDir, "make"), []byte(script), 0755); err != nil {
		t.Fatalf("write fake make: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return logPath
}

func TestConfigure_GeneratesConfig(t *testing.T) {
	cfg := testConfig(t)
	fakeMake(t, fmt.Sprintf("mkdir -p %q && touch %q", cfg.OutDir, cfg.ConfigPath()))

	b := New(cfg)
	b.Output = io.Discard
	if err := b.Configure(context.Background()); err != nil {
		t.Fatalf("Configure error: %v", err)
	}
}

func TestConfigure_NoConfigProduced(t *testing.T) {
	cfg := testConfig(t)
	fakeMake(t, "exit 0")

	b := New(cfg)
	b.Output = io.Discard
	if err := b.Configure(context.Background()); err == nil {
		t.Fatal("expected error when make produces no .config")
	}
}

func TestCompile_PropagatesMakeFailure(t *testing.T) {
	cfg := testConfig(t)
	fakeMake(t, "exit 2")

	b := New(cfg)
	b.Output = io.Discard
	err := b.Compile(context.Background())
	if err == nil {
		t.Fatal("expected error from failing make")
	}
	if !strings.Contains(err.Error(), "Compilation failed!") {
		t.Errorf("expected fatal compile message, got %q", err.Error())
	}
}

// A make that exits zero without producing the image is still a failure,
// even if a stale artifact from an earlier run would have been present.
func TestCompile_ArtifactMissing(t *testing.T) {
	cfg := testConfig(t)
	fakeMake(t, "exit 0")

	b := New(cfg)
	b.Output = io.Discard
	err := b.Compile(context.Background())
	if err == nil {
		t.Fatal("expected error when artifact is absent after make")
	}
	if !strings.Contains(err.Error(), "Compilation failed!") {
		t.Errorf("expected fatal compile message, got %q", err.Error())
	}
}

func TestCompile_Success(t *testing.T) {
	cfg := testConfig(t)
	fakeMake(t, fmt.Sprintf("mkdir -p %q && touch %q", filepath.Dir(cfg.ArtifactPath()), cfg.ArtifactPath()))

	b := New(cfg)
	b.Output = io.Discard
	if err := b.Compile(context.Background()); err != nil {
		t.Fatalf("Compile error: %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.OutDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	content := "CONFIG_EXYNOS_THERMAL=y\n"
	if err := os.WriteFile(cfg.ConfigPath(), []byte(content), 0644); err != nil {
		t.Fatalf("write .config: %v", err)
	}

	dest := filepath.Join(cfg.KernelDir, "arch", cfg.Arch, "configs", cfg.Defconfig)
	b := New(cfg)
	if err := b.Snapshot(dest); err != nil {
		t.Fatalf("Snapshot error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(data) != content {
		t.Errorf("unexpected snapshot content: %q", data)
	}
}

func TestSnapshot_MissingConfig(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg)
	if err := b.Snapshot(filepath.Join(cfg.KernelDir, "snap")); err == nil {
		t.Fatal("expected error when .config does not exist")
	}
}

func TestBuildEnv(t *testing.T) {
	cfg := testConfig(t)
	b := New(cfg)

	env := b.buildEnv()
	vars := make(map[string]string, len(env))
	for _, kv := range env {
		if i := strings.Index(kv, "="); i > 0 {
			vars[kv[:i]] = kv[i+1:]
		}
	}

	if vars["LLVM"] != "1" {
		t.Errorf("expected LLVM=1, got %q", vars["LLVM"])
	}
	if vars["CC"] != "clang" {
		t.Errorf("expected CC=clang, got %q", vars["CC"])
	}
	if vars["CROSS_COMPILE"] != "aarch64-linux-gnu-" {
		t.Errorf("expected cross prefix, got %q", vars["CROSS_COMPILE"])
	}

	binDir := filepath.Join(cfg.ToolchainDir, "bin")
	if !strings.HasPrefix(vars["PATH"], binDir) {
		t.Errorf("toolchain bin not first in PATH: %q", vars["PATH"])
	}
}
