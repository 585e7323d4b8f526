package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rsuntk/kbuild/src/common/errors"
	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetDefaults()
	t.Cleanup(viper.Reset)
}

func TestResolve_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	if cfg.Device != DefaultDevice {
		t.Errorf("expected default device %q, got %q", DefaultDevice, cfg.Device)
	}
	if cfg.Defconfig != DefaultDevice+"_defconfig" {
		t.Errorf("expected derived defconfig, got %q", cfg.Defconfig)
	}
	if cfg.TemplateBranch != DefaultDevice {
		t.Errorf("expected template branch %q, got %q", DefaultDevice, cfg.TemplateBranch)
	}
	if cfg.Jobs <= 0 {
		t.Errorf("expected positive job count, got %d", cfg.Jobs)
	}
	if cfg.ToolchainDir == "" || cfg.OutDir == "" {
		t.Error("resolved config has empty toolchain or output path")
	}
}

func TestResolve_EmptyDevice(t *testing.T) {
	resetViper(t)
	viper.Set("device", "")

	_, err := Resolve(nil)
	if err == nil {
		t.Fatal("expected error for empty device")
	}
	if !errors.Is(err, errors.ErrDeviceRequired) {
		t.Errorf("expected ErrDeviceRequired, got %v", err)
	}
	if errors.GetExitCode(err) != errors.ExitConfig {
		t.Errorf("expected exit code %d, got %d", errors.ExitConfig, errors.GetExitCode(err))
	}
}

func TestResolve_ProfileOverrides(t *testing.T) {
	resetViper(t)
	viper.Set("device", "m21")

	profiles := &ProfileSet{
		Devices: map[string]Profile{
			"m21": {Defconfig: "exynos9611-m21_defconfig", TemplateBranch: "m21-new", Image: "Image.gz"},
		},
	}

	cfg, err := Resolve(profiles)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if cfg.Defconfig != "exynos9611-m21_defconfig" {
		t.Errorf("profile defconfig not applied, got %q", cfg.Defconfig)
	}
	if cfg.TemplateBranch != "m21-new" {
		t.Errorf("profile branch not applied, got %q", cfg.TemplateBranch)
	}
	if cfg.ImageName != "Image.gz" {
		t.Errorf("profile image not applied, got %q", cfg.ImageName)
	}
}

func TestResolve_ProfileUnknownDeviceKeepsDefaults(t *testing.T) {
	resetViper(t)
	viper.Set("device", "unknown")

	profiles := &ProfileSet{Devices: map[string]Profile{"m21": {Defconfig: "x"}}}

	cfg, err := Resolve(profiles)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if cfg.Defconfig != "unknown_defconfig" {
		t.Errorf("expected derived defconfig, got %q", cfg.Defconfig)
	}
}

func TestArtifactPath(t *testing.T) {
	resetViper(t)
	viper.Set("out_dir", "/tmp/out")

	cfg, err := Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	want := filepath.Join("/tmp/out", "arch", "arm64", "boot", "Image")
	if cfg.ArtifactPath() != want {
		t.Errorf("expected artifact path %q, got %q", want, cfg.ArtifactPath())
	}
}

func TestTelegramConfigured(t *testing.T) {
	if (TelegramConfig{}).Configured() {
		t.Error("empty credentials reported as configured")
	}
	if (TelegramConfig{Token: "t"}).Configured() {
		t.Error("token-only credentials reported as configured")
	}
	if !(TelegramConfig{Token: "t", ChatID: "c"}).Configured() {
		t.Error("full credentials reported as unconfigured")
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.yaml")
	content := `devices:
  a03s:
    defconfig: a03s_defconfig
    anykernel_branch: a03s-legacy
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	set, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles error: %v", err)
	}
	p, ok := set.Lookup("a03s")
	if !ok {
		t.Fatal("expected a03s profile")
	}
	if p.TemplateBranch != "a03s-legacy" {
		t.Errorf("expected branch a03s-legacy, got %q", p.TemplateBranch)
	}
}

func TestLoadProfiles_Missing(t *testing.T) {
	set, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing profile file should not error, got %v", err)
	}
	if _, ok := set.Lookup("any"); ok {
		t.Error("empty set returned a profile")
	}
}

func TestLoadProfiles_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte("devices: ["), 0644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	_, err := LoadProfiles(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config domain error, got %v", err)
	}
}
