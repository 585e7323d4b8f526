package packager

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func buildTemplateTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"anykernel.sh":             "#!/sbin/sh",
		"Image":                    "kernel image",
		"README.md":                "template readme",
		"tools/busybox":            "busybox binary",
		"modules/.gitkeep":         "",
		"patch/placeholder":        "",
		".git/HEAD":                "ref: refs/heads/a03s",
		".git/objects/ab/cdef0123": "blob",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func archiveNames(t *testing.T, path string) map[string]bool {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	return names
}

func TestZipDir_ExcludesMetadataAndPlaceholders(t *testing.T) {
	dir := buildTemplateTree(t)
	out := filepath.Join(t.TempDir(), "test.zip")

	if err := ZipDir(dir, out, defaultExclusions); err != nil {
		t.Fatalf("ZipDir error: %v", err)
	}

	names := archiveNames(t, out)

	for _, want := range []string{"anykernel.sh", "Image", "tools/busybox"} {
		if !names[want] {
			t.Errorf("expected %s in archive, contents: %v", want, names)
		}
	}
	for name := range names {
		switch {
		case name == "README.md":
			t.Error("readme was not excluded")
		case filepath.Base(name) == ".gitkeep" || filepath.Base(name) == "placeholder":
			t.Errorf("placeholder file %s was not excluded", name)
		case len(name) >= 4 && name[:4] == ".git":
			t.Errorf("version-control metadata %s was not excluded", name)
		}
	}
}

func TestZipDir_ContentsAtArchiveRoot(t *testing.T) {
	dir := buildTemplateTree(t)
	out := filepath.Join(t.TempDir(), "test.zip")

	if err := ZipDir(dir, out, defaultExclusions); err != nil {
		t.Fatalf("ZipDir error: %v", err)
	}

	names := archiveNames(t, out)
	if !names["anykernel.sh"] {
		t.Error("expected anykernel.sh at the archive root, flash tools require it there")
	}
}

func TestExcluded(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"anykernel.sh", false},
		{"README.md", true},
		{".git", true},
		{filepath.Join(".git", "HEAD"), true},
		{filepath.Join("modules", ".gitkeep"), true},
		{filepath.Join("patch", "placeholder"), true},
		{filepath.Join("tools", "busybox"), false},
	}
	for _, tc := range cases {
		if got := excluded(tc.path, defaultExclusions); got != tc.want {
			t.Errorf("excluded(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
