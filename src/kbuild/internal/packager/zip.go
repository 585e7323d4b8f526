package packager

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// defaultExclusions are the template files that never belong in a
// flashable archive: version-control metadata, the template readme,
// and placeholder files kept only to preserve empty directories.
var defaultExclusions = []string{".git", "README.md", ".gitkeep", "placeholder"}

// excluded reports whether a relative archive path matches an exclusion.
// Directory exclusions apply to everything beneath them.
func excluded(relPath string, exclusions []string) bool {
	base := filepath.Base(relPath)
	for _, ex := range exclusions {
		if base == ex {
			return true
		}
		if strings.HasPrefix(relPath, ex+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// ZipDir compresses the contents of dir into a zip archive at outPath.
// Paths inside the archive are relative to dir, so the template contents
// sit at the archive root the way flash tools expect.
func ZipDir(dir, outPath string, exclusions []string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if excluded(rel, exclusions) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(w, file)
		return err
	})
	if err != nil {
		return err
	}

	return zw.Close()
}
