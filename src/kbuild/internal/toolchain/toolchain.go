// Package toolchain guarantees a working clang cross-toolchain exists
// before the build stage runs, fetching and extracting it when absent.
package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rsuntk/kbuild/src/common/logs"
)

var log = logs.NewDefault()

// Deps lists the binaries a kernel build needs on the PATH.
type Deps struct {
	Compiler []string // clang/LLVM binaries provided by the toolchain
	Common   []string // host build utilities required regardless of toolchain
}

// All returns all required binaries (compiler + common).
func (d Deps) All() []string {
	return append(d.Compiler, d.Common...)
}

// commonBuildDeps are host utilities required by the kernel build system.
var commonBuildDeps = []string{"make", "bc", "flex", "bison", "git", "perl"}

// RequiredDeps returns the binaries a clang kernel build needs. The LLVM
// binaries are unprefixed; CROSS_COMPILE only steers the assembler.
func RequiredDeps() Deps {
	return Deps{
		Compiler: []string{"clang", "ld.lld", "llvm-ar", "llvm-nm", "llvm-strip", "llvm-objcopy", "llvm-objdump"},
		Common:   commonBuildDeps,
	}
}

// ValidateAvailability checks that all required binaries are resolvable in
// the given PATH-like lookup. Returns the list of missing binaries.
func ValidateAvailability(deps Deps) []string {
	var missing []string
	for _, bin := range deps.All() {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}

// ValidateInstall checks that the compiler binaries exist under the
// toolchain's bin directory and the common host utilities are resolvable
// on the PATH. Returns the list of missing binaries.
func ValidateInstall(toolchainDir string, deps Deps) []string {
	var missing []string
	for _, bin := range deps.Compiler {
		if _, err := os.Stat(filepath.Join(toolchainDir, "bin", bin)); err != nil {
			missing = append(missing, bin)
		}
	}
	for _, bin := range deps.Common {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return missing
}

// MakeEnv returns the environment variables passed to make for a clang
// build with the given cross-compile prefix.
func MakeEnv(crossPrefix string) map[string]string {
	env := map[string]string{
		"LLVM":    "1",
		"CC":      "clang",
		"LD":      "ld.lld",
		"AR":      "llvm-ar",
		"NM":      "llvm-nm",
		"STRIP":   "llvm-strip",
		"OBJCOPY": "llvm-objcopy",
		"OBJDUMP": "llvm-objdump",
		"HOSTCC":  "clang",
		"HOSTCXX": "clang++",
		"HOSTAR":  "llvm-ar",
		"HOSTLD":  "ld.lld",
	}
	if crossPrefix != "" {
		env["CROSS_COMPILE"] = crossPrefix
	}
	return env
}
