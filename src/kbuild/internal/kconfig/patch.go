package kconfig

import (
	"fmt"
	"os"
	"strings"
)

// ThermalPatchRules are the settings forced off when the thermal patch is
// enabled. Samsung's stock thermal drivers throttle custom builds too
// aggressively, so they are disabled wholesale.
var ThermalPatchRules = []string{
	"CONFIG_SEC_THERMISTOR",
	"CONFIG_SAMSUNG_TUI",
	"CONFIG_EXYNOS_THERMAL",
	"CONFIG_GPU_THERMAL",
	"CONFIG_ISP_THERMAL",
	"CONFIG_SENSORS_FINGERPRINT_THERMAL",
}

// PatchResult reports how many lines each rule rewrote. A zero count for a
// rule means the setting was absent or already disabled.
type PatchResult struct {
	Replaced map[string]int
}

// Total returns the total number of rewritten lines
func (r PatchResult) Total() int {
	n := 0
	for _, c := range r.Replaced {
		n += c
	}
	return n
}

// Patch rewrites every "<SETTING>=y" or "<SETTING>=m" line matching one of
// the rules to the "# <SETTING> is not set" marker, in place, keeping no
// backup. Reapplying to an already-patched file is a no-op: the disabled
// marker never matches the enabled forms.
func Patch(path string, rules []string) (PatchResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PatchResult{}, fmt.Errorf("read config %s: %w", path, err)
	}

	result := PatchResult{Replaced: make(map[string]int, len(rules))}

	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, rule := range rules {
			if trimmed == rule+"=y" || trimmed == rule+"=m" {
				lines[i] = fmt.Sprintf("# %s is not set", rule)
				result.Replaced[rule]++
				break
			}
		}
	}

	if result.Total() == 0 {
		return result, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return result, err
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), info.Mode().Perm()); err != nil {
		return result, fmt.Errorf("write config %s: %w", path, err)
	}

	return result, nil
}
