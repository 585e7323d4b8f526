// Package kconfig manipulates generated kernel configuration files:
// parsing .config contents, generating fragments, and applying the
// in-place patch rules used to force settings off.
package kconfig

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Regexes for the two line forms a .config file uses
var (
	setRegex   = regexp.MustCompile(`^(CONFIG_[A-Z0-9_]+)=(.*)$`)
	unsetRegex = regexp.MustCompile(`^# (CONFIG_[A-Z0-9_]+) is not set$`)
)

// ParseFile parses a kernel .config file into a map. Disabled settings
// ("# CONFIG_FOO is not set") map to "n".
func ParseFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	options := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if matches := setRegex.FindStringSubmatch(line); matches != nil {
			key := matches[1]
			value := matches[2]
			if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
				value = value[1 : len(value)-1]
			}
			options[key] = value
		} else if matches := unsetRegex.FindStringSubmatch(line); matches != nil {
			options[matches[1]] = "n"
		}
	}

	return options, scanner.Err()
}

// GenerateFragment writes a kernel config fragment file with deterministic
// key ordering. Usable with scripts/kconfig/merge_config.sh.
func GenerateFragment(options map[string]string, outputPath string) error {
	var content strings.Builder

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := options[key]
		switch value {
		case "y", "m":
			content.WriteString(fmt.Sprintf("%s=%s\n", key, value))
		case "n":
			content.WriteString(fmt.Sprintf("# %s is not set\n", key))
		default:
			content.WriteString(fmt.Sprintf("%s=\"%s\"\n", key, value))
		}
	}

	return os.WriteFile(outputPath, []byte(content.String()), 0644)
}
