package config

import (
	"fmt"
	"os"

	"github.com/rsuntk/kbuild/src/common/errors"
	"gopkg.in/yaml.v3"
)

// Profile describes per-device build settings that cannot be derived from
// the codename alone. Empty fields keep the derived default.
type Profile struct {
	// Defconfig overrides the "<device>_defconfig" make target
	Defconfig string `yaml:"defconfig,omitempty"`

	// TemplateBranch overrides the AnyKernel branch (defaults to the codename)
	TemplateBranch string `yaml:"anykernel_branch,omitempty"`

	// Image overrides the boot image file name
	Image string `yaml:"image,omitempty"`
}

// ProfileSet is a collection of device profiles keyed by codename
type ProfileSet struct {
	Devices map[string]Profile `yaml:"devices"`
}

// Lookup returns the profile for a device codename
func (s *ProfileSet) Lookup(device string) (Profile, bool) {
	if s == nil || s.Devices == nil {
		return Profile{}, false
	}
	p, ok := s.Devices[device]
	return p, ok
}

// LoadProfiles reads a device profile file. A missing file yields an empty
// set: profiles are optional and most devices work on derived defaults.
func LoadProfiles(path string) (*ProfileSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProfileSet{}, nil
		}
		return nil, errors.ErrProfileInvalid.WithCause(err)
	}

	var set ProfileSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, errors.ErrProfileInvalid.WithCause(fmt.Errorf("parse %s: %w", path, err))
	}

	return &set, nil
}
