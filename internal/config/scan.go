package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile names a robot described by one file in the profiles directory.
type Profile struct {
	Filename string `json:"filename"`
	Name     string `json:"name"`
	IP       string `json:"ip"`
}

type profilePayload struct {
	Name  string      `yaml:"name"`
	Robot RobotConfig `yaml:"robot"`
}

// ScanProfiles executes the scanProfiles function.
func ScanProfiles(profilesDir string) ([]Profile, error) {
	profiles := []Profile{}
	if profilesDir == "" {
		return profiles, nil
	}

	_ = filepath.WalkDir(profilesDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d == nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		profile, err := ReadProfile(path)
		if err != nil {
			return nil
		}
		profile.Filename = d.Name()
		profiles = append(profiles, profile)
		return nil
	})

	return profiles, nil
}

// ReadProfile executes the readProfile function.
func ReadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	var payload profilePayload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return Profile{}, err
	}
	if payload.Robot.IP == "" {
		return Profile{}, fmt.Errorf("profile %s: robot.ip is required", path)
	}
	name := payload.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".yaml")
	}
	return Profile{Name: name, IP: payload.Robot.IP}, nil
}

// FindProfile executes the findProfile function.
func FindProfile(profilesDir string, name string) (Profile, error) {
	profiles, err := ScanProfiles(profilesDir)
	if err != nil {
		return Profile{}, err
	}
	for _, profile := range profiles {
		if profile.Name == name || profile.Filename == name {
			return profile, nil
		}
	}
	return Profile{}, fmt.Errorf("no profile named %q in %s", name, profilesDir)
}
