package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the optional manifest name inside a targets directory
const ManifestFile = "targets.yaml"

// ErrNoTargets is returned when a directory holds no usable templates
var ErrNoTargets = errors.New("no target images found")

// TargetDefinition represents a target in the manifest
type TargetDefinition struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// Manifest represents the structure of targets.yaml
type Manifest struct {
	Targets []TargetDefinition `yaml:"targets"`
}

// IsTemplateFile reports whether name has a .png extension, any case
func IsTemplateFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".png")
}

// LoadFromDirectory builds the ordered target catalog for dir. With a
// manifest the manifest decides order and names; otherwise every .png
// file is a target, ordered by file name and named after it.
func LoadFromDirectory(dir string) ([]Entry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("targets path %s is not a directory", dir)
	}

	manifestPath := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		return LoadManifest(manifestPath)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets directory %s: %w", dir, err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !IsTemplateFile(f.Name()) {
			continue
		}
		entries = append(entries, Entry{
			ID:   f.Name(),
			Name: f.Name(),
			Path: filepath.Join(dir, f.Name()),
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTargets, dir)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// LoadManifest reads a targets.yaml file. Files are resolved relative to
// the manifest and must exist.
func LoadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest YAML: %w", err)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool)
	entries := make([]Entry, 0, len(manifest.Targets))

	for i, def := range manifest.Targets {
		if def.File == "" {
			return nil, fmt.Errorf("target %d: file cannot be empty", i+1)
		}
		if !IsTemplateFile(def.File) {
			return nil, fmt.Errorf("target %d (%s): only .png files are supported", i+1, def.File)
		}
		if seen[def.File] {
			return nil, fmt.Errorf("target %d (%s): listed twice", i+1, def.File)
		}
		seen[def.File] = true

		full := filepath.Join(base, def.File)
		if _, err := os.Stat(full); err != nil {
			return nil, fmt.Errorf("target %d (%s): %w", i+1, def.File, err)
		}

		name := def.Name
		if name == "" {
			name = filepath.Base(def.File)
		}
		entries = append(entries, Entry{ID: def.File, Name: name, Path: full})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w in manifest %s", ErrNoTargets, path)
	}
	return entries, nil
}
