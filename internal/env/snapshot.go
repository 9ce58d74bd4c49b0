// SPDX-License-Identifier: MPL-2.0

package env

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is venvoy's own version string, stamped into exports.
var Version = "0.1.0"

// scientificPackages are packages assumed to come from conda-forge when an
// environment.yml is generated. Everything else goes into the pip section.
// A heuristic split: conda can install all of these, and the distinction
// only affects which solver reinstalls them on restore.
var scientificPackages = map[string]struct{}{
	"numpy":        {},
	"pandas":       {},
	"matplotlib":   {},
	"scipy":        {},
	"scikit-learn": {},
	"jupyter":      {},
	"ipython":      {},
	"seaborn":      {},
	"plotly":       {},
	"bokeh":        {},
	"tensorflow":   {},
	"pytorch":      {},
	"torch":        {},
	"transformers": {},
}

type (
	// Package is one installed package with its pinned version.
	Package struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	}

	// EnvironmentFile is the conda-style environment.yml written by
	// auto-save and read back on restore. Dependencies mixes plain
	// "name=version" strings with a trailing {pip: [...]} mapping, matching
	// the format conda itself emits.
	EnvironmentFile struct {
		Name          string   `yaml:"name"`
		Channels      []string `yaml:"channels"`
		Dependencies  []any    `yaml:"dependencies"`
		Exported      string   `yaml:"exported"`
		VenvoyVersion string   `yaml:"venvoy_version"`
	}
)

// parsePipFreeze parses `pip freeze` output into packages. Lines without a
// "==" pin (editable installs, VCS references) are skipped.
func parsePipFreeze(output string) []Package {
	var packages []Package
	for line := range strings.SplitSeq(output, "\n") {
		line = strings.TrimSpace(line)
		name, version, ok := strings.Cut(line, "==")
		if !ok || name == "" {
			continue
		}
		packages = append(packages, Package{Name: name, Version: version})
	}
	return packages
}

// NewEnvironmentFile builds a conda-style environment file from a package
// listing, splitting conda-forge candidates from pip-only packages.
func NewEnvironmentFile(name string, packages []Package, now time.Time) *EnvironmentFile {
	envFile := &EnvironmentFile{
		Name:          name,
		Channels:      []string{"conda-forge", "defaults"},
		Dependencies:  []any{},
		Exported:      now.Format(time.RFC3339),
		VenvoyVersion: Version,
	}

	var pipPackages []string
	for _, pkg := range packages {
		if _, ok := scientificPackages[strings.ToLower(pkg.Name)]; ok {
			envFile.Dependencies = append(envFile.Dependencies, fmt.Sprintf("%s=%s", pkg.Name, pkg.Version))
		} else {
			pipPackages = append(pipPackages, fmt.Sprintf("%s==%s", pkg.Name, pkg.Version))
		}
	}
	if len(pipPackages) > 0 {
		envFile.Dependencies = append(envFile.Dependencies, map[string]any{"pip": pipPackages})
	}
	return envFile
}

// Counts returns the number of conda and pip dependencies in the file.
func (f *EnvironmentFile) Counts() (conda, pip int) {
	for _, dep := range f.Dependencies {
		switch d := dep.(type) {
		case string:
			conda++
		case map[string]any:
			if entries, ok := d["pip"].([]any); ok {
				pip += len(entries)
			}
		}
	}
	return conda, pip
}

// Split separates the file's dependencies into conda specs and pip specs.
func (f *EnvironmentFile) Split() (condaDeps, pipDeps []string) {
	for _, dep := range f.Dependencies {
		switch d := dep.(type) {
		case string:
			condaDeps = append(condaDeps, d)
		case map[string]any:
			if entries, ok := d["pip"].([]any); ok {
				for _, entry := range entries {
					if s, ok := entry.(string); ok {
						pipDeps = append(pipDeps, s)
					}
				}
			}
		}
	}
	return condaDeps, pipDeps
}

// Marshal renders the environment file as YAML.
func (f *EnvironmentFile) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize environment file: %w", err)
	}
	return data, nil
}

// parseEnvironmentFile parses an environment.yml.
func parseEnvironmentFile(data []byte) (*EnvironmentFile, error) {
	var f EnvironmentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse environment file: %w", err)
	}
	return &f, nil
}
