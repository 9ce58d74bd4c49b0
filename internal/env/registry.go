// SPDX-License-Identifier: MPL-2.0

package env

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"venvoy/pkg/types"
)

type (
	// RegistryEntry is one environment's row in the registry file.
	RegistryEntry struct {
		Name    types.EnvironmentName `yaml:"name"`
		Kind    Kind                  `yaml:"kind"`
		Version string                `yaml:"version"`
		Image   string                `yaml:"image"`
		Created time.Time             `yaml:"created"`
	}

	// Registry is the ~/.venvoy/environments.yaml index of known
	// environments. The per-environment directories stay authoritative; the
	// registry only saves a directory walk on listing.
	Registry struct {
		Environments []RegistryEntry `yaml:"environments"`
	}
)

// loadRegistry reads the registry file. A missing file is an empty registry.
func loadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("failed to read environment registry: %w", err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse environment registry: %w", err)
	}
	return &reg, nil
}

// saveRegistry writes the registry file with entries sorted by name.
func saveRegistry(path string, reg *Registry) error {
	slices.SortFunc(reg.Environments, func(a, b RegistryEntry) int {
		return strings.Compare(string(a.Name), string(b.Name))
	})
	data, err := yaml.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to serialize environment registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write environment registry: %w", err)
	}
	return nil
}

// Upsert adds or replaces the entry with the given name.
func (r *Registry) Upsert(entry RegistryEntry) {
	for i, e := range r.Environments {
		if e.Name == entry.Name {
			r.Environments[i] = entry
			return
		}
	}
	r.Environments = append(r.Environments, entry)
}

// Remove drops the entry with the given name, if present.
func (r *Registry) Remove(name types.EnvironmentName) {
	r.Environments = slices.DeleteFunc(r.Environments, func(e RegistryEntry) bool {
		return e.Name == name
	})
}

// Lookup returns the entry with the given name.
func (r *Registry) Lookup(name types.EnvironmentName) (RegistryEntry, bool) {
	for _, e := range r.Environments {
		if e.Name == name {
			return e, true
		}
	}
	return RegistryEntry{}, false
}
