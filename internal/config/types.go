// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidPythonVersion is returned when a PythonVersion value is malformed.
	ErrInvalidPythonVersion = errors.New("invalid python version")
	// ErrInvalidRVersion is returned when an RVersion value is malformed.
	ErrInvalidRVersion = errors.New("invalid r version")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// PythonVersion is a "major.minor" Python version string, e.g. "3.11".
	PythonVersion string

	// InvalidPythonVersionError is returned when a PythonVersion is not of
	// the "major.minor" form. It wraps ErrInvalidPythonVersion.
	InvalidPythonVersionError struct {
		Value PythonVersion
	}

	// RVersion is a "major.minor" R version string, e.g. "4.4".
	RVersion string

	// InvalidRVersionError is returned when an RVersion is not of the
	// "major.minor" form. It wraps ErrInvalidRVersion.
	InvalidRVersionError struct {
		Value RVersion
	}

	// UIConfig holds terminal presentation preferences.
	UIConfig struct {
		ColorScheme ColorScheme `mapstructure:"color_scheme" validate:"required"`
		Verbose     bool        `mapstructure:"verbose"`
	}

	// AutoSaveConfig controls the background environment snapshotting that
	// runs alongside interactive sessions.
	AutoSaveConfig struct {
		Enabled bool `mapstructure:"enabled"`
		// IntervalSeconds is how often the package-change signal file is
		// polled inside the running container.
		IntervalSeconds int `mapstructure:"interval_seconds" validate:"gte=1"`
	}

	// Config is venvoy's full user configuration.
	Config struct {
		// Runtime optionally pins a container runtime by name, bypassing
		// detection. Empty means auto-select.
		Runtime string `mapstructure:"runtime" validate:"omitempty,oneof=docker apptainer singularity podman"`
		// PythonVersion is the default Python for new environments.
		PythonVersion PythonVersion `mapstructure:"python_version" validate:"required"`
		// RVersion is the default R for new environments.
		RVersion RVersion `mapstructure:"r_version" validate:"required"`
		// BaseImage overrides the default environment base image.
		BaseImage string `mapstructure:"base_image"`
		UI        UIConfig       `mapstructure:"ui"`
		AutoSave  AutoSaveConfig `mapstructure:"auto_save"`
	}

	// InvalidConfigError aggregates field-level validation failures.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		Reasons []string
	}
)

// Error implements the error interface.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Validate returns an error if the ColorScheme is not one of auto/dark/light.
func (c ColorScheme) Validate() error {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: c}
	}
}

// Error implements the error interface.
func (e *InvalidPythonVersionError) Error() string {
	return fmt.Sprintf("invalid python version %q (expected major.minor, e.g. 3.11)", e.Value)
}

// Unwrap returns ErrInvalidPythonVersion for errors.Is compatibility.
func (e *InvalidPythonVersionError) Unwrap() error { return ErrInvalidPythonVersion }

// Validate returns an error unless the version is a "major.minor" pair of
// digit runs.
func (v PythonVersion) Validate() error {
	if !isMajorMinor(string(v)) {
		return &InvalidPythonVersionError{Value: v}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidRVersionError) Error() string {
	return fmt.Sprintf("invalid r version %q (expected major.minor, e.g. 4.4)", e.Value)
}

// Unwrap returns ErrInvalidRVersion for errors.Is compatibility.
func (e *InvalidRVersionError) Unwrap() error { return ErrInvalidRVersion }

// Validate returns an error unless the version is a "major.minor" pair of
// digit runs.
func (v RVersion) Validate() error {
	if !isMajorMinor(string(v)) {
		return &InvalidRVersionError{Value: v}
	}
	return nil
}

func isMajorMinor(s string) bool {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || major == "" || minor == "" {
		return false
	}
	for _, part := range []string{major, minor} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return "invalid config: " + strings.Join(e.Reasons, "; ")
}

// Unwrap returns ErrInvalidConfig for errors.Is compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks the whole configuration and aggregates every failure.
func (c *Config) Validate() error {
	var reasons []string

	if c.Runtime != "" {
		switch c.Runtime {
		case "docker", "apptainer", "singularity", "podman":
		default:
			reasons = append(reasons, fmt.Sprintf("runtime %q is not one of docker, apptainer, singularity, podman", c.Runtime))
		}
	}
	if err := c.PythonVersion.Validate(); err != nil {
		reasons = append(reasons, err.Error())
	}
	if err := c.RVersion.Validate(); err != nil {
		reasons = append(reasons, err.Error())
	}
	if err := c.UI.ColorScheme.Validate(); err != nil {
		reasons = append(reasons, err.Error())
	}
	if c.AutoSave.IntervalSeconds < 1 {
		reasons = append(reasons, fmt.Sprintf("auto_save.interval_seconds must be at least 1, got %d", c.AutoSave.IntervalSeconds))
	}

	if len(reasons) > 0 {
		return &InvalidConfigError{Reasons: reasons}
	}
	return nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		PythonVersion: "3.11",
		RVersion:      "4.4",
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
		AutoSave: AutoSaveConfig{
			Enabled:         true,
			IntervalSeconds: 2,
		},
	}
}
