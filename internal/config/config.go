// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"venvoy/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "venvoy"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "VENVOY"
)

// HomeDir returns venvoy's state directory, ~/.venvoy on all platforms. The
// same directory is mounted into environment containers, so it deliberately
// avoids XDG-style per-OS splits.
func HomeDir() (string, error) {
	if homeDirOverride != "" {
		return homeDirOverride, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "."+AppName), nil
}

// EnvironmentsDir returns the directory holding per-environment state
// (Dockerfiles, environment.yml snapshots, history).
func EnvironmentsDir() (string, error) {
	base, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "environments"), nil
}

// RegistryPath returns the path of the environment registry file.
func RegistryPath() (string, error) {
	base, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "environments.yaml"), nil
}

// EnsureDirs creates venvoy's state directories if missing.
func EnsureDirs() error {
	envs, err := EnvironmentsDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(envs, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level cache state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("runtime", defaults.Runtime)
	v.SetDefault("python_version", string(defaults.PythonVersion))
	v.SetDefault("r_version", string(defaults.RVersion))
	v.SetDefault("base_image", defaults.BaseImage)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("auto_save.enabled", defaults.AutoSave.Enabled)
	v.SetDefault("auto_save.interval_seconds", defaults.AutoSave.IntervalSeconds)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		// An explicit path must exist; silence here would hide typos.
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the file contains valid YAML syntax").
				WithSuggestion("Verify the configuration values match the expected fields").
				Wrap(err).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		dir := opts.ConfigDirPath
		if dir == "" {
			var err error
			dir, err = HomeDir()
			if err != nil {
				return nil, "", err
			}
		}
		path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(path) {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, "", issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(path).
					WithSuggestion("Check that the file contains valid YAML syntax").
					WithSuggestion("Move the file aside to fall back to defaults").
					Wrap(err).
					BuildError()
			}
			resolvedPath = path
		}
		// No config file found: defaults apply, not an error.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Fix the listed fields in config.yaml").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
