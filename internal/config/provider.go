// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions names the explicit inputs to a configuration load. Zero-value
// options mean "look in the default location under ~/.venvoy".
type LoadOptions struct {
	// ConfigFilePath forces loading from one specific file. The file must
	// exist when set.
	ConfigFilePath string
	// ConfigDirPath overrides the directory searched for config.yaml.
	ConfigDirPath string
}

// Provider loads venvoy configuration from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

// NewProvider creates the file-backed configuration provider.
func NewProvider() Provider {
	return fileProvider{}
}

type fileProvider struct{}

func (fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	cfg, _, err := loadWithOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
